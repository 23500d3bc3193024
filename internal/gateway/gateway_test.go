package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/adapter/storage"
	"github.com/rl1809/fulfillment/internal/core/domain"
)

type fakeStockChecker struct {
	calls  int
	result []domain.ItemAvailability
	err    error
}

func (f *fakeStockChecker) CheckStock(ctx context.Context, items []domain.StockCheckItem) ([]domain.ItemAvailability, error) {
	f.calls++
	return f.result, f.err
}

type serviceFunc func(ctx context.Context, op Operation, payload []byte) ([]byte, error)

func (f serviceFunc) Call(ctx context.Context, op Operation, payload []byte) ([]byte, error) {
	return f(ctx, op, payload)
}

type closingService struct {
	closed int
}

func (s *closingService) Call(ctx context.Context, op Operation, payload []byte) ([]byte, error) {
	return []byte(`{"id":"p-1","name":"Saline","status":"ACTIVE"}`), nil
}

func (s *closingService) Close() error {
	s.closed++
	return nil
}

func TestClose_ReleasesCreatedServices(t *testing.T) {
	gw := New(zap.NewNop())
	var created []*closingService
	gw.Register(ServiceInventory, func() (Service, error) {
		svc := &closingService{}
		created = append(created, svc)
		return svc, nil
	})
	sc := ServiceContext{ServiceType: ServiceInventory, Operation: OpGetProduct, Data: "p-1"}

	require.True(t, gw.Execute(context.Background(), sc).Success)
	require.NoError(t, gw.Close())
	require.NoError(t, gw.Close())

	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].closed)

	require.True(t, gw.Execute(context.Background(), sc).Success)
	assert.Len(t, created, 2)
	assert.Equal(t, 0, created[1].closed)
}

func TestRegister_ClosesReplacedService(t *testing.T) {
	gw := New(zap.NewNop())
	first := &closingService{}
	gw.Register(ServiceInventory, func() (Service, error) { return first, nil })
	require.True(t, gw.Execute(context.Background(), ServiceContext{ServiceType: ServiceInventory, Operation: OpGetProduct, Data: "p-1"}).Success)

	gw.Register(ServiceInventory, func() (Service, error) { return &closingService{}, nil })

	assert.Equal(t, 1, first.closed)
}

func TestExecute_FactoryCalledOnce(t *testing.T) {
	gw := New(zap.NewNop())
	stock := &fakeStockChecker{result: []domain.ItemAvailability{{ProductID: "p-1", Requested: 1}}}
	factoryCalls := 0
	gw.Register(ServiceInventory, func() (Service, error) {
		factoryCalls++
		return NewLocalInventory(stock, storage.NewMemoryStore()), nil
	})

	for i := 0; i < 3; i++ {
		resp := gw.Execute(context.Background(), ServiceContext{
			ServiceType: ServiceInventory,
			Operation:   OpStockCheck,
			Data:        []domain.StockCheckItem{{ProductID: "p-1", Quantity: 1}},
		})
		require.True(t, resp.Success, resp.Error)
	}

	assert.Equal(t, 1, factoryCalls)
	assert.Equal(t, 3, stock.calls)
}

func TestExecute_FactoryFailureIsRetried(t *testing.T) {
	gw := New(zap.NewNop())
	attempts := 0
	gw.Register(ServiceDirectory, func() (Service, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("connection refused")
		}
		store := storage.NewMemoryStore()
		store.AddUser(domain.User{ID: "u-1", DisplayName: "Ada"})
		return NewLocalDirectory(store), nil
	})
	sc := ServiceContext{ServiceType: ServiceDirectory, Operation: OpGetUserByID, Data: "u-1"}

	first := gw.Execute(context.Background(), sc)
	assert.False(t, first.Success)
	assert.Contains(t, first.Error, "connection refused")

	second := gw.Execute(context.Background(), sc)
	require.True(t, second.Success, second.Error)
	assert.Equal(t, "Ada", second.Data.(domain.User).DisplayName)
}

func TestExecute_PanicBecomesFailure(t *testing.T) {
	gw := New(zap.NewNop())
	gw.Register(ServiceInventory, func() (Service, error) {
		return serviceFunc(func(ctx context.Context, op Operation, payload []byte) ([]byte, error) {
			panic("remote exploded")
		}), nil
	})

	resp := gw.Execute(context.Background(), ServiceContext{
		ServiceType: ServiceInventory,
		Operation:   OpGetProduct,
		Data:        "p-1",
	})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "remote exploded")
}

func TestExecute_UnknownServiceAndOperation(t *testing.T) {
	gw := New(zap.NewNop())
	gw.Register(ServiceInventory, func() (Service, error) {
		return NewLocalInventory(&fakeStockChecker{}, storage.NewMemoryStore()), nil
	})

	resp := gw.Execute(context.Background(), ServiceContext{ServiceType: "BILLING", Operation: OpGetProduct, Data: "x"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, ErrUnknownService.Error())

	resp = gw.Execute(context.Background(), ServiceContext{ServiceType: ServiceInventory, Operation: "REFUND", Data: "x"})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, ErrUnknownOperation.Error())
}

func TestExecute_InvalidRequestData(t *testing.T) {
	gw := New(zap.NewNop())
	gw.Register(ServiceInventory, func() (Service, error) {
		return NewLocalInventory(&fakeStockChecker{}, storage.NewMemoryStore()), nil
	})

	resp := gw.Execute(context.Background(), ServiceContext{ServiceType: ServiceInventory, Operation: OpStockCheck, Data: 42})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, ErrInvalidRequest.Error())
}

func TestInventoryClient_CheckStockRoundTrip(t *testing.T) {
	days := 12
	stock := &fakeStockChecker{result: []domain.ItemAvailability{{
		ProductID: "p-1",
		Requested: 3,
		Result: domain.StockValidationResult{
			IsAvailable:     true,
			RemainingStock:  7,
			Warnings:        []string{"product p-1 expires in 12 days"},
			StatusCodes:     []domain.StockStatusCode{domain.StockExpiringSoon, domain.StockAvailable},
			DaysUntilExpiry: &days,
		},
	}}}
	gw := New(zap.NewNop())
	gw.Register(ServiceInventory, func() (Service, error) {
		return NewLocalInventory(stock, storage.NewMemoryStore()), nil
	})

	got, err := NewInventoryClient(gw).CheckStock(context.Background(), []domain.StockCheckItem{{ProductID: "p-1", Quantity: 3}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Result.RemainingStock)
	assert.True(t, got[0].Result.Has(domain.StockExpiringSoon))
	require.NotNil(t, got[0].Result.DaysUntilExpiry)
	assert.Equal(t, 12, *got[0].Result.DaysUntilExpiry)
}

func TestInventoryClient_CheckStockFailure(t *testing.T) {
	gw := New(zap.NewNop())
	gw.Register(ServiceInventory, func() (Service, error) {
		return NewLocalInventory(&fakeStockChecker{err: errors.New("db down")}, storage.NewMemoryStore()), nil
	})

	_, err := NewInventoryClient(gw).CheckStock(context.Background(), []domain.StockCheckItem{{ProductID: "p-1", Quantity: 1}})

	assert.ErrorIs(t, err, ErrCallFailed)
	assert.Contains(t, err.Error(), "db down")
}

func TestDirectoryClient_Lookups(t *testing.T) {
	store := storage.NewMemoryStore()
	centerID := "hc-1"
	store.AddHealthCareCenter(domain.HealthCareCenter{ID: centerID, Name: "North Clinic"})
	store.AddUser(domain.User{ID: "u-1", DisplayName: "Grace", HealthCareCenterID: &centerID})

	gw := New(zap.NewNop())
	gw.Register(ServiceDirectory, func() (Service, error) { return NewLocalDirectory(store), nil })
	client := NewDirectoryClient(gw)

	user, err := client.GetUserByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.DisplayName)
	require.NotNil(t, user.HealthCareCenterID)

	center, err := client.GetHealthCareCenterByID(context.Background(), *user.HealthCareCenterID)
	require.NoError(t, err)
	assert.Equal(t, "North Clinic", center.Name)

	_, err = client.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCallFailed)
}
