// Package gateway routes typed calls to other services. Each service type
// is backed by a lazily created Service handle; each operation has a
// translator that converts the caller's data to a JSON payload and the
// reply back to domain values. Execute never returns an error or panics:
// every failure becomes ServiceResponse{Success: false}.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

type ServiceType string

const (
	ServiceInventory ServiceType = "INVENTORY"
	ServiceDirectory ServiceType = "DIRECTORY"
)

type Operation string

const (
	OpStockCheck              Operation = "STOCK_CHECK"
	OpGetProduct              Operation = "GET_PRODUCT"
	OpGetUserByID             Operation = "GET_USER_BY_ID"
	OpGetHealthCareCenterByID Operation = "GET_HEALTH_CARE_CENTER_BY_ID"
)

var (
	ErrUnknownService   = errors.New("unknown service type")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrInvalidRequest   = errors.New("invalid request data")
)

type ServiceContext struct {
	ServiceType ServiceType
	Operation   Operation
	Data        any
}

type ServiceResponse struct {
	Success bool
	Data    any
	Error   string
}

// Service is a handle to one remote service. Payloads are JSON documents.
type Service interface {
	Call(ctx context.Context, op Operation, payload []byte) ([]byte, error)
}

type Factory func() (Service, error)

type Translator struct {
	Request  func(data any) ([]byte, error)
	Response func(payload []byte) (any, error)
}

type Gateway struct {
	mu          sync.Mutex
	factories   map[ServiceType]Factory
	services    map[ServiceType]Service
	translators map[Operation]Translator
	logger      *zap.Logger
}

// New returns a gateway with the built-in translators and no services.
func New(logger *zap.Logger) *Gateway {
	return &Gateway{
		factories:   make(map[ServiceType]Factory),
		services:    make(map[ServiceType]Service),
		translators: defaultTranslators(),
		logger:      logger,
	}
}

// Register sets the factory for a service type. The factory runs on first
// use; a failed factory call is retried on the next Execute.
func (g *Gateway) Register(serviceType ServiceType, factory Factory) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.factories[serviceType] = factory
	if svc, ok := g.services[serviceType]; ok {
		closeService(svc)
		delete(g.services, serviceType)
	}
}

func (g *Gateway) RegisterTranslator(op Operation, t Translator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.translators[op] = t
}

func (g *Gateway) Execute(ctx context.Context, sc ServiceContext) (resp ServiceResponse) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("service call panicked",
				zap.String("service_type", string(sc.ServiceType)),
				zap.String("operation", string(sc.Operation)),
				zap.Any("panic", r),
			)
			resp = ServiceResponse{Success: false, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	data, err := g.execute(ctx, sc)
	if err != nil {
		g.logger.Warn("service call failed",
			zap.String("service_type", string(sc.ServiceType)),
			zap.String("operation", string(sc.Operation)),
			zap.Error(err),
		)
		return ServiceResponse{Success: false, Error: err.Error()}
	}
	return ServiceResponse{Success: true, Data: data}
}

func (g *Gateway) execute(ctx context.Context, sc ServiceContext) (any, error) {
	svc, err := g.service(sc.ServiceType)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	t, ok := g.translators[sc.Operation]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, sc.Operation)
	}

	payload, err := t.Request(sc.Data)
	if err != nil {
		return nil, fmt.Errorf("translate %s request: %w", sc.Operation, err)
	}

	reply, err := svc.Call(ctx, sc.Operation, payload)
	if err != nil {
		return nil, err
	}

	data, err := t.Response(reply)
	if err != nil {
		return nil, fmt.Errorf("translate %s response: %w", sc.Operation, err)
	}
	return data, nil
}

func (g *Gateway) service(serviceType ServiceType) (Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if svc, ok := g.services[serviceType]; ok {
		return svc, nil
	}

	factory, ok := g.factories[serviceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, serviceType)
	}

	svc, err := factory()
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", serviceType, err)
	}
	g.services[serviceType] = svc
	return svc, nil
}

// Close releases every created service handle that holds a connection.
// A later Execute runs the factory again.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var err error
	for serviceType, svc := range g.services {
		err = errors.Join(err, closeService(svc))
		delete(g.services, serviceType)
	}
	return err
}

func closeService(svc Service) error {
	if c, ok := svc.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
