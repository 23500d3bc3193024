package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/fulfillment/internal/adapter/handler"
	"github.com/rl1809/fulfillment/internal/adapter/storage"
	"github.com/rl1809/fulfillment/internal/app"
	"github.com/rl1809/fulfillment/internal/config"
	"github.com/rl1809/fulfillment/internal/observability"
	"github.com/rl1809/fulfillment/pkg/logger"
)

func main() {
	application := &cli.App{
		Name:  "fulfillment",
		Usage: "order fulfillment coordination service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP and gRPC servers",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply or roll back database migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: migrateUp},
					{
						Name:      "down",
						Usage:     "roll back N migrations (default 1)",
						ArgsUsage: "[N]",
						Action:    migrateDown,
					},
				},
			},
		},
		Action: serve,
	}

	if err := application.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(cctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownLogging, err := observability.SetupLogging(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	log := logger.WithOTel(logger.New(cfg.Environment), cfg.ServiceName)
	defer log.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	// gRPC server
	grpcServer := handler.NewGRPCServer()
	handler.RegisterOrdersServer(grpcServer, handler.NewGRPCHandler(container.Orders, log))
	for serviceType, svc := range container.LocalServices() {
		handler.RegisterGatewayService(grpcServer, serviceType, svc)
	}

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCPort, err)
	}

	// HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))
	handler.NewHTTPHandler(container.Orders, container.Inventory, log).Register(router)
	httpServer := &http.Server{Addr: cfg.HTTPPort, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("gRPC server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", zap.Error(err))
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")

		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
		if err := shutdownLogging(shutdownCtx); err != nil {
			log.Warn("log exporter shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func migrateUp(cctx *cli.Context) error {
	db, err := openMigrationDB()
	if err != nil {
		return err
	}
	if err := storage.MigrateUp(db.DB); err != nil {
		return err
	}
	fmt.Println("migrations applied")
	return nil
}

func migrateDown(cctx *cli.Context) error {
	steps := 1
	if arg := cctx.Args().First(); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid step count %q", arg)
		}
		steps = n
	}

	db, err := openMigrationDB()
	if err != nil {
		return err
	}
	if err := storage.MigrateDown(db.DB, steps); err != nil {
		return err
	}
	fmt.Printf("rolled back %d migration(s)\n", steps)
	return nil
}

// openMigrationDB returns a handle the migrator closes when done.
func openMigrationDB() (*sqlx.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}
