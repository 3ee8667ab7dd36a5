// @title        Building Telemetry API
// @version      1.0
// @description  Derived occupancy, power and deviation series of building sensors.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"building_telemetry/internal/config"
	"building_telemetry/internal/handlers"
	"building_telemetry/internal/ingest"
	"building_telemetry/internal/logger"
	"building_telemetry/internal/observability"
	"building_telemetry/internal/repository"
	"building_telemetry/internal/repository/db"
	"building_telemetry/internal/repository/memory"
	"building_telemetry/internal/server"
	"building_telemetry/internal/service"
	"building_telemetry/internal/timeutil"
)

const shutdownTimeout = 10 * time.Second

func main() {
	boot := logger.Get(logger.InfoLevel)

	cfg, err := config.Load("configs")
	if err != nil {
		boot.Fatalw("error reading config", "err", err)
	}
	log := logger.ForDebug(cfg.Debug)
	defer func() { _ = log.Sync() }()

	repos, closeStore, err := openStore(cfg.Store, log)
	if err != nil {
		log.Fatalw("failed to open store", "driver", cfg.Store.Driver, "err", err)
	}
	defer closeStore()

	metrics := observability.NewMetrics()
	services, err := service.NewService(repos, cfg, deviceFetcher(cfg.Registry), timeutil.RealClock{}, metrics, log)
	if err != nil {
		log.Fatalw("failed to wire services", "err", err)
	}

	parser, err := ingest.NewParser()
	if err != nil {
		log.Fatalw("failed to compile event schema", "err", err)
	}

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := services.Sweep.Start(ctx, cfg.Backfill.Schedule); err != nil {
		log.Fatalw("failed to schedule backfill", "err", err)
	}

	source, err := ingestSource(cfg.Ingest, parser, services, log)
	if err != nil {
		log.Fatalw("failed to configure ingest source", "source", cfg.Ingest.Source, "err", err)
	}
	if source != nil {
		go func() {
			if err := source.Run(ctx); err != nil && ctx.Err() == nil {
				log.Errorw("ingest source stopped", "source", cfg.Ingest.Source, "err", err)
			}
		}()
	}

	apiHandler := handlers.NewHandler(services, parser, metrics, log)
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	go func() {
		log.Infow("http server listening", "addr", srv.Addr())
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()

	waitForShutdown(cancel, srv, services.Sweep, log)
}

// openStore selects the time-series backend; the returned func releases it.
func openStore(cfg config.StoreConfig, log *logger.Logger) (*repository.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Infow("using in-memory store; data is lost on exit")
		repos, _ := memory.NewRepository()
		return repos, func() {}, nil
	case config.DriverSQLite:
		conn, err := db.InitDB(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		if v, dirty, err := db.MigrateVersion(conn); err == nil {
			log.Infow("sqlite store ready", "path", cfg.Path, "schema_version", v, "dirty", dirty)
		}
		return repository.NewRepository(conn), closeDB(conn, log), nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func closeDB(conn *sql.DB, log *logger.Logger) func() {
	return func() {
		if err := conn.Close(); err != nil {
			log.Errorw("failed to close sqlite", "err", err)
		}
	}
}

// deviceFetcher returns nil when no device API is configured.
func deviceFetcher(cfg config.RegistryConfig) service.DeviceFetcher {
	if cfg.APIURL == "" {
		return nil
	}
	return service.NewDeviceAPIClient(cfg.APIURL, cfg.Username, cfg.Password)
}

func ingestSource(cfg config.IngestConfig, parser *ingest.Parser, h ingest.Handler, log *logger.Logger) (ingest.Source, error) {
	switch cfg.Source {
	case config.SourceNone, "":
		return nil, nil
	case config.SourceStream:
		return ingest.NewStreamSource(ingest.StreamConfig{
			BaseURL:  cfg.StreamURL,
			Network:  cfg.Network,
			Username: cfg.Username,
			Password: cfg.Password,
		}, parser, h, log)
	case config.SourceKafka:
		return ingest.NewKafkaSource(ingest.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.Group,
		}, parser, h, log)
	}
	return nil, fmt.Errorf("unknown ingest source %q", cfg.Source)
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, sweep *service.BackfillSweep, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()
	sweep.Stop()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
