// ForestOS Core - smart plant care backend
//
// This is the main entry point for the ForestOS Core service. It serves the
// REST and WebSocket API, ingests sensor readings over HTTP and MQTT, sends
// watering commands to pump controllers and raises plant care alerts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/nerrad567/forestos-core/migrations"

	"github.com/nerrad567/forestos-core/internal/alert"
	"github.com/nerrad567/forestos-core/internal/api"
	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/config"
	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/forestos-core/internal/infrastructure/logging"
	"github.com/nerrad567/forestos-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/forestos-core/internal/plant"
	"github.com/nerrad567/forestos-core/internal/sensor"
	"github.com/nerrad567/forestos-core/internal/watering"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting ForestOS Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", db.Path())

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	tokens, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    cfg.Security.JWT.Secret,
		Algorithm: cfg.Security.JWT.Algorithm,
		TTL:       time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	users := auth.NewUserRepository(db.DB)
	catalog := plant.NewCatalogRepository(db.DB)
	plants := plant.NewRepository(db.DB)
	sensors := sensor.NewRepository(db)
	events := watering.NewRepository(db)
	alerts := alert.NewRepository(db)

	if err := seedData(ctx, cfg, users, catalog, log); err != nil {
		return err
	}

	// Connect to InfluxDB (optional)
	var (
		readingSeries  sensor.TimeSeries
		wateringSeries watering.TimeSeries
		components     = map[string]api.HealthChecker{}
	)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		readingSeries = influxClient
		wateringSeries = influxClient
		components["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	thresholds := alert.DefaultThresholds()
	thresholds.LowBatteryPct = float64(cfg.Sensors.LowBatteryPct)
	evaluator := alert.NewEvaluator(alerts, plants, thresholds, log.Logger)

	readings := sensor.NewService(sensors, evaluator, readingSeries, log.Logger)

	// Connect to MQTT broker (optional)
	var (
		mqttClient *mqtt.Client
		dispatcher watering.Dispatcher
		commander  *watering.Commander
	)
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		commander = watering.NewCommander(mqttClient, mqttClient.QoS(), log.Logger)
		dispatcher = commander
		components["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled, sensor ingest and pump commands are HTTP only")
	}

	wateringSvc := watering.NewService(events, dispatcher, wateringSeries, evaluator, log.Logger)
	gate := auth.NewGate(tokens, users, sensors)

	if mqttClient != nil {
		if err := commander.Start(wateringSvc.ApplyReport); err != nil {
			return fmt.Errorf("starting watering commander: %w", err)
		}
		ingestor := sensor.NewIngestor(mqttClient, gate, readings, mqttClient.QoS(), log.Logger)
		if err := ingestor.Start(); err != nil {
			return fmt.Errorf("starting sensor ingest: %w", err)
		}
		log.Info("MQTT subscriptions active", "count", mqttClient.SubscriptionCount())
	}

	sweeper := sensor.NewOfflineSweeper(sensors, evaluator,
		time.Duration(cfg.Sensors.OfflineAfter)*time.Minute,
		time.Duration(cfg.Sensors.SweepInterval)*time.Minute,
		log.Logger,
	)
	go sweeper.Run(ctx)

	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Security:      cfg.Security,
		Logger:        log,
		Version:       version,
		DB:            db,
		Tokens:        tokens,
		Gate:          gate,
		Authenticator: auth.NewAuthenticator(users, log.Logger),
		Users:         users,
		Catalog:       catalog,
		Plants:        plants,
		Sensors:       sensors,
		Readings:      readings,
		Watering:      wateringSvc,
		Alerts:        alerts,
		AlertSource:   evaluator,
		Components:    components,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, components); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	// Deferred closes run in reverse: API server, MQTT, InfluxDB, database.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns FORESTOS_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("FORESTOS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// seedData loads the species catalog and creates the bootstrap superuser.
// Both steps are idempotent.
func seedData(ctx context.Context, cfg *config.Config, users auth.UserRepository, catalog plant.CatalogRepository, log *logging.Logger) error {
	if cfg.Catalog.SeedFile != "" {
		species, err := plant.LoadCatalogFile(cfg.Catalog.SeedFile)
		if err != nil {
			return fmt.Errorf("loading catalog seed: %w", err)
		}
		added, err := plant.SeedCatalog(ctx, catalog, species)
		if err != nil {
			return fmt.Errorf("seeding catalog: %w", err)
		}
		log.Info("plant catalog seeded", "path", cfg.Catalog.SeedFile, "species", len(species), "added", added)
	}

	if _, err := auth.SeedSuperuser(ctx, users, cfg.Security.Bootstrap.Email, log.Logger); err != nil {
		return fmt.Errorf("seeding superuser: %w", err)
	}
	return nil
}

// healthCheck verifies the database and every optional component.
func healthCheck(ctx context.Context, db *database.DB, components map[string]api.HealthChecker) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	for name, c := range components {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
