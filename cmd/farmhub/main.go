// FarmHub Core - Greenhouse Automation Platform
//
// This is the main entry point for the FarmHub Core application.
// FarmHub Core ingests telemetry from an ESP32 device fleet over MQTT,
// evaluates automation rules against incoming sensor readings, and
// dispatches actuator commands. It is designed for:
//   - Offline-first operation on a single on-site host
//   - SQLite as the sole system of record (optional InfluxDB mirror)
//   - A plain MQTT topic contract any microcontroller can speak
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/farmhub/farmhub-core/migrations"

	"github.com/farmhub/farmhub-core/internal/api"
	"github.com/farmhub/farmhub-core/internal/automation"
	"github.com/farmhub/farmhub-core/internal/command"
	"github.com/farmhub/farmhub-core/internal/component"
	"github.com/farmhub/farmhub-core/internal/device"
	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
	"github.com/farmhub/farmhub-core/internal/infrastructure/database"
	"github.com/farmhub/farmhub-core/internal/infrastructure/influxdb"
	"github.com/farmhub/farmhub-core/internal/infrastructure/logging"
	"github.com/farmhub/farmhub-core/internal/infrastructure/mqtt"
	"github.com/farmhub/farmhub-core/internal/monitor"
	"github.com/farmhub/farmhub-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting FarmHub Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	deviceRepo := device.NewSQLiteRepository(db.DB)
	componentRepo := component.NewSQLiteRepository(db.DB)
	readingRepo := telemetry.NewSQLiteRepository(db.DB)
	commandRepo := command.NewSQLiteRepository(db.DB)
	automationRepo := automation.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"namespace", cfg.MQTT.Namespace,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional mirror for dashboards)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// WebSocket hub, shared by the API server, the pipeline, the
	// automation engine, and the monitor.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	topics := mqtt.NewTopics(cfg.MQTT.Namespace)

	// Command publisher for outbound actuator commands
	publisher := command.NewPublisher(mqttClient, componentRepo, commandRepo, topics)
	publisher.SetLogger(log)

	// Automation rule registry and evaluation engine
	resolver := automation.ResolverFunc(func(ctx context.Context, deploymentID string) (automation.DeploymentInfo, error) {
		detail, err := componentRepo.GetDetail(ctx, deploymentID)
		if err != nil {
			return automation.DeploymentInfo{}, err
		}
		return automation.DeploymentInfo{
			ID:                  detail.ID,
			DeviceIdentifier:    detail.DeviceIdentifier,
			ComponentIdentifier: detail.ComponentIdentifier,
			WireToken:           component.WireToken(detail.ComponentIdentifier),
			Category:            string(detail.Category),
		}, nil
	})

	registry := automation.NewRegistry(automationRepo, resolver)
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automation rules: %w", refreshErr)
	}
	log.Info("automation rules loaded", "rules", registry.GetRuleCount())

	engine := automation.NewEngine(registry, resolver, publisher, automationRepo, hub, log)

	// Telemetry pipeline and bounded ingest queue
	pipelineCfg := telemetry.PipelineConfig{
		Topics:     topics,
		Devices:    deviceRepo,
		Components: componentRepo,
		Readings:   readingRepo,
		Commands:   commandRepo,
		Rules:      engine,
		Hub:        hub,
		Logger:     log,
	}
	if influxClient != nil {
		pipelineCfg.Metrics = influxClient
	}
	pipeline := telemetry.NewPipeline(pipelineCfg)

	ingestor := telemetry.NewIngestor(pipeline, cfg.Ingest.QueueCapacity)
	ingestor.SetLogger(log)
	ingestor.Start(ctx)
	defer func() {
		log.Info("draining ingest queue")
		ingestor.Close()
	}()

	// Subscribe to the device fleet's inbound topics. The bounded queue
	// keeps broker callbacks from ever blocking on SQLite.
	if err := subscribeInbound(mqttClient, topics, byte(cfg.MQTT.QoS), ingestor); err != nil {
		return fmt.Errorf("subscribing to device topics: %w", err)
	}
	log.Info("subscribed to device topics", "namespace", cfg.MQTT.Namespace)

	// Liveness monitor
	monitorCfg := monitor.Config{
		Devices:               deviceRepo,
		Components:            componentRepo,
		Hub:                   hub,
		Logger:                log,
		SweepInterval:         cfg.SweepInterval(),
		DeviceOfflineAfter:    cfg.DeviceOfflineAfter(),
		ComponentOfflineAfter: cfg.LivenessWindow(),
	}
	if influxClient != nil {
		monitorCfg.Health = influxClient
	}
	liveness := monitor.New(monitorCfg)
	liveness.Start(ctx)
	defer func() {
		log.Info("stopping liveness monitor")
		liveness.Stop()
	}()

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Devices:     deviceRepo,
		Components:  componentRepo,
		Readings:    readingRepo,
		Commands:    commandRepo,
		Rules:       registry,
		Alerts:      automationRepo,
		Sender:      publisher,
		Monitor:     liveness,
		Ingest:      ingestor,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stops accepting requests)
	// 2. Liveness monitor
	// 3. Ingest queue (drains in-flight messages)
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("FarmHub Core stopped")
	return nil
}

// subscribeInbound wires the fleet's four inbound topic families into
// the ingest queue. Outbound command topics are deliberately not
// subscribed; the /cmd suffix is filtered again at parse time in case
// a wildcard overlaps.
func subscribeInbound(client *mqtt.Client, topics mqtt.Topics, qos byte, ingestor *telemetry.Ingestor) error {
	handler := func(topic string, payload []byte) error {
		ingestor.Enqueue(topic, payload, time.Now().UTC())
		return nil
	}

	for _, filter := range []string{
		topics.AllSensors(),
		topics.AllActuatorEchoes(),
		topics.AllStatuses(),
		topics.AllHeartbeats(),
	} {
		if err := client.Subscribe(filter, qos, handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", filter, err)
		}
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FARMHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FARMHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The InfluxDB client may be nil when the mirror is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
