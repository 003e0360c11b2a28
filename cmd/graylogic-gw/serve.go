package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-gateway/internal/api"
	"github.com/nerrad567/gray-logic-gateway/internal/device"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-gateway/internal/resource"
	"github.com/nerrad567/gray-logic-gateway/migrations"
)

// configNodeID is the id of the single /config node.
const configNodeID = "0"

// influxRetry bounds the initial InfluxDB connection attempts. The broker
// uses the mqtt.reconnect settings instead.
var influxRetry = retryPolicy{initial: time.Second, max: 30 * time.Second, attempts: 5}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the gateway until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Cancel on Ctrl+C and SIGTERM for graceful shutdown.
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, getConfigPath())
		},
	})
}

// run is the actual application logic, separated from the command for
// testability. It returns nil on clean shutdown.
func run(ctx context.Context, path string) error { //nolint:gocognit,gocyclo // linear startup sequence
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(cfg.Database)
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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("device"))
	registry.SetLocation(cfg.Location())

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		collector := metrics.New()
		registry.SetMetrics(collector)
		registry.Subscribe(collector)
		metricsHandler = collector.Handler()
	}

	if loadErr := registry.LoadAll(ctx); loadErr != nil {
		return fmt.Errorf("loading device registry: %w", loadErr)
	}
	if cfgErr := ensureConfigNode(ctx, registry, cfg.Gateway); cfgErr != nil {
		return fmt.Errorf("creating config node: %w", cfgErr)
	}
	log.Info("device registry initialised", "nodes", registry.GetStats().TotalNodes)

	health := map[string]api.HealthChecker{"database": db}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := startMQTT(ctx, cfg, registry, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		health["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := startInfluxDB(ctx, cfg.InfluxDB, registry, log)
		if influxErr != nil {
			return influxErr
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		health["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		APIKeys:     cfg.Gateway.APIKeys,
		Logger:      log,
		Registry:    registry,
		Metrics:     metricsHandler,
		MetricsPath: cfg.Metrics.Path,
		Health:      health,
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

	log.Info("initialisation complete, waiting for shutdown signal", "address", server.Addr())

	<-ctx.Done()

	// Deferred Close() calls run in reverse order: API server, InfluxDB,
	// MQTT, database.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// ensureConfigNode creates the /config node on first start.
func ensureConfigNode(ctx context.Context, registry *device.Registry, gw config.GatewayConfig) error {
	if _, err := registry.Get(resource.PrefixConfig, configNodeID); err == nil {
		return nil
	}
	_, err := registry.Add(ctx, device.NodeSpec{
		Prefix:   resource.PrefixConfig,
		Type:     "Gateway",
		ID:       configNodeID,
		Name:     gw.Name,
		UniqueID: gw.ID,
	})
	if errors.Is(err, device.ErrNodeExists) {
		return nil
	}
	return err
}

// startMQTT connects to the broker, publishes registry events and applies
// writes received on the set topics.
func startMQTT(ctx context.Context, cfg *config.Config, registry *device.Registry, log *logging.Logger) (*mqtt.Client, error) {
	mqttLog := log.Component("mqtt")

	var client *mqtt.Client
	policy := retryPolicy{
		initial:  time.Duration(cfg.MQTT.Reconnect.InitialDelay) * time.Second,
		max:      time.Duration(cfg.MQTT.Reconnect.MaxDelay) * time.Second,
		attempts: cfg.MQTT.Reconnect.MaxAttempts,
	}
	err := retry(ctx, policy, func() error {
		c, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, func(err error, next time.Duration) {
		mqttLog.Warn("MQTT connect failed, retrying", "error", err, "retry_in", next.String())
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}

	client.SetLogger(mqttLog)
	client.SetOnConnect(func() {
		mqttLog.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		mqttLog.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	publisher := mqtt.NewEventPublisher(client, client.QoS(), 0)
	publisher.SetLogger(mqttLog)
	go publisher.Run(ctx)
	registry.Subscribe(publisher)

	if err := mqtt.SubscribeCommands(client, client.QoS(), mqtt.NewCommandHandler(registry)); err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("subscribing to MQTT commands: %w", err)
	}
	return client, nil
}

// startInfluxDB connects to InfluxDB and records item history.
func startInfluxDB(ctx context.Context, cfg config.InfluxDBConfig, registry *device.Registry, log *logging.Logger) (*influxdb.Client, error) {
	influxLog := log.Component("influxdb")

	var client *influxdb.Client
	err := retry(ctx, influxRetry, func() error {
		c, err := influxdb.Connect(cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, func(err error, next time.Duration) {
		influxLog.Warn("InfluxDB connect failed, retrying", "error", err, "retry_in", next.String())
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		influxLog.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)

	recorder := influxdb.NewRecorder(client)
	go recorder.Run(ctx)
	registry.Subscribe(recorder)
	return client, nil
}

// retryPolicy configures an exponential backoff. Zero attempts retries
// until the context ends.
type retryPolicy struct {
	initial  time.Duration
	max      time.Duration
	attempts int
}

func (p retryPolicy) backOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if p.initial > 0 {
		bo.InitialInterval = p.initial
	}
	if p.max > 0 {
		bo.MaxInterval = p.max
	}
	bo.MaxElapsedTime = 0

	var b backoff.BackOff = bo
	if p.attempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.attempts-1)) // #nosec G115 -- attempts checked positive
	}
	return backoff.WithContext(b, ctx)
}

// retry runs op until it succeeds, the policy gives up or ctx ends.
func retry(ctx context.Context, p retryPolicy, op func() error, notify func(error, time.Duration)) error {
	return backoff.RetryNotify(op, p.backOff(ctx), notify)
}
