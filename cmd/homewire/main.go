// Homewire - MQTT device normalization daemon
//
// Homewire subscribes to the topic families of zigbee2mqtt and Tasmota
// devices, discovers devices passively from their own traffic, and refines
// every report into a canonical state. Consumers see one vocabulary
// regardless of which firmware produced the message, and commands flow the
// other way: canonical desired states are encoded back into each dialect.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/arnowe/homewire/internal/accessor"
	"github.com/arnowe/homewire/internal/codec"
	"github.com/arnowe/homewire/internal/device"
	"github.com/arnowe/homewire/internal/dispatch"
	"github.com/arnowe/homewire/internal/infrastructure/config"
	"github.com/arnowe/homewire/internal/infrastructure/database"
	"github.com/arnowe/homewire/internal/infrastructure/logging"
	"github.com/arnowe/homewire/internal/infrastructure/metrics"
	"github.com/arnowe/homewire/internal/infrastructure/mqtt"
	"github.com/arnowe/homewire/internal/message"
	"github.com/arnowe/homewire/internal/pipeline"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// options holds the command line flags layered over the config file.
type options struct {
	configPath string
	broker     string
	devices    string
	logLevel   string
	duration   time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file path (default configs/config.yaml, or HOMEWIRE_CONFIG)")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address as host:port, overrides the config file")
	flag.StringVar(&opts.devices, "devices", "", "comma-separated device names the observer logs (default: all)")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")
	flag.DurationVar(&opts.duration, "duration", 0, "run for this long then exit (default: until signalled)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Homewire",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Metrics are optional; a nil *metrics.Metrics records nothing.
	var meter *metrics.Metrics
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		meter = metrics.New()
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(addr, meter)
		go func() {
			if serveErr := metricsServer.Start(); serveErr != nil {
				log.Error("metrics server failed", "error", serveErr)
			}
		}()
		defer func() {
			log.Info("stopping metrics server")
			if stopErr := metricsServer.Shutdown(context.Background()); stopErr != nil {
				log.Error("error stopping metrics server", "error", stopErr)
			}
		}()
		log.Info("metrics endpoint started", "addr", addr)
	} else {
		log.Info("metrics disabled")
	}

	// Initialise device registry, with optional SQLite persistence
	var repo device.Repository
	if cfg.Registry.Persist {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Registry.Path,
			WALMode:     true,
			BusyTimeout: 5,
		})
		if openErr != nil {
			return fmt.Errorf("opening registry database: %w", openErr)
		}
		defer func() {
			log.Info("closing registry database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing registry database", "error", closeErr)
			}
		}()
		log.Info("registry database opened", "path", cfg.Registry.Path)

		repo, err = device.NewSQLiteRepository(db.DB)
		if err != nil {
			return fmt.Errorf("initialising device repository: %w", err)
		}
	}

	deviceRegistry := device.NewRegistry(repo)
	deviceRegistry.SetLogger(log)
	if restoreErr := deviceRegistry.Restore(ctx); restoreErr != nil {
		return fmt.Errorf("restoring device registry: %w", restoreErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.Count())

	codecs := codec.NewDefaultRegistry()

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
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Command path
	acc := accessor.New(deviceRegistry, codecs, mqttClient, accessor.Config{
		Z2MBase:    cfg.Pipeline.Zigbee2MQTTBase,
		QoS:        byte(cfg.MQTT.QoS),
		AckTimeout: cfg.AckTimeout(),
	})
	acc.SetLogger(log)
	acc.SetRecorder(meter)
	defer acc.Close()

	// Normalization pipeline
	pipe := pipeline.New(pipeline.Config{
		QueueSize: cfg.Pipeline.QueueSize,
		Z2MBase:   cfg.Pipeline.Zigbee2MQTTBase,
		QoS:       byte(cfg.MQTT.QoS),
	}, deviceRegistry, codecs)
	pipe.SetLogger(log)
	pipe.SetRecorder(meter)
	pipe.SetStateRequester(acc)

	// The consumer logs refined messages matching the device filter; the
	// default handler still feeds every state report to the accessor so
	// acknowledgement waits work regardless of the filter.
	consumer := pipe.NewConsumer("observer", []dispatch.Route{
		{
			When: message.ForDevices(deviceFilter(opts.devices)...),
			Handle: func(m *message.Message) *message.Message {
				acc.ObserveState(m)
				log.Info("refined",
					"type", string(m.Type),
					"device", m.DeviceName,
					"protocol", string(m.Protocol),
					"model", string(m.Model),
					"state", fmt.Sprintf("%+v", m.Canonical),
				)
				return nil
			},
		},
	})
	consumer.SetDefault(func(m *message.Message) *message.Message {
		acc.ObserveState(m)
		return nil
	})

	if err := pipe.Start(mqttClient); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	defer func() {
		log.Info("stopping pipeline")
		pipe.Stop()
		consumer.Stop()
	}()

	if err := consumer.Start(); err != nil {
		return fmt.Errorf("starting consumer: %w", err)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
		log.Info("run duration set", "duration", opts.duration.String())
	}

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Pipeline and consumer (drain in-flight messages)
	// 2. Accessor timers
	// 3. MQTT
	// 4. Registry database (if enabled)
	// 5. Metrics server (if enabled)

	log.Info("Homewire stopped")
	return nil
}

// getConfigPath returns the configuration file path. Flag beats the
// HOMEWIRE_CONFIG environment variable, which beats the default.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("HOMEWIRE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// applyFlags layers command line overrides onto the loaded config.
func applyFlags(cfg *config.Config, opts options) error {
	if opts.broker != "" {
		host, portStr, err := net.SplitHostPort(opts.broker)
		if err != nil {
			return fmt.Errorf("invalid -broker %q: %w", opts.broker, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid -broker port %q: %w", portStr, err)
		}
		cfg.MQTT.Broker.Host = host
		cfg.MQTT.Broker.Port = port
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg.Validate()
}

// deviceFilter turns the -devices flag into route predicate arguments.
func deviceFilter(devices string) []string {
	if devices == "" {
		return []string{"*"}
	}
	var names []string
	for _, n := range strings.Split(devices, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return []string{"*"}
	}
	return names
}

// healthCheck verifies the broker connection is healthy.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}
