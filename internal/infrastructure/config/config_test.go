package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
mqtt:
  broker:
    host: "broker.local"
    port: 8883
    tls: true
    client_id: "test-client"
  qos: 1
pipeline:
  queue_size: 64
  zigbee2mqtt_base: "z2m"
accessor:
  ack_timeout: 5
registry:
  persist: true
  path: "/tmp/test.db"
metrics:
  enabled: true
  port: 9100
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true")
	}
	if cfg.Pipeline.QueueSize != 64 {
		t.Errorf("Pipeline.QueueSize = %d, want 64", cfg.Pipeline.QueueSize)
	}
	if cfg.Pipeline.Zigbee2MQTTBase != "z2m" {
		t.Errorf("Pipeline.Zigbee2MQTTBase = %q, want %q", cfg.Pipeline.Zigbee2MQTTBase, "z2m")
	}
	if cfg.AckTimeout() != 5*time.Second {
		t.Errorf("AckTimeout() = %v, want 5s", cfg.AckTimeout())
	}
	if !cfg.Registry.Persist || cfg.Registry.Path != "/tmp/test.db" {
		t.Errorf("Registry = %+v, want persist to /tmp/test.db", cfg.Registry)
	}
	if cfg.Metrics.Port != 9100 {
		t.Errorf("Metrics.Port = %d, want 9100", cfg.Metrics.Port)
	}
}

func TestLoad_DefaultsFillGaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, `mqtt: {broker: {host: "only-host"}}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port default = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Pipeline.QueueSize != 256 {
		t.Errorf("Pipeline.QueueSize default = %d, want 256", cfg.Pipeline.QueueSize)
	}
	if cfg.Pipeline.Zigbee2MQTTBase != "zigbee2mqtt" {
		t.Errorf("Pipeline.Zigbee2MQTTBase default = %q", cfg.Pipeline.Zigbee2MQTTBase)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level default = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad qos", "mqtt: {qos: 3}"},
		{"bad port", "mqtt: {broker: {port: 70000}}"},
		{"zero queue", "pipeline: {queue_size: 0}"},
		{"persist without path", "registry: {persist: true, path: \"\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOMEWIRE_MQTT_HOST", "env-broker")
	t.Setenv("HOMEWIRE_MQTT_PORT", "2883")
	t.Setenv("HOMEWIRE_MQTT_PASSWORD", "hunter2")
	t.Setenv("HOMEWIRE_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, `mqtt: {broker: {host: "file-broker"}}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 2883 {
		t.Errorf("MQTT.Broker.Port = %d, want 2883", cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Errorf("MQTT.Auth.Password not overridden")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}
