package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Hostname           string        `mapstructure:"hostname"`
	EventSource        string        `mapstructure:"event_source"`
	DockerBinary       string        `mapstructure:"docker_binary"`
	QueueSize          int           `mapstructure:"queue_size"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	DestroyedRetention time.Duration `mapstructure:"destroyed_retention"`
}

// LoggingConfig holds the logging-related configuration.
type LoggingConfig struct {
	Level string `mapstructure:"log_level"`
	Debug bool   `mapstructure:"debug"`
}

// SinkConfig selects the publish backend.
type SinkConfig struct {
	Backend string `mapstructure:"backend"`
}

// MQTTConfig holds broker connection and topic settings.
type MQTTConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	ClientID    string        `mapstructure:"client_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
	QoS         int           `mapstructure:"qos"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
}

// EtcdConfig holds etcd-related configuration.
type EtcdConfig struct {
	Endpoints  []string `mapstructure:"endpoints"`
	PathPrefix string   `mapstructure:"path_prefix"`
	// LeaseTTL in seconds bounds how long the online key outlives a crashed
	// process; an absent key reads as offline.
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Config is the top-level configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Logging LoggingConfig `mapstructure:"log"`
	Sink    SinkConfig    `mapstructure:"sink"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Etcd    EtcdConfig    `mapstructure:"etcd"`
}

const (
	EventSourceAPI = "api"
	EventSourceCLI = "cli"

	BackendMQTT = "mqtt"
	BackendEtcd = "etcd"
)

// InitConfig performs the initial configuration: setting defaults, specifying the config file, and reading it.
func InitConfig(configFile string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "docker-host"
	}

	viper.SetDefault("app.hostname", hostname)
	viper.SetDefault("app.event_source", EventSourceAPI)
	viper.SetDefault("app.docker_binary", "docker")
	viper.SetDefault("app.queue_size", 100)
	viper.SetDefault("app.poll_interval", time.Second)
	viper.SetDefault("app.destroyed_retention", 24*time.Hour)
	viper.SetDefault("log.log_level", "INFO")
	viper.SetDefault("log.debug", false)
	viper.SetDefault("sink.backend", BackendMQTT)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.user", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.client_id", "")
	viper.SetDefault("mqtt.timeout", 10*time.Second)
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.topic_prefix", "docker2mqtt")
	viper.SetDefault("etcd.endpoints", []string{"localhost:2379"})
	viper.SetDefault("etcd.path_prefix", "/docker-mqtt-sync")
	viper.SetDefault("etcd.lease_ttl", 10)
	viper.SetDefault("etcd.dial_timeout", 2*time.Second)

	// Specify the config file details.
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config") // Looks for config.yaml
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// Read the config file if available.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// If the file is not found, just continue with defaults and env vars.
	}

	// A .env next to the binary is loaded into the process environment; real env vars win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	// Enable automatic environment variable binding.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Names used by existing docker2mqtt deployments.
	_ = viper.BindEnv("app.hostname", "APP_HOSTNAME", "DOCKER2MQTT_HOSTNAME")
	_ = viper.BindEnv("mqtt.password", "MQTT_PASSWORD", "MQTT_PASSWD")
	_ = viper.BindEnv("log.debug", "LOG_DEBUG", "DEBUG")

	return nil
}

// Load unmarshals the configuration into the Config struct.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "docker-mqtt-sync-" + config.App.Hostname
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.App.EventSource {
	case EventSourceAPI, EventSourceCLI:
	default:
		return fmt.Errorf("unsupported app.event_source %q (want %q or %q)", c.App.EventSource, EventSourceAPI, EventSourceCLI)
	}
	switch c.Sink.Backend {
	case BackendMQTT, BackendEtcd:
	default:
		return fmt.Errorf("unsupported sink.backend %q (want %q or %q)", c.Sink.Backend, BackendMQTT, BackendEtcd)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.App.Hostname == "" {
		return errors.New("app.hostname must not be empty")
	}
	if strings.Contains(c.App.Hostname, "/") {
		return fmt.Errorf("app.hostname %q must not contain '/'", c.App.Hostname)
	}
	if c.App.QueueSize < 0 {
		return fmt.Errorf("app.queue_size must not be negative, got %d", c.App.QueueSize)
	}
	if c.App.PollInterval <= 0 {
		return fmt.Errorf("app.poll_interval must be positive, got %s", c.App.PollInterval)
	}
	return nil
}
