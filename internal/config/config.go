package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/joho/godotenv"
	"github.com/neekaru/opcua-gateway/internal/variables"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort string `yaml:"server_port"`
	LogDir     string `yaml:"log_dir"`
	PublicURL  string `yaml:"public_url"`
	Simulate   bool   `yaml:"simulate"`

	OPCUA    OPCUAConfig     `yaml:"opcua"`
	Monitor  MonitorConfig   `yaml:"monitor"`
	Backend  BackendConfig   `yaml:"backend"`
	Redis    RedisConfig     `yaml:"redis"`
	Bindings []BindingConfig `yaml:"bindings"`
}

// OPCUAConfig configures the controller connection.
type OPCUAConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	FloatEncoding  string        `yaml:"float_encoding"`
}

// MonitorConfig configures the speed change monitor.
type MonitorConfig struct {
	Variable  string        `yaml:"variable"`
	Interval  time.Duration `yaml:"interval"`
	Threshold float64       `yaml:"threshold"`
}

// BackendConfig configures status notifications to the management backend.
type BackendConfig struct {
	URL       string `yaml:"url"`
	MachineID string `yaml:"machine_id"`
}

// RedisConfig configures the optional change publisher. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// BindingConfig overrides or extends the default variable table.
type BindingConfig struct {
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Access     string `yaml:"access"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		ServerPort: "8000",
		LogDir:     "logs",
		OPCUA: OPCUAConfig{
			Endpoint:       "opc.tcp://192.168.0.1:4840",
			RequestTimeout: 5 * time.Second,
			DialTimeout:    5 * time.Second,
			FloatEncoding:  "float",
		},
		Monitor: MonitorConfig{
			Variable:  "belt.actual",
			Interval:  time.Second,
			Threshold: 0.1,
		},
		Redis: RedisConfig{
			Channel: "gateway:speed_changes",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then the environment. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SERVER_PORT", &c.ServerPort)
	str("LOG_DIR", &c.LogDir)
	str("PUBLIC_URL", &c.PublicURL)
	str("OPCUA_ENDPOINT", &c.OPCUA.Endpoint)
	str("OPCUA_FLOAT_ENCODING", &c.OPCUA.FloatEncoding)
	str("MONITOR_VARIABLE", &c.Monitor.Variable)
	str("BACKEND_URL", &c.Backend.URL)
	str("MACHINE_ID", &c.Backend.MachineID)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_CHANNEL", &c.Redis.Channel)

	if v, ok := lookup("MONITOR_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = d
	}
	if v, ok := lookup("MONITOR_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MONITOR_THRESHOLD: %w", err)
		}
		c.Monitor.Threshold = f
	}
	if v, ok := lookup("REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v, ok := lookup("GATEWAY_SIMULATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GATEWAY_SIMULATE: %w", err)
		}
		c.Simulate = b
	}
	return nil
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("config: server port is required")
	}
	if c.OPCUA.Endpoint == "" {
		return errors.New("config: opcua endpoint is required")
	}
	switch c.OPCUA.FloatEncoding {
	case "", "float", "double":
	default:
		return fmt.Errorf("config: unknown float encoding %q", c.OPCUA.FloatEncoding)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("config: monitor interval must be positive, got %s", c.Monitor.Interval)
	}
	if c.Monitor.Threshold <= 0 {
		return fmt.Errorf("config: monitor threshold must be positive, got %g", c.Monitor.Threshold)
	}
	if c.Monitor.Variable == "" {
		return errors.New("config: monitor variable is required")
	}
	return nil
}

// Table returns the default variable table with the configured bindings
// applied on top. A configured binding replaces a default of the same name.
func (c *Config) Table() (*variables.Table, error) {
	byName := make(map[string]int)
	bindings := variables.DefaultBindings()
	for i, b := range bindings {
		byName[b.Name] = i
	}

	for _, bc := range c.Bindings {
		access, err := variables.ParseAccess(bc.Access)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", bc.Name, err)
		}
		b := variables.Binding{Name: bc.Name, Identifier: bc.Identifier, Access: access}
		if i, ok := byName[bc.Name]; ok {
			bindings[i] = b
			continue
		}
		byName[bc.Name] = len(bindings)
		bindings = append(bindings, b)
	}
	return variables.NewTable(bindings)
}

// EnsureLogDir ensures the log directory exists
func (c *Config) EnsureLogDir() error {
	return os.MkdirAll(c.LogDir, 0755)
}

// GetCorsConfig returns CORS configuration for the application
func (c *Config) GetCorsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}
