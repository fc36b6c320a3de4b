package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Areas    AreasConfig    `mapstructure:"areas"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	AccessTokenExpire  time.Duration `mapstructure:"access_token_expire"`
	RefreshTokenExpire time.Duration `mapstructure:"refresh_token_expire"`
	Issuer             string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GateConfig is one approval gate of the chain, in declaration order.
type GateConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// WorkflowConfig drives the approval chain and the seat quota. The gate list
// is deployment configuration: earlier generations of this workflow ran with
// three gates and no contract-administration step.
type WorkflowConfig struct {
	Gates        []GateConfig      `mapstructure:"gates"`
	CapacityGate string            `mapstructure:"capacity_gate"`
	MaxCapacity  int               `mapstructure:"max_capacity"`
	HorizonDays  int               `mapstructure:"horizon_days"`
	Timezone     string            `mapstructure:"timezone"`
	Sites        map[string]string `mapstructure:"sites"`
}

// AreasConfig maps gate area → access key. Keys come from the environment,
// never from source.
type AreasConfig struct {
	AccessKeys map[string]string `mapstructure:"access_keys"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// sin archivo de configuración: solo defaults + entorno
	}

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Workflow.Gates) == 0 {
		cfg.Workflow.Gates = DefaultGates()
	}
	return &cfg, nil
}

// DefaultGates is the current four-gate deployment for Lote 95.
func DefaultGates() []GateConfig {
	return []GateConfig{
		{ID: "contratos", Name: "Administración de Contratos"},
		{ID: "security", Name: "Security"},
		{ID: "qhs", Name: "QHS"},
		{ID: "logistica", Name: "Logística"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("jwt.access_token_expire", "2h")
	v.SetDefault("jwt.refresh_token_expire", "168h")
	v.SetDefault("jwt.issuer", "ptp-pax")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("workflow.capacity_gate", "logistica")
	v.SetDefault("workflow.max_capacity", 60)
	v.SetDefault("workflow.horizon_days", 30)
	v.SetDefault("workflow.timezone", "America/Lima")
	v.SetDefault("workflow.sites", map[string]string{"Lote 95": "L95"})
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Workflow
	v.BindEnv("workflow.max_capacity", "WORKFLOW_MAX_CAPACITY")
	v.BindEnv("workflow.capacity_gate", "WORKFLOW_CAPACITY_GATE")
	v.BindEnv("workflow.timezone", "WORKFLOW_TIMEZONE")

	// Area access keys
	v.BindEnv("areas.access_keys.contratos", "AREA_KEY_CONTRATOS")
	v.BindEnv("areas.access_keys.security", "AREA_KEY_SECURITY")
	v.BindEnv("areas.access_keys.qhs", "AREA_KEY_QHS")
	v.BindEnv("areas.access_keys.logistica", "AREA_KEY_LOGISTICA")
}

// GetEnvOrDefault returns the environment value or a fallback.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
