// Package config provides utilities to load environment variables & set config structs, it includes app, scheduler, redis, db, queue, monitoring and logger environment variables.
package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// AppConfig contains environment variables for the application, scheduler, cache, database, queue, monitoring and logger
type (
	AppConfig struct {
		App       *App       `mapstructure:"app"`
		Scheduler *Scheduler `mapstructure:"scheduler"`
		Redis     *Redis     `mapstructure:"redis"`
		Queue     *Queue     `mapstructure:"queue"`
		Monitor   *Monitor   `mapstructure:"monitor"`
		Logger    *Logger    `mapstructure:"logger"`
		DB        *DB        `mapstructure:"db"`
	}

	// App contains all the environment variables for the application
	App struct {
		Name  string `mapstructure:"name"`
		Env   string `mapstructure:"env"`
		Owner string `mapstructure:"owner"`
	}

	// Scheduler contains the per-node scheduler settings
	Scheduler struct {
		NodeID            string   `mapstructure:"nodeId"`
		SocketPath        string   `mapstructure:"socketPath"`
		WorkerCommand     []string `mapstructure:"workerCommand"`
		InitialWorkers    int      `mapstructure:"initialWorkers"`
		TotalCPU          float64  `mapstructure:"totalCpu"`
		TotalGPU          float64  `mapstructure:"totalGpu"`
		HeartbeatSeconds  int      `mapstructure:"heartbeatSeconds"`
		MetricsListenAddr string   `mapstructure:"metricsListenAddr"`
	}

	// Redis contains all the environment variables for the table store
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	}

	// Queue contains the RabbitMQ connection settings for the event feed
	Queue struct {
		URL string `mapstructure:"url"`
	}

	// Monitor contains the Prometheus server settings
	Monitor struct {
		URL string `mapstructure:"url"`
	}

	// DB contains all the environment variables for the database
	DB struct {
		Connection string `mapstructure:"connection"`
		Database   string `mapstructure:"database"`
		Host       string `mapstructure:"host"`
		Port       string `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		Name       string `mapstructure:"name"`
	}

	// Logger contains all the environment variables for the logger
	Logger struct {
		Level             string                `mapstructure:"level"`
		Development       bool                  `mapstructure:"development"`
		DisableStacktrace bool                  `mapstructure:"disableStacktrace"`
		Encoding          string                `mapstructure:"encoding"`
		EncoderConfig     zapcore.EncoderConfig `mapstructure:"encoderConfig"`
	}
)

// addZapEncoderConfig fills encoder config with zapcore types
func addZapEncoderConfig(cfg *zapcore.EncoderConfig) {
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.SecondsDurationEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncodeName = func(s string, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString("[" + s + "]")
	}
}

// New creates a new AppConfig instance
func New() *AppConfig {
	// Set up viper to read the config.yaml file
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/secrets/")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("env")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Fatalf("config file not found: %v", err)
		} else {
			log.Fatalf("error reading config file: %v", err)
		}
	}

	// Bind the app.name key to the APP_NAME environment variable
	if err := viper.BindEnv("app.name", "APP_NAME"); err != nil {
		log.Fatalf("error finding APP_NAME env variable")
	}

	// Bind scheduler variables
	viper.BindEnv("scheduler.nodeId", "NODE_ID")
	viper.BindEnv("scheduler.socketPath", "SCHEDULER_SOCKET")

	// Bind DB variables
	viper.BindEnv("db.host", "PG_HOST")
	viper.BindEnv("db.port", "PG_PORT")
	viper.BindEnv("db.user", "PG_USER")
	viper.BindEnv("db.password", "PG_PASS")
	viper.BindEnv("db.name", "PG_DB")

	// Bind Redis variables
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Bind queue and monitoring variables
	viper.BindEnv("queue.url", "AMQP_URL")
	viper.BindEnv("monitor.url", "PROMETHEUS_URL")

	// Create an instance of AppConfig
	var config *AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("unable to decode into struct: %v", err)
	}
	addZapEncoderConfig(&config.Logger.EncoderConfig)

	return config
}
