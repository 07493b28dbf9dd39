package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type DB struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"password"`
	Name     string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type MQ struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	User  string `mapstructure:"user"`
	Pass  string `mapstructure:"password"`
	VHost string `mapstructure:"vhost"`
	TLS   bool   `mapstructure:"tls"`
}

type HTTP struct {
	TrackingPort int `mapstructure:"tracking_port"`
	OrderPort    int `mapstructure:"order_port"`
	// MaxConcurrent caps in-flight requests on the order service.
	MaxConcurrent int64 `mapstructure:"max_concurrent"`
}

// Render controls the status view.
type Render struct {
	// ManagerGroup is the group whose members see DryMix formulations.
	ManagerGroup string `mapstructure:"manager_group"`
	Placeholder  string `mapstructure:"placeholder"`
}

type Recorder struct {
	Prefetch int    `mapstructure:"prefetch"`
	Consumer string `mapstructure:"consumer"`
}

type App struct {
	LogLevel string   `mapstructure:"log_level"`
	Database DB       `mapstructure:"database"`
	Rabbit   MQ       `mapstructure:"rabbitmq"`
	HTTP     HTTP     `mapstructure:"http"`
	Render   Render   `mapstructure:"render"`
	Recorder Recorder `mapstructure:"recorder"`
}

// EnvPrefix prefixes environment overrides, e.g. PT_DATABASE_HOST.
const EnvPrefix = "PT"

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("http.tracking_port", 3002)
	v.SetDefault("http.order_port", 3000)
	v.SetDefault("http.max_concurrent", 50)
	v.SetDefault("render.manager_group", "production_managers")
	v.SetDefault("render.placeholder", "???")
	v.SetDefault("recorder.prefetch", 1)
	v.SetDefault("recorder.consumer", "stage-recorder")
}

// Load reads the YAML config at path and applies PT_* environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (App, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows about.
	for _, k := range []string{
		"database.host", "database.user", "database.password", "database.database",
		"rabbitmq.host", "rabbitmq.user", "rabbitmq.password",
	} {
		_ = v.BindEnv(k)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var a App
	if err := v.Unmarshal(&a); err != nil {
		return App{}, fmt.Errorf("decode config: %w", err)
	}
	return a, nil
}

// Validate checks the sections a mode depends on.
func (a App) Validate(needDB, needMQ bool) error {
	if needDB && (a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "") {
		return errors.New("invalid config: database host, user and database are required")
	}
	if needMQ && (a.Rabbit.Host == "" || a.Rabbit.User == "") {
		return errors.New("invalid config: rabbitmq host and user are required")
	}
	return nil
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
