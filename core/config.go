package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                string
		Build              string
		Debug              bool
		TestMode           bool
		AppName            string
		SecretKey          string
		JWTExpirationDelta time.Duration
		RollbarToken       string
		WorkDir            string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Email    EmailConfig
	}

	ServerConfig struct {
		Address         string
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		RateLimit       int // requests per minute per client IP; 0 disables
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Backend         string // b2 | memory
		AccountID       string
		ApplicationKey  string
		Bucket          string
		SignedURLExpiry time.Duration
	}

	EmailConfig struct {
		DefaultFrom    string
		SendgridAPIKey string
	}
)

func (dc DatabaseConfig) Address() string {
	if dc.Port == "" {
		return dc.Host
	}
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration for the current ENV (DEV by default; TEST, QA, PROD).
// Values come from (in order of precedence) the environment, `config/.env.<env>` and defaults.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Tarpaulin")
	v.SetDefault("secretKey", "aishoo7ri7siepieceizo5riloovee6thieV5aequeiz3or0aeshejoo2ahjeehu")
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.rateLimit", 60)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "tarpaulin")
	v.SetDefault("database.user", "tarpaulin")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.accountID", "")
	v.SetDefault("storage.applicationKey", "")
	v.SetDefault("storage.bucket", "tarpaulin-submissions")
	v.SetDefault("storage.signedURLExpiry", 30*time.Minute)

	v.SetDefault("email.defaultFrom", "noreply@localhost")
	v.SetDefault("email.sendgridAPIKey", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.Getwd: %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the usual postgres container variables
	_ = v.BindEnv("database.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.name", "POSTGRES_DB")
	_ = v.BindEnv("database.user", "POSTGRES_USER")
	_ = v.BindEnv("database.password", "POSTGRES_PASSWORD")

	return &Config{
		Env:                env,
		Build:              v.GetString("build"),
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		SecretKey:          v.GetString("secretKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		RollbarToken:       v.GetString("rollbarToken"),
		WorkDir:            wd,
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			RateLimit:       v.GetInt("server.rateLimit"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Storage: StorageConfig{
			Backend:         v.GetString("storage.backend"),
			AccountID:       v.GetString("storage.accountID"),
			ApplicationKey:  v.GetString("storage.applicationKey"),
			Bucket:          v.GetString("storage.bucket"),
			SignedURLExpiry: v.GetDuration("storage.signedURLExpiry"),
		},
		Email: EmailConfig{
			DefaultFrom:    v.GetString("email.defaultFrom"),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
		},
	}
}
