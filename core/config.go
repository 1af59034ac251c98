package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	serverConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
		LockTTL  time.Duration
	}

	gradingConfig struct {
		// Bands overrides the default grade table, eg: "A+:90,A:75,B:60,C:40"
		Bands string
		// BelowLabel is the grade given under the lowest band.
		BelowLabel string
		// SaveRetries bounds optimistic-concurrency retries when saving a result.
		SaveRetries int
	}

	Config struct {
		AppName         string
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		Debug           bool
		TestMode        bool
		WorkDir         string
		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		defaultFromEmail string

		Server   serverConfig
		Database databaseConfig
		Redis    redisConfig
		Grading  gradingConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

func (db databaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the configuration from the environment (and `config/.env.<env>` if it exists).
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Bulletin")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "n8#q-l2)zb7$w+4g!d=vx(r5m&k0t@h9^u3c%yj1e*s6p")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "bulletin")
	v.SetDefault("dbUser", "bulletin")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("redisLockTTL", 10*time.Second)

	v.SetDefault("gradingBands", "")
	v.SetDefault("gradingBelowLabel", "Fail")
	v.SetDefault("gradingSaveRetries", 3)

	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
	conf.Server = serverConfig{
		Host:               v.GetString("serverHost"),
		Address:            v.GetString("serverAddress"),
		DebugHost:          v.GetString("serverDebugHost"),
		ShutdownTimeout:    v.GetDuration("serverShutdownTimeout"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
	}
	conf.Database = databaseConfig{
		Engine:        v.GetString("dbEngine"),
		Host:          v.GetString("dbHost"),
		Port:          v.GetString("dbPort"),
		Name:          v.GetString("dbName"),
		User:          v.GetString("dbUser"),
		Password:      v.GetString("dbPassword"),
		AdminUser:     v.GetString("dbAdminUser"),
		AdminPassword: v.GetString("dbAdminPassword"),
		DisableTLS:    v.GetBool("dbDisableTLS"),
	}
	conf.Redis = redisConfig{
		Addr:     v.GetString("redisAddr"),
		Password: v.GetString("redisPassword"),
		DB:       v.GetInt("redisDB"),
		LockTTL:  v.GetDuration("redisLockTTL"),
	}
	conf.Grading = gradingConfig{
		Bands:       v.GetString("gradingBands"),
		BelowLabel:  v.GetString("gradingBelowLabel"),
		SaveRetries: v.GetInt("gradingSaveRetries"),
	}
	return conf
}
