package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		SessionTTL      time.Duration
		CookieSecure    bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	SMTPConfig struct {
		Host     string
		Port     int
		User     string
		Password string
	}

	EmailConfig struct {
		DefaultFrom    mail.Address
		SendgridApiKey string
		SMTP           SMTPConfig
		DailyCap       int // 0 disables the cap
	}

	PaymentConfig struct {
		SecretKey   string
		BaseURL     string
		CallbackURL string
		Currency    string
	}

	MediaConfig struct {
		Dir     string
		BaseURL string
		MaxSize int64
	}

	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		SecretKey    string
		SiteBaseURL  string
		AdminEnabled bool
		CertPrefix   string
		RollbarToken string

		// registrations accepted per IP and minute
		RegistrationRateLimit int
		// largest accepted student import request, in bytes
		ImportMaxSize int64

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Email    EmailConfig
		Payment  PaymentConfig
		Media    MediaConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Aurora")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "b7%k2=x1u!q0w(9lzs$e4p+ahn6m)r3cfd8*jg5yt@vo")
	v.SetDefault("site.baseURL", "http://localhost:3000")
	v.SetDefault("admin.enabled", true)
	v.SetDefault("cert.prefix", "AURORA")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("rateLimit.registrations", 10)
	v.SetDefault("students.importMaxSize", 5<<20)

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionTTL", 12*time.Hour)
	v.SetDefault("server.cookieSecure", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "aurora")
	v.SetDefault("database.user", "aurora")
	v.SetDefault("database.password", "aurora")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("email.defaultFrom", "Aurora <noreply@localhost>")
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.user", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.dailyCap", 100)

	v.SetDefault("payment.secretKey", "")
	v.SetDefault("payment.baseURL", "https://api.paystack.co")
	v.SetDefault("payment.callbackURL", "")
	v.SetDefault("payment.currency", "NGN")

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.baseURL", "/media")
	v.SetDefault("media.maxSize", 20<<20)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if any) and
// environment variables prefixed with AURORA_ (e.g. AURORA_DATABASE_HOST).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix("AURORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return newConfig(v, env)
}

func newConfig(v *viper.Viper, env string) *Config {
	from, err := mail.ParseAddress(v.GetString("email.defaultFrom"))
	if err != nil {
		log.Fatalf("config.email.defaultFrom: %v", err)
	}

	return &Config{
		Env:                   env,
		Debug:                 v.GetBool("debug"),
		TestMode:              env == "TEST",
		AppName:               v.GetString("appName"),
		Build:                 v.GetString("build"),
		SecretKey:             v.GetString("secretKey"),
		SiteBaseURL:           strings.TrimRight(v.GetString("site.baseURL"), "/"),
		AdminEnabled:          v.GetBool("admin.enabled"),
		CertPrefix:            v.GetString("cert.prefix"),
		RollbarToken:          v.GetString("rollbarToken"),
		RegistrationRateLimit: v.GetInt("rateLimit.registrations"),
		ImportMaxSize:         v.GetInt64("students.importMaxSize"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SessionTTL:      v.GetDuration("server.sessionTTL"),
			CookieSecure:    v.GetBool("server.cookieSecure"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Email: EmailConfig{
			DefaultFrom:    *from,
			SendgridApiKey: v.GetString("email.sendgridApiKey"),
			SMTP: SMTPConfig{
				Host:     v.GetString("email.smtp.host"),
				Port:     v.GetInt("email.smtp.port"),
				User:     v.GetString("email.smtp.user"),
				Password: v.GetString("email.smtp.password"),
			},
			DailyCap: v.GetInt("email.dailyCap"),
		},
		Payment: PaymentConfig{
			SecretKey:   v.GetString("payment.secretKey"),
			BaseURL:     strings.TrimRight(v.GetString("payment.baseURL"), "/"),
			CallbackURL: v.GetString("payment.callbackURL"),
			Currency:    strings.ToUpper(v.GetString("payment.currency")),
		},
		Media: MediaConfig{
			Dir:     v.GetString("media.dir"),
			BaseURL: strings.TrimRight(v.GetString("media.baseURL"), "/"),
			MaxSize: v.GetInt64("media.maxSize"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: defaults only, no env lookup.
func NewTestConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.Set("debug", false)
	v.Set("email.dailyCap", 0)
	return newConfig(v, "TEST")
}
