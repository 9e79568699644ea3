package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	SMTP       SMTPConfig
	Resend     ResendConfig
	Mail       MailConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Activation ActivationConfig
	Worker     WorkerConfig
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Env         string   `mapstructure:"env"`
	FrontendURL string   `mapstructure:"frontendurl"`
	CORSOrigins []string `mapstructure:"corsorigins"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
	// QueryTimeout bounds the server-side execution of a single statement.
	QueryTimeout time.Duration `mapstructure:"querytimeout"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" env:"SMTP_HOST"`
	Port     int    `mapstructure:"port" env:"SMTP_PORT"`
	Username string `mapstructure:"username" env:"SMTP_USERNAME"`
	Password string `mapstructure:"password" env:"SMTP_PASSWORD"`
	From     string `mapstructure:"from" env:"SMTP_FROM"`
}

type ResendConfig struct {
	APIKey string `mapstructure:"apikey" env:"RESEND_API_KEY"`
}

// MailConfig selects the transport and the fixed addresses used by the site.
type MailConfig struct {
	Provider     string `mapstructure:"provider"` // "smtp" or "resend"
	From         string `mapstructure:"from"`
	AdminAddress string `mapstructure:"adminaddress"`
	SupportEmail string `mapstructure:"supportemail"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret" env:"JWT_SECRET,required"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	UploadDir     string `mapstructure:"uploaddir"`
	CataloguePath string `mapstructure:"cataloguepath"`
	CatalogueName string `mapstructure:"cataloguename"`
}

type ActivationConfig struct {
	CodeTTL time.Duration `mapstructure:"codettl"`
}

type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load creates a new Config object from environment variables.
func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env into process environment for BindEnv to work with file-based envs
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	}

	bindEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("❌ Error reading config file: %s", err)
		}
		log.Printf("⚠️ .env file not found, relying on environment variables")
	} else {
		log.Printf("ℹ️ Using config file: %s", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}
	applyDefaults(&cfg)

	log.Printf("🔎 Config: Server.Port=%q Server.Env=%q Mail.Provider=%q JWTSecretEmpty=%t",
		cfg.Server.Port, cfg.Server.Env, cfg.Mail.Provider, cfg.JWT.Secret == "")
	log.Println("✅ Configuration loaded successfully")
	return &cfg
}

// bindEnv maps structured keys to the environment variable names used in deployment.
func bindEnv() {
	_ = viper.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.frontendurl", "FRONTEND_URL")
	_ = viper.BindEnv("server.corsorigins", "CORS_ORIGINS")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("database.querytimeout", "DATABASE_QUERY_TIMEOUT")
	_ = viper.BindEnv("redis.url", "REDIS_URL")
	_ = viper.BindEnv("smtp.host", "SMTP_HOST")
	_ = viper.BindEnv("smtp.port", "SMTP_PORT")
	_ = viper.BindEnv("smtp.username", "SMTP_USERNAME")
	_ = viper.BindEnv("smtp.password", "SMTP_PASSWORD")
	_ = viper.BindEnv("smtp.from", "SMTP_FROM")
	_ = viper.BindEnv("resend.apikey", "RESEND_API_KEY")
	_ = viper.BindEnv("mail.provider", "MAIL_PROVIDER")
	_ = viper.BindEnv("mail.from", "MAIL_FROM")
	_ = viper.BindEnv("mail.adminaddress", "MAIL_ADMIN_ADDRESS")
	_ = viper.BindEnv("mail.supportemail", "MAIL_SUPPORT_EMAIL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.ttl", "JWT_TTL")
	_ = viper.BindEnv("storage.uploaddir", "UPLOAD_DIR")
	_ = viper.BindEnv("storage.cataloguepath", "CATALOGUE_PATH")
	_ = viper.BindEnv("storage.cataloguename", "CATALOGUE_NAME")
	_ = viper.BindEnv("activation.codettl", "ACTIVATION_CODE_TTL")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:3000"
	}
	if cfg.Database.QueryTimeout <= 0 {
		cfg.Database.QueryTimeout = 20 * time.Second
	}
	if cfg.Mail.Provider == "" {
		cfg.Mail.Provider = "smtp"
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.SMTP.From
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.JWT.TTL <= 0 {
		cfg.JWT.TTL = 7 * 24 * time.Hour
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.CatalogueName == "" {
		cfg.Storage.CatalogueName = "Ipseis_Catalogue_Formation_Sante_2025.pdf"
	}
	if cfg.Activation.CodeTTL <= 0 {
		cfg.Activation.CodeTTL = 7 * 24 * time.Hour
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 5
	}
}
