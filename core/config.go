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
	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		MaxUploadSize      int64
		DisableReqLogs     bool
	}

	MongoConfig struct {
		URI     string
		Name    string
		Timeout time.Duration
	}

	PostgresConfig struct {
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	FilesConfig struct {
		Backend string // local, s3
		Dir     string
		BaseURL string
	}

	S3Config struct {
		Region    string
		Bucket    string
		Endpoint  string
		AccessKey string
		SecretKey string
		PublicURL string
	}

	MailConfig struct {
		Backend        string // console, sendgrid, smtp
		SendgridApiKey string
	}

	SMTPConfig struct {
		Host     string
		Port     string
		User     string
		Password string
	}

	OTPConfig struct {
		TTL         time.Duration
		MaxAttempts int
	}

	ApprovalsConfig struct {
		TTL           time.Duration
		SweepInterval time.Duration
	}

	NotifyConfig struct {
		QueueSize   int
		Workers     int
		TaskTimeout time.Duration
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		PublicBaseURL    string
		DefaultFromEmail mail.Address
		RollbarToken     string

		// Engines
		DatabaseEngine string // mongo, memory
		TokensEngine   string // postgres, memory

		Server    ServerConfig
		Mongo     MongoConfig
		Postgres  PostgresConfig
		Files     FilesConfig
		S3        S3Config
		Mail      MailConfig
		SMTP      SMTPConfig
		OTP       OTPConfig
		Approvals ApprovalsConfig
		Notify    NotifyConfig
	}
)

func (c PostgresConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "ClubConnect")
	v.SetDefault("secretKey", "b6x!k0q9$r2w+zj7)c3l&v8d^m1p(h5n_e4t#y6u@s0a=g")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("publicBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "ClubConnect <noreply@localhost>")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("database.engine", "memory")
	v.SetDefault("tokens.engine", "memory")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.maxUploadSize", 5*1024*1024)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.name", "clubconnect")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.name", "clubconnect")
	v.SetDefault("postgres.user", "clubconnect")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.adminUser", "")
	v.SetDefault("postgres.adminPassword", "")
	v.SetDefault("postgres.disableTLS", true)

	v.SetDefault("files.backend", "local")
	v.SetDefault("files.dir", "uploads")
	v.SetDefault("files.baseURL", "http://localhost:8000/uploads")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "clubconnect")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.accessKey", "")
	v.SetDefault("s3.secretKey", "")
	v.SetDefault("s3.publicURL", "")

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.sendgridApiKey", "")
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")

	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.maxAttempts", 3)
	v.SetDefault("approvals.ttl", 7*24*time.Hour)
	v.SetDefault("approvals.sweepInterval", 24*time.Hour)

	v.SetDefault("notify.queueSize", 256)
	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.taskTimeout", 30*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := os.Getenv("CONFIG_DIR")
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		PublicBaseURL:    strings.TrimRight(v.GetString("publicBaseURL"), "/"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		DatabaseEngine:   v.GetString("database.engine"),
		TokensEngine:     v.GetString("tokens.engine"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ReadTimeout:        v.GetDuration("server.readTimeout"),
			WriteTimeout:       v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			MaxUploadSize:      v.GetInt64("server.maxUploadSize"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Mongo: MongoConfig{
			URI:     v.GetString("mongo.uri"),
			Name:    v.GetString("mongo.name"),
			Timeout: v.GetDuration("mongo.timeout"),
		},
		Postgres: PostgresConfig{
			Host:          v.GetString("postgres.host"),
			Port:          v.GetString("postgres.port"),
			Name:          v.GetString("postgres.name"),
			User:          v.GetString("postgres.user"),
			Password:      v.GetString("postgres.password"),
			AdminUser:     v.GetString("postgres.adminUser"),
			AdminPassword: v.GetString("postgres.adminPassword"),
			DisableTLS:    v.GetBool("postgres.disableTLS"),
		},
		Files: FilesConfig{
			Backend: v.GetString("files.backend"),
			Dir:     v.GetString("files.dir"),
			BaseURL: strings.TrimRight(v.GetString("files.baseURL"), "/"),
		},
		S3: S3Config{
			Region:    v.GetString("s3.region"),
			Bucket:    v.GetString("s3.bucket"),
			Endpoint:  v.GetString("s3.endpoint"),
			AccessKey: v.GetString("s3.accessKey"),
			SecretKey: v.GetString("s3.secretKey"),
			PublicURL: strings.TrimRight(v.GetString("s3.publicURL"), "/"),
		},
		Mail: MailConfig{
			Backend:        v.GetString("mail.backend"),
			SendgridApiKey: v.GetString("mail.sendgridApiKey"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetString("smtp.port"),
			User:     v.GetString("smtp.user"),
			Password: v.GetString("smtp.password"),
		},
		OTP: OTPConfig{
			TTL:         v.GetDuration("otp.ttl"),
			MaxAttempts: v.GetInt("otp.maxAttempts"),
		},
		Approvals: ApprovalsConfig{
			TTL:           v.GetDuration("approvals.ttl"),
			SweepInterval: v.GetDuration("approvals.sweepInterval"),
		},
		Notify: NotifyConfig{
			QueueSize:   v.GetInt("notify.queueSize"),
			Workers:     v.GetInt("notify.workers"),
			TaskTimeout: v.GetDuration("notify.taskTimeout"),
		},
	}
}
