package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// SMTPConfig drives the resend transport and the transport metadata that
// gets recorded on each snapshot.
type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	Encryption string `yaml:"encryption"`
	Timeout    int    `yaml:"timeout"`
	RetryCount int    `yaml:"retry_count"`
}

// SentEmailsConfig controls snapshotting and retention.
//
// Limit is a pointer so "unset" can be told apart from an explicit value:
// unset resolves to DefaultSentEmailsLimit, while an explicit value <= 0
// disables retention pruning entirely.
type SentEmailsConfig struct {
	Enabled            bool `yaml:"enabled"`
	CleanupProbability int  `yaml:"cleanup_probability"`
	Limit              *int `yaml:"limit"`
}

// DefaultSentEmailsLimit is the retention bound used when no limit is
// configured.
const DefaultSentEmailsLimit = 5000

// ResolvedLimit returns the effective retention limit.
func (c SentEmailsConfig) ResolvedLimit() int {
	if c.Limit == nil {
		return DefaultSentEmailsLimit
	}
	return *c.Limit
}

type Config struct {
	DB         DBConfig         `yaml:"db"`
	MQ         MQConfig         `yaml:"mq"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Server     ServerConfig     `yaml:"server"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	SentEmails SentEmailsConfig `yaml:"sent_emails"`
	SiteID     int              `yaml:"site_id"`
	Source     string           `yaml:"source"`
	SourceVer  string           `yaml:"source_version"`
}

func Load() *Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("failed to decode %s: %v", path, err)
	}

	overrideFromEnv(&cfg)

	return &cfg
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	if enabled := os.Getenv("SENT_EMAILS_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.SentEmails.Enabled = b
		}
	}
	if prob := os.Getenv("CLEANUP_PROBABILITY"); prob != "" {
		if p, err := strconv.Atoi(prob); err == nil {
			cfg.SentEmails.CleanupProbability = p
		}
	}
	// A non-numeric limit override is ignored, which leaves the default in
	// effect.
	if limit := os.Getenv("SENT_EMAILS_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			cfg.SentEmails.Limit = &n
		}
	}
}
