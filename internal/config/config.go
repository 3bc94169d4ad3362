package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines client and daemon configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Portal     PortalConfig     `yaml:"portal"`
	Session    SessionConfig    `yaml:"session"`
	Navigation NavigationConfig `yaml:"navigation"`
	Submission SubmissionConfig `yaml:"submission"`
	Feedback   FeedbackConfig   `yaml:"feedback"`
}

type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "stdio" or "http"
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the backends behind the two storage tiers.
type StoreConfig struct {
	DurablePath   string        `yaml:"durable_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	VolatileTTL   time.Duration `yaml:"volatile_ttl"`
	MaxValueBytes int           `yaml:"max_value_bytes"`
}

// PortalConfig holds the endpoint paths of the LabSpace server collaborator.
type PortalConfig struct {
	BaseURL           string `yaml:"base_url"`
	StudentViewPath   string `yaml:"student_view_path"`
	TeacherEditPath   string `yaml:"teacher_edit_path"`
	DirectViewPath    string `yaml:"direct_view_path"`
	EmergencyViewPath string `yaml:"emergency_view_path"`
	SubmitPath        string `yaml:"submit_path"`
	ActivityListPath  string `yaml:"activity_list_path"`
}

// SessionConfig describes who is driving the client.
type SessionConfig struct {
	Role      string `yaml:"role"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

type NavigationConfig struct {
	StallWindow    time.Duration   `yaml:"stall_window"`
	StepTimeouts   []time.Duration `yaml:"step_timeouts"`
	HistoryLimit   int             `yaml:"history_limit"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
}

type SubmissionConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Timeout     time.Duration `yaml:"timeout"`
	BackupTTL   time.Duration `yaml:"backup_ttl"`
}

type FeedbackConfig struct {
	ShortTimeout time.Duration `yaml:"short_timeout"`
	LongTimeout  time.Duration `yaml:"long_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Transport: TransportConfig{
			Mode: "stdio",
		},
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			DurablePath:   "labnav.db",
			VolatileTTL:   12 * time.Hour,
			MaxValueBytes: 1 << 20,
		},
		Portal: PortalConfig{
			BaseURL:           "http://localhost",
			StudentViewPath:   "/student/view_activity.php",
			TeacherEditPath:   "/teacher/edit_activity.php",
			DirectViewPath:    "/direct_view.php",
			EmergencyViewPath: "/emergency_view.php",
			SubmitPath:        "/api/submit_code.php",
			ActivityListPath:  "/activities.php",
		},
		Navigation: NavigationConfig{
			StallWindow:    500 * time.Millisecond,
			StepTimeouts:   []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond},
			HistoryLimit:   10,
			RequestTimeout: 15 * time.Second,
		},
		Submission: SubmissionConfig{
			MaxAttempts: 3,
			BaseDelay:   250 * time.Millisecond,
			Timeout:     10 * time.Second,
			BackupTTL:   7 * 24 * time.Hour,
		},
		Feedback: FeedbackConfig{
			ShortTimeout: 5 * time.Second,
			LongTimeout:  15 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("LABNAV_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("LABNAV_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("LABNAV_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid LABNAV_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if key := os.Getenv("LABNAV_API_KEY"); key != "" {
		cfg.Server.APIKey = key
	}
	if mode := os.Getenv("LABNAV_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if level := os.Getenv("LABNAV_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if dbPath := os.Getenv("LABNAV_DB_PATH"); dbPath != "" {
		cfg.Store.DurablePath = dbPath
	}
	if addr := os.Getenv("LABNAV_REDIS_ADDR"); addr != "" {
		cfg.Store.RedisAddr = addr
	}
	if pw := os.Getenv("LABNAV_REDIS_PASSWORD"); pw != "" {
		cfg.Store.RedisPassword = pw
	}
	if base := os.Getenv("LABNAV_PORTAL_BASE_URL"); base != "" {
		cfg.Portal.BaseURL = base
	}
	if role := os.Getenv("LABNAV_ROLE"); role != "" {
		cfg.Session.Role = role
	}
	if token := os.Getenv("LABNAV_SESSION_TOKEN"); token != "" {
		cfg.Session.Token = token
	}
	if key := os.Getenv("LABNAV_JWT_SECRET"); key != "" {
		cfg.Session.JWTSecret = key
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"LABNAV_VOLATILE_TTL", &cfg.Store.VolatileTTL},
		{"LABNAV_STALL_WINDOW", &cfg.Navigation.StallWindow},
		{"LABNAV_SUBMIT_BASE_DELAY", &cfg.Submission.BaseDelay},
		{"LABNAV_SUBMIT_TIMEOUT", &cfg.Submission.Timeout},
		{"LABNAV_BACKUP_TTL", &cfg.Submission.BackupTTL},
	}
	for _, d := range durations {
		val := os.Getenv(d.env)
		if val == "" {
			continue
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = parsed
	}

	if attempts := os.Getenv("LABNAV_SUBMIT_MAX_ATTEMPTS"); attempts != "" {
		n, err := strconv.Atoi(attempts)
		if err != nil {
			return fmt.Errorf("invalid LABNAV_SUBMIT_MAX_ATTEMPTS: %w", err)
		}
		cfg.Submission.MaxAttempts = n
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
