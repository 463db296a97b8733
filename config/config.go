package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Users    []User         `yaml:"users"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Minio    MinioConfig    `yaml:"minio"`
	Store    StoreConfig    `yaml:"store"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

// PipelineConfig configures the generation pipeline.
type PipelineConfig struct {
	Mode        string       `yaml:"mode"` // dry, live
	PromptsDir  string       `yaml:"prompts_dir"`
	RunsDir     string       `yaml:"runs_dir"`
	DisableDocx bool         `yaml:"disable_docx"`
	OpenAI      OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds the live-mode generation backend settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// MinioConfig configures evidence object storage. When Endpoint is empty,
// uploads fall back to the local runs directory.
type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type StoreConfig struct {
	MaxRuns int `yaml:"max_runs"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pipeline.Mode == "" {
		cfg.Pipeline.Mode = "dry"
	}
	if cfg.Pipeline.PromptsDir == "" {
		cfg.Pipeline.PromptsDir = "prompts"
	}
	if cfg.Pipeline.RunsDir == "" {
		cfg.Pipeline.RunsDir = "runs"
	}
	if cfg.Pipeline.OpenAI.Model == "" {
		cfg.Pipeline.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.Pipeline.OpenAI.BaseURL == "" {
		cfg.Pipeline.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Store.MaxRuns == 0 {
		cfg.Store.MaxRuns = 100
	}

	return &cfg, nil
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
