package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Agent kinds accepted by Validate.
const (
	AgentResponder = "responder"
	AgentGame      = "game"
)

// DotEnvFile is loaded from the working directory when present.
const DotEnvFile = ".env"

type Config struct {
	DataDir  string `json:"data_dir" env:"ROOMBOT_DATA_DIR"`
	LogLevel string `json:"log_level" env:"LOG_LEVEL"`
	Agent    string `json:"agent" env:"BOT_AGENT"`

	XMPP struct {
		Endpoint    string `json:"endpoint" env:"XMPP_ENDPOINT"`
		Domain      string `json:"domain" env:"XMPP_DOMAIN"`
		JID         string `json:"jid" env:"BOT_JID"`
		Password    string `json:"password" env:"BOT_PASSWORD" secret:"true"`
		Resource    string `json:"resource" env:"BOT_RESOURCE"`
		Room        string `json:"room" env:"ROOM_JID"`
		DisplayName string `json:"display_name" env:"BOT_NAME"`
		RoleLabel   string `json:"role_label" env:"BOT_ROLE_LABEL"`
	} `json:"xmpp"`

	LLM struct {
		BaseURL         string  `json:"base_url" env:"OPENAI_BASE_URL"`
		APIKey          string  `json:"api_key" env:"OPENAI_API_KEY" secret:"true"`
		Model           string  `json:"model" env:"OPENAI_MODEL"`
		MaxTokens       int     `json:"max_tokens" env:"OPENAI_MAX_TOKENS"`
		Temperature     float32 `json:"temperature" env:"OPENAI_TEMPERATURE"`
		SystemPrompt    string  `json:"system_prompt" env:"BOT_SYSTEM_PROMPT"`
		HistorySize     int     `json:"history_size" env:"BOT_HISTORY_SIZE"`
		MaxPromptTokens int     `json:"max_prompt_tokens" env:"BOT_MAX_PROMPT_TOKENS"`
	} `json:"llm"`

	API struct {
		URL          string `json:"url" env:"API_URL"`
		AppID        string `json:"app_id" env:"APP_ID"`
		AppToken     string `json:"app_token" env:"APP_TOKEN" secret:"true"`
		MaxRetries   int    `json:"max_retries" env:"MAX_RETRIES"`
		RetryDelayMS int    `json:"retry_delay_ms" env:"RETRY_DELAY"`
	} `json:"api"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".roombot"),
		LogLevel: "info",
		Agent:    AgentResponder,
	}
	cfg.XMPP.Endpoint = "wss://dev.xmpp.ethoradev.com:5443/ws"
	cfg.XMPP.Domain = "dev.xmpp.ethoradev.com"
	cfg.XMPP.Resource = "roombot"
	cfg.XMPP.RoleLabel = "AI"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-3.5-turbo"
	cfg.LLM.MaxTokens = 500
	cfg.LLM.Temperature = 0.7
	cfg.LLM.HistorySize = 10
	cfg.LLM.MaxPromptTokens = 3500
	cfg.API.URL = "https://dev.api.ethoradev.com"
	cfg.API.MaxRetries = 3
	cfg.API.RetryDelayMS = 1000
	return cfg
}

// DefaultPath is the config file location under the user's home.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".roombot", "config.json")
}

// Load layers the JSON file at path over the defaults, then a .env file in
// the working directory, then the process environment. A missing file is
// created with the defaults.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithSources(path)
	return cfg, err
}

// LoadWithSources is Load that also reports where each setting came from.
func LoadWithSources(path string) (*Config, Sources, error) {
	cfg, stored, err := loadFile(path)
	if err != nil {
		return nil, nil, err
	}
	dotenv, err := readDotEnv(DotEnvFile)
	if err != nil {
		return nil, nil, err
	}
	sources := resolveSources(stored, dotenv)

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, sources, nil
}

// loadFile reads path over the defaults and returns the decoded file
// object, which is nil when the file had to be created.
func loadFile(path string) (*Config, map[string]any, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var stored map[string]any
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return cfg, stored, nil
	case os.IsNotExist(err):
		if err := Save(path, cfg); err != nil {
			return nil, nil, err
		}
		return cfg, nil, nil
	default:
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
}

// loadDotEnv populates unset environment variables from path. Variables
// already in the environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks that everything needed to run agent is present.
func (c *Config) Validate(agent string) error {
	var errs []error
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	require(c.XMPP.Endpoint, "xmpp.endpoint (XMPP_ENDPOINT)")
	require(c.XMPP.JID, "xmpp.jid (BOT_JID)")
	require(c.XMPP.Password, "xmpp.password (BOT_PASSWORD)")
	require(c.XMPP.Room, "xmpp.room (ROOM_JID)")

	switch agent {
	case AgentResponder:
		require(c.LLM.APIKey, "llm.api_key (OPENAI_API_KEY)")
		require(c.LLM.Model, "llm.model (OPENAI_MODEL)")
	case AgentGame:
	default:
		errs = append(errs, fmt.Errorf("unknown agent %q (want %s or %s)", agent, AgentResponder, AgentGame))
	}
	return errors.Join(errs...)
}

// ValidateAPI checks the provisioning API settings.
func (c *Config) ValidateAPI() error {
	var errs []error
	if c.API.URL == "" {
		errs = append(errs, errors.New("api.url (API_URL) is required"))
	}
	if c.API.AppID == "" {
		errs = append(errs, errors.New("api.app_id (APP_ID) is required"))
	}
	if c.API.AppToken == "" {
		errs = append(errs, errors.New("api.app_token (APP_TOKEN) is required"))
	}
	return errors.Join(errs...)
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// SetValue stores value under a dot-separated key in the config file. The
// value is parsed as the key's type; unknown keys are rejected and other
// keys in the file are left as they are.
func SetValue(path, key, value string) error {
	field, ok := LookupField(key)
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	parsed, err := field.Parse(value)
	if err != nil {
		return err
	}
	m, err := readRaw(path)
	if err != nil {
		return err
	}

	setPath(m, key, parsed)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := json.Unmarshal(data, Default()); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return writeFile(path, data)
}
