// Package config loads SmolMind settings: built-in defaults, then an
// optional YAML file, then SMOLMIND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/klubi/smolmind/internal/model"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "SMOLMIND"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Agent  AgentConfig  `yaml:"agent"`
	Tools  ToolsConfig  `yaml:"tools"`
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Speech SpeechConfig `yaml:"speech"`
	Log    LogConfig    `yaml:"log"`
}

type ModelConfig struct {
	Backend      string  `yaml:"backend"`      // "openai", "claude-cli" or "none"
	ModelID      string  `yaml:"modelId"`      // default "TinyLlama/TinyLlama-1.1B-Chat-v1.0"
	BaseURL      string  `yaml:"baseUrl"`      // OpenAI-compatible endpoint
	APIKey       string  `yaml:"apiKey"`       // never written by init
	CLIBin       string  `yaml:"cliBin"`       // default "claude"
	MaxNewTokens int     `yaml:"maxNewTokens"` // 32..1024, default 512
	Temperature  float64 `yaml:"temperature"`  // 0..1.5, default 0.3
	TopP         float64 `yaml:"topP"`         // 0.1..1, default 0.9
	Timeout      int     `yaml:"timeout"`      // seconds, default 120
}

type AgentConfig struct {
	DefaultAgent  string `yaml:"defaultAgent"`  // overrides the table's default when set
	TableFile     string `yaml:"tableFile"`     // optional AgentProfile/RoutingTable manifest
	HistoryWindow int    `yaml:"historyWindow"` // default 10
}

type ToolsConfig struct {
	BasePath   string `yaml:"basePath"`   // default: working directory
	DataSubdir string `yaml:"dataSubdir"` // default ".smolmind"
}

type ServerConfig struct {
	Port int    `yaml:"port"` // default 7118
	Host string `yaml:"host"` // default "127.0.0.1"
}

type StoreConfig struct {
	Type    string `yaml:"type"`    // "bolt" or "memory"
	DataDir string `yaml:"dataDir"` // default "~/.smolmind/data"
}

type SpeechConfig struct {
	RecognizeCommand string `yaml:"recognizeCommand"` // prints a transcript on stdout
	SpeakCommand     string `yaml:"speakCommand"`     // reads text on stdin
}

type LogConfig struct {
	Level  string `yaml:"level"`  // default "info"
	Format string `yaml:"format"` // "console" or "json"
}

// env lists the supported environment overrides. Unset variables leave the
// corresponding field untouched.
type env struct {
	Backend       *string  `envconfig:"BACKEND"`
	ModelID       *string  `envconfig:"MODEL_ID"`
	BaseURL       *string  `envconfig:"BASE_URL"`
	APIKey        *string  `envconfig:"API_KEY"`
	CLIBin        *string  `envconfig:"CLI_BIN"`
	MaxNewTokens  *int     `envconfig:"MAX_NEW_TOKENS"`
	Temperature   *float64 `envconfig:"TEMPERATURE"`
	TopP          *float64 `envconfig:"TOP_P"`
	ModelTimeout  *int     `envconfig:"MODEL_TIMEOUT"`
	DefaultAgent  *string  `envconfig:"DEFAULT_AGENT"`
	AgentTable    *string  `envconfig:"AGENT_TABLE"`
	HistoryWindow *int     `envconfig:"HISTORY_WINDOW"`
	BasePath      *string  `envconfig:"BASE_PATH"`
	ServerHost    *string  `envconfig:"SERVER_HOST"`
	ServerPort    *int     `envconfig:"SERVER_PORT"`
	StoreType     *string  `envconfig:"STORE_TYPE"`
	DataDir       *string  `envconfig:"DATA_DIR"`
	LogLevel      *string  `envconfig:"LOG_LEVEL"`
	LogFormat     *string  `envconfig:"LOG_FORMAT"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:      model.BackendNone,
			ModelID:      "TinyLlama/TinyLlama-1.1B-Chat-v1.0",
			CLIBin:       "claude",
			MaxNewTokens: 512,
			Temperature:  0.3,
			TopP:         0.9,
			Timeout:      120,
		},
		Agent: AgentConfig{
			HistoryWindow: 10,
		},
		Tools: ToolsConfig{
			DataSubdir: ".smolmind",
		},
		Server: ServerConfig{
			Port: 7118,
			Host: "127.0.0.1",
		},
		Store: StoreConfig{
			Type:    "bolt",
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns ~/.smolmind/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".smolmind", "config.yaml")
}

// Load builds the effective configuration. An empty path reads DefaultPath
// when it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	setString(&c.Model.Backend, e.Backend)
	setString(&c.Model.ModelID, e.ModelID)
	setString(&c.Model.BaseURL, e.BaseURL)
	setString(&c.Model.APIKey, e.APIKey)
	setString(&c.Model.CLIBin, e.CLIBin)
	setInt(&c.Model.MaxNewTokens, e.MaxNewTokens)
	if e.Temperature != nil {
		c.Model.Temperature = *e.Temperature
	}
	if e.TopP != nil {
		c.Model.TopP = *e.TopP
	}
	setInt(&c.Model.Timeout, e.ModelTimeout)
	setString(&c.Agent.DefaultAgent, e.DefaultAgent)
	setString(&c.Agent.TableFile, e.AgentTable)
	setInt(&c.Agent.HistoryWindow, e.HistoryWindow)
	setString(&c.Tools.BasePath, e.BasePath)
	setString(&c.Server.Host, e.ServerHost)
	setInt(&c.Server.Port, e.ServerPort)
	setString(&c.Store.Type, e.StoreType)
	setString(&c.Store.DataDir, e.DataDir)
	setString(&c.Log.Level, e.LogLevel)
	setString(&c.Log.Format, e.LogFormat)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case model.BackendOpenAI, model.BackendClaudeCLI, model.BackendNone:
	default:
		return fmt.Errorf("%w: model.backend %q (expected %s, %s or %s)", ErrInvalid,
			c.Model.Backend, model.BackendOpenAI, model.BackendClaudeCLI, model.BackendNone)
	}
	if c.Model.MaxNewTokens < 32 || c.Model.MaxNewTokens > 1024 {
		return fmt.Errorf("%w: model.maxNewTokens must be between 32 and 1024, got %d", ErrInvalid, c.Model.MaxNewTokens)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1.5 {
		return fmt.Errorf("%w: model.temperature must be between 0 and 1.5, got %g", ErrInvalid, c.Model.Temperature)
	}
	if c.Model.TopP < 0.1 || c.Model.TopP > 1 {
		return fmt.Errorf("%w: model.topP must be between 0.1 and 1, got %g", ErrInvalid, c.Model.TopP)
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("%w: model.timeout must not be negative", ErrInvalid)
	}
	if c.Agent.HistoryWindow < 1 {
		return fmt.Errorf("%w: agent.historyWindow must be at least 1", ErrInvalid)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	switch c.Store.Type {
	case "bolt", "memory":
	default:
		return fmt.Errorf("%w: store.type %q (expected bolt or memory)", ErrInvalid, c.Store.Type)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q (expected console or json)", ErrInvalid, c.Log.Format)
	}
	return nil
}

// ModelSettings converts the model section for the gateway.
func (c *Config) ModelSettings() model.Settings {
	return model.Settings{
		Backend:      c.Model.Backend,
		ModelID:      c.Model.ModelID,
		BaseURL:      c.Model.BaseURL,
		APIKey:       c.Model.APIKey,
		CLIBin:       c.Model.CLIBin,
		MaxNewTokens: c.Model.MaxNewTokens,
		Temperature:  c.Model.Temperature,
		TopP:         c.Model.TopP,
		Timeout:      time.Duration(c.Model.Timeout) * time.Second,
	}
}

// ServerAddress returns the listen address in "host:port" format.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath returns the full path to the BoltDB file (DataDir + "/smolmind.db").
func (c *Config) DBPath() string {
	return filepath.Join(c.Store.DataDir, "smolmind.db")
}

// defaultDataDir resolves the default data directory.
// It uses os.UserHomeDir() + "/.smolmind/data", falling back to
// "/tmp/smolmind/data" if the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "smolmind", "data")
	}
	return filepath.Join(home, ".smolmind", "data")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "smolmind")
	}
	return home
}
