package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
)

// Config represents the main configuration for wt.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Store      StoreConfig      `toml:"store"`
	Encryption EncryptionConfig `toml:"encryption"`
	Server     ServerConfig     `toml:"server"`
	Events     EventsConfig     `toml:"events"`
	IDNode     int64            `toml:"id_node"` // snowflake node number, 0-1023
}

// StoreConfig represents configuration for the object store holding entries.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type   string `toml:"type"`   // "s3" (default), "filesystem", "sqlite" or "memory"
	Prefix string `toml:"prefix"` // key prefix for entries, defaults to "data/"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"` // for S3-compatible servers
	S3PathStyle    bool   `toml:"s3_path_style,omitempty"`
	S3AccessKeyID  string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccess string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// SQLite-specific fields (only used when Type == "sqlite")
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt stored entries.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "" or "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	ListenAddr       string   `toml:"listen_addr"`
	TimeZone         string   `toml:"time_zone"`          // IANA name used for displayed dates
	InputMessageTTL  Duration `toml:"input_message_ttl"`  // how long save messages stay visible
	DeleteMessageTTL Duration `toml:"delete_message_ttl"` // how long delete messages stay visible
}

// EventsConfig represents configuration for the change event publisher.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type EventsConfig struct {
	Type      string `toml:"type"` // "" or "none" (default), "amqp"
	AMQPURL   string `toml:"amqp_url,omitempty"`
	AMQPQueue string `toml:"amqp_queue,omitempty"`
}

// Duration is a time.Duration that reads and writes as a string like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

const (
	DefaultListenAddr       = "127.0.0.1:8080"
	DefaultPrefix           = "data/"
	DefaultInputMessageTTL  = 5 * time.Second
	DefaultDeleteMessageTTL = 3 * time.Second
)

// NewConfig creates a new Config with default values rooted at baseDir.
// The bucket is left empty: it is normally supplied through WT_S3_BUCKET.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:   "s3",
			Prefix: DefaultPrefix,
		},
		Encryption: EncryptionConfig{
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wt.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wt.key"),
		},
		Server: ServerConfig{
			ListenAddr:       DefaultListenAddr,
			TimeZone:         "Local",
			InputMessageTTL:  Duration{DefaultInputMessageTTL},
			DeleteMessageTTL: Duration{DefaultDeleteMessageTTL},
		},
	}
}

// applyDefaults fills in zero values a hand-written config file may leave out.
func (c *Config) applyDefaults() {
	if c.LogDir == "" && c.BaseDir != "" {
		c.LogDir = filepath.Join(c.BaseDir, "log")
	}
	if c.Store.Type == "" {
		c.Store.Type = "s3"
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = DefaultPrefix
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.InputMessageTTL.Duration == 0 {
		c.Server.InputMessageTTL = Duration{DefaultInputMessageTTL}
	}
	if c.Server.DeleteMessageTTL.Duration == 0 {
		c.Server.DeleteMessageTTL = Duration{DefaultDeleteMessageTTL}
	}
}

// Location resolves the configured time zone. An empty name means UTC.
func (s ServerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", s.TimeZone, err)
	}
	return loc, nil
}

// envOverrides lists the settings that may come from the environment.
type envOverrides struct {
	S3Bucket   string `env:"WT_S3_BUCKET"`
	S3Prefix   string `env:"WT_S3_PREFIX"`
	S3Region   string `env:"WT_S3_REGION"`
	S3Endpoint string `env:"WT_S3_ENDPOINT"`
	ListenAddr string `env:"WT_LISTEN_ADDR"`
}

// ApplyEnv overrides config values with WT_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return nil
		}
		return fmt.Errorf("decoding environment: %w", err)
	}

	if env.S3Bucket != "" {
		c.Store.S3Bucket = env.S3Bucket
	}
	if env.S3Prefix != "" {
		c.Store.Prefix = env.S3Prefix
	}
	if env.S3Region != "" {
		c.Store.S3Region = env.S3Region
	}
	if env.S3Endpoint != "" {
		c.Store.S3Endpoint = env.S3Endpoint
	}
	if env.ListenAddr != "" {
		c.Server.ListenAddr = env.ListenAddr
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path, falling back to NewConfig(baseDir) when
// the file does not exist, then applies environment overrides.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = NewConfig(baseDir)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
		cfg.applyDefaults()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
