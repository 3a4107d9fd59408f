package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for neofab.
type Config struct {
	BaseDir     string            `toml:"base_dir"`
	LogDir      string            `toml:"log_dir"`
	Store       StoreConfig       `toml:"store"`
	BlobStore   BlobStoreConfig   `toml:"blobstore"`
	Encryption  EncryptionConfig  `toml:"encryption"`
	Notify      NotifyConfig      `toml:"notify"`
	Identity    IdentityConfig    `toml:"identity"`
	Attachments AttachmentsConfig `toml:"attachments"`
	API         APIConfig         `toml:"api"`
}

// StoreConfig represents configuration for the metadata store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type      string `toml:"type"`               // "sqlite" or "memory"
	DataDir   string `toml:"data_dir,omitempty"` // only used for type=sqlite
	TimeoutMS int64  `toml:"timeout_ms"`         // per-operation bound; defaults to 5000
}

// BlobStoreConfig represents configuration for attachment content storage.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobStoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for blob encryption.
// Type "none" disables encryption at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age", "test", or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// NotifyConfig represents configuration for the notification gateway.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type NotifyConfig struct {
	Type string `toml:"type"` // "none", "smtp", or "memory"

	// SMTP-specific fields (only used when Type == "smtp")
	SMTPHost   string   `toml:"smtp_host,omitempty"`
	SMTPPort   int      `toml:"smtp_port,omitempty"`
	SMTPFrom   string   `toml:"smtp_from,omitempty"`
	Recipients []string `toml:"recipients,omitempty"`
}

// IdentityConfig maps actor references to roles. Actors not listed get
// DefaultRole.
type IdentityConfig struct {
	DefaultRole string        `toml:"default_role"` // "user", "staff", or "admin"
	Actors      []ActorConfig `toml:"actors"`
}

// ActorConfig assigns a role to one actor reference.
type ActorConfig struct {
	ID   string `toml:"id"`
	Role string `toml:"role"`
}

// AttachmentsConfig bounds attachment uploads.
type AttachmentsConfig struct {
	MaxSize int64 `toml:"max_size"` // bytes; defaults to 64MB when zero
}

// APIConfig configures the HTTP front-end.
type APIConfig struct {
	ListenAddr string `toml:"listen_addr"` // defaults to ":8080"
}

// NewConfig creates a new Config with sensible defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:      "sqlite",
			DataDir:   filepath.Join(baseDir, "data"),
			TimeoutMS: 5000,
		},
		BlobStore: BlobStoreConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "blobs"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "neofab.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "neofab.key"),
		},
		Notify: NotifyConfig{
			Type: "none",
		},
		Identity: IdentityConfig{
			DefaultRole: "user",
		},
		API: APIConfig{
			ListenAddr: ":8080",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
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
