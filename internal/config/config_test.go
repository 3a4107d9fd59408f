package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir: "/home/user/.local/share/neofab",
		LogDir:  "/home/user/.local/share/neofab/log",
		Store:   StoreConfig{Type: "sqlite", DataDir: "/home/user/.local/share/neofab/data", TimeoutMS: 2500},
		BlobStore: BlobStoreConfig{
			Type:     "s3",
			S3Bucket: "neofab-attachments",
			S3Prefix: "blobs/",
			S3Region: "eu-central-1",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  "/home/user/.local/share/neofab/keys/neofab.pub",
			PrivateKeyPath: "/home/user/.local/share/neofab/keys/neofab.key",
		},
		Notify: NotifyConfig{
			Type:       "smtp",
			SMTPHost:   "mail.example.com",
			SMTPPort:   587,
			SMTPFrom:   "neofab@example.com",
			Recipients: []string{"ops@example.com", "lab@example.com"},
		},
		Identity: IdentityConfig{
			DefaultRole: "user",
			Actors: []ActorConfig{
				{ID: "alice", Role: "staff"},
				{ID: "root", Role: "admin"},
			},
		},
		Attachments: AttachmentsConfig{MaxSize: 2048},
		API:         APIConfig{ListenAddr: ":9090"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want %q", got.Store.Type, "sqlite")
	}
	if got.Store.TimeoutMS != 2500 {
		t.Errorf("Store.TimeoutMS = %d, want %d", got.Store.TimeoutMS, 2500)
	}
	if got.BlobStore.Type != "s3" {
		t.Errorf("BlobStore.Type = %q, want %q", got.BlobStore.Type, "s3")
	}
	if got.BlobStore.S3Bucket != "neofab-attachments" {
		t.Errorf("BlobStore.S3Bucket = %q, want %q", got.BlobStore.S3Bucket, "neofab-attachments")
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
	if got.Notify.SMTPHost != "mail.example.com" {
		t.Errorf("Notify.SMTPHost = %q, want %q", got.Notify.SMTPHost, "mail.example.com")
	}
	if len(got.Notify.Recipients) != 2 {
		t.Fatalf("len(Notify.Recipients) = %d, want 2", len(got.Notify.Recipients))
	}
	if len(got.Identity.Actors) != 2 {
		t.Fatalf("len(Identity.Actors) = %d, want 2", len(got.Identity.Actors))
	}
	if got.Identity.Actors[0].Role != "staff" {
		t.Errorf("Actors[0].Role = %q, want %q", got.Identity.Actors[0].Role, "staff")
	}
	if got.Attachments.MaxSize != 2048 {
		t.Errorf("Attachments.MaxSize = %d, want %d", got.Attachments.MaxSize, 2048)
	}
	if got.API.ListenAddr != ":9090" {
		t.Errorf("API.ListenAddr = %q, want %q", got.API.ListenAddr, ":9090")
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/neofab")

	if cfg.BaseDir != "/data/neofab" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/neofab")
	}
	if cfg.LogDir != "/data/neofab/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/neofab/log")
	}
	if cfg.Store.Type != "sqlite" {
		t.Errorf("Store.Type = %q, want %q", cfg.Store.Type, "sqlite")
	}
	if cfg.Store.DataDir != "/data/neofab/data" {
		t.Errorf("Store.DataDir = %q, want %q", cfg.Store.DataDir, "/data/neofab/data")
	}
	if cfg.BlobStore.FSRoot != "/data/neofab/blobs" {
		t.Errorf("BlobStore.FSRoot = %q, want %q", cfg.BlobStore.FSRoot, "/data/neofab/blobs")
	}
	if cfg.Encryption.PublicKeyPath != "/data/neofab/keys/neofab.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", cfg.Encryption.PublicKeyPath, "/data/neofab/keys/neofab.pub")
	}
	if cfg.Identity.DefaultRole != "user" {
		t.Errorf("Identity.DefaultRole = %q, want %q", cfg.Identity.DefaultRole, "user")
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "neofab.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "neofab.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "neofab.toml")
		cfg := NewConfig(dir)
		cfg.Store = StoreConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Store.Type != "memory" {
			t.Errorf("Store.Type = %q, want %q", got.Store.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/neofab.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
