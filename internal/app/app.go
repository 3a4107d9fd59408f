package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"neofab/internal/blobstore"
	"neofab/internal/config"
	"neofab/internal/core"
	"neofab/internal/encryption"
	"neofab/internal/identity"
	"neofab/internal/notify"
	"neofab/internal/store"
)

// App is the application layer between the front ends (CLI, HTTP) and the
// engine. It constructs all dependencies from config and manages their
// lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     core.Store
	blobs     core.BlobStore
	encryptor core.Encryptor
	notifier  core.Notifier
	identity  *identity.StaticProvider
	service   *core.Service
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the command being run (e.g. "Submit", "Serve") and
// tags every log line. The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	st, err := store.NewStoreFromConfig(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	blobs, err := blobstore.NewBlobStoreFromConfig(ctx, cfg.BlobStore, enc)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	notifier, err := notify.NewNotifierFromConfig(cfg.Notify)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating notifier: %w", err)
	}

	idp, err := identity.NewStaticProvider(cfg.Identity)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating identity provider: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, operation+"-"+opID)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := core.NewService(st, blobs, notifier, idp,
		&slogAdapter{l: logger}, core.RealClock{}, core.UUIDGenerator{},
		cfg.Attachments.MaxSize)

	return &App{
		cfg:       cfg,
		store:     st,
		blobs:     blobs,
		encryptor: enc,
		notifier:  notifier,
		identity:  idp,
		service:   svc,
		logFile:   logFile,
	}, nil
}

// Service returns the wired engine.
func (a *App) Service() *core.Service {
	return a.service
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Encryptor returns the configured encryptor, or nil when encryption is off.
func (a *App) Encryptor() core.Encryptor {
	return a.encryptor
}

// Encrypted reports whether attachment content is encrypted at rest.
func (a *App) Encrypted() bool {
	return a.encryptor != nil
}

// Unlock prepares the blob store for reads when encryption is configured.
// A no-op otherwise.
func (a *App) Unlock(passphrase string) error {
	ebs, ok := a.blobs.(*blobstore.EncryptedBlobStore)
	if !ok {
		return nil
	}
	return ebs.Unlock(passphrase)
}

// ValidateSetup verifies that the blob store backend is reachable.
func (a *App) ValidateSetup(ctx context.Context) error {
	return a.blobs.ValidateSetup(ctx)
}

// Close releases all resources.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
