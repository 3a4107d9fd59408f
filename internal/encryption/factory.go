package encryption

import (
	"fmt"

	"neofab/internal/config"
	"neofab/internal/core"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (the default) returns nil: attachment content is stored in
// plaintext and no encrypting decorator is wired.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (core.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
