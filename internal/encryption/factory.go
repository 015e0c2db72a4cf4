package encryption

import (
	"fmt"

	"wt-go/internal/config"
	"wt-go/internal/wt"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Returns a nil Encryptor when encryption at rest is disabled.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (wt.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("%w: age encryption requires public_key_path and private_key_path", wt.ErrConfiguration)
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("%w: unknown encryption type: %q", wt.ErrConfiguration, cfg.Type)
	}
}
