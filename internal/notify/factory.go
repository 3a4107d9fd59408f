package notify

import (
	"fmt"

	"neofab/internal/config"
	"neofab/internal/core"
)

// NewNotifierFromConfig creates a Notifier based on the notify config type.
func NewNotifierFromConfig(cfg config.NotifyConfig) (core.Notifier, error) {
	switch cfg.Type {
	case "none", "":
		return core.NopNotifier{}, nil
	case "smtp":
		return NewSMTPNotifier(cfg)
	case "memory":
		return NewRecordingNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notify type: %s", cfg.Type)
	}
}
