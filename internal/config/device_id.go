package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// EnsureDeviceID returns the configured device id. When none is configured it
// reuses the id remembered under the storage dir, generating and remembering a
// new one on first boot.
func EnsureDeviceID(cfg *Config) (string, error) {
	if id := strings.TrimSpace(cfg.DeviceID); id != "" {
		cfg.DeviceID = id
		return id, nil
	}

	path := cfg.DeviceIDPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			cfg.DeviceID = id
			return id, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write device id: %w", err)
	}
	cfg.DeviceID = id
	return id, nil
}
