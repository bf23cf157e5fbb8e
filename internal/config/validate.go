package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

var (
	ErrMissingBaseURL     = errors.New("client.baseURL is required")
	ErrUnknownStorageType = errors.New("unknown storage type")
)

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if _, err := url.ParseRequestURI(c.Client.BaseURL); err != nil {
		return fmt.Errorf("parsing client.baseURL: %w", err)
	}

	if err := c.Client.Endpoints.Validate(); err != nil {
		return fmt.Errorf("validating client.endpoints: %w", err)
	}

	switch c.Storage.Type {
	case StorageMemory, StorageValKey, StoragePostgres:
	case StorageFile:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage.path is required for the file storage")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageType, c.Storage.Type)
	}

	return nil
}

// StoragePath returns the credential file path with environment
// variables expanded.
func (s Storage) StoragePath() string {
	return os.ExpandEnv(s.Path)
}
