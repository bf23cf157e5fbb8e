// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/session-client/pkg/session"
)

type StorageType string

const (
	StorageMemory   StorageType = "memory"
	StorageFile     StorageType = "file"
	StorageValKey   StorageType = "valkey"
	StoragePostgres StorageType = "postgres"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	Client   Client   `yaml:"client"`
	Storage  Storage  `yaml:"storage"`
	Database Database `yaml:"database"`
	ValKey   ValKey   `yaml:"valkey"`
}

// Client configures the connection to the credential service.
type Client struct {
	BaseURL   string              `yaml:"baseURL"`
	Timeout   time.Duration       `yaml:"timeout" default:"30s"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
	Endpoints session.EndpointSet `yaml:"endpoints"`
}

type Storage struct {
	Type    StorageType   `yaml:"type" default:"file"`
	Path    string        `yaml:"path" default:"$HOME/.session-client/credentials.yaml"`
	Profile string        `yaml:"profile" default:"default"`
	Timeout time.Duration `yaml:"timeout" default:"3s"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	Prefix    string              `yaml:"prefix" default:"session-client"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
}
