// Package config is the ambient configuration layer: a YAML-described
// PeerConfig splitting connection shape (EngineConfig) from replication
// behavior (batch size, retry budget, staleness policy), loaded with
// gopkg.in/yaml.v3.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/syncerr"
)

// EngineConfig is the connection shape for one endpoint.
type EngineConfig struct {
	Engine   string `yaml:"engine"`
	DSN      string `yaml:"dsn,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	DBName   string `yaml:"dbName,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// PeerConfig is the behavior shape for one replication peer: batch sizing,
// retry budget, staleness policy, and an optional mapping config path
//.
type PeerConfig struct {
	Name          string       `yaml:"name"`
	Local         EngineConfig `yaml:"local"`
	BatchSize     int          `yaml:"batchSize"`
	MaxPasses     int          `yaml:"maxPasses"`
	StaleWindow   string       `yaml:"staleWindow"` // Go duration string, e.g. "72h"
	MappingConfig string       `yaml:"mappingConfig,omitempty"`
	AllowDestructive bool      `yaml:"allowDestructive,omitempty"`
}

// Load reads and validates a PeerConfig document from path.
func Load(path string) (PeerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PeerConfig{}, syncerr.Invalid("config: reading %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes a PeerConfig document from raw YAML bytes.
func Parse(data []byte) (PeerConfig, error) {
	var cfg PeerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PeerConfig{}, syncerr.Invalid("config: invalid YAML: %v", err)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = 3
	}
	if _, err := ParseEngine(cfg.Local.Engine); err != nil {
		return PeerConfig{}, err
	}
	return cfg, nil
}

// ParseEngine maps a config-file engine name to porttype.Engine.
func ParseEngine(name string) (porttype.Engine, error) {
	switch name {
	case "mysql":
		return porttype.MySQL, nil
	case "postgres", "postgresql":
		return porttype.Postgres, nil
	case "mssql", "sqlserver":
		return porttype.MSSQL, nil
	case "sqlite3", "sqlite":
		return porttype.SQLite3, nil
	default:
		return 0, syncerr.Invalid("config: unknown engine %q", name)
	}
}

// Dial opens an enginedb.Conn from an EngineConfig.
func Dial(ec EngineConfig) (*enginedb.Conn, error) {
	engine, err := ParseEngine(ec.Engine)
	if err != nil {
		return nil, err
	}
	return enginedb.Open(enginedb.Config{
		Engine:   engine,
		DSN:      ec.DSN,
		DBName:   ec.DBName,
		User:     ec.User,
		Password: ec.Password,
		Host:     ec.Host,
		Port:     ec.Port,
	})
}
