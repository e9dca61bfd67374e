package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// FileConfig mirrors Config for decoding config files. Pointer fields tell
// "absent" apart from zero values so a file only overrides what it sets.
// Durations accept Go duration strings ("15m") and, in JSON, nanoseconds.
type FileConfig struct {
	EndpointAddrHTTP *string         `json:"endpoint_addr_http" toml:"endpoint_addr_http"`
	EndpointAddrGRPC *string         `json:"endpoint_addr_grpc" toml:"endpoint_addr_grpc"`
	StorageDriver    *string         `json:"storage_driver" toml:"storage_driver"`
	DatabaseDSN      *string         `json:"database_dsn" toml:"database_dsn"`
	LedgerBackend    *string         `json:"ledger_backend" toml:"ledger_backend"`
	MongoURI         *string         `json:"mongo_uri" toml:"mongo_uri"`
	MongoDatabase    *string         `json:"mongo_database" toml:"mongo_database"`
	SecretKey        *string         `json:"secret_key" toml:"secret_key"`
	TokenIssuer      *string         `json:"token_issuer" toml:"token_issuer"`
	TokenTTL         *timex.Duration `json:"token_ttl" toml:"token_ttl"`
	BcryptCost       *int            `json:"bcrypt_cost" toml:"bcrypt_cost"`
	SweepInterval    *timex.Duration `json:"sweep_interval" toml:"sweep_interval"`
	LogLevel         *string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays values from the file named by -c/-config, if any.
// Files ending in .toml are decoded as TOML, everything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, fc)
	} else {
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&c.StorageDriver, fc.StorageDriver)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.LedgerBackend, fc.LedgerBackend)
	setString(&c.MongoURI, fc.MongoURI)
	setString(&c.MongoDatabase, fc.MongoDatabase)
	setString(&c.SecretKey, fc.SecretKey)
	setString(&c.TokenIssuer, fc.TokenIssuer)
	setString(&c.LogLevel, fc.LogLevel)
	if fc.TokenTTL != nil {
		c.TokenTTL = fc.TokenTTL.Duration
	}
	if fc.SweepInterval != nil {
		c.SweepInterval = fc.SweepInterval.Duration
	}
	if fc.BcryptCost != nil {
		c.BcryptCost = *fc.BcryptCost
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
