// Package config loads the source credentials from the environment (which
// main populates from a .env file) and migration jobs from JSON files.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BartekS5/astramigrate/internal/etl"
	"github.com/BartekS5/astramigrate/pkg/utils"
)

// Config holds everything the process reads from its environment.
type Config struct {
	Source  etl.SourceConfig
	Limit   int
	Timeout time.Duration
}

// LoadConfig reads the source settings. A secure connect bundle needs a
// client id and secret; without a bundle CASSANDRA_HOSTS must be set.
func LoadConfig() (*Config, error) {
	src := etl.SourceConfig{
		BundlePath:   os.Getenv("ASTRA_BUNDLE_PATH"),
		ClientID:     os.Getenv("ASTRA_CLIENT_ID"),
		ClientSecret: os.Getenv("ASTRA_CLIENT_SECRET"),
		Keyspace:     os.Getenv("ASTRA_KEYSPACE"),
		Hosts:        splitList(os.Getenv("CASSANDRA_HOSTS")),
		Port:         utils.IntOr(os.Getenv("CASSANDRA_PORT"), 0),
		LocalDC:      os.Getenv("CASSANDRA_LOCAL_DC"),
	}

	switch {
	case src.BundlePath != "":
		if src.ClientID == "" || src.ClientSecret == "" {
			return nil, errors.New("ASTRA_CLIENT_ID and ASTRA_CLIENT_SECRET must be set with ASTRA_BUNDLE_PATH")
		}
	case len(src.Hosts) == 0:
		return nil, errors.New("either ASTRA_BUNDLE_PATH or CASSANDRA_HOSTS environment variable must be set")
	}
	if src.Keyspace == "" {
		return nil, errors.New("ASTRA_KEYSPACE environment variable not set")
	}

	timeout := time.Duration(0)
	if raw := os.Getenv("MIGRATE_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, errors.New("MIGRATE_TIMEOUT must be a duration such as 30s")
		}
		timeout = d
	}

	return &Config{
		Source:  src,
		Limit:   utils.IntOr(os.Getenv("MIGRATE_FETCH_LIMIT"), etl.DefaultFetchLimit),
		Timeout: timeout,
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
