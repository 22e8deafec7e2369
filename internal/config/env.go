package config

import (
	"os"
	"strings"

	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/BartekS5/astramigrate/pkg/utils"
)

// DestinationFromEnv reads <FAMILY>_HOST, _PORT, _USER, _PASSWORD,
// _DATABASE and _SCHEMA, e.g. POSTGRES_HOST. Unset values stay empty so
// flags can fill them.
func DestinationFromEnv(f models.Family) models.ConnectionConfig {
	prefix := strings.ToUpper(string(f)) + "_"
	return models.ConnectionConfig{
		Host:     os.Getenv(prefix + "HOST"),
		Port:     utils.IntOr(os.Getenv(prefix+"PORT"), 0),
		Username: os.Getenv(prefix + "USER"),
		Password: os.Getenv(prefix + "PASSWORD"),
		Database: os.Getenv(prefix + "DATABASE"),
		Schema:   os.Getenv(prefix + "SCHEMA"),
	}
}

// Merge fills the empty fields of c from fallback.
func Merge(c, fallback models.ConnectionConfig) models.ConnectionConfig {
	if c.Host == "" {
		c.Host = fallback.Host
	}
	if c.Port == 0 {
		c.Port = fallback.Port
	}
	if c.Username == "" {
		c.Username = fallback.Username
	}
	if c.Password == "" {
		c.Password = fallback.Password
	}
	if c.Database == "" {
		c.Database = fallback.Database
	}
	if c.Schema == "" {
		c.Schema = fallback.Schema
	}
	if c.Options == nil && fallback.Options != nil {
		c.Options = make(map[string]string, len(fallback.Options))
		for k, v := range fallback.Options {
			c.Options[k] = v
		}
	}
	return c
}
