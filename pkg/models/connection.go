package models

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"strconv"
)

// ConnectionConfig describes how to reach one destination store.
// It is a value type: connectors keep their own copy and never modify it.
type ConnectionConfig struct {
	Host     string            `json:"host"`
	Port     int               `json:"port,omitempty"`
	Username string            `json:"username"`
	Password string            `json:"password"`
	Database string            `json:"database"`
	Schema   string            `json:"schema,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

// WithDefaults returns a copy with the family default port filled in when
// no port was given. The Options map is cloned so the copy shares nothing
// with the receiver.
func (c ConnectionConfig) WithDefaults(f Family) ConnectionConfig {
	out := c
	out.Options = maps.Clone(c.Options)
	if out.Port == 0 {
		out.Port = f.DefaultPort()
	}
	return out
}

func (c ConnectionConfig) Validate() error {
	if c.Host == "" {
		return errors.New("connection config: host is required")
	}
	if c.Database == "" {
		return errors.New("connection config: database is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("connection config: port %d out of range", c.Port)
	}
	return nil
}

// Equal reports whether both configs describe the same connection.
func (c ConnectionConfig) Equal(o ConnectionConfig) bool {
	return c.Host == o.Host &&
		c.Port == o.Port &&
		c.Username == o.Username &&
		c.Password == o.Password &&
		c.Database == o.Database &&
		c.Schema == o.Schema &&
		maps.Equal(c.Options, o.Options)
}

// Address is host:port, with IPv6 hosts bracketed.
func (c ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// String never prints the password.
func (c ConnectionConfig) String() string {
	pw := ""
	if c.Password != "" {
		pw = ":***"
	}
	return fmt.Sprintf("%s%s@%s/%s", c.Username, pw, c.Address(), c.Database)
}
