package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaultsFillsPortAndClonesOptions(t *testing.T) {
	c := ConnectionConfig{Host: "db", Database: "app", Options: map[string]string{"sslmode": "disable"}}

	d := c.WithDefaults(FamilyPostgres)
	assert.Equal(t, 5432, d.Port)
	assert.Equal(t, 0, c.Port)

	d.Options["sslmode"] = "require"
	assert.Equal(t, "disable", c.Options["sslmode"])

	c.Port = 6543
	assert.Equal(t, 6543, c.WithDefaults(FamilyPostgres).Port)
}

func TestConnectionConfigValidate(t *testing.T) {
	assert.NoError(t, ConnectionConfig{Host: "h", Database: "d"}.Validate())
	assert.Error(t, ConnectionConfig{Database: "d"}.Validate())
	assert.Error(t, ConnectionConfig{Host: "h"}.Validate())
	assert.Error(t, ConnectionConfig{Host: "h", Database: "d", Port: 70000}.Validate())
}

func TestConnectionConfigEqual(t *testing.T) {
	a := ConnectionConfig{Host: "h", Port: 1, Database: "d", Options: map[string]string{"k": "v"}}
	b := a.WithDefaults(FamilyMySQL)
	assert.True(t, a.Equal(b))

	b.Options["k"] = "w"
	assert.False(t, a.Equal(b))
}

func TestConnectionConfigStringRedactsPassword(t *testing.T) {
	c := ConnectionConfig{Host: "h", Port: 3306, Username: "root", Password: "secret", Database: "app"}
	s := c.String()
	assert.NotContains(t, s, "secret")
	assert.Equal(t, "root:***@h:3306/app", s)
}

func TestConnectionConfigAddress(t *testing.T) {
	assert.Equal(t, "db.local:5432", ConnectionConfig{Host: "db.local", Port: 5432}.Address())
	assert.Equal(t, "[::1]:5432", ConnectionConfig{Host: "::1", Port: 5432}.Address())
	assert.Equal(t, "root@[fe80::1]:3306/app", ConnectionConfig{Host: "fe80::1", Port: 3306, Username: "root", Database: "app"}.String())
}
