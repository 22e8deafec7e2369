package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	tests := map[string]Family{
		"postgres":   FamilyPostgres,
		"PostgreSQL": FamilyPostgres,
		"mariadb":    FamilyMySQL,
		"sqlserver":  FamilyMSSQL,
		"oracle":     FamilyOracle,
		" mongodb ":  FamilyMongo,
		"astra":      FamilyCassandra,
	}
	for in, want := range tests {
		got, err := ParseFamily(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFamily("sqlite")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestFamilyKindAndPort(t *testing.T) {
	assert.Equal(t, KindRelational, FamilyOracle.Kind())
	assert.Equal(t, KindDocument, FamilyMongo.Kind())
	assert.Equal(t, KindWideColumn, FamilyCassandra.Kind())
	assert.Equal(t, 1433, FamilyMSSQL.DefaultPort())
	assert.Equal(t, 0, Family("nope").DefaultPort())
}
