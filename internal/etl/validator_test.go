package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTableName(t *testing.T) {
	for _, name := range []string{"users", "shop.users", "User_Events2"} {
		assert.NoError(t, ValidateTableName(name), name)
	}
	for _, name := range []string{"", "_users", "users;", "a b", `"users"`, "a.b.c"} {
		assert.ErrorIs(t, ValidateTableName(name), ErrInvalidIdentifier, name)
	}
}

func TestValidateTarget(t *testing.T) {
	for _, name := range []string{"people", "dbo.people", "Order Lines", "naïve"} {
		assert.NoError(t, ValidateTarget(name), name)
	}
	for _, name := range []string{"", ".people", "people.", "peo\nple"} {
		assert.ErrorIs(t, ValidateTarget(name), ErrInvalidIdentifier, name)
	}
}

func TestSplitQualified(t *testing.T) {
	assert.Equal(t, []string{"people"}, splitQualified("people", ""))
	assert.Equal(t, []string{"dbo", "people"}, splitQualified("people", "dbo"))
	assert.Equal(t, []string{"hr", "people"}, splitQualified("hr.people", "dbo"))
}
