package etl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/BartekS5/astramigrate/pkg/models"
)

var ErrInvalidIdentifier = errors.New("invalid identifier")

// Unquoted CQL identifiers, optionally keyspace qualified.
var cqlIdentifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}(\.[A-Za-z][A-Za-z0-9_]{0,47})?$`)

// ValidateTableName checks a source table name before it is spliced into CQL.
func ValidateTableName(name string) error {
	if !cqlIdentifier.MatchString(name) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateTarget checks a destination table or collection name. Names are
// quoted by each dialect, so only empty parts and control characters are rejected.
func ValidateTarget(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidIdentifier)
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return fmt.Errorf("%w: target %q has an empty part", ErrInvalidIdentifier, name)
		}
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: target %q contains a control character", ErrInvalidIdentifier, name)
		}
	}
	return nil
}

// validateInsert runs the checks every destination performs before writing.
func validateInsert(batch models.Batch, target string) Result {
	if err := ValidateTarget(target); err != nil {
		return failure(KindInvalid, err)
	}
	if err := batch.Validate(); err != nil {
		return failure(KindInvalid, err)
	}
	return ok(0)
}

// splitQualified splits "schema.table" and prefixes schema when the name has none.
func splitQualified(name, schema string) []string {
	parts := strings.Split(name, ".")
	if len(parts) == 1 && schema != "" {
		return []string{schema, name}
	}
	return parts
}
