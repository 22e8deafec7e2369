package etl

import (
	"time"

	"github.com/BartekS5/astramigrate/pkg/models"
)

// ColumnKind is the coarse class a column is created with.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindBool
	KindInteger
	KindFloat
	KindTimestamp
	KindBinary
)

var columnTypes = map[models.Family]map[ColumnKind]string{
	models.FamilyPostgres: {
		KindText:      "TEXT",
		KindBool:      "BOOLEAN",
		KindInteger:   "BIGINT",
		KindFloat:     "DOUBLE PRECISION",
		KindTimestamp: "TIMESTAMPTZ",
		KindBinary:    "BYTEA",
	},
	models.FamilyMySQL: {
		KindText:      "LONGTEXT",
		KindBool:      "BOOLEAN",
		KindInteger:   "BIGINT",
		KindFloat:     "DOUBLE",
		KindTimestamp: "DATETIME(6)",
		KindBinary:    "LONGBLOB",
	},
	models.FamilyMSSQL: {
		KindText:      "NVARCHAR(MAX)",
		KindBool:      "BIT",
		KindInteger:   "BIGINT",
		KindFloat:     "FLOAT",
		KindTimestamp: "DATETIME2",
		KindBinary:    "VARBINARY(MAX)",
	},
	models.FamilyOracle: {
		KindText:      "CLOB",
		KindBool:      "NUMBER(1)",
		KindInteger:   "NUMBER(19)",
		KindFloat:     "BINARY_DOUBLE",
		KindTimestamp: "TIMESTAMP",
		KindBinary:    "BLOB",
	},
}

// ColumnType returns the DDL type for a column class in a family.
func ColumnType(f models.Family, k ColumnKind) string {
	if m, ok := columnTypes[f]; ok {
		return m[k]
	}
	return ""
}

func kindOf(v interface{}) ColumnKind {
	switch v.(type) {
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return KindInteger
	case float32, float64:
		return KindFloat
	case time.Time:
		return KindTimestamp
	case []byte:
		return KindBinary
	default:
		// uint64 may not fit BIGINT; strings and JSON encoded collections.
		return KindText
	}
}
