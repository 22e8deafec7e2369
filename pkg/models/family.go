package models

import (
	"errors"
	"fmt"
	"strings"
)

// Family identifies one store family a connector talks to.
type Family string

const (
	FamilyPostgres  Family = "postgres"
	FamilyMySQL     Family = "mysql"
	FamilyMSSQL     Family = "mssql"
	FamilyOracle    Family = "oracle"
	FamilyMongo     Family = "mongo"
	FamilyCassandra Family = "cassandra"
)

// Kind groups families by data model.
type Kind string

const (
	KindRelational Kind = "relational"
	KindDocument   Kind = "document"
	KindWideColumn Kind = "wide-column"
)

var ErrUnknownFamily = errors.New("unknown store family")

var familyAliases = map[string]Family{
	"postgres":   FamilyPostgres,
	"postgresql": FamilyPostgres,
	"pg":         FamilyPostgres,
	"mysql":      FamilyMySQL,
	"mariadb":    FamilyMySQL,
	"mssql":      FamilyMSSQL,
	"sqlserver":  FamilyMSSQL,
	"oracle":     FamilyOracle,
	"mongo":      FamilyMongo,
	"mongodb":    FamilyMongo,
	"cassandra":  FamilyCassandra,
	"astra":      FamilyCassandra,
}

var defaultPorts = map[Family]int{
	FamilyPostgres:  5432,
	FamilyMySQL:     3306,
	FamilyMSSQL:     1433,
	FamilyOracle:    1521,
	FamilyMongo:     27017,
	FamilyCassandra: 9042,
}

// ParseFamily resolves a family name or one of its aliases, case-insensitively.
func ParseFamily(s string) (Family, error) {
	f, ok := familyAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFamily, s)
	}
	return f, nil
}

// DefaultPort returns the port a family listens on out of the box, or 0.
func (f Family) DefaultPort() int {
	return defaultPorts[f]
}

func (f Family) Kind() Kind {
	switch f {
	case FamilyMongo:
		return KindDocument
	case FamilyCassandra:
		return KindWideColumn
	default:
		return KindRelational
	}
}

func (f Family) String() string {
	return string(f)
}
