package sink

import (
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Dialect binds a database/sql driver to its placeholder syntax
type Dialect struct {
	Name        string
	Driver      string
	placeholder func(n int) string
}

// Placeholder returns the marker for the n-th parameter, starting at 1
func (d Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

func question(int) string { return "?" }

var dialects = map[string]Dialect{
	"mysql":     {Name: "mysql", Driver: "mysql", placeholder: question},
	"postgres":  {Name: "postgres", Driver: "pgx", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }},
	"sqlserver": {Name: "sqlserver", Driver: "sqlserver", placeholder: func(n int) string { return "@p" + strconv.Itoa(n) }},
	"sqlite":    {Name: "sqlite", Driver: "sqlite", placeholder: question},
}

// LookupDialect returns the dialect registered under name
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported sql driver: %s", name)
	}
	return d, nil
}
