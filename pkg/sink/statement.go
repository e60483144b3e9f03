package sink

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/seb-dataworks/streamsink/pkg/common"
)

// Column names come from record field names and are spliced into statement
// text, so only plain identifiers are accepted.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used as a table or column name
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Statement is a single-row parameterized insert
type Statement struct {
	Table   string
	Columns []string
	Values  []string
}

// BuildInsert maps each field of rec to a column of the same name. When
// allowed is non-empty, columns outside it are rejected.
func BuildInsert(table string, rec common.NormalizedRecord, allowed map[string]struct{}) (Statement, error) {
	if len(rec.Fields) == 0 {
		return Statement{}, &RecordError{Reason: "record has no fields"}
	}

	stmt := Statement{
		Table:   table,
		Columns: make([]string, 0, len(rec.Fields)),
		Values:  make([]string, 0, len(rec.Fields)),
	}

	for _, f := range rec.Fields {
		if !ValidIdentifier(f.Name) {
			return Statement{}, &RecordError{Field: f.Name, Reason: "not a valid column identifier"}
		}
		if len(allowed) > 0 {
			if _, ok := allowed[f.Name]; !ok {
				return Statement{}, &RecordError{Field: f.Name, Reason: fmt.Sprintf("no such column in %s", table)}
			}
		}
		stmt.Columns = append(stmt.Columns, f.Name)
		stmt.Values = append(stmt.Values, f.Value.String())
	}

	return stmt, nil
}

// String renders the statement with named placeholders:
// INSERT INTO t (id,name) VALUES (?id,?name)
func (s Statement) String() string {
	named := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		named[i] = "?" + c
	}
	return s.render(named)
}

// Params returns the bound parameters keyed by column name
func (s Statement) Params() []sql.NamedArg {
	params := make([]sql.NamedArg, len(s.Columns))
	for i, c := range s.Columns {
		params[i] = sql.Named(c, s.Values[i])
	}
	return params
}

// Render produces the driver-specific query and its positional arguments
func (s Statement) Render(d Dialect) (string, []interface{}) {
	markers := make([]string, len(s.Columns))
	args := make([]interface{}, len(s.Values))
	for i := range s.Columns {
		markers[i] = d.Placeholder(i + 1)
		args[i] = s.Values[i]
	}
	return s.render(markers), args
}

func (s Statement) render(markers []string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		s.Table,
		strings.Join(s.Columns, ","),
		strings.Join(markers, ","),
	)
}
