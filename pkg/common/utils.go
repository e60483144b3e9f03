package common

import "strings"

// JoinFields renders "name = value" pairs for diagnostic logging
func JoinFields(rec NormalizedRecord) string {
	if len(rec.Fields) == 0 {
		return ""
	}

	pairs := make([]string, len(rec.Fields))
	for i, f := range rec.Fields {
		pairs[i] = f.Name + " = " + f.Value.String()
	}

	return strings.Join(pairs, ", ")
}
