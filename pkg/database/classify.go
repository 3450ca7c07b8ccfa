package database

import "strings"

// Kind is the coarse intent of a SQL statement.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
)

// writeKeywords are the leading keywords that mark a statement as a
// mutation for the purpose of write gating.
var writeKeywords = map[string]struct{}{
	"INSERT": {},
	"UPDATE": {},
	"DELETE": {},
	"CREATE": {},
	"DROP":   {},
	"ALTER":  {},
}

// Classify inspects the leading keyword of a statement and reports whether
// it reads or writes. Leading whitespace and case are ignored. Anything
// not recognized as a mutation is treated as a read.
func Classify(query string) Kind {
	fields := strings.Fields(strings.ToUpper(query))
	if len(fields) == 0 {
		return KindRead
	}
	if _, ok := writeKeywords[fields[0]]; ok {
		return KindWrite
	}
	return KindRead
}
