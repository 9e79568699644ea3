package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns s into a LIKE/ILIKE pattern matching s literally
// anywhere in the value. Postgres uses backslash as the default escape.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
