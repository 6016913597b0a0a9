// Package dbutil adapts gendry's MySQL-flavored SQL output for the Postgres
// driver the repo layer runs on.
package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres error code for a unique-constraint violation.
const uniqueViolation = "23505"

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites a gendry-built query for Postgres: the MySQL
// `LIMIT offset,count` form becomes `LIMIT count OFFSET offset` (with the two
// bound args swapped to match) and `?` placeholders become `$n`.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	query, args = rewriteLimit(query, args)
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

func rewriteLimit(query string, args []interface{}) (string, []interface{}) {
	loc := limitRegex.FindStringIndex(query)
	if loc == nil {
		return query, args
	}
	offsetIdx := strings.Count(query[:loc[0]], "?")
	if offsetIdx+1 >= len(args) {
		return query, args
	}
	args[offsetIdx], args[offsetIdx+1] = args[offsetIdx+1], args[offsetIdx]
	return query[:loc[0]] + "LIMIT ? OFFSET ?" + query[loc[1]:], args
}

// IsConflict reports whether err is a Postgres unique violation; the repo
// layer translates it to the shared conflict sentinel.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
