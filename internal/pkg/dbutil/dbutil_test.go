package dbutil

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize_RewritesLimitAndPlaceholders(t *testing.T) {
	query, args := Finalize(
		"SELECT id FROM documents WHERE is_active=? ORDER BY mtime DESC LIMIT ?,?",
		[]interface{}{true, 20, 10},
	)
	require.Equal(t, "SELECT id FROM documents WHERE is_active=$1 ORDER BY mtime DESC LIMIT $2 OFFSET $3", query)
	require.Equal(t, []interface{}{true, 10, 20}, args)
}

func TestFinalize_NoLimitClause(t *testing.T) {
	query, args := Finalize(
		"UPDATE documents SET title=? WHERE id=?",
		[]interface{}{"new title", "doc-1"},
	)
	require.Equal(t, "UPDATE documents SET title=$1 WHERE id=$2", query)
	require.Equal(t, []interface{}{"new title", "doc-1"}, args)
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(&pq.Error{Code: uniqueViolation}))
	require.False(t, IsConflict(&pq.Error{Code: "23503"}))
	require.False(t, IsConflict(errors.New("plain")))
	require.False(t, IsConflict(nil))
}
