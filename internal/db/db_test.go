package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDatabaseID(t *testing.T) {
	id := newDatabaseID()
	assert.True(t, strings.HasPrefix(id, "db_"))
	assert.Len(t, id, len("db_")+10)

	// Hex only after the prefix.
	for _, c := range id[len("db_"):] {
		assert.Contains(t, "0123456789abcdef", string(c))
	}

	assert.NotEqual(t, id, newDatabaseID())
}
