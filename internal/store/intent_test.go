package store

import (
	"testing"

	"github.com/rahmah/go-bakery-store/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	intent, err := ParseIntent("add")
	require.NoError(t, err)
	assert.Equal(t, IntentAdd, intent)

	intent, err = ParseIntent("replace")
	require.NoError(t, err)
	assert.Equal(t, IntentReplace, intent)

	// legacy alias
	intent, err = ParseIntent("update")
	require.NoError(t, err)
	assert.Equal(t, IntentReplace, intent)
}

func TestParseIntentRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "ADD", "merge", "delete"} {
		_, err := ParseIntent(s)
		assert.ErrorIs(t, err, database.ErrInvalidIntent, "intent %q", s)
	}
}
