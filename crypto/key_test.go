package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "member.key")
	key, err := NewKeyFile(path)
	require.NoError(t, err)

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, Address(key), Address(loaded))

	_, err = NewKeyFile(path)
	assert.ErrorIs(t, err, ErrKeyExists)

	_, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing.key"))
	assert.Error(t, err)
}
