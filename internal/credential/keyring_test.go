package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()

	ring := keyring.NewArrayKeyring(nil)
	previous := openKeyring
	openKeyring = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyring = previous })
}

func TestSetGetDelete(t *testing.T) {
	useArrayKeyring(t)

	require.NoError(t, Set(KeyMailboxPassword, "hunter2"))

	got, err := Get(KeyMailboxPassword)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, Delete(KeyMailboxPassword))

	_, err = Get(KeyMailboxPassword)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestResolve(t *testing.T) {
	useArrayKeyring(t)
	require.NoError(t, Set(KeyAIAPIKey, "from-keyring"))

	got, err := Resolve("explicit", KeyAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "explicit", got)

	got, err = Resolve("", KeyAIAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", got)

	got, err = Resolve("", KeyMailboxPassword)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_KeyringUnavailable(t *testing.T) {
	previous := openKeyring
	openKeyring = func() (keyring.Keyring, error) { return nil, errors.New("no backend") }
	t.Cleanup(func() { openKeyring = previous })

	_, err := Resolve("", KeyMailboxPassword)
	assert.Error(t, err)
}
