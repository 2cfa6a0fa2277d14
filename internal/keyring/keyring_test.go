package keyring

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/pkg/core"
)

func key(id, apiKey string) *APIKey {
	return &APIKey{ID: id, Credentials: core.Credentials{APIKey: apiKey, SecretKey: "secret-" + id}}
}

func TestFromCredentials(t *testing.T) {
	kr := FromCredentials(nil)
	_, ok := kr.Current()
	assert.False(t, ok)

	kr = FromCredentials(&core.Credentials{APIKey: "only-public"})
	assert.Equal(t, 0, kr.Len())

	kr = FromCredentials(&core.Credentials{APIKey: "pub", SecretKey: "priv"})
	creds, ok := kr.Current()
	require.True(t, ok)
	assert.Equal(t, "pub", creds.APIKey)
	assert.Equal(t, "priv", creds.SecretKey)
}

func TestFromCredentials_Backups(t *testing.T) {
	primary := &core.Credentials{APIKey: "key-a", SecretKey: "s"}
	backupB := core.Credentials{APIKey: "key-b", SecretKey: "s"}
	backupC := core.Credentials{APIKey: "key-c", SecretKey: "s"}

	tests := []struct {
		name     string
		primary  *core.Credentials
		backups  []core.Credentials
		strategy RotationStrategy
		sequence []string
	}{
		{
			name:     "primary only",
			primary:  primary,
			strategy: RotationManual,
			sequence: []string{"key-a", "key-a"},
		},
		{
			name:     "primary and backups wrap around",
			primary:  primary,
			backups:  []core.Credentials{backupB, backupC},
			strategy: RotationOnError,
			sequence: []string{"key-a", "key-b", "key-c", "key-a"},
		},
		{
			name:     "incomplete backup skipped",
			primary:  primary,
			backups:  []core.Credentials{{APIKey: "no-secret"}, backupC},
			strategy: RotationOnError,
			sequence: []string{"key-a", "key-c", "key-a"},
		},
		{
			name:     "backups without primary",
			backups:  []core.Credentials{backupB, backupC},
			strategy: RotationOnError,
			sequence: []string{"key-b", "key-c", "key-b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kr := FromCredentials(tt.primary, tt.backups...)
			assert.Equal(t, tt.strategy, kr.Strategy())

			for i, want := range tt.sequence {
				creds, ok := kr.Current()
				require.True(t, ok)
				assert.Equal(t, want, creds.APIKey, "call %d", i+1)
				kr.OnError(errors.New("401 unauthorized"))
			}
		})
	}
}

func TestKeyRing_SetAfterConstruction(t *testing.T) {
	kr := New(RotationManual)

	kr.Set(core.Credentials{APIKey: "late", SecretKey: "s"})

	creds, ok := kr.Current()
	require.True(t, ok)
	assert.Equal(t, "late", creds.APIKey)
	assert.Equal(t, 1, kr.Len())
}

func TestKeyRing_OnErrorRotates(t *testing.T) {
	kr := New(RotationOnError, key("a", "key-a"), key("b", "key-b"))

	kr.OnError(errors.New("invalid key"))

	creds, _ := kr.Current()
	assert.Equal(t, "key-b", creds.APIKey)
}

func TestKeyRing_OnErrorManualKeepsKey(t *testing.T) {
	kr := New(RotationManual, key("a", "key-a"), key("b", "key-b"))

	kr.OnError(errors.New("invalid key"))

	creds, _ := kr.Current()
	assert.Equal(t, "key-a", creds.APIKey)
}

func TestKeyRing_ConcurrentAccess(t *testing.T) {
	kr := New(RotationOnError, key("a", "key-a"), key("b", "key-b"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); kr.Current() }()
		go func() { defer wg.Done(); kr.OnError(errors.New("x")) }()
		go func() { defer wg.Done(); kr.Set(core.Credentials{APIKey: "k", SecretKey: "s"}) }()
	}
	wg.Wait()

	_, ok := kr.Current()
	assert.True(t, ok)
}

func TestAPIKey_String(t *testing.T) {
	assert.Equal(t, "APIKey{ID:a, Key:abcd****wxyz}", key("a", "abcdefghijklwxyz").String())
	assert.Equal(t, "APIKey{ID:b, Key:****}", key("b", "short").String())
}
