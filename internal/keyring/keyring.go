// Package keyring holds the API keys an exchange client signs with. Keys may
// be supplied at construction or later. A ring built with backup keys moves
// to the next key whenever a venue rejects the current one.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradegate/pkg/core"
)

type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
	logger   zerolog.Logger
}

type APIKey struct {
	ID string
	core.Credentials
	LastUsed   time.Time
	ErrorCount int
}

type RotationStrategy int

const (
	// RotationManual keeps the current key until it is replaced with Set.
	RotationManual RotationStrategy = iota
	// RotationOnError moves to the next key whenever the current one is reported bad.
	RotationOnError
)

// PrimaryID names the key installed by Set and FromCredentials.
const PrimaryID = "primary"

// BackupIDPrefix prefixes the IDs of backup keys, numbered from 1.
const BackupIDPrefix = "backup-"

func New(strategy RotationStrategy, keys ...*APIKey) *KeyRing {
	keysCopy := make([]*APIKey, 0, len(keys))
	for _, k := range keys {
		cp := *k
		keysCopy = append(keysCopy, &cp)
	}

	return &KeyRing{
		keys:     keysCopy,
		strategy: strategy,
		logger:   zerolog.Nop(),
	}
}

// FromCredentials returns a ring holding creds followed by any complete
// backups. A ring with more than one key rotates on error. Incomplete
// credentials are skipped, so nil creds and no backups give an empty ring.
func FromCredentials(creds *core.Credentials, backups ...core.Credentials) *KeyRing {
	var keys []*APIKey
	if creds.Valid() {
		keys = append(keys, &APIKey{ID: PrimaryID, Credentials: *creds})
	}
	for i, b := range backups {
		if !b.Valid() {
			continue
		}
		keys = append(keys, &APIKey{ID: fmt.Sprintf("%s%d", BackupIDPrefix, i+1), Credentials: b})
	}

	strategy := RotationManual
	if len(keys) > 1 {
		strategy = RotationOnError
	}
	return New(strategy, keys...)
}

func (k *KeyRing) SetLogger(logger zerolog.Logger) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.logger = logger
}

// Set replaces every key with creds. The rotation strategy is unchanged.
func (k *KeyRing) Set(creds core.Credentials) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.keys = []*APIKey{{ID: PrimaryID, Credentials: creds}}
	k.current = 0
}

// Current returns the active key's credentials and marks it used.
// ok is false when the ring is empty.
func (k *KeyRing) Current() (creds core.Credentials, ok bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.keys) == 0 {
		return core.Credentials{}, false
	}
	key := k.keys[k.current]
	key.LastUsed = time.Now()
	return key.Credentials, true
}

func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// Strategy reports how the ring reacts to a rejected key.
func (k *KeyRing) Strategy() RotationStrategy {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.strategy
}

// OnError records a rejection of the current key.
func (k *KeyRing) OnError(err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.keys) == 0 {
		return
	}

	key := k.keys[k.current]
	key.ErrorCount++
	k.logger.Warn().Err(err).Str("key", key.String()).Int("errors", key.ErrorCount).Msg("api key rejected")

	if k.strategy == RotationOnError {
		k.current = (k.current + 1) % len(k.keys)
	}
}

func (k *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", k.ID, maskKey(k.APIKey))
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
