// Package credential hashes and checks the shared token that trusted callers
// present on internal routes.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/smallbiznis/hireledger/internal/config"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	// Each argon2id run holds argonMemory KiB, so unknown tokens are hashed
	// at most this many at a time.
	maxConcurrentVerifications = 2
)

var ErrMalformedHash = errors.New("malformed_token_hash")

// Hash returns the Argon2id encoding of token.
func Hash(token string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(token), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	saltB64 := base64.RawStdEncoding.EncodeToString(salt)
	hashB64 := base64.RawStdEncoding.EncodeToString(hash)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", argonMemory, argonTime, argonThreads, saltB64, hashB64), nil
}

type encodedHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	hash    []byte
}

func decode(encoded string) (encodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return encodedHash{}, ErrMalformedHash
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return encodedHash{}, ErrMalformedHash
	}
	m, okM := strings.CutPrefix(params[0], "m=")
	t, okT := strings.CutPrefix(params[1], "t=")
	p, okP := strings.CutPrefix(params[2], "p=")
	if !okM || !okT || !okP {
		return encodedHash{}, ErrMalformedHash
	}
	m64, err := strconv.ParseUint(m, 10, 32)
	if err != nil {
		return encodedHash{}, ErrMalformedHash
	}
	t64, err := strconv.ParseUint(t, 10, 32)
	if err != nil {
		return encodedHash{}, ErrMalformedHash
	}
	p64, err := strconv.ParseUint(p, 10, 8)
	if err != nil {
		return encodedHash{}, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return encodedHash{}, ErrMalformedHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return encodedHash{}, ErrMalformedHash
	}

	return encodedHash{
		memory:  uint32(m64),
		time:    uint32(t64),
		threads: uint8(p64),
		salt:    salt,
		hash:    hash,
	}, nil
}

// Verify checks whether token matches the encoded Argon2id hash.
func Verify(token, encoded string) bool {
	h, err := decode(encoded)
	if err != nil {
		return false
	}
	check := argon2.IDKey([]byte(token), h.salt, h.time, h.memory, h.threads, uint32(len(h.hash)))
	return subtle.ConstantTimeCompare(h.hash, check) == 1
}

// Verifier checks tokens against the configured hash. Accepted tokens are
// remembered by digest so argon2 runs once per distinct token.
type Verifier struct {
	encoded  string
	slots    *semaphore.Weighted
	mu       sync.RWMutex
	accepted map[[sha256.Size]byte]struct{}
}

func NewVerifier(cfg config.Config) (*Verifier, error) {
	encoded := strings.TrimSpace(cfg.InternalTokenHash)
	if encoded != "" {
		if _, err := decode(encoded); err != nil {
			return nil, fmt.Errorf("INTERNAL_TOKEN_HASH: %w", err)
		}
	}
	return &Verifier{
		encoded:  encoded,
		slots:    semaphore.NewWeighted(maxConcurrentVerifications),
		accepted: map[[sha256.Size]byte]struct{}{},
	}, nil
}

// Enabled reports whether a hash is configured. Without one every token is
// refused.
func (v *Verifier) Enabled() bool {
	return v != nil && v.encoded != ""
}

// Verify reports whether token matches. Tokens not seen before wait for a
// hashing slot; if ctx ends first the token is refused.
func (v *Verifier) Verify(ctx context.Context, token string) bool {
	if !v.Enabled() || token == "" {
		return false
	}
	digest := sha256.Sum256([]byte(token))
	if v.remembered(digest) {
		return true
	}

	if err := v.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer v.slots.Release(1)

	// Another request may have accepted the same token while this one waited.
	if v.remembered(digest) {
		return true
	}
	if !Verify(token, v.encoded) {
		return false
	}
	v.mu.Lock()
	v.accepted[digest] = struct{}{}
	v.mu.Unlock()
	return true
}

func (v *Verifier) remembered(digest [sha256.Size]byte) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.accepted[digest]
	return ok
}
