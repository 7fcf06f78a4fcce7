// Package offers converts numeric archive offer IDs into the short,
// non-sequential hashes used as storage prefixes and in issue comments.
package offers

import (
	"errors"
	"fmt"
	"strings"

	hashids "github.com/speps/go-hashids/v2"
)

const (
	DefaultSalt      = "archive offer hashid"
	DefaultMinLength = 6
	alphabet         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"
)

// ErrInvalidHash reports a hash that does not decode to exactly one ID.
var ErrInvalidHash = errors.New("invalid offer hash")

// Hasher encodes and decodes offer IDs.
type Hasher struct {
	h *hashids.HashID
}

// NewHasher builds a Hasher. Empty salt and non-positive minLength fall back
// to the defaults.
func NewHasher(salt string, minLength int) (*Hasher, error) {
	data := hashids.NewData()
	data.Alphabet = alphabet
	data.Salt = salt
	if strings.TrimSpace(data.Salt) == "" {
		data.Salt = DefaultSalt
	}
	data.MinLength = minLength
	if data.MinLength <= 0 {
		data.MinLength = DefaultMinLength
	}
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("init hashids: %w", err)
	}
	return &Hasher{h: h}, nil
}

// Encode returns the hash for id.
func (h *Hasher) Encode(id int64) (string, error) {
	if id < 0 {
		return "", fmt.Errorf("offer id must be non-negative, got %d", id)
	}
	return h.h.EncodeInt64([]int64{id})
}

// Decode returns the offer ID for hash.
func (h *Hasher) Decode(hash string) (int64, error) {
	ids, err := h.h.DecodeInt64WithError(strings.TrimSpace(hash))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("%w: %q decodes to %d values", ErrInvalidHash, hash, len(ids))
	}
	return ids[0], nil
}
