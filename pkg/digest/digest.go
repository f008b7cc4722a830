// Package digest is the ledger's content hash: SHA-256 over raw bytes,
// rendered as "sha256:<hex>".
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Size is the digest length in bytes.
const Size = sha256.Size

const prefix = "sha256:"

var ErrInvalidDigest = errors.New("invalid digest")

// Digest is a fixed-size SHA-256 output.
type Digest [Size]byte

// Sum hashes data. It is total: every input has a digest.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// Hex returns the lowercase hex form without prefix.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String returns the prefixed form used on the wire and in logs.
func (d Digest) String() string {
	return prefix + d.Hex()
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, d[:])
	return out
}

// Parse accepts both the prefixed and the bare hex form.
func Parse(s string) (Digest, error) {
	s = strings.TrimPrefix(s, prefix)
	if len(s) != hex.EncodedLen(Size) {
		return Digest{}, ErrInvalidDigest
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, ErrInvalidDigest
	}
	return FromBytes(raw)
}

// FromBytes copies a raw 32 byte slice into a Digest.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, ErrInvalidDigest
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
