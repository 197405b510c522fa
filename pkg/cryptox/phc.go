package cryptox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// phcHash is a decoded "$alg[$v=N]$params$salt$hash" string.
type phcHash struct {
	version string
	params  string
	salt    []byte
	hash    []byte
}

var errHashFormat = errors.New("invalid hash format")

// parsePHC splits an encoded hash for alg. withVersion selects the argon2
// layout, which carries a "v=" segment scrypt does not have.
func parsePHC(encoded, alg string, withVersion bool) (phcHash, error) {
	want := 5
	if withVersion {
		want = 6
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != want || parts[0] != "" {
		return phcHash{}, fmt.Errorf("%w: expected %d parts", errHashFormat, want)
	}
	if parts[1] != alg {
		return phcHash{}, fmt.Errorf("%w: not %s", errHashFormat, alg)
	}

	var out phcHash
	rest := parts[2:]
	if withVersion {
		out.version = rest[0]
		rest = rest[1:]
	}
	out.params = rest[0]

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(rest[1]); err != nil {
		return phcHash{}, fmt.Errorf("%w: failed to decode salt", errHashFormat)
	}
	if out.hash, err = base64.RawStdEncoding.DecodeString(rest[2]); err != nil || len(out.hash) == 0 {
		return phcHash{}, fmt.Errorf("%w: failed to decode hash", errHashFormat)
	}
	return out, nil
}

func encodePHC(head string, salt, hash []byte) string {
	return head + "$" + base64.RawStdEncoding.EncodeToString(salt) + "$" + base64.RawStdEncoding.EncodeToString(hash)
}
