// Package credentials holds end-user credential checks for the password
// grant.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrInvalidTOTP        = errors.New("invalid totp code")
)

// unknownUserHash is verified against when the username does not exist so
// the lookup costs the same as a wrong password.
var unknownUserHash = sync.OnceValues(func() (string, error) {
	return cryptox.HashPassword("grantd-unknown-user")
})

var verifyPassword = cryptox.VerifyPassword

// totpDigits is the length of the code appended to the password when a
// user has a TOTP secret.
const totpDigits = 6

// User is one entry of the users file.
type User struct {
	ID           string `yaml:"id"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	TOTPSecret   string `yaml:"totp_secret,omitempty"`
	Disabled     bool   `yaml:"disabled,omitempty"`
}

type usersFile struct {
	Users []User `yaml:"users"`
}

// FileVerifier checks credentials against a YAML users file. Passwords are
// argon2id hashes produced by `grantd hash-password`. A user with a TOTP
// secret must append the current six digit code to their password.
type FileVerifier struct {
	path string
	Now  func() time.Time

	mu    sync.RWMutex
	users map[string]User
}

// LoadFile reads and parses the users file at path.
func LoadFile(path string) (*FileVerifier, error) {
	v := &FileVerifier{path: path}
	if err := v.Reload(); err != nil {
		return nil, err
	}
	return v, nil
}

// Reload re-reads the users file. On error the previous set is kept.
func (v *FileVerifier) Reload() error {
	data, err := os.ReadFile(v.path)
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}
	users, err := parseUsers(data)
	if err != nil {
		return fmt.Errorf("parse users file %s: %w", v.path, err)
	}

	v.mu.Lock()
	v.users = users
	v.mu.Unlock()
	return nil
}

func parseUsers(data []byte) (map[string]User, error) {
	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	users := make(map[string]User, len(f.Users))
	for i, u := range f.Users {
		if u.Username == "" || u.ID == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("user %d: username, id and password_hash are required", i)
		}
		if _, dup := users[u.Username]; dup {
			return nil, fmt.Errorf("user %q: duplicate username", u.Username)
		}
		users[u.Username] = u
	}
	return users, nil
}

// Len reports how many users are loaded.
func (v *FileVerifier) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.users)
}

// OutdatedHashes lists the users whose password hash was made with weaker
// parameters than HashPassword uses today.
func (v *FileVerifier) OutdatedHashes() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var names []string
	for name, u := range v.users {
		if cryptox.NeedsRehash(u.PasswordHash) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// CheckAuth returns the user's id when the credentials are valid.
func (v *FileVerifier) CheckAuth(ctx context.Context, username, password string) (string, error) {
	v.mu.RLock()
	u, ok := v.users[username]
	v.mu.RUnlock()
	if !ok {
		if hash, err := unknownUserHash(); err == nil {
			_ = verifyPassword(password, hash)
		}
		return "", ErrInvalidCredentials
	}
	if u.Disabled {
		return "", ErrUserDisabled
	}

	code := ""
	if u.TOTPSecret != "" {
		if len(password) <= totpDigits {
			return "", ErrInvalidTOTP
		}
		password, code = password[:len(password)-totpDigits], password[len(password)-totpDigits:]
	}

	if err := verifyPassword(password, u.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}

	if u.TOTPSecret != "" && !v.validTOTP(code, u.TOTPSecret) {
		return "", ErrInvalidTOTP
	}
	return u.ID, nil
}

func (v *FileVerifier) validTOTP(code, secret string) bool {
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
