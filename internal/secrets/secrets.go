// Package secrets encrypts individual config values with age.
//
// An encrypted value looks like ENC[<base64(age-ciphertext)>] and can sit
// inline in sekia-discord.toml in place of the bot token or public key.
// config.Load decrypts them at startup with an identity taken from the
// environment, the config, or the default key file, and only looks for an
// identity when such values exist.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"github.com/spf13/viper"
)

const (
	encPrefix = "ENC["
	encSuffix = "]"

	// DefaultKeyFilename is the name of the default identity file.
	DefaultKeyFilename = "age.key"

	// EnvAgeKey holds a raw AGE-SECRET-KEY-1... identity.
	EnvAgeKey = "SEKIA_AGE_KEY"

	// EnvAgeKeyFile holds a path to an identity file.
	EnvAgeKeyFile = "SEKIA_AGE_KEY_FILE"
)

// ErrNoIdentity is returned when encrypted values are present but no identity is configured.
var ErrNoIdentity = errors.New("config contains ENC[...] values but no age identity is configured; set " +
	EnvAgeKey + ", " + EnvAgeKeyFile + ", or secrets.identity")

// IsEncrypted reports whether value is wrapped in ENC[...] with a non-empty payload.
func IsEncrypted(value string) bool {
	return len(value) > len(encPrefix)+len(encSuffix) &&
		strings.HasPrefix(value, encPrefix) &&
		strings.HasSuffix(value, encSuffix)
}

// Encrypt encrypts plaintext to the recipients and wraps it in ENC[...].
func Encrypt(plaintext string, recipients ...age.Recipient) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close encryptor: %w", err)
	}
	return encPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + encSuffix, nil
}

// Decrypt decrypts a value produced by Encrypt.
func Decrypt(enc string, identities ...age.Identity) (string, error) {
	if !IsEncrypted(enc) {
		return "", errors.New("value is not encrypted (missing ENC[...] wrapper)")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc[len(encPrefix) : len(enc)-len(encSuffix)])
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read plaintext: %w", err)
	}
	return string(plaintext), nil
}

// GenerateKeyPair generates a fresh X25519 identity.
func GenerateKeyPair() (*age.X25519Identity, error) {
	return age.GenerateX25519Identity()
}

// DefaultKeyPath returns ~/.config/sekia/age.key.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFilename
	}
	return filepath.Join(home, ".config", "sekia", DefaultKeyFilename)
}

// LoadIdentity reads every identity in an age key file.
func LoadIdentity(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return ids, nil
}

// ResolveIdentity looks for an identity in SEKIA_AGE_KEY, SEKIA_AGE_KEY_FILE,
// the secrets.identity config key, then the default key file, in that order.
// It returns (nil, nil) when none is configured.
func ResolveIdentity(v *viper.Viper) ([]age.Identity, error) {
	if raw := os.Getenv(EnvAgeKey); raw != "" {
		id, err := age.ParseX25519Identity(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvAgeKey, err)
		}
		return []age.Identity{id}, nil
	}
	if path := os.Getenv(EnvAgeKeyFile); path != "" {
		return LoadIdentity(path)
	}
	if v != nil {
		if path := v.GetString("secrets.identity"); path != "" {
			return LoadIdentity(expandHome(path))
		}
	}

	path := DefaultKeyPath()
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return LoadIdentity(path)
}

// DecryptViperConfig replaces every ENC[...] string value in v with its
// plaintext.
func DecryptViperConfig(v *viper.Viper, identities []age.Identity) error {
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsEncrypted(val) {
			continue
		}
		plaintext, err := Decrypt(val, identities...)
		if err != nil {
			return fmt.Errorf("decrypt config key %q: %w", key, err)
		}
		v.Set(key, plaintext)
	}
	return nil
}

// HasEncryptedValues reports whether any string value in v uses ENC[...].
func HasEncryptedValues(v *viper.Viper) bool {
	for _, key := range v.AllKeys() {
		if IsEncrypted(v.GetString(key)) {
			return true
		}
	}
	return false
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
