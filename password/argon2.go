package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// DefaultMinPasswordBytes is the floor applied when Config.MinPasswordBytes is zero.
	DefaultMinPasswordBytes = 10
	// DefaultMaxPasswordBytes bounds the secret length when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrSecretTooShort is returned by Hash for secrets under the configured minimum.
	ErrSecretTooShort = errors.New("password too short")
	// ErrSecretTooLong is returned by Hash and Verify for secrets above the configured maximum.
	ErrSecretTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned, possibly wrapped, when a stored hash is
	// not an Argon2id PHC string this package can verify.
	ErrMalformedHash = errors.New("invalid PHC format")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MinPasswordBytes and MaxPasswordBytes bound the raw secret length.
	// Zero selects DefaultMinPasswordBytes and DefaultMaxPasswordBytes.
	MinPasswordBytes int
	MaxPasswordBytes int
}

// Argon2 hashes and verifies account passwords and API-key secrets as
// Argon2id PHC strings:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// It is safe for concurrent use.
type Argon2 struct {
	config Config
}

// phc is a decoded PHC string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg against the minimum cost parameters.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MinPasswordBytes <= 0 {
		cfg.MinPasswordBytes = DefaultMinPasswordBytes
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded Argon2id hash of secret with a fresh salt.
// Length is measured in raw bytes, without Unicode normalization.
func (a *Argon2) Hash(secret string) (string, error) {
	switch {
	case len(secret) < a.config.MinPasswordBytes:
		return "", ErrSecretTooShort
	case len(secret) > a.config.MaxPasswordBytes:
		return "", ErrSecretTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	p.key = p.derive(secret, a.config.KeyLength)
	return p.String(), nil
}

// Verify reports whether secret matches encodedHash. The comparison is
// constant time; an error means the stored hash could not be parsed.
func (a *Argon2) Verify(secret string, encodedHash string) (bool, error) {
	if len(secret) > a.config.MaxPasswordBytes {
		return false, ErrSecretTooLong
	}
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := p.derive(secret, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current config.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	p, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := a.config.Memory > p.memory ||
		a.config.Time > p.time ||
		a.config.Parallelism > p.parallelism ||
		a.config.KeyLength != uint32(len(p.key))
	return weaker, nil
}

func (p phc) derive(secret string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(secret), p.salt, p.time, p.memory, p.parallelism, keyLen)
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		p.memory,
		p.time,
		p.parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, fmt.Sprintf(format, args...))
}

func parsePHC(encodedHash string) (phc, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return phc{}, ErrMalformedHash
	}
	if parts[1] != algorithmID {
		return phc{}, malformed("unsupported algorithm %q", parts[1])
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return phc{}, malformed("missing argon2 version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phc{}, malformed("unsupported argon2 version %q", version)
	}

	p, err := parseParams(parts[3])
	if err != nil {
		return phc{}, err
	}

	if p.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil {
		return phc{}, malformed("invalid salt encoding")
	}
	if len(p.salt) < int(minSaltLength) {
		return phc{}, malformed("salt shorter than %d bytes", minSaltLength)
	}

	if p.key, err = base64.StdEncoding.DecodeString(parts[5]); err != nil {
		return phc{}, malformed("invalid hash encoding")
	}
	if len(p.key) == 0 {
		return phc{}, malformed("empty hash")
	}

	return p, nil
}

// parseParams decodes "m=<kib>,t=<passes>,p=<lanes>" in any order.
func parseParams(part string) (phc, error) {
	var p phc
	seen := map[string]bool{}

	for _, pair := range strings.Split(part, ",") {
		k, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return phc{}, malformed("invalid parameter entry %q", pair)
		}
		if seen[k] {
			return phc{}, malformed("duplicate parameter %q", k)
		}
		seen[k] = true

		switch k {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return phc{}, malformed("invalid memory parameter")
			}
			p.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return phc{}, malformed("invalid time parameter")
			}
			p.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return phc{}, malformed("invalid parallelism parameter")
			}
			p.parallelism = uint8(v)
		default:
			return phc{}, malformed("unsupported parameter %q", k)
		}
	}

	if !seen["m"] || !seen["t"] || !seen["p"] {
		return phc{}, malformed("missing parameters")
	}
	return p, nil
}

func validateConfig(cfg Config) error {
	var errs []error
	if cfg.Memory < minMemoryKB {
		errs = append(errs, fmt.Errorf("password memory must be >= %d KiB", minMemoryKB))
	}
	if cfg.Time < minTimeCost {
		errs = append(errs, errors.New("password time must be >= 1"))
	}
	if cfg.Parallelism < minParallelism {
		errs = append(errs, errors.New("password parallelism must be >= 1"))
	}
	if cfg.SaltLength < minSaltLength {
		errs = append(errs, fmt.Errorf("password salt length must be >= %d", minSaltLength))
	}
	if cfg.KeyLength < minKeyLength {
		errs = append(errs, fmt.Errorf("password key length must be >= %d", minKeyLength))
	}
	if cfg.MinPasswordBytes > cfg.MaxPasswordBytes {
		errs = append(errs, errors.New("password minimum length exceeds maximum"))
	}
	return errors.Join(errs...)
}
