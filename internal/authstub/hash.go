package authstub

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
	algorithmID          = "argon2id"
)

// HashConfig holds argon2id cost parameters.
type HashConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashConfig is the cheapest setting the hasher accepts; the stub only
// ever guards throwaway accounts.
func DefaultHashConfig() HashConfig {
	return HashConfig{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  minSaltLength,
		KeyLength:   32,
	}
}

type hasher struct {
	config HashConfig
}

func newHasher(cfg HashConfig) (*hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("hash memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("hash time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("hash parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("hash salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("hash key length must be >= 16")
	}
	return &hasher{config: cfg}, nil
}

// hash returns a PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$hash
func (h *hasher) hash(password string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *hasher) verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return false, errors.New("invalid PHC format")
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return false, errors.New("unsupported argon2 version")
	}

	var (
		memory, timeCost uint32
		parallelism      uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return false, errors.New("invalid parameter format")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.New("invalid salt encoding")
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, errors.New("invalid hash encoding")
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
