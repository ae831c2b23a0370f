package identity

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	math_rand "math/rand"
	"regexp"
)

const (
	DefaultPrefix = "cli"
	SuffixLength  = 8

	alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var ErrInvalidPortRange = errors.New("invalid port range")

var idPattern = regexp.MustCompile(`^[a-z0-9]+_[0-9a-z]{8}$`)

// Identity is the immutable identity of a session as advertised to the coordinator.
type Identity struct {
	PeerID string
	Port   int
}

// Generate creates a new identity. The peer id is the prefix followed by a random
// alphanumeric suffix, the port is drawn from [minPort, maxPort).
func Generate(prefix string, minPort, maxPort int) (Identity, error) {
	if minPort < 1 || maxPort > 65536 || minPort >= maxPort {
		return Identity{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidPortRange, minPort, maxPort)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rng, err := random()
	if err != nil {
		return Identity{}, fmt.Errorf("creating rng: %w", err)
	}
	suffix := make([]byte, SuffixLength)
	for i := range suffix {
		suffix[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return Identity{
		PeerID: fmt.Sprintf("%s_%s", prefix, suffix),
		Port:   minPort + rng.Intn(maxPort-minPort),
	}, nil
}

// IsValid reports whether the peer id has the shape produced by Generate.
func IsValid(peerID string) bool {
	return idPattern.MatchString(peerID)
}

func random() (*math_rand.Rand, error) {
	var b [8]byte
	_, err := crypto_rand.Read(b[:])
	if err != nil {
		return nil, err
	}
	return math_rand.New(math_rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))), nil
}
