package internal

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

// Source is the random source used for salt material. It defaults to
// crypto/rand and is injectable so tests can produce deterministic salts.
var Source io.Reader = rand.Reader

// RandomSalt returns length bytes of salt material. With an empty charset the
// salt is raw random bytes; otherwise every byte is drawn uniformly from the
// charset.
func RandomSalt(length int, charset string) ([]byte, error) {
	if length <= 0 {
		return nil, errors.New("salt length must be positive")
	}

	if charset == "" {
		salt := make([]byte, length)
		if _, err := io.ReadFull(Source, salt); err != nil {
			return nil, err
		}
		return salt, nil
	}

	max := big.NewInt(int64(len(charset)))
	salt := make([]byte, length)
	for i := range salt {
		n, err := rand.Int(Source, max)
		if err != nil {
			return nil, err
		}
		salt[i] = charset[n.Int64()]
	}
	return salt, nil
}

// UniformInt64 returns a uniformly distributed integer in [0, n]. Used by
// the timing equalizer's jitter; n <= 0 yields 0.
func UniformInt64(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	v, err := rand.Int(Source, big.NewInt(n+1))
	if err != nil {
		return 0, err
	}
	return v.Int64(), nil
}
