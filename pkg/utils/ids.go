package utils

import (
	"crypto/rand"
	"math/big"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var base36Len = big.NewInt(int64(len(base36)))

// RandomBase36 returns n characters drawn uniformly from [0-9a-z].
func RandomBase36(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, base36Len)
		if err != nil {
			return "", err
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out), nil
}
