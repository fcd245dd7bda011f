// Package cuid2 generates the prefixed identifiers used for persisted
// trips and their children: trip_, titem_, plan_, visit_, assign_ and
// evt_ rows all carry one. IDs start with a base62-encoded creation
// timestamp so B-tree indexes keep rows of the same era adjacent.
package cuid2

import (
	crypto_rand "crypto/rand"
	"time"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	timestampLength         = 6
	defaultSortableRandom   = 18
	defaultUnsortableRandom = 24
)

// EncodeTimestampBase62 encodes Unix seconds as a fixed six-character
// base62 string. Fixed width keeps the encoding lexicographically
// sortable; six characters cover roughly 1800 years from the epoch.
func EncodeTimestampBase62(seconds int64) string {
	out := make([]byte, timestampLength)
	n := seconds
	for i := timestampLength - 1; i >= 0; i-- {
		out[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(out)
}

// randomBase62 returns length characters drawn uniformly from the
// base62 alphabet. Six-bit draws above 61 are rejected and redrawn so
// the distribution stays uniform.
func randomBase62(length int) string {
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := crypto_rand.Read(buf); err != nil {
			panic("cuid2: reading random bytes: " + err.Error())
		}
		for _, b := range buf {
			v := b & 0x3f
			if v >= 62 {
				continue
			}
			out = append(out, base62Alphabet[v])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}

// PrefixedIdOptions controls ID shape.
type PrefixedIdOptions struct {
	// TimeSortable prepends the six-character timestamp to the random
	// portion. All persisted rows use this.
	TimeSortable bool
	// RandomLength overrides the random portion's length. Zero keeps
	// the default (18 when time-sortable, 24 otherwise).
	RandomLength int
}

// GeneratePrefixedId returns "<prefix>_<id>".
//
//	GeneratePrefixedId("trip", PrefixedIdOptions{TimeSortable: true})  // "trip_1rK5iqB3cD5eF7gH9iJ1k2mN"
//	GeneratePrefixedId("plan", PrefixedIdOptions{})                    // "plan_8kJ2mN4pQ6rS0tU3vW5xY7zA"
func GeneratePrefixedId(prefix string, options PrefixedIdOptions) string {
	randomLength := options.RandomLength
	if options.TimeSortable {
		if randomLength <= 0 {
			randomLength = defaultSortableRandom
		}
		return prefix + "_" + EncodeTimestampBase62(time.Now().Unix()) + randomBase62(randomLength)
	}
	if randomLength <= 0 {
		randomLength = defaultUnsortableRandom
	}
	return prefix + "_" + randomBase62(randomLength)
}
