// Package roomid generates memorable room identifiers.
package roomid

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Words is the number of words in a generated id.
const Words = 3

var lists = [][]string{colors, creatures, places, things}

// Generate returns an id like "amber-heron-lagoon", picking each word from a
// different list.
func Generate() string {
	order := make([]int, len(lists))
	for i := range order {
		order[i] = i
	}
	// Partial Fisher-Yates: only the first Words positions are used.
	for i := 0; i < Words; i++ {
		j := i + randomIndex(len(order)-i)
		order[i], order[j] = order[j], order[i]
	}

	parts := make([]string, Words)
	for i := range parts {
		list := lists[order[i]]
		parts[i] = list[randomIndex(len(list))]
	}
	return strings.Join(parts, "-")
}

// GenerateUnused keeps generating until taken reports the id as free, giving
// up after a few attempts and returning the last candidate.
func GenerateUnused(taken func(string) bool) string {
	id := Generate()
	for attempt := 0; attempt < 8 && taken(id); attempt++ {
		id = Generate()
	}
	return id
}

// randomIndex returns a cryptographically secure random index in [0, n).
func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("roomid: reading random source: " + err.Error())
	}
	return int(v.Int64())
}
