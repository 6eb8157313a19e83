// Package chaos corrupts procedure sources for robustness tests.
//
// A Corruptor applies seeded, reproducible mutations aimed at the parts of a
// procedure source the header parser and reference substitution care about:
// parentheses, brackets, keywords and UTF-8 validity.
package chaos

import (
	"math/rand/v2"
	"strings"
)

// Mutation is one kind of corruption.
type Mutation int

const (
	ByteFlip Mutation = iota
	ByteDelete
	DropDelimiter
	DuplicateDelimiter
	Utf8Corrupt
	Truncation
	KeywordCase
	numMutations
)

var delimiters = []byte("()[]{},;")

// Corruptor applies random mutations from a fixed seed.
type Corruptor struct {
	rng *rand.Rand
}

// NewCorruptor creates a Corruptor; equal seeds give equal corpora.
func NewCorruptor(seed uint64) *Corruptor {
	return &Corruptor{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Apply runs mutation m over src.
func (c *Corruptor) Apply(m Mutation, src string) string {
	if src == "" {
		return string([]byte{byte(c.rng.IntN(256))})
	}
	b := []byte(src)
	switch m {
	case ByteFlip:
		i := c.rng.IntN(len(b))
		b[i] ^= byte(1 << c.rng.IntN(8))
	case ByteDelete:
		i := c.rng.IntN(len(b))
		b = append(b[:i], b[i+1:]...)
	case DropDelimiter:
		if i, ok := c.pickDelimiter(b); ok {
			b = append(b[:i], b[i+1:]...)
		}
	case DuplicateDelimiter:
		if i, ok := c.pickDelimiter(b); ok {
			b = append(b[:i+1], b[i:]...)
		}
	case Utf8Corrupt:
		i := c.rng.IntN(len(b))
		b[i] = 0xC0 | byte(c.rng.IntN(0x20))
	case Truncation:
		b = b[:c.rng.IntN(len(b))]
	case KeywordCase:
		return strings.NewReplacer("CREATE", "create", "PROCEDURE", "PrOcEdUrE", "IN ", "in ", "OUT ", "Out ").Replace(src)
	}
	return string(b)
}

// Corrupt applies one random mutation.
func (c *Corruptor) Corrupt(src string) string {
	return c.Apply(Mutation(c.rng.IntN(int(numMutations))), src)
}

// CorruptN applies n random mutations in sequence.
func (c *Corruptor) CorruptN(src string, n int) string {
	for range n {
		src = c.Corrupt(src)
	}
	return src
}

// GenerateCorpus returns count corrupted variants of valid, each mutated one
// to five times.
func (c *Corruptor) GenerateCorpus(valid string, count int) []string {
	corpus := make([]string, count)
	for i := range corpus {
		corpus[i] = c.CorruptN(valid, c.rng.IntN(5)+1)
	}
	return corpus
}

func (c *Corruptor) pickDelimiter(b []byte) (int, bool) {
	var at []int
	for i, ch := range b {
		if strings.IndexByte(string(delimiters), ch) >= 0 {
			at = append(at, i)
		}
	}
	if len(at) == 0 {
		return 0, false
	}
	return at[c.rng.IntN(len(at))], true
}
