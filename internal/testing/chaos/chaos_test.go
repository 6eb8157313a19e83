package chaos

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const source = "CREATE PROCEDURE restock(IN shelf INT, OUT moved INT) BEGIN UPDATE [shop.Stock] SET [shop.Stock.amount] = 0; END"

func TestCorpusIsReproducible(t *testing.T) {
	a := NewCorruptor(7).GenerateCorpus(source, 20)
	b := NewCorruptor(7).GenerateCorpus(source, 20)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("corpus[%d] differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestApply(t *testing.T) {
	c := NewCorruptor(1)

	if got := c.Apply(DropDelimiter, source); strings.Count(got, "(")+strings.Count(got, ")")+strings.Count(got, "[")+strings.Count(got, "]")+strings.Count(got, ",")+strings.Count(got, ";") != 7 {
		t.Fatalf("DropDelimiter did not remove exactly one delimiter: %q", got)
	}
	if got := c.Apply(DuplicateDelimiter, source); len(got) != len(source)+1 {
		t.Fatalf("DuplicateDelimiter length = %d, want %d", len(got), len(source)+1)
	}
	if got := c.Apply(Truncation, source); len(got) >= len(source) {
		t.Fatalf("Truncation did not shorten the source: %q", got)
	}
	if got := c.Apply(Utf8Corrupt, "abc"); utf8.ValidString(got) {
		t.Fatalf("Utf8Corrupt left valid UTF-8: %q", got)
	}
	if got := c.Apply(KeywordCase, source); !strings.HasPrefix(got, "create PrOcEdUrE restock(in shelf INT, Out moved INT)") {
		t.Fatalf("KeywordCase = %q", got)
	}
	if got := c.Apply(ByteDelete, ""); len(got) != 1 {
		t.Fatalf("empty source should grow to one byte, got %q", got)
	}
}

func TestDropDelimiterWithoutDelimiters(t *testing.T) {
	c := NewCorruptor(3)
	if got := c.Apply(DropDelimiter, "SELECT 1"); got != "SELECT 1" {
		t.Fatalf("source without delimiters changed: %q", got)
	}
}
