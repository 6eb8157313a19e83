package procedure

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Header
	}{
		{
			name: "two arguments",
			src:  "CREATE PROCEDURE foo(IN a INT, OUT b INT) LANGUAGE SQL BEGIN SELECT 1; END",
			want: Header{Name: "foo", Arguments: "IN a INT, OUT b INT"},
		},
		{
			name: "no arguments",
			src:  "CREATE PROCEDURE refresh_totals() BEGIN END",
			want: Header{Name: "refresh_totals"},
		},
		{
			name: "multi-line with parenthesised types",
			src:  "CREATE  PROCEDURE stock_level (\n  IN shelf VARCHAR(10),\n  OUT level DECIMAL(8, 2)\n)\nLANGUAGE SQL\nBEGIN\nEND",
			want: Header{Name: "stock_level", Arguments: "IN shelf VARCHAR(10),\n  OUT level DECIMAL(8, 2)"},
		},
		{
			name: "unicode name",
			src:  "CREATE PROCEDURE größe_prüfen(IN n INT) BEGIN END",
			want: Header{Name: "größe_prüfen", Arguments: "IN n INT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.src)
			if err != nil {
				t.Fatalf("ParseHeader: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseHeaderErrors(t *testing.T) {
	tests := map[string]string{
		"not a procedure": "CREATE FUNCTION foo(IN a INT) BEGIN END",
		"lowercase":       "create procedure foo(IN a INT) begin end",
		"leading text":    "-- comment\nCREATE PROCEDURE foo() BEGIN END",
		"unbalanced":      "CREATE PROCEDURE foo(IN a VARCHAR(10) BEGIN END",
		"no begin":        "CREATE PROCEDURE foo(IN a INT) LANGUAGE SQL",
		"stray paren":     "CREATE PROCEDURE foo(IN a INT) COMMENT 'x)' BEGIN END",
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseHeader(src)
			if !errors.Is(err, ErrNotParsable) {
				t.Fatalf("ParseHeader error = %v, want ErrNotParsable", err)
			}
		})
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Argument
	}{
		{
			name: "empty",
			raw:  "  ",
		},
		{
			name: "in and out",
			raw:  "IN a INT, OUT b INT",
			want: []Argument{
				{Name: "a", Type: "INT", Direction: DirectionIn},
				{Name: "b", Type: "INT", Direction: DirectionOut},
			},
		},
		{
			name: "inout is not read as in",
			raw:  "INOUT counter BIGINT",
			want: []Argument{{Name: "counter", Type: "BIGINT", Direction: DirectionInOut}},
		},
		{
			name: "types with commas",
			raw:  "IN price DECIMAL(10, 2),\n\tIN label VARCHAR(40) CHARACTER SET utf8mb4,INOUT total DECIMAL(12,2)",
			want: []Argument{
				{Name: "price", Type: "DECIMAL(10, 2)", Direction: DirectionIn},
				{Name: "label", Type: "VARCHAR(40) CHARACTER SET utf8mb4", Direction: DirectionIn},
				{Name: "total", Type: "DECIMAL(12,2)", Direction: DirectionInOut},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArguments(tt.raw)
			if err != nil {
				t.Fatalf("ParseArguments: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArgumentsErrors(t *testing.T) {
	for _, raw := range []string{
		"a INT",
		"IN a",
		"IN a INT, OUT b",
		"OUT",
	} {
		if _, err := ParseArguments(raw); !errors.Is(err, ErrNotParsable) {
			t.Errorf("ParseArguments(%q) error = %v, want ErrNotParsable", raw, err)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		d       Direction
		str     string
		in, out bool
	}{
		{DirectionIn, "IN", true, false},
		{DirectionOut, "OUT", false, true},
		{DirectionInOut, "INOUT", true, true},
		{Direction(8), "Direction(8)", false, false},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if tt.d.IsIn() != tt.in || tt.d.IsOut() != tt.out {
			t.Errorf("%s: IsIn/IsOut = %v/%v, want %v/%v", tt.str, tt.d.IsIn(), tt.d.IsOut(), tt.in, tt.out)
		}
	}
}
