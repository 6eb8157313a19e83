package procedure

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotParsable is matched by every GrammarError.
var ErrNotParsable = errors.New("procedure source is not parsable")

// Direction is the parameter mode of a declared argument.
type Direction uint8

// Parameter modes. DirectionInOut is the union of In and Out.
const (
	DirectionIn Direction = 1 << iota
	DirectionOut
	DirectionInOut = DirectionIn | DirectionOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionInOut:
		return "INOUT"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// IsIn reports whether the argument carries a value into the procedure.
func (d Direction) IsIn() bool { return d&DirectionIn != 0 }

// IsOut reports whether the argument carries a value out of the procedure.
func (d Direction) IsOut() bool { return d&DirectionOut != 0 }

func parseDirection(s string) Direction {
	switch s {
	case "INOUT":
		return DirectionInOut
	case "OUT":
		return DirectionOut
	default:
		return DirectionIn
	}
}

// Argument is one declared procedure parameter. Type is kept verbatim.
type Argument struct {
	Name      string
	Type      string
	Direction Direction
}

// Header is the part of a procedure source preceding its body.
type Header struct {
	Name      string
	Arguments string
}

var (
	headerPrefix  = regexp.MustCompile(`^CREATE\s+PROCEDURE\s+([\p{L}\p{N}_]+)\s*\(`)
	headerTrailer = regexp.MustCompile(`^[^)]*BEGIN`)

	argumentSeparator = regexp.MustCompile(`,\s*(?:INOUT|OUT|IN)\s`)
	argumentPattern   = regexp.MustCompile(`(?s)^\s*(INOUT|OUT|IN)\s+([\p{L}\p{N}_]+)\s+(.+?)\s*$`)
)

// ParseHeader extracts the procedure name and the raw argument list from a
// source starting with "CREATE PROCEDURE name(...) ... BEGIN". The argument
// list ends at the parenthesis balancing the opening one; the material between
// it and BEGIN may not contain another closing parenthesis.
func ParseHeader(src string) (Header, error) {
	loc := headerPrefix.FindStringSubmatchIndex(src)
	if loc == nil {
		return Header{}, fmt.Errorf("%w: expected CREATE PROCEDURE <name>(", ErrNotParsable)
	}

	open := loc[1]
	end := closingParen(src, open)
	if end < 0 {
		return Header{}, fmt.Errorf("%w: unbalanced parentheses in argument list", ErrNotParsable)
	}
	if !headerTrailer.MatchString(src[end+1:]) {
		return Header{}, fmt.Errorf("%w: expected BEGIN after argument list", ErrNotParsable)
	}

	return Header{
		Name:      src[loc[2]:loc[3]],
		Arguments: strings.TrimSpace(src[open:end]),
	}, nil
}

// closingParen returns the index of the ')' closing the group opened just
// before start, or -1.
func closingParen(src string, start int) int {
	depth := 1
	for i := start; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseArguments parses "IN a INT, OUT b VARCHAR(10)" into arguments in
// source order. A type runs up to the next ", IN|OUT|INOUT" marker.
func ParseArguments(raw string) ([]Argument, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	segments := make([]string, 0, 4)
	last := 0
	for _, loc := range argumentSeparator.FindAllStringIndex(raw, -1) {
		segments = append(segments, raw[last:loc[0]])
		last = loc[0] + 1
	}
	segments = append(segments, raw[last:])

	args := make([]Argument, 0, len(segments))
	for i, seg := range segments {
		m := argumentPattern.FindStringSubmatch(seg)
		if m == nil {
			return nil, fmt.Errorf("%w: argument %d %q does not match IN|OUT|INOUT name type", ErrNotParsable, i+1, strings.TrimSpace(seg))
		}
		args = append(args, Argument{
			Name:      m[2],
			Type:      m[3],
			Direction: parseDirection(m[1]),
		})
	}
	return args, nil
}
