package names

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// referencePattern matches "[segment(.segment)*]" where a segment is a run of
// Unicode word characters.
var referencePattern = regexp.MustCompile(`\[([\p{L}\p{M}\p{N}_]+(?:\.[\p{L}\p{M}\p{N}_]+)*)\]`)

// Reference is a bracketed symbol located in source text.
type Reference struct {
	Key   string
	Start int
	End   int
}

// FindReferences returns every non-overlapping reference in src, left to right.
// Offsets index into src as given.
func FindReferences(src string) []Reference {
	locs := referencePattern.FindAllStringSubmatchIndex(src, -1)
	refs := make([]Reference, 0, len(locs))
	for _, loc := range locs {
		refs = append(refs, Reference{
			Key:   src[loc[2]:loc[3]],
			Start: loc[0],
			End:   loc[1],
		})
	}
	return refs
}

// Substitute replaces every bracketed reference in src with its physical
// identifier; all other text is left byte for byte. Reference keys are NFC
// normalized before lookup. All references are resolved before any splicing;
// the first unresolved one is returned as an *UnknownReferenceError.
func (m *Mapper) Substitute(src string) (string, error) {
	refs := FindReferences(src)
	if len(refs) == 0 {
		return src, nil
	}

	resolved := make([]string, len(refs))
	for i, ref := range refs {
		ident, err := m.Resolve(norm.NFC.String(ref.Key))
		if err != nil {
			return "", err
		}
		resolved[i] = ident
	}

	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for i, ref := range refs {
		b.WriteString(src[last:ref.Start])
		b.WriteString(resolved[i])
		last = ref.End
	}
	b.WriteString(src[last:])
	return b.String(), nil
}
