package procedure

import (
	"maps"
	"slices"
)

// Shuffle orders named argument values into declared positional order.
type Shuffle func(supplied map[string]any) ([]any, error)

// NewShuffle builds the Shuffle for a procedure declaring names in order.
//
// Supplied names the procedure does not declare fail with an
// *ExtraArgumentsError; that check runs before the check for declared names
// left without a value, which fails with a *MissingArgumentsError. The
// supplied map is never modified.
func NewShuffle(procedure string, names []string) Shuffle {
	names = slices.Clone(names)

	return func(supplied map[string]any) ([]any, error) {
		remaining := maps.Clone(supplied)
		values := make([]any, 0, len(names))
		var missing []string

		for _, name := range names {
			v, ok := remaining[name]
			if !ok {
				missing = append(missing, name)
				continue
			}
			values = append(values, v)
			delete(remaining, name)
		}

		if len(remaining) > 0 {
			return nil, &ExtraArgumentsError{
				Procedure: procedure,
				Extra:     sortedKeys(remaining),
				Given:     sortedKeys(supplied),
			}
		}
		if len(values) < len(names) {
			return nil, &MissingArgumentsError{
				Procedure: procedure,
				Missing:   missing,
				Given:     sortedKeys(supplied),
			}
		}
		return values, nil
	}
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
