package fileset

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// ErrNotUTF8 is matched by every EncodingError.
var ErrNotUTF8 = errors.New("fileset: not valid UTF-8")

// EncodingError reports a source file that is not UTF-8 text.
type EncodingError struct {
	Path string
	// Offset is the byte offset of the first invalid sequence.
	Offset int
}

func (e EncodingError) Error() string {
	return fmt.Sprintf("%s: invalid UTF-8 at byte %d", e.Path, e.Offset)
}

// Is reports whether target is ErrNotUTF8.
func (e EncodingError) Is(target error) bool { return target == ErrNotUTF8 }

// DecodeText validates data as UTF-8 and strips a leading byte order mark.
func DecodeText(path string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", EncodingError{Path: path, Offset: firstInvalid(data)}
	}
	text, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return string(text), nil
}

func firstInvalid(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(data)
}
