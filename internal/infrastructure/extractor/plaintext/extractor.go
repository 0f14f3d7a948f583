// Package plaintext turns raw input bytes into document text.
package plaintext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read loads r fully and rejects anything that is not UTF-8 text. A leading
// byte order mark is dropped. name only labels errors.
func Read(r io.Reader, name string) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "read text", fmt.Errorf("%s is not valid UTF-8 text", name))
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "read text", errors.New(name+" is empty"))
	}
	return string(raw), nil
}
