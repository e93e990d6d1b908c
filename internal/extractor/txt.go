package extractor

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText never fails. A UTF-8 or UTF-16 byte order mark selects the
// matching decoder; invalid UTF-8 sequences are dropped.
func decodeText(data []byte) string {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		decoded = data
	}
	return strings.ToValidUTF8(string(decoded), "")
}
