package importer

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func isUTF8Name(name string) bool {
	n := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	return n == "utf8"
}

// decode returns data as UTF-8 text under the first candidate encoding
// that decodes it cleanly, along with that candidate's name. UTF-8 must be
// valid as-is; any other charset must not yield replacement characters.
func decode(data []byte, candidates []string) (string, string, error) {
	if len(candidates) == 0 {
		return "", "", &ConfigError{Option: "encoding_candidates", Reason: "no encoding to try"}
	}

	for _, name := range candidates {
		if isUTF8Name(name) {
			text := bytes.TrimPrefix(data, utf8BOM)
			if utf8.Valid(text) {
				return string(text), name, nil
			}
			continue
		}

		enc, err := ianaindex.IANA.Encoding(name)
		if err != nil || enc == nil {
			return "", "", &ConfigError{Option: "encoding_candidates", Reason: fmt.Sprintf("unknown encoding %q", name)}
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out), name, nil
	}

	return "", "", &ConfigError{
		Option: "encoding_candidates",
		Reason: fmt.Sprintf("content does not decode as any of %s", strings.Join(candidates, ", ")),
	}
}
