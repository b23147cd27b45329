package importer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// parseAmount cleans a debit or credit cell and returns its magnitude.
// Empty and zero-valued cells return zero. decimalSep is the configured
// decimal mark; the other of "," and "." is assumed to group thousands,
// except where the cell shows otherwise:
//
//	"1 330,55" -> 1330.55
//	"1,330.55" -> 1330.55 (last mark wins)
//	"100.00"   -> 100.00  (lone mark not followed by three digits)
//	"1.330"    -> 1330    (lone mark followed by three digits)
func parseAmount(cell string, decimalSep byte) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) || r == '+' {
			return -1
		}
		return r
	}, cell)
	if s == "" {
		return decimal.Zero, nil
	}

	normalized, err := normalizeSeparators(s, decimalSep)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", strings.TrimSpace(cell), err)
	}

	if !plainNumber(normalized) {
		return decimal.Zero, fmt.Errorf("amount %q: not a number", strings.TrimSpace(cell))
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: not a number", strings.TrimSpace(cell))
	}
	return d.Abs(), nil
}

// normalizeSeparators rewrites s so that "." is the only mark and marks
// the decimal point.
func normalizeSeparators(s string, decimalSep byte) (string, error) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot < 0 && lastComma < 0:
		return s, nil

	case lastDot >= 0 && lastComma >= 0:
		mark, group := byte('.'), ","
		if lastComma > lastDot {
			mark, group = ',', "."
		}
		s = strings.ReplaceAll(s, group, "")
		if strings.Count(s, string(mark)) > 1 {
			return "", fmt.Errorf("several decimal marks")
		}
		return strings.Replace(s, string(mark), ".", 1), nil
	}

	sep := byte('.')
	if lastComma >= 0 {
		sep = ','
	}
	count := strings.Count(s, string(sep))

	if sep == decimalSep {
		if count > 1 {
			return "", fmt.Errorf("several decimal marks")
		}
		return strings.Replace(s, string(sep), ".", 1), nil
	}

	// Only the non-configured mark is present.
	if count > 1 || groupsThousands(s, sep) {
		return strings.ReplaceAll(s, string(sep), ""), nil
	}
	return strings.Replace(s, string(sep), ".", 1), nil
}

// plainNumber reports whether s holds at least one digit, at most one "."
// and an optional leading "-". decimal.NewFromString also takes exponents,
// which a bank export never uses.
func plainNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if strings.Count(s, ".") > 1 {
		return false
	}
	digits := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] != '.':
			return false
		}
	}
	return digits > 0
}

// groupsThousands reports whether the single sep in s is followed by
// exactly three digits and nothing else.
func groupsThousands(s string, sep byte) bool {
	tail := s[strings.IndexByte(s, sep)+1:]
	if len(tail) != 3 {
		return false
	}
	for i := 0; i < len(tail); i++ {
		if tail[i] < '0' || tail[i] > '9' {
			return false
		}
	}
	return true
}
