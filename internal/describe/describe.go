// Package describe extracts the operation type and counterparty from a bank
// statement description. Parsing is heuristic: Parse never fails, and a
// garbled description simply yields a less useful name.
package describe

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Result holds what Parse extracted. Type is "" when no known operation
// keyword prefixes the description.
type Result struct {
	Type string
	Name string
}

// Operations lists the recognized operation keywords in match order. Longer
// keywords sharing a first word come before shorter ones.
var Operations = []string{
	TypeCardPayment,
	"PAIEMENT CARTE",
	"PRELEVEMENT EUROPEEN",
	TypeDirectDebit,
	"VIREMENT EN VOTRE FAVEUR",
	"VIREMENT SEPA RECU",
	"VIREMENT SEPA EMIS",
	"VIREMENT RECU",
	"VIREMENT EMIS",
	"VIREMENT",
	"RETRAIT AU DISTRIBUTEUR",
	"RETRAIT DAB",
	"RETRAIT",
	"REMISE DE CHEQUE",
	"CHEQUE",
	"AVOIR",
	"COTISATION",
	"FRAIS",
	"INTERETS",
}

// Canonical keywords for callers that branch on the operation type.
const (
	TypeCardPayment = "PAIEMENT PAR CARTE"
	TypeDirectDebit = "PRELEVEMENT"
)

var (
	operationWords = splitOperations(Operations)

	cardMask   = regexp.MustCompile(`^(?:[A-Z]\d{4}|CB\*?\d{4}|X{2,}\d{2,4}|\*+\d{4})$`)
	dateLike   = regexp.MustCompile(`^\d{2}[/.-]\d{2}(?:[/.-]\d{2,4})?$|^\d{2}[/.-]\d{4}$`)
	compactDay = regexp.MustCompile(`^\d{6}$|^\d{8}$`)
)

func splitOperations(ops []string) [][]string {
	out := make([][]string, len(ops))
	for i, op := range ops {
		out[i] = strings.Fields(op)
	}
	return out
}

// Parse splits description into an operation type and a counterparty name.
//
//	Parse("PAIEMENT PAR CARTE X3573 LIDL 0780") == Result{"PAIEMENT PAR CARTE", "LIDL 0780"}
//	Parse("PRELEVEMENT Orange SA")              == Result{"PRELEVEMENT", "Orange SA"}
func Parse(description string) Result {
	words := strings.Fields(description)
	if len(words) == 0 {
		return Result{}
	}

	folded := make([]string, len(words))
	for i, w := range words {
		folded[i] = Fold(w)
	}

	for i, op := range operationWords {
		if !hasPrefix(folded, op) {
			continue
		}
		rest := stripNoise(words[len(op):], folded[len(op):])
		return Result{Type: Operations[i], Name: strings.Join(rest, " ")}
	}

	return Result{Name: strings.Join(words, " ")}
}

func hasPrefix(words, prefix []string) bool {
	if len(words) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if words[i] != p {
			return false
		}
	}
	return true
}

// stripNoise drops card masks, reference numbers and trailing dates.
func stripNoise(words, folded []string) []string {
	var kept, keptFolded []string
	for i := 0; i < len(words); i++ {
		f := folded[i]
		switch {
		case cardMask.MatchString(f):
			continue
		case f == "REF" || f == "REF:" || f == "REF.":
			i++ // the reference value follows
			continue
		case strings.HasPrefix(f, "REF:") || strings.HasPrefix(f, "REF."):
			continue
		}
		kept = append(kept, words[i])
		keptFolded = append(keptFolded, f)
	}

	for len(kept) > 0 {
		last := keptFolded[len(keptFolded)-1]
		prevIsDu := len(keptFolded) > 1 && keptFolded[len(keptFolded)-2] == "DU"
		if !dateLike.MatchString(last) && !(prevIsDu && compactDay.MatchString(last)) {
			break
		}
		n := len(kept) - 1
		if prevIsDu {
			n--
		}
		kept, keptFolded = kept[:n], keptFolded[:n]
	}
	return kept
}

// Fold upper-cases s and removes diacritics, so "Prélèvement" and
// "PRELEVEMENT" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.ToUpper(stripped)
}
