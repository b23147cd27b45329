// Package dedup recognizes transactions that are already in the ledger.
//
// Two transactions are the same movement when their date, raw description
// and amount in cents are all equal. No normalization is applied: a bank
// that rewrites a description between two exports produces a new row.
package dedup

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

// Fingerprint is the identity of a transaction for duplicate detection.
type Fingerprint struct {
	Date        string // ISO date
	Description string
	AmountCents int64
}

// Of returns the fingerprint of t.
func Of(t model.Transaction) Fingerprint {
	return Fingerprint{
		Date:        period.FormatDate(t.Date),
		Description: t.Description,
		AmountCents: t.Cents(),
	}
}

// New builds a fingerprint from its raw parts, as stores hold them.
func New(date, description string, amount decimal.Decimal) Fingerprint {
	return Fingerprint{Date: date, Description: description, AmountCents: amount.Shift(2).IntPart()}
}

// Lookup answers membership queries against already-persisted fingerprints.
type Lookup interface {
	Contains(Fingerprint) bool
}

// Index is an in-memory fingerprint set. The zero value is not usable; use
// NewIndex.
type Index map[Fingerprint]struct{}

// NewIndex returns an index holding fps.
func NewIndex(fps ...Fingerprint) Index {
	idx := make(Index, len(fps))
	for _, fp := range fps {
		idx[fp] = struct{}{}
	}
	return idx
}

// Add inserts fp.
func (idx Index) Add(fp Fingerprint) {
	idx[fp] = struct{}{}
}

// Contains reports whether fp is in the index.
func (idx Index) Contains(fp Fingerprint) bool {
	_, ok := idx[fp]
	return ok
}

// Len returns the number of fingerprints held.
func (idx Index) Len() int {
	return len(idx)
}

// Partition splits batch into transactions not known to existing and a
// count of those that are. Order of the fresh transactions is preserved.
// Within the batch itself nothing is collapsed; use Filter for that.
func Partition(batch []model.Transaction, existing Lookup) ([]model.Transaction, int) {
	fresh := make([]model.Transaction, 0, len(batch))
	duplicates := 0
	for _, t := range batch {
		if existing != nil && existing.Contains(Of(t)) {
			duplicates++
			continue
		}
		fresh = append(fresh, t)
	}
	return fresh, duplicates
}

// Filter is the streaming variant of Partition. It remembers every
// transaction it accepted, so a row repeated later in the same file, even
// in another chunk, counts as a duplicate.
type Filter struct {
	existing Lookup
	seen     Index
}

// NewFilter returns a filter checking against existing, which may be nil.
func NewFilter(existing Lookup) *Filter {
	return &Filter{existing: existing, seen: NewIndex()}
}

// Partition splits one chunk and records the fresh transactions.
func (f *Filter) Partition(batch []model.Transaction) ([]model.Transaction, int) {
	fresh := make([]model.Transaction, 0, len(batch))
	duplicates := 0
	for _, t := range batch {
		fp := Of(t)
		if f.seen.Contains(fp) || (f.existing != nil && f.existing.Contains(fp)) {
			duplicates++
			continue
		}
		f.seen.Add(fp)
		fresh = append(fresh, t)
	}
	return fresh, duplicates
}
