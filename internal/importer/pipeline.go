package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/releve/internal/dedup"
	"github.com/cleared-dev/releve/internal/describe"
	"github.com/cleared-dev/releve/internal/logger"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

// Result is the outcome of one Run. Accepted transactions carry no ID and
// no category; persisting them is the caller's job.
type Result struct {
	Accepted   []model.Transaction
	Warnings   []string
	Duplicates int
	Encoding   string
	Rows       int // data rows read after the header
}

// Pipeline turns the raw bytes of a bank export into candidate
// transactions. A Pipeline holds no state between runs.
type Pipeline struct {
	cfg Config
	set settings
}

// NewPipeline validates cfg. Any problem is reported as a *ConfigError.
func NewPipeline(cfg Config) (*Pipeline, error) {
	cfg = cfg.WithDefaults()
	set, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, set: set}, nil
}

// Config returns the effective configuration, defaults applied.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run reads data and returns the rows that are neither malformed nor
// already known to existing. Row problems become warnings; only
// configuration problems and cancellation end the run early. ctx is
// consulted between chunks, and on cancellation the partial result is
// returned with ctx's error.
func (p *Pipeline) Run(ctx context.Context, data []byte, existing dedup.Lookup) (Result, error) {
	var res Result
	if err := ctx.Err(); err != nil {
		return res, err
	}

	text, enc, err := decode(data, p.cfg.EncodingCandidates)
	if err != nil {
		return res, err
	}
	res.Encoding = enc

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = p.set.delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	idx, err := p.findHeader(r, &res)
	if err != nil {
		return res, err
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("encoding", enc).Int("chunk_size", p.set.chunk).Msg("header found")

	filter := dedup.NewFilter(existing)
	chunk := make([]model.Transaction, 0, p.set.chunk)
	flush := func() {
		fresh, dups := filter.Partition(chunk)
		res.Accepted = append(res.Accepted, fresh...)
		res.Duplicates += dups
		chunk = chunk[:0]
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %v", perr.Line, perr.Err))
				continue
			}
			return res, fmt.Errorf("reading CSV: %w", err)
		}
		if blank(rec) {
			continue
		}

		line, _ := r.FieldPos(0)
		res.Rows++
		txn, warnings, ok := p.normalize(rec, idx)
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: %s", line, w))
		}
		if ok {
			chunk = append(chunk, txn)
		}

		if res.Rows%p.set.chunk == 0 {
			flush()
			if err := ctx.Err(); err != nil {
				log.Warn().Int("rows", res.Rows).Msg("import cancelled")
				return res, err
			}
		}
	}
	flush()

	return res, nil
}

// findHeader skips header_skip_rows records, then consumes records until
// one names all four configured columns. It returns their positions.
func (p *Pipeline) findHeader(r *csv.Reader, res *Result) ([4]int, error) {
	var idx [4]int
	skipped := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return idx, &ConfigError{
				Reason: fmt.Sprintf("could not find header row with columns %s", strings.Join(p.set.columns[:], ", ")),
			}
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return idx, fmt.Errorf("reading CSV: %w", err)
		}
		if skipped < p.set.skip {
			skipped++
			continue
		}
		if matchHeader(rec, p.set.columns, &idx) {
			return idx, nil
		}
	}
}

func matchHeader(rec []string, columns [4]string, idx *[4]int) bool {
	for i, want := range columns {
		idx[i] = -1
		for j, cell := range rec {
			if strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")) == want {
				idx[i] = j
				break
			}
		}
		if idx[i] < 0 {
			return false
		}
	}
	return true
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// normalize builds a transaction from one data record. It returns the
// warnings the row raised and whether the row is kept.
func (p *Pipeline) normalize(rec []string, idx [4]int) (model.Transaction, []string, bool) {
	var txn model.Transaction

	need := 0
	for _, i := range idx {
		need = max(need, i+1)
	}
	if len(rec) < need {
		return txn, []string{fmt.Sprintf("expected at least %d fields, got %d", need, len(rec))}, false
	}

	desc := strings.TrimSpace(rec[idx[colDesc]])
	if desc == "" {
		return txn, []string{"empty description"}, false
	}

	rawDate := strings.TrimSpace(rec[idx[colDate]])
	date, err := time.Parse(p.set.layout, rawDate)
	if err != nil {
		return txn, []string{fmt.Sprintf("cannot parse date %q", rawDate)}, false
	}

	debit, err := parseAmount(rec[idx[colDebit]], p.set.decimal)
	if err != nil {
		return txn, []string{fmt.Sprintf("debit: %v", err)}, false
	}
	credit, err := parseAmount(rec[idx[colCredit]], p.set.decimal)
	if err != nil {
		return txn, []string{fmt.Sprintf("credit: %v", err)}, false
	}

	var warnings []string
	var amount decimal.Decimal
	switch {
	case debit.IsZero() && credit.IsZero():
		return txn, []string{"no debit or credit amount"}, false
	case !debit.IsZero() && !credit.IsZero():
		amount = credit.Sub(debit)
		warnings = append(warnings, fmt.Sprintf("both debit %s and credit %s set, using net %s",
			debit.StringFixed(2), credit.StringFixed(2), amount.StringFixed(2)))
		if amount.IsZero() {
			return txn, append(warnings, "net amount is zero"), false
		}
	case !debit.IsZero():
		amount = debit.Neg()
	default:
		amount = credit
	}

	if !model.HasCents(amount) {
		return txn, append(warnings, fmt.Sprintf("amount %s has more than 2 decimal places", amount)), false
	}

	parsed := describe.Parse(desc)
	txn = model.Transaction{
		Date:        period.Day(date),
		Description: desc,
		Amount:      amount,
		Type:        parsed.Type,
		Name:        parsed.Name,
	}
	return txn, warnings, true
}
