// Package export writes the ledger as CSV for spreadsheets and backups.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/releve/internal/categories"
	"github.com/cleared-dev/releve/internal/model"
	"github.com/cleared-dev/releve/internal/period"
)

// TransactionHeader is the CSV header of a transaction export.
const TransactionHeader = "id,date,description,amount,type,name,category_id,category,category_source,recurrence,vital,savings"

// CategoryHeader is the CSV header of a category export.
const CategoryHeader = "id,name,parent_id,path,kind,depth,description,color"

const (
	numTxnFields = 12
	colID        = 0
	colDate      = 1
	colDesc      = 2
	colAmount    = 3
	colType      = 4
	colName      = 5
	colCatID     = 6
	colCategory  = 7
	colSource    = 8
	colRecur     = 9
	colVital     = 10
	colSavings   = 11
)

// Paths names categories by id. *categories.Forest implements it.
type Paths interface {
	Path(id int64) string
}

// MarshalTransaction converts a Transaction to a CSV row. The category
// column holds the full path, empty when uncategorized.
func MarshalTransaction(t model.Transaction, paths Paths) []string {
	row := make([]string, numTxnFields)
	row[colID] = strconv.FormatInt(t.ID, 10)
	row[colDate] = period.FormatDate(t.Date)
	row[colDesc] = t.Description
	row[colAmount] = t.Amount.StringFixed(2)
	row[colType] = t.Type
	row[colName] = t.Name
	if t.Categorized() {
		row[colCatID] = strconv.FormatInt(t.CategoryID, 10)
		row[colCategory] = paths.Path(t.CategoryID)
	}
	row[colSource] = string(t.CategorySource)
	row[colRecur] = strconv.FormatBool(t.Recurrence)
	row[colVital] = strconv.FormatBool(t.Vital)
	row[colSavings] = strconv.FormatBool(t.Savings)
	return row
}

// WriteTransactions writes txns with a header row.
func WriteTransactions(w io.Writer, txns []model.Transaction, paths Paths) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(TransactionHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t, paths)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCategories writes the forest depth first, parents before children.
func WriteCategories(w io.Writer, f *categories.Forest) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(CategoryHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, n := range f.Walk(categories.DepthFirst) {
		parent := ""
		if !n.IsRoot() {
			parent = strconv.FormatInt(n.ParentID, 10)
		}
		row := []string{
			strconv.FormatInt(n.ID, 10),
			n.Name,
			parent,
			n.Path,
			string(n.Kind),
			strconv.Itoa(n.Depth),
			n.Description,
			n.Color,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
