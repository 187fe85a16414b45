package table

import (
	"strconv"
	"strings"

	"github.com/hyperifyio/annopull/internal/category"
	"github.com/hyperifyio/annopull/internal/pattern"
)

// Row holds one parsed table row: header cells first, then data cells.
type Row []string

// String renders the row as a quoted, comma separated list, e.g.
// ["Fish", "0.0025"]. This is the line format of the output dump.
func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, cell := range r {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(cell))
	}
	b.WriteByte(']')
	return b.String()
}

// Singularize trims a single trailing "s". It is a suffix trim, not a
// linguistic rule.
func Singularize(title string) string {
	return strings.TrimSuffix(title, "s")
}

// Title returns the singularized first header cell of the first row, or false
// when the fragment has no rows or the first row has no header cell.
func Title(fragment string) (string, bool) {
	rows := pattern.Row.FindAll(fragment, false)
	if len(rows) == 0 {
		return "", false
	}
	headers := pattern.Header.FindAll(rows[0], true)
	if len(headers) == 0 {
		return "", false
	}
	return Singularize(headers[0]), true
}

// Classify reports which category a table fragment belongs to, judged by the
// title in its first row.
func Classify(fragment string, set category.Set) (category.Category, bool) {
	title, ok := Title(fragment)
	if !ok {
		return "", false
	}
	c := category.Category(title)
	if !set.Contains(c) {
		return "", false
	}
	return c, true
}

// ParseRows extracts every row that has at least one header cell, in document
// order. Rows without a header cell are skipped. The title row is kept as a
// one-cell row. Row lengths are not validated.
func ParseRows(fragment string) []Row {
	trs := pattern.Row.FindAll(fragment, false)
	rows := make([]Row, 0, len(trs))
	for _, tr := range trs {
		th := pattern.Header.FindAll(tr, true)
		if len(th) == 0 {
			continue
		}
		td := pattern.Cell.FindAll(tr, true)
		row := make(Row, 0, len(th)+len(td))
		row = append(row, th...)
		row = append(row, td...)
		rows = append(rows, row)
	}
	return rows
}
