package app

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// writeRowsPDF renders the parsed rows as a plain PDF listing: one heading
// per classified table followed by its rows, cells separated by " | ".
func writeRowsPDF(res Result, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Residence consumption", true)
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()
	// Core fonts are cp1252; translate so accented names render.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("%d rows", res.Count), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	next := 0
	for _, t := range res.Tables {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, tr(string(t.Category)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		end := next + t.Rows
		if end > len(res.Rows) {
			end = len(res.Rows)
		}
		for _, row := range res.Rows[next:end] {
			pdf.MultiCell(0, 5, tr(strings.Join(row, " | ")), "", "L", false)
		}
		next = end
		pdf.Ln(3)
	}

	return pdf.OutputFileAndClose(outPath)
}
