package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/samber/lo"
)

// PDF layout constants, in millimetres and points.
const (
	pdfRowHeight   = 6.0
	pdfCellPadding = 4.0
	pdfTitleSize   = 16
	pdfTableTitle  = 13
	pdfBodySize    = 9
	pdfTableGap    = 8.0
	pdfFooterSpace = 15.0
)

var (
	pdfHeaderRGB     = [3]int{221, 221, 221}
	pdfPromotionRGB  = [3]int{144, 238, 144}
	pdfRelegationRGB = [3]int{255, 182, 193}
)

// PDFRenderer writes all tables into one A4 portrait document.
type PDFRenderer struct {
	path string
	opts options
}

// NewPDFRenderer renders to path.
func NewPDFRenderer(path string, opts ...Option) *PDFRenderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PDFRenderer{path: path, opts: o}
}

// Name implements Renderer.
func (r *PDFRenderer) Name() string { return "pdf" }

// Path returns the output file.
func (r *PDFRenderer) Path() string { return r.path }

// Render writes the document. A table that does not fit on the rest of the
// current page starts a new one.
func (r *PDFRenderer) Render(ctx context.Context, tables []Table) error {
	if len(tables) == 0 {
		return ErrNoTables
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.opts.title, true)
	pdf.SetAutoPageBreak(true, pdfFooterSpace)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	date := r.opts.now().Format("02/01/2006")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfFooterSpace)
		pdf.SetFont("Arial", "I", 8)
		w := pageWidth(pdf) / 3
		pdf.CellFormat(w, 10, tr(r.opts.title), "", 0, "L", false, 0, "")
		pdf.CellFormat(w, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.CellFormat(w, 10, date, "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", pdfTitleSize)
	pdf.CellFormat(0, 10, tr(r.opts.title), "", 1, "C", false, 0, "")

	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if !fits(pdf, len(t.Rows)+2) {
				pdf.AddPage()
			} else {
				pdf.Ln(pdfTableGap)
			}
		}
		writeTable(pdf, t, tr)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := pdf.OutputFileAndClose(r.path); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func pageWidth(pdf *fpdf.Fpdf) float64 {
	w, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	return w - left - right
}

func fits(pdf *fpdf.Fpdf, rows int) bool {
	_, h := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	return pdf.GetY()+float64(rows)*pdfRowHeight <= h-bottom
}

// columnWidths sizes the text columns (name, club, team) to their content
// and shares the remaining width among the numeric columns.
func columnWidths(pdf *fpdf.Fpdf, t Table, tr func(string) string) []float64 {
	widths := make([]float64, len(t.Header))
	text := make([]bool, len(t.Header))
	used := 0.0
	for i, h := range t.Header {
		if h != "Name" && h != "Club" && h != "Team" {
			continue
		}
		text[i] = true
		w := pdf.GetStringWidth(tr(h))
		for _, row := range t.Rows {
			if i < len(row) {
				w = max(w, pdf.GetStringWidth(tr(row[i])))
			}
		}
		widths[i] = w + pdfCellPadding
		used += widths[i]
	}
	numeric := len(t.Header) - lo.Count(text, true)
	if numeric > 0 {
		rest := (pageWidth(pdf) - used) / float64(numeric)
		for i := range widths {
			if !text[i] {
				widths[i] = rest
			}
		}
	}
	return widths
}

func writeTable(pdf *fpdf.Fpdf, t Table, tr func(string) string) {
	pdf.SetFont("Arial", "B", pdfTableTitle)
	pdf.CellFormat(0, 10, tr(t.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "B", pdfBodySize)
	widths := columnWidths(pdf, t, tr)
	pdf.SetFillColor(pdfHeaderRGB[0], pdfHeaderRGB[1], pdfHeaderRGB[2])
	for i, h := range t.Header {
		pdf.CellFormat(widths[i], pdfRowHeight, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(pdfRowHeight)

	pdf.SetFont("Arial", "", pdfBodySize)
	for i, row := range t.Rows {
		fill := false
		switch t.Highlights[i] {
		case HighlightPromotion:
			pdf.SetFillColor(pdfPromotionRGB[0], pdfPromotionRGB[1], pdfPromotionRGB[2])
			fill = true
		case HighlightRelegation:
			pdf.SetFillColor(pdfRelegationRGB[0], pdfRelegationRGB[1], pdfRelegationRGB[2])
			fill = true
		}
		for j, cell := range row {
			if j < len(widths) {
				pdf.CellFormat(widths[j], pdfRowHeight, tr(cell), "1", 0, "C", fill, 0, "")
			}
		}
		pdf.Ln(pdfRowHeight)
	}
}
