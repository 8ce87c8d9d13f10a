package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Excel layout constants.
const (
	maxSheetName   = 31
	maxColumnWidth = 50
	headerFill     = "DDDDDD"
	promotionFill  = "90EE90"
	relegationFill = "FFB6C1"
)

// ExcelRenderer writes one worksheet per table.
type ExcelRenderer struct {
	path string
	opts options
}

// NewExcelRenderer renders to path.
func NewExcelRenderer(path string, opts ...Option) *ExcelRenderer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &ExcelRenderer{path: path, opts: o}
}

// Name implements Renderer.
func (r *ExcelRenderer) Name() string { return "excel" }

// Path returns the output file.
func (r *ExcelRenderer) Path() string { return r.path }

// Render writes the workbook. Sheet names are cleaned of characters Excel
// rejects, cut to 31 characters and made unique.
func (r *ExcelRenderer) Render(ctx context.Context, tables []Table) error {
	if len(tables) == 0 {
		return ErrNoTables
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetAppProps(&excelize.AppProperties{Application: r.opts.title}); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: r.opts.title}); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	styles, err := newExcelStyles(f)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}

	used := make(map[string]bool)
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := uniqueSheetName(t.Sheet, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("%w: %w", ErrRender, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("%w: sheet %s: %w", ErrRender, name, err)
		}
		if err := writeSheet(f, name, t, styles); err != nil {
			return fmt.Errorf("%w: sheet %s: %w", ErrRender, name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := f.SaveAs(r.path); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

type excelStyles struct {
	header     int
	promotion  int
	relegation int
}

func newExcelStyles(f *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, err
	}
	s.promotion, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{promotionFill}, Pattern: 1},
	})
	if err != nil {
		return s, err
	}
	s.relegation, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{relegationFill}, Pattern: 1},
	})
	return s, err
}

func writeSheet(f *excelize.File, sheet string, t Table, styles excelStyles) error {
	widths := make([]int, len(t.Header))
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
			if j < len(widths) {
				widths[j] = max(widths[j], utf8.RuneCountInString(v))
			}
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &cells); err != nil {
			return err
		}
		style := 0
		switch t.Highlights[i] {
		case HighlightPromotion:
			style = styles.promotion
		case HighlightRelegation:
			style = styles.relegation
		}
		if style != 0 {
			end, err := excelize.CoordinatesToCellName(len(row), i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, start, end, style); err != nil {
				return err
			}
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(w+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}

// cellValue stores integers as numbers so spreadsheets can sort them.
func cellValue(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}

func uniqueSheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	name = truncateRunes(name, maxSheetName)
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := "~" + strconv.Itoa(n)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
