package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 18.0
	bodySize   = 10.0
	lineHeight = 5.0
)

// PDFStats reports how much of the document made it onto the page.
type PDFStats struct {
	Lines   int
	Dropped int
}

// Clipped reports whether any line fell past the bottom margin.
func (s PDFStats) Clipped() bool { return s.Dropped > 0 }

// PDFWriter lays a Document out on a single A4 page. There is no second
// page: lines that do not fit are dropped and counted in PDFStats.
type PDFWriter struct {
	Author  string
	Created time.Time
}

func (p PDFWriter) Write(w io.Writer, doc Document) (PDFStats, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("willdraft-go", true)
	if p.Author != "" {
		pdf.SetAuthor(p.Author, true)
	}
	if !p.Created.IsZero() {
		pdf.SetCreationDate(p.Created)
	}
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right
	bottom := pageH - pageMargin

	var stats PDFStats
	emit := func(style string, size float64, align string, text string) {
		pdf.SetFont("Helvetica", style, size)
		for _, line := range pdf.SplitText(tr(pdfSafe(text)), width) {
			if pdf.GetY()+lineHeight > bottom {
				stats.Dropped++
				continue
			}
			pdf.CellFormat(width, lineHeight, line, "", 1, align, false, 0, "")
			stats.Lines++
		}
	}

	emit("B", 14, "C", doc.Title)
	pdf.Ln(2)
	for _, s := range doc.Sections {
		if s.Heading != "" {
			pdf.Ln(1.5)
			emit("B", 11, "L", strings.ToUpper(s.Heading))
		}
		for _, para := range s.Paragraphs {
			emit("", bodySize, "L", para)
		}
		if s.Table != nil {
			writeTable(pdf, tr, s.Table, width, bottom, &stats)
		}
	}

	if err := pdf.Output(w); err != nil {
		return stats, fmt.Errorf("write pdf: %w", err)
	}
	return stats, nil
}

// Bytes renders the document into memory.
func (p PDFWriter) Bytes(doc Document) ([]byte, PDFStats, error) {
	var buf bytes.Buffer
	stats, err := p.Write(&buf, doc)
	if err != nil {
		return nil, stats, err
	}
	return buf.Bytes(), stats, nil
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, t *Table, width, bottom float64, stats *PDFStats) {
	if len(t.Headers) == 0 {
		return
	}
	// The share column is narrow; the rest is split between the others.
	cols := make([]float64, len(t.Headers))
	if len(cols) == 1 {
		cols[0] = width
	} else {
		last := width * 0.15
		for i := range cols {
			cols[i] = (width - last) / float64(len(cols)-1)
		}
		cols[len(cols)-1] = last
	}

	row := func(style string, cells []string) {
		if pdf.GetY()+lineHeight+1 > bottom {
			stats.Dropped++
			return
		}
		pdf.SetFont("Helvetica", style, bodySize)
		for i, c := range cells {
			if i >= len(cols) {
				break
			}
			text := tr(pdfSafe(c))
			// one line per cell; long names are cut to the column
			if lines := pdf.SplitText(text, cols[i]-2); len(lines) > 0 {
				text = lines[0]
			}
			pdf.CellFormat(cols[i], lineHeight+1, text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		stats.Lines++
	}

	row("B", t.Headers)
	for _, r := range t.Rows {
		row("", r)
	}
}

// pdfSafe swaps characters the core fonts cannot draw.
func pdfSafe(s string) string {
	return strings.NewReplacer("₹", "Rs. ", "—", "-", "–", "-").Replace(s)
}
