package export

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

const (
	pdfMarginX = 12.0
	pdfMarginY = 12.0
	pdfLineH   = 5.0
)

type pdfSerializer struct{}

func (pdfSerializer) Serialize(w io.Writer, rows []model.Opportunity, fields []Field, meta Metadata, cfg Config) error {
	doc := gofpdf.New("L", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetMargins(pdfMarginX, pdfMarginY, pdfMarginX)
	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-10)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(120, 120, 120)
		doc.CellFormat(0, 6, fmt.Sprintf("Página %d/{nb}", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	drawHeader(doc, tr, meta, cfg)

	if cfg.IncludeStats {
		drawInfoSection(doc, tr, meta)
	}

	// Columns with no value in any record are dropped so the table never
	// renders all-blank columns.
	cols := nonEmptyColumns(rows, fields)

	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(0, 51, 102)
	doc.CellFormat(0, 8, tr(fmt.Sprintf("Dados das Emendas (%d registros)", len(rows))), "", 1, "L", false, 0, "")
	doc.Ln(1)

	if len(rows) == 0 || len(cols) == 0 {
		doc.SetFont("Helvetica", "I", 10)
		doc.SetTextColor(100, 100, 100)
		doc.CellFormat(0, 8, tr("Nenhum dado válido para exibir."), "", 1, "L", false, 0, "")
	} else {
		drawTable(doc, tr, rows, cols)
	}

	if err := doc.Output(w); err != nil {
		return eris.Wrap(err, "pdf: render document")
	}
	return nil
}

func drawHeader(doc *gofpdf.Fpdf, tr func(string) string, meta Metadata, cfg Config) {
	pageW, _ := doc.GetPageSize()

	doc.SetFillColor(232, 240, 254)
	doc.Rect(0, 0, pageW, 32, "F")

	titleX := pdfMarginX
	if cfg.IncludeLogo {
		if placeLogo(doc, cfg.LogoPath) {
			titleX += 26
		} else {
			doc.SetFont("Helvetica", "B", 9)
			doc.SetTextColor(102, 102, 102)
			doc.Text(pdfMarginX, 14, "INNOVATIS")
			titleX += 26
		}
	}

	doc.SetFont("Helvetica", "B", 18)
	doc.SetTextColor(0, 51, 102)
	doc.Text(titleX, 15, tr("Relatório de Emendas Parlamentares"))

	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(85, 85, 85)
	doc.Text(titleX, 22, tr("Gerado em: "+meta.GeradoEm))

	doc.SetY(38)
}

// placeLogo draws the configured logo image and reports whether it
// succeeded. Any problem with the file degrades to the text fallback and
// must not abort the export.
func placeLogo(doc *gofpdf.Fpdf, path string) bool {
	if path == "" {
		return false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("logo unavailable, using text fallback", zap.String("path", path), zap.Error(err))
		return false
	}
	var kind string
	switch http.DetectContentType(raw) {
	case "image/png":
		kind = "PNG"
	case "image/jpeg":
		kind = "JPG"
	default:
		zap.L().Warn("logo has unsupported image type", zap.String("path", path))
		return false
	}
	opts := gofpdf.ImageOptions{ImageType: kind}
	doc.RegisterImageOptionsReader("logo", opts, bytes.NewReader(raw))
	if doc.Err() {
		zap.L().Warn("logo could not be decoded", zap.String("path", path), zap.String("error", doc.Error().Error()))
		doc.ClearError()
		return false
	}
	doc.ImageOptions("logo", pdfMarginX, 6, 20, 20, false, opts, 0, "")
	return true
}

func drawInfoSection(doc *gofpdf.Fpdf, tr func(string) string, meta Metadata) {
	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(0, 51, 102)
	doc.CellFormat(0, 8, tr("Informações do Relatório"), "B", 1, "L", false, 0, "")
	doc.Ln(1)

	filters := "Nenhum"
	if len(meta.FiltrosAplicados) > 0 {
		filters = strings.Join(meta.FiltrosAplicados, "; ")
	}
	search := "Não"
	if meta.BuscaAtiva != "" {
		search = meta.BuscaAtiva
	}
	pairs := [][2]string{
		{"Total de registros", fmt.Sprint(meta.TotalRegistros)},
		{"Registros no arquivo original", fmt.Sprint(meta.TotalOriginal)},
		{"Filtros aplicados", filters},
		{"Busca ativa", search},
		{"Formato de exportação", strings.ToUpper(meta.Configuracao.Formato)},
		{"Campos incluídos", fmt.Sprint(meta.Configuracao.CamposIncluidos)},
	}

	pageW, _ := doc.GetPageSize()
	valueW := pageW - 2*pdfMarginX - 60
	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(0, 0, 0)
	for _, p := range pairs {
		y := doc.GetY()
		doc.Text(pdfMarginX, y+4, tr(p[0]+":"))
		doc.SetXY(pdfMarginX+60, y)
		doc.MultiCell(valueW, pdfLineH, tr(p[1]), "", "L", false)
	}
	doc.Ln(4)
}

// nonEmptyColumns keeps only fields that carry a value in at least one
// record.
func nonEmptyColumns(rows []model.Opportunity, fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		for _, o := range rows {
			if f.FormatValue(f.value(o)) != "" {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func drawTable(doc *gofpdf.Fpdf, tr func(string) string, rows []model.Opportunity, cols []Field) {
	pageW, pageH := doc.GetPageSize()
	usable := pageW - 2*pdfMarginX
	colW := usable / float64(len(cols))

	drawHeaderRow := func() {
		doc.SetFont("Helvetica", "B", 8)
		doc.SetFillColor(0, 51, 102)
		doc.SetTextColor(255, 255, 255)
		for _, c := range cols {
			doc.CellFormat(colW, 7, tr(c.Label), "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Helvetica", "", 7)
		doc.SetTextColor(0, 0, 0)
	}
	drawHeaderRow()

	fill := false
	for _, o := range rows {
		// SplitText sizes against the raw string; the cp1252 translation
		// happens at draw time, since translated high bytes are not valid
		// UTF-8 and would decode as out-of-table runes.
		cells := make([]string, len(cols))
		rowLines := 1
		for i, c := range cols {
			cells[i] = c.FormatValue(c.value(o))
			if n := len(doc.SplitText(cells[i], colW-2)); n > rowLines {
				rowLines = n
			}
		}
		rowH := float64(rowLines) * (pdfLineH - 1)

		if doc.GetY()+rowH > pageH-16 {
			doc.AddPage()
			drawHeaderRow()
		}

		doc.SetFillColor(245, 247, 250)
		style := "D"
		if fill {
			style = "FD"
		}
		x := pdfMarginX
		y := doc.GetY()
		for _, cell := range cells {
			doc.Rect(x, y, colW, rowH, style)
			doc.SetXY(x+1, y+0.5)
			doc.MultiCell(colW-2, pdfLineH-1, tr(cell), "", "L", false)
			x += colW
		}
		doc.SetXY(pdfMarginX, y+rowH)
		fill = !fill
	}
}
