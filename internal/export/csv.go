package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// utf8BOM keeps Excel from misreading accented Portuguese text.
const utf8BOM = "\uFEFF"

type csvSerializer struct{}

func (csvSerializer) Serialize(w io.Writer, rows []model.Opportunity, fields []Field, meta Metadata, cfg Config) error {
	delim := cfg.Delimiter
	if delim == "" {
		delim = ","
	}

	var b strings.Builder
	if cfg.Encoding != EncodingLatin1 {
		b.WriteString(utf8BOM)
	}

	if cfg.IncludeStats {
		writeComments(&b, meta)
	}

	if cfg.IncludeHeaders {
		labels := make([]string, len(fields))
		for i, f := range fields {
			labels[i] = quoteIfNeeded(f.Label, delim)
		}
		b.WriteString(strings.Join(labels, delim))
		b.WriteString("\n")
	}

	for _, o := range rows {
		cells := make([]string, len(fields))
		for i, f := range fields {
			cells[i] = quoteIfNeeded(f.FormatValue(f.value(o)), delim)
		}
		b.WriteString(strings.Join(cells, delim))
		b.WriteString("\n")
	}

	out := w
	if cfg.Encoding == EncodingLatin1 {
		out = transform.NewWriter(w, charmap.ISO8859_1.NewEncoder())
	}
	if _, err := io.WriteString(out, b.String()); err != nil {
		return eris.Wrap(err, "csv: write")
	}
	if tw, ok := out.(*transform.Writer); ok {
		if err := tw.Close(); err != nil {
			return eris.Wrap(err, "csv: flush encoder")
		}
	}
	return nil
}

func writeComments(b *strings.Builder, meta Metadata) {
	b.WriteString("# Relatório de Emendas Parlamentares\n")
	fmt.Fprintf(b, "# Gerado em: %s\n", meta.GeradoEm)
	fmt.Fprintf(b, "# Total de registros: %d\n", meta.TotalRegistros)
	if len(meta.FiltrosAplicados) > 0 {
		fmt.Fprintf(b, "# Filtros aplicados: %s\n", strings.Join(meta.FiltrosAplicados, "; "))
	}
	if meta.BuscaAtiva != "" {
		fmt.Fprintf(b, "# Busca ativa: %q\n", meta.BuscaAtiva)
	}
	b.WriteString("\n")
}

// quoteIfNeeded wraps a value in double quotes when it contains the
// delimiter, doubling any embedded quotes.
func quoteIfNeeded(v, delim string) string {
	if !strings.Contains(v, delim) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
