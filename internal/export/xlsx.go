package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

const maxColWidth = 50

type xlsxSerializer struct{}

func (xlsxSerializer) Serialize(w io.Writer, rows []model.Opportunity, fields []Field, meta Metadata, cfg Config) error {
	f := xlsx.NewFile()

	if cfg.IncludeStats {
		if err := addInfoSheet(f, meta, fields); err != nil {
			return err
		}
	}

	sheet, err := f.AddSheet("Dados")
	if err != nil {
		return eris.Wrap(err, "xlsx: add data sheet")
	}

	header := sheet.AddRow()
	for _, fd := range fields {
		header.AddCell().SetString(fd.Label)
	}

	widths := make([]int, len(fields))
	for i, fd := range fields {
		widths[i] = len([]rune(fd.Label))
	}

	for _, o := range rows {
		row := sheet.AddRow()
		for i, fd := range fields {
			v := fd.value(o)
			cell := row.AddCell()
			switch t := v.(type) {
			case float64:
				cell.SetFloatWithFormat(t, "#,##0.00")
			case int:
				cell.SetInt(t)
			default:
				cell.SetString(fd.FormatValue(v))
			}
			if n := len([]rune(fd.FormatValue(v))); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, wd := range widths {
		wd += 2
		if wd > maxColWidth {
			wd = maxColWidth
		}
		sheet.SetColWidth(i, i, float64(wd))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func addInfoSheet(f *xlsx.File, meta Metadata, fields []Field) error {
	sheet, err := f.AddSheet("Informações")
	if err != nil {
		return eris.Wrap(err, "xlsx: add info sheet")
	}

	keys := make([]string, len(fields))
	for i, fd := range fields {
		keys[i] = fd.Key
	}

	addPair := func(k, v string) {
		row := sheet.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}

	sheet.AddRow().AddCell().SetString("Relatório de Emendas Parlamentares")
	sheet.AddRow()
	addPair("Gerado em:", meta.GeradoEm)
	addPair("Total de registros:", strconv.Itoa(meta.TotalRegistros))
	filters := "Nenhum"
	if len(meta.FiltrosAplicados) > 0 {
		filters = strings.Join(meta.FiltrosAplicados, "; ")
	}
	addPair("Filtros aplicados:", filters)
	search := "Nenhuma"
	if meta.BuscaAtiva != "" {
		search = meta.BuscaAtiva
	}
	addPair("Busca ativa:", search)
	sheet.AddRow()
	addPair("Campos exportados:", strings.Join(keys, ", "))
	return nil
}
