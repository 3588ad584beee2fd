// Package dataset orders and windows opportunity collections for display.
package dataset

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// Direction selects ascending or descending order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sortable field names. Unknown names fall back to FieldAno.
const (
	FieldAno            = "ano"
	FieldAcao           = "acao"
	FieldAutor          = "autor"
	FieldDotacaoInicial = "dotacao_inicial"
	FieldDotacaoAtual   = "dotacao_atual"
	FieldEmpenhado      = "valor_empenhado"
	FieldPago           = "valor_pago"
	FieldOrgao          = "orgao_orcamentario"
	FieldModalidade     = "modalidade_de_aplicacao"
	FieldRP             = "resultado_primario"
	FieldUF             = "uf_favorecida"
	FieldPartido        = "partido"
)

var numericFields = map[string]func(model.Opportunity) float64{
	FieldAno:            func(o model.Opportunity) float64 { return float64(o.Ano) },
	FieldDotacaoInicial: func(o model.Opportunity) float64 { return o.DotacaoInicial },
	FieldDotacaoAtual:   func(o model.Opportunity) float64 { return o.DotacaoAtual },
	FieldEmpenhado:      func(o model.Opportunity) float64 { return o.ValorEmpenhado },
	FieldPago:           func(o model.Opportunity) float64 { return o.ValorPago },
}

var stringFields = map[string]func(model.Opportunity) string{
	FieldAcao:       func(o model.Opportunity) string { return o.Acao },
	FieldAutor:      func(o model.Opportunity) string { return o.Autor },
	FieldOrgao:      func(o model.Opportunity) string { return o.OrgaoOrcamentario },
	FieldModalidade: func(o model.Opportunity) string { return o.ModalidadeDeAplicacao },
	FieldRP:         func(o model.Opportunity) string { return o.ResultadoPrimario },
	FieldUF:         func(o model.Opportunity) string { return o.UFFavorecida },
	FieldPartido:    func(o model.Opportunity) string { return o.Partido },
}

// Sort returns a new slice ordered by the named field. Numeric fields
// compare numerically; everything else compares with pt-BR case-insensitive
// collation. Missing values sort as 0 / "". The sort is stable, so equal
// keys keep their input order.
func Sort(ds []model.Opportunity, field string, dir Direction) []model.Opportunity {
	out := append([]model.Opportunity(nil), ds...)
	if len(out) < 2 {
		return out
	}

	var less func(a, b model.Opportunity) bool
	if key, ok := numericFields[field]; ok {
		less = func(a, b model.Opportunity) bool { return key(a) < key(b) }
	} else if key, ok := stringFields[field]; ok {
		c := collate.New(language.BrazilianPortuguese, collate.IgnoreCase)
		less = func(a, b model.Opportunity) bool { return c.CompareString(key(a), key(b)) < 0 }
	} else {
		key := numericFields[FieldAno]
		less = func(a, b model.Opportunity) bool { return key(a) < key(b) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		if dir == Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
