package export

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// Field is one exportable column: a stable key used in configs, a
// Portuguese display label, and an accessor into the record.
type Field struct {
	Key       string
	Label     string
	Essential bool
	Money     bool

	value func(model.Opportunity) any
}

// Catalog lists every exportable field in display order. The two trailing
// entries are computed at export time and do not exist on the raw record.
var Catalog = []Field{
	{Key: "codigo_emenda", Label: "Código da Emenda", Essential: true,
		value: func(o model.Opportunity) any { return o.IdentificacaoEmenda }},
	{Key: "ano", Label: "Ano", Essential: true,
		value: func(o model.Opportunity) any { return o.Ano }},
	{Key: "numero_sequencial", Label: "N.º Emenda", Essential: true,
		value: func(o model.Opportunity) any { return o.NumeroSequencial }},
	{Key: "autor", Label: "Autor", Essential: true,
		value: func(o model.Opportunity) any { return o.Autor }},
	{Key: "partido", Label: "Partido",
		value: func(o model.Opportunity) any { return o.Partido }},
	{Key: "uf_favorecida", Label: "UF",
		value: func(o model.Opportunity) any { return o.UFFavorecida }},
	{Key: "orgao_orcamentario", Label: "Órgão Orçamentário", Essential: true,
		value: func(o model.Opportunity) any { return o.OrgaoOrcamentario }},
	{Key: "acao", Label: "Ação", Essential: true,
		value: func(o model.Opportunity) any { return o.Acao }},
	{Key: "dotacao_inicial", Label: "Dotação Inicial", Essential: true, Money: true,
		value: func(o model.Opportunity) any { return o.DotacaoInicial }},
	{Key: "dotacao_atual", Label: "Dotação Atual", Essential: true, Money: true,
		value: func(o model.Opportunity) any { return o.DotacaoAtual }},
	{Key: "valor_empenhado", Label: "Empenhado", Essential: true, Money: true,
		value: func(o model.Opportunity) any { return o.ValorEmpenhado }},
	{Key: "modalidade_de_aplicacao", Label: "Modalidade",
		value: func(o model.Opportunity) any { return o.ModalidadeDeAplicacao }},
	{Key: "resultado_primario", Label: "RP",
		value: func(o model.Opportunity) any { return o.ResultadoPrimario }},
	{Key: "localizador_gasto", Label: "Localizador de Gasto",
		value: func(o model.Opportunity) any { return o.Localizador }},
	{Key: "valor_disponivel", Label: "Valor Disponível", Money: true,
		value: func(o model.Opportunity) any { return o.AvailableValue() }},
	{Key: "relacionamento", Label: "Relação",
		value: func(o model.Opportunity) any {
			if o.HasRelationship {
				return "Sim"
			}
			return "Não"
		}},
}

// FieldKeys returns the catalog keys in display order.
func FieldKeys() []string {
	keys := make([]string, len(Catalog))
	for i, f := range Catalog {
		keys[i] = f.Key
	}
	return keys
}

// EssentialFieldKeys returns the keys marked essential, the default
// selection when a caller opts out of exporting every column.
func EssentialFieldKeys() []string {
	var keys []string
	for _, f := range Catalog {
		if f.Essential {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FormatValue renders a field value for text output. Monetary fields get
// pt-BR grouping with two decimals; everything else prints as-is.
func (f Field) FormatValue(v any) string {
	if v == nil {
		return ""
	}
	if f.Money {
		if n, ok := v.(float64); ok {
			return ptBR.Sprintf("%.2f", n)
		}
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// selectFields resolves the configured selection against the catalog,
// preserving catalog order. Keys that name no catalog field are skipped.
func selectFields(cfg Config) []Field {
	if cfg.IncludeAllFields {
		return Catalog
	}
	want := make(map[string]bool, len(cfg.SelectedFields))
	for _, k := range cfg.SelectedFields {
		want[k] = true
	}
	var out []Field
	for _, f := range Catalog {
		if want[f.Key] {
			out = append(out, f)
		}
	}
	return out
}
