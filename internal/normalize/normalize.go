// Package normalize converts raw SIOP backend records into canonical
// opportunities with guaranteed fields and corrected monetary magnitudes.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// Record is one raw backend record. Field names follow the SIOP CSV columns
// ("Ano", "Nro. Emenda", "Dotação Atual Emenda", ...) with lowercase
// fallbacks for older payloads; any field may be missing.
type Record map[string]any

const (
	maxTitleAcao        = 80
	maxTitleLocalizador = 25
)

// Opportunity normalizes one raw record. Total: missing or malformed fields
// fall back to empty strings and zeros, never to an error.
func Opportunity(raw Record) model.Opportunity {
	ano := raw.intField("Ano", "ano")
	codigo := deriveCodigo(raw, ano)

	acaoBase := raw.stringField("Ação", "acao")
	localizador := raw.stringField("Localizador", "localizador")
	orgao := raw.stringField("Órgão", "orgao_orcamentario", "orgao")

	pago := ParseMoney(raw.field("Pago", "valor_pago"))
	liquidado := ParseMoney(raw.field("Liquidado", "valor_liquidado"))
	if pago == 0 {
		pago = liquidado
	}

	municipio := localizador
	if municipio == "" {
		municipio = "Nacional"
	}

	return model.Opportunity{
		IdentificacaoEmenda: codigo,
		NumeroSequencial:    codigo,
		Ano:                 ano,
		TipoEmenda:          raw.stringField("Tipo Autor", "tipo_autor"),
		Acao:                composeTitle(codigo, acaoBase, localizador),
		ObjetoDaEmenda:      acaoBase,

		Autor:        raw.stringField("Autor", "autor"),
		Partido:      raw.stringField("Partido", "partido"),
		UFFavorecida: raw.stringField("UF Autor", "uf_favorecida", "uf_autor"),

		OrgaoOrcamentario:   orgao,
		UnidadeOrcamentaria: raw.stringField("UO", "unidade_orcamentaria"),
		Localizador:         localizador,
		MunicipioFavorecido: municipio,

		ResultadoPrimario:     raw.stringField("RP", "resultado_primario"),
		ModalidadeDeAplicacao: raw.stringField("Modalidade", "modalidade_de_aplicacao"),
		NaturezaDaDespesa:     raw.stringField("Natureza Despesa", "natureza_despesa", "natureza_da_despesa"),
		GND:                   raw.stringField("GND", "gnd"),

		DotacaoInicial: ParseMoney(raw.field("Dotação Inicial Emenda", "dotacao_inicial")),
		DotacaoAtual:   ParseMoney(raw.field("Dotação Atual Emenda", "dotacao_atual")),
		ValorEmpenhado: ParseMoney(raw.field("Empenhado", "valor_empenhado")),
		ValorLiquidado: liquidado,
		ValorPago:      pago,
	}
}

// Opportunities normalizes a batch.
func Opportunities(raws []Record) []model.Opportunity {
	out := make([]model.Opportunity, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Opportunity(raw))
	}
	return out
}

// AttachRelationships joins the ministry relationship flag onto each record,
// in place. The flag is summary metadata, not part of the raw feed.
func AttachRelationships(ds []model.Opportunity, s model.Summary) {
	related := make(map[string]bool)
	for _, m := range s.Ministries() {
		related[m.Ministry] = m.HasRelationship
	}
	for i := range ds {
		ds[i].HasRelationship = related[ds[i].OrgaoOrcamentario]
	}
}

// deriveCodigo resolves the amendment's unique identity: the backend code
// when present, else the Portal da Transparência layout AAAA-BBBB-CCCC
// synthesized from the zero-padded amendment number, else a TEMP fallback.
func deriveCodigo(raw Record, ano int) string {
	if codigo := raw.stringField("Codigo_Emenda", "codigo_emenda"); codigo != "" {
		return codigo
	}

	nro := raw.stringField("Nro. Emenda", "numero_emenda")
	if ano > 0 && nro != "" {
		padded := nro
		if len(padded) < 8 {
			padded = strings.Repeat("0", 8-len(padded)) + padded
		}
		return fmt.Sprintf("%d-%s-%s", ano, padded[:4], padded[4:])
	}

	fallback := fmt.Sprintf("TEMP-%s-%s", anoToken(ano), uuid.NewString()[:8])
	zap.L().Warn("record without amendment code, using fallback identity",
		zap.String("codigo", fallback))
	return fallback
}

func anoToken(ano int) string {
	if ano <= 0 {
		return "XXXX"
	}
	return strconv.Itoa(ano)
}

// composeTitle builds the display title: código + truncated action
// description + optional location token. National/catch-all locations are
// skipped.
func composeTitle(codigo, acao, localizador string) string {
	title := codigo
	if s := strings.TrimSpace(acao); s != "" {
		title += " • " + truncate(s, maxTitleAcao)
	}
	loc := strings.TrimSpace(localizador)
	lower := strings.ToLower(loc)
	if loc != "" && loc != "0000" &&
		!strings.Contains(lower, "nacional") && !strings.Contains(lower, "todas") {
		title += " • " + truncate(loc, maxTitleLocalizador)
	}
	return title
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func (r Record) field(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (r Record) stringField(keys ...string) string {
	switch v := r.field(keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (r Record) intField(keys ...string) int {
	switch v := r.field(keys...).(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
