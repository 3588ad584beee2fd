// Package model defines the canonical opportunity record and filter state
// shared by the filtering, reconciliation, and export layers.
package model

// Opportunity is one parliamentary budget amendment after normalization.
// All monetary amounts are in whole reais (BRL).
type Opportunity struct {
	// Identification
	IdentificacaoEmenda string `json:"identificacao_emenda"`
	NumeroSequencial    string `json:"numero_sequencial"`
	Ano                 int    `json:"ano"`
	TipoEmenda          string `json:"tipo_emenda"`
	// Acao carries the composed display title (código + ação + localizador).
	Acao           string `json:"acao"`
	ObjetoDaEmenda string `json:"objeto_da_emenda"`

	// Author
	Autor        string `json:"autor"`
	Partido      string `json:"partido"`
	UFFavorecida string `json:"uf_favorecida"`

	// Destination
	OrgaoOrcamentario    string `json:"orgao_orcamentario"`
	UnidadeOrcamentaria  string `json:"unidade_orcamentaria"`
	Localizador          string `json:"localizador"`
	MunicipioFavorecido  string `json:"municipio_favorecido"`

	// Classification
	ResultadoPrimario      string `json:"resultado_primario"`
	ModalidadeDeAplicacao  string `json:"modalidade_de_aplicacao"`
	NaturezaDaDespesa      string `json:"natureza_da_despesa"`
	GND                    string `json:"gnd"`

	// Financial
	DotacaoInicial float64 `json:"dotacao_inicial"`
	DotacaoAtual   float64 `json:"dotacao_atual"`
	ValorEmpenhado float64 `json:"valor_empenhado"`
	ValorLiquidado float64 `json:"valor_liquidado"`
	ValorPago      float64 `json:"valor_pago"`

	// HasRelationship is joined in from ministry metadata after fetch; it is
	// not part of the raw SIOP record.
	HasRelationship bool `json:"hasRelationship"`
}

// AvailableValue is the uncommitted portion of the current allocation.
// Never negative.
func (o Opportunity) AvailableValue() float64 {
	v := o.DotacaoAtual - o.ValorEmpenhado
	if v < 0 {
		return 0
	}
	return v
}
