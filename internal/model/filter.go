package model

import (
	"fmt"
	"strings"
)

// Default closed-set dimensions. RP codes 6/7/8 are the amendment result
// categories; the five modality codes cover direct execution and the
// transfer variants.
var (
	DefaultRP          = []string{"6", "7", "8"}
	DefaultModalidades = []string{"99", "90", "31", "41", "50"}
)

// FilterState is one multi-dimensional filter selection. An empty slice for
// a dimension means "unconstrained": every record matches. The zero value is
// therefore the all-pass filter.
type FilterState struct {
	Ministries  []string
	Years       []int
	RP          []string
	Modalidades []string
	UFs         []string
	Partidos    []string

	// MinDotacaoAtual excludes records whose current allocation falls below
	// the threshold. Zero disables the constraint.
	MinDotacaoAtual float64

	// OnlyRelated keeps only opportunities whose ministry has a prior
	// relationship. Evaluated after all other dimensions.
	OnlyRelated bool
}

// NewFilterState seeds a selection from summary metadata: every ministry,
// year, UF, and party selected, plus the closed RP/modality defaults. This
// mirrors the dashboard's initial "all selected" state.
func NewFilterState(s Summary) FilterState {
	return FilterState{
		Ministries:  s.MinistryNames(),
		Years:       append([]int(nil), s.YearsCovered...),
		RP:          append([]string(nil), DefaultRP...),
		Modalidades: append([]string(nil), DefaultModalidades...),
		UFs:         append([]string(nil), s.UniqueUFs...),
		Partidos:    append([]string(nil), s.UniquePartidos...),
	}
}

// IsZero reports whether no dimension constrains anything.
func (f FilterState) IsZero() bool {
	return len(f.Ministries) == 0 && len(f.Years) == 0 && len(f.RP) == 0 &&
		len(f.Modalidades) == 0 && len(f.UFs) == 0 && len(f.Partidos) == 0 &&
		f.MinDotacaoAtual == 0 && !f.OnlyRelated
}

// Active reports whether the selection deviates from the "all selected"
// state derived from the given summary. Used for export metadata and the
// "_filtradas" filename suffix.
func (f FilterState) Active(s Summary) bool {
	narrowed := func(selected, total int) bool { return selected > 0 && selected < total }

	if narrowed(len(f.Years), len(s.YearsCovered)) {
		return true
	}
	if narrowed(len(f.RP), len(DefaultRP)) {
		return true
	}
	if narrowed(len(f.Modalidades), len(DefaultModalidades)) {
		return true
	}
	if narrowed(len(f.Ministries), len(s.Ministries())) {
		return true
	}
	if narrowed(len(f.UFs), len(s.UniqueUFs)) {
		return true
	}
	if narrowed(len(f.Partidos), len(s.UniquePartidos)) {
		return true
	}
	return f.OnlyRelated || f.MinDotacaoAtual > 0
}

// Describe lists the dimensions that deviate from "all selected", in the
// wording used by export metadata.
func (f FilterState) Describe(s Summary) []string {
	var out []string
	if len(f.Years) > 0 && len(f.Years) < len(s.YearsCovered) {
		out = append(out, fmt.Sprintf("Anos: %v", f.Years))
	}
	if len(f.RP) > 0 && len(f.RP) < len(DefaultRP) {
		out = append(out, fmt.Sprintf("RP: [%s]", strings.Join(f.RP, ", ")))
	}
	if len(f.Modalidades) > 0 && len(f.Modalidades) < len(DefaultModalidades) {
		out = append(out, fmt.Sprintf("Modalidades: [%s]", strings.Join(f.Modalidades, ", ")))
	}
	if total := len(s.Ministries()); len(f.Ministries) > 0 && len(f.Ministries) < total {
		out = append(out, fmt.Sprintf("Ministérios: %d/%d selecionados", len(f.Ministries), total))
	}
	if len(f.UFs) > 0 && len(f.UFs) < len(s.UniqueUFs) {
		out = append(out, fmt.Sprintf("UFs: [%s]", strings.Join(f.UFs, ", ")))
	}
	if len(f.Partidos) > 0 && len(f.Partidos) < len(s.UniquePartidos) {
		out = append(out, fmt.Sprintf("Partidos: [%s]", strings.Join(f.Partidos, ", ")))
	}
	if f.MinDotacaoAtual > 0 {
		out = append(out, fmt.Sprintf("Dotação atual mínima: %.0f", f.MinDotacaoAtual))
	}
	if f.OnlyRelated {
		out = append(out, "Apenas órgãos com relacionamento prévio")
	}
	return out
}

// Clone returns a deep copy so callers can mutate selections without
// aliasing the reconciler's state.
func (f FilterState) Clone() FilterState {
	c := f
	c.Ministries = append([]string(nil), f.Ministries...)
	c.Years = append([]int(nil), f.Years...)
	c.RP = append([]string(nil), f.RP...)
	c.Modalidades = append([]string(nil), f.Modalidades...)
	c.UFs = append([]string(nil), f.UFs...)
	c.Partidos = append([]string(nil), f.Partidos...)
	return c
}
