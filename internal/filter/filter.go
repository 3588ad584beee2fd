// Package filter applies the multi-dimensional opportunity filter. Every
// predicate here is pure; an empty constraint set matches everything.
package filter

import (
	"slices"
	"strings"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

// Matches reports whether the opportunity passes every active dimension of
// the selection, including the relationship constraint.
func Matches(o model.Opportunity, f model.FilterState) bool {
	return matchesDimensions(o, f) && matchesRelationship(o, f)
}

// Apply filters a dataset. The generic dimensions are evaluated first and
// the relationship constraint is a separate final pass, matching the order
// in which relationship-derived ministry selection is computed upstream.
func Apply(ds []model.Opportunity, f model.FilterState) []model.Opportunity {
	out := make([]model.Opportunity, 0, len(ds))
	for _, o := range ds {
		if matchesDimensions(o, f) {
			out = append(out, o)
		}
	}
	if !f.OnlyRelated {
		return out
	}
	related := out[:0]
	for _, o := range out {
		if o.HasRelationship {
			related = append(related, o)
		}
	}
	return related
}

// TextSearch is the local fallback for server-side search: a
// case-insensitive substring match over the fields a user would type
// against. An empty term returns the dataset unchanged.
func TextSearch(ds []model.Opportunity, term string) []model.Opportunity {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ds
	}
	out := make([]model.Opportunity, 0, len(ds))
	for _, o := range ds {
		if matchesTerm(o, term) {
			out = append(out, o)
		}
	}
	return out
}

func matchesTerm(o model.Opportunity, term string) bool {
	for _, s := range []string{
		o.IdentificacaoEmenda,
		o.Autor,
		o.Partido,
		o.OrgaoOrcamentario,
		o.Acao,
		o.Localizador,
		o.UFFavorecida,
	} {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func matchesDimensions(o model.Opportunity, f model.FilterState) bool {
	return memberOf(f.Ministries, o.OrgaoOrcamentario) &&
		memberOfInt(f.Years, o.Ano) &&
		containsToken(f.RP, o.ResultadoPrimario) &&
		containsToken(f.Modalidades, o.ModalidadeDeAplicacao) &&
		memberOf(f.UFs, o.UFFavorecida) &&
		memberOf(f.Partidos, o.Partido) &&
		meetsAllocation(o, f.MinDotacaoAtual)
}

func matchesRelationship(o model.Opportunity, f model.FilterState) bool {
	return !f.OnlyRelated || o.HasRelationship
}

func memberOf(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

func memberOfInt(set []int, v int) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

// containsToken matches RP and modality codes by substring containment:
// these fields can carry compound values such as "6/7".
func containsToken(set []string, code string) bool {
	if len(set) == 0 {
		return true
	}
	for _, token := range set {
		if token != "" && strings.Contains(code, token) {
			return true
		}
	}
	return false
}

func meetsAllocation(o model.Opportunity, min float64) bool {
	return min <= 0 || o.DotacaoAtual >= min
}
