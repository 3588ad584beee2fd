// Package stats computes aggregate figures over the currently displayed
// dataset.
package stats

import "github.com/innovatis-mc/emendas-cli/internal/model"

// Stats summarizes one dataset. TotalAvailable sums the uncommitted portion
// of each allocation (dotação atual minus empenhado, floored at zero), not
// the raw allocation.
type Stats struct {
	Count            int     `json:"total_opportunities"`
	TotalAvailable   float64 `json:"total_value"`
	UniqueMinistries int     `json:"unique_ministries"`
	UniqueYears      int     `json:"unique_years"`
}

// Compute aggregates the dataset in one pass. Order-insensitive: sorting or
// paginating the input does not change the result.
func Compute(ds []model.Opportunity) Stats {
	ministries := make(map[string]struct{})
	years := make(map[int]struct{})
	var total float64
	for _, o := range ds {
		total += o.AvailableValue()
		ministries[o.OrgaoOrcamentario] = struct{}{}
		years[o.Ano] = struct{}{}
	}
	return Stats{
		Count:            len(ds),
		TotalAvailable:   total,
		UniqueMinistries: len(ministries),
		UniqueYears:      len(years),
	}
}
