package model

// Ministry is one entry of the summary's ministry roster.
type Ministry struct {
	Ministry        string  `json:"ministry"`
	Count           int     `json:"count"`
	TotalValue      float64 `json:"total_value"`
	HasRelationship bool    `json:"has_relationship"`
}

// Summary mirrors the GET /api/summary payload used to seed filter options.
type Summary struct {
	TotalOpportunities int        `json:"total_opportunities"`
	TotalValue         float64    `json:"total_value"`
	MinistriesCount    int        `json:"ministries_count"`
	YearsCovered       []int      `json:"years_covered"`
	UniqueUFs          []string   `json:"unique_ufs"`
	UniquePartidos     []string   `json:"unique_partidos"`
	AllMinistries      []Ministry `json:"all_ministries"`
	TopMinistries      []Ministry `json:"top_ministries"`
}

// Ministries returns the full roster, falling back to the top list when the
// complete one is absent (older backend payloads).
func (s Summary) Ministries() []Ministry {
	if len(s.AllMinistries) > 0 {
		return s.AllMinistries
	}
	return s.TopMinistries
}

// MinistryNames returns the names of every ministry in the roster.
func (s Summary) MinistryNames() []string {
	ms := s.Ministries()
	names := make([]string, 0, len(ms))
	for _, m := range ms {
		names = append(names, m.Ministry)
	}
	return names
}

// RelatedMinistryNames returns only ministries flagged with a prior
// relationship.
func (s Summary) RelatedMinistryNames() []string {
	var names []string
	for _, m := range s.Ministries() {
		if m.HasRelationship {
			names = append(names, m.Ministry)
		}
	}
	return names
}
