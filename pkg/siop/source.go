package siop

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/innovatis-mc/emendas-cli/internal/model"
	"github.com/innovatis-mc/emendas-cli/internal/normalize"
	"github.com/innovatis-mc/emendas-cli/internal/reconcile"
)

// Source adapts the backend client to the reconciler's data interface,
// paging through the bulk endpoint and normalizing raw records.
type Source struct {
	c        Client
	pageSize int
}

var _ reconcile.Source = (*Source)(nil)

// NewSource wraps a backend client. pageSize <= 0 uses the default.
func NewSource(c Client, pageSize int) *Source {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Source{c: c, pageSize: pageSize}
}

func (s *Source) Summary(ctx context.Context) (model.Summary, error) {
	return s.c.Summary(ctx)
}

// Opportunities fetches the full dataset page by page.
func (s *Source) Opportunities(ctx context.Context) ([]model.Opportunity, error) {
	var raws []normalize.Record
	offset := 0
	for {
		resp, err := s.c.Opportunities(ctx, Page{Limit: s.pageSize, Offset: offset})
		if err != nil {
			return nil, eris.Wrapf(err, "siop: fetch page at offset %d", offset)
		}
		raws = append(raws, resp.Opportunities...)

		offset += len(resp.Opportunities)
		if len(resp.Opportunities) == 0 || offset >= resp.Total {
			break
		}
	}

	zap.L().Info("bulk dataset loaded", zap.Int("records", len(raws)))
	return normalize.Opportunities(raws), nil
}

func (s *Source) Search(ctx context.Context, q reconcile.SearchQuery) ([]model.Opportunity, error) {
	resp, err := s.c.Search(ctx, SearchParams{
		Term:        q.Term,
		Years:       q.Years,
		RP:          q.RP,
		Modalidades: q.Modalidades,
		UFs:         q.UFs,
		Partidos:    q.Partidos,
	})
	if err != nil {
		return nil, err
	}
	return normalize.Opportunities(resp.Opportunities), nil
}
