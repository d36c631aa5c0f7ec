package service

import (
	"context"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/repository"
)

// HistoryService reads the audit trail of an entity
type HistoryService interface {
	List(ctx context.Context, table string, id int64, limit, offset uint64) ([]*history.Record, error)
}

type historyService struct {
	historyRepo repository.HistoryRepository
	registry    *history.Registry
}

// NewHistoryService creates a new history service
func NewHistoryService(historyRepo repository.HistoryRepository, registry *history.Registry) HistoryService {
	return &historyService{historyRepo: historyRepo, registry: registry}
}

func (s *historyService) List(ctx context.Context, table string, id int64, limit, offset uint64) ([]*history.Record, error) {
	if _, ok := s.registry.Lookup(table); !ok {
		return nil, domain.BadParameterf("unknown table %q", table)
	}
	if err := requireID(id, table); err != nil {
		return nil, err
	}
	return s.historyRepo.List(ctx, repository.HistoryFilter{
		Table:   table,
		TableID: id,
		Limit:   limit,
		Offset:  offset,
	})
}
