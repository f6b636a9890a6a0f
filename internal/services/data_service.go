package services

import (
	"context"

	"github.com/soaringjerry/awap/internal/models"
)

type StatsStore interface {
	TableStats(ctx context.Context) ([]models.TableStat, error)
}

// DataService reports the size of the application's tables.
type DataService struct {
	store StatsStore
}

func NewDataService(store StatsStore) *DataService {
	return &DataService{store: store}
}

func (s *DataService) Tables(ctx context.Context) ([]models.TableStat, error) {
	return s.store.TableStats(ctx)
}
