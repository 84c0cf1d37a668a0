package repository

import (
	"context"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"gorm.io/gorm"
)

// IngestRunRepository tracks ingestor cycles.
type IngestRunRepository struct {
	db *gorm.DB
}

func NewIngestRunRepository(db *gorm.DB) *IngestRunRepository {
	return &IngestRunRepository{db: db}
}

func (r *IngestRunRepository) Create(ctx context.Context, run *domain.IngestRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves every field of run.
func (r *IngestRunRepository) Update(ctx context.Context, run *domain.IngestRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *IngestRunRepository) GetByID(ctx context.Context, id string) (*domain.IngestRun, error) {
	var run domain.IngestRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the newest runs first.
func (r *IngestRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	var runs []domain.IngestRun
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
