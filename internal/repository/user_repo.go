package repository

import (
	"context"
	"fmt"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository persists parsed users with their address, geo and company.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// SaveBatch inserts users in one transaction and returns how many were new.
// A user already stored for the same (user_id, extraction_ts) is skipped, so
// retrying a batch is safe. Companies are shared by key and inserted once.
func (r *UserRepository) SaveBatch(ctx context.Context, users []*domain.User) (int, error) {
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, user := range users {
			var n int64
			if err := tx.Model(&domain.User{}).
				Where("user_id = ? AND extraction_ts = ?", user.UserID, user.ExtractionTS).
				Count(&n).Error; err != nil {
				return fmt.Errorf("failed to check user %d: %w", user.UserID, err)
			}
			if n > 0 {
				continue
			}

			if user.Company != nil {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user.Company).Error; err != nil {
					return fmt.Errorf("failed to upsert company %q: %w", user.Company.Name, err)
				}
			}
			if err := tx.Omit("Company").Create(user).Error; err != nil {
				return fmt.Errorf("failed to insert user %d: %w", user.UserID, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListByExtraction returns the users of one extraction with their associations loaded.
func (r *UserRepository) ListByExtraction(ctx context.Context, extractionTS int64) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Preload("Address.Geo").
		Preload("Company").
		Where("extraction_ts = ?", extractionTS).
		Order("user_id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CountCompanies returns the number of distinct companies stored.
func (r *UserRepository) CountCompanies(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Company{}).Count(&n).Error
	return n, err
}
