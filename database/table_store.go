package database

import (
	"context"

	"github.com/yeremiapane/mesas-live/models"
	"gorm.io/gorm"
)

// TableStore is the gorm-backed table store. It works on mysql, postgres and
// sqlite alike; instead of RETURNING, each update re-reads its row inside the
// same transaction.
type TableStore struct {
	DB *gorm.DB
}

func NewTableStore(db *gorm.DB) *TableStore {
	return &TableStore{DB: db}
}

// ListTables -> seluruh meja, urut id ascending
func (s *TableStore) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// ReserveIfVacant: UPDATE ... WHERE id = ? AND occupied = false
func (s *TableStore) ReserveIfVacant(ctx context.Context, key uint, name string, seats int) ([]models.Table, error) {
	var out []models.Table
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Table{}).
			Where("id = ? AND occupied = ?", key, false).
			Updates(map[string]interface{}{
				"name":       name,
				"seat_count": seats,
				"occupied":   true,
			})
		if res.Error != nil {
			return res.Error
		}
		// false -> true always changes the row, so zero here means no match
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Where("id = ?", key).Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TableStore) UpdateParty(ctx context.Context, key uint, name string, seats int) ([]models.Table, error) {
	return s.overwrite(ctx, key, name, seats, true)
}

func (s *TableStore) SetOccupancy(ctx context.Context, key uint, name string, seats int, occupied bool) ([]models.Table, error) {
	return s.overwrite(ctx, key, name, seats, occupied)
}

// overwrite runs an unconditional update. MySQL reports changed rather than
// matched rows, so a no-op write would look like a miss; the re-read decides.
func (s *TableStore) overwrite(ctx context.Context, key uint, name string, seats int, occupied bool) ([]models.Table, error) {
	var out []models.Table
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Table{}).
			Where("id = ?", key).
			Updates(map[string]interface{}{
				"name":       name,
				"seat_count": seats,
				"occupied":   occupied,
			}).Error
		if err != nil {
			return err
		}
		return tx.Where("id = ?", key).Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
