package database

import (
	"fmt"

	"github.com/yeremiapane/mesas-live/models"
	"github.com/yeremiapane/mesas-live/utils"
	"gorm.io/gorm"
)

const defaultSeats = 2

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Table{}); err != nil {
		return fmt.Errorf("auto migrate mesas: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedTables -> buat n meja kosong, hanya jika belum ada meja sama sekali.
// Returns the number of rows created.
func SeedTables(db *gorm.DB, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	var count int64
	if err := db.Model(&models.Table{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		utils.InfoLogger.Printf("Skipping seed: %d tables already provisioned", count)
		return 0, nil
	}

	tables := DefaultTables(n)
	if err := db.Create(&tables).Error; err != nil {
		return 0, err
	}
	utils.InfoLogger.Printf("Seeded %d tables", n)
	return n, nil
}

// DefaultTables -> n meja kosong dengan key 1..n
func DefaultTables(n int) []models.Table {
	tables := make([]models.Table, 0, n)
	for i := 1; i <= n; i++ {
		tables = append(tables, models.Table{
			ID:        uint(i),
			Name:      fmt.Sprintf("Mesa %d", i),
			SeatCount: defaultSeats,
		})
	}
	return tables
}
