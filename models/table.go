package models

// Table adalah satu meja fisik ("mesa"). Baris dibuat di luar service,
// service hanya mengubah Name, SeatCount dan Occupied.
type Table struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(100);not null;default:''" json:"name"`
	SeatCount int    `gorm:"not null;default:0" json:"seatCount"`
	Occupied  bool   `gorm:"not null;default:false;index" json:"occupied"`
}

func (Table) TableName() string {
	return "mesas"
}
