package models

import "time"

// Branch: sucursal o tauser (terminal de autoservicio) con stock propio de efectivo
type Branch struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	Location  string `gorm:"size:200"`
	Phone     string `gorm:"size:50"` // opcional
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
