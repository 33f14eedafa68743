package models

import "time"

type CurrencyStatus string

const (
	CurrencyActive   CurrencyStatus = "activa"
	CurrencyInactive CurrencyStatus = "inactiva"
)

// Currency: divisa operada por la casa de cambios (código ISO 4217)
type Currency struct {
	Code      string         `gorm:"primaryKey;size:3"`
	Name      string         `gorm:"size:50;not null"`
	Symbol    string         `gorm:"size:5"`
	Status    CurrencyStatus `gorm:"size:10;not null;default:activa"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
