package database

import (
	"log"

	"cambios-backend/internal/config"
	"cambios-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("No se pudo conectar a la base de datos: %v", err)
	}

	err = DB.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Currency{},
		&models.StockEntry{},
		&models.StockMovement{},
		&models.StockMovementLine{},
	)
	if err != nil {
		log.Fatalf("Error en AutoMigrate: %v", err)
	}

	log.Println("Conexión a la base de datos lista. Migración completada.")
}
