package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort          string
	DatabaseDSN       string
	JWTSecret         string
	CORSOrigins       string
	DenominationsPath string        // catálogo JSON de denominaciones por divisa
	LockTimeout       time.Duration // espera máxima por locks de fila de stock
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:       getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=cambios port=5432 sslmode=disable"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		DenominationsPath: getEnv("DENOMINATIONS_PATH", "./configs/currency_denominations.json"),
		LockTimeout:       getDurationMs("LOCK_TIMEOUT_MS", 3000),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET no está definido; es obligatorio para producción.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET debe tener al menos 32 caracteres.")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=cambios port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN usa el valor por defecto; definí tu propia conexión Postgres en producción.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDurationMs(key string, defMs int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(defMs) * time.Millisecond
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		log.Printf("[WARN] %s inválido (%q), se usa %dms", key, raw, defMs)
		return time.Duration(defMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
