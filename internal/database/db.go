package database

import (
	"log"

	"auditoria-backend/internal/config"
	"auditoria-backend/internal/models"

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
		&models.User{},
		&models.Reference{},
		&models.Location{},
		&models.Count{},
		&models.CountEvent{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("Error en AutoMigrate: %v", err)
	}

	// Índices parciales que AutoMigrate no cubre: acelerar la carga de
	// ubicaciones vivas y el último seq del historial.
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_locations_live ON locations(reference_code) WHERE validated_at_round IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_count_events_ref_created ON count_events(reference_code, created_at)")

	log.Println("Conexión a base de datos lista. Migración completada.")
}
