package db

import (
	"stl311/internal/models"
)

// AutoMigrate creates the relational schema, then adds the pieces gorm
// cannot express: the PostGIS geometry column and its GIST index. The
// geometry is derived from srx/sry by the store on every upsert.
func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	if err := db.Gorm.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		return err
	}

	if err := db.Gorm.AutoMigrate(
		&models.ServiceRequest{},
		&models.ServiceRequestUpdate{},
		&models.SyncRun{},
		&models.SyncState{},
	); err != nil {
		return err
	}

	if err := db.Gorm.Exec(
		"ALTER TABLE service_requests ADD COLUMN IF NOT EXISTS geometry geometry(Point,3857)",
	).Error; err != nil {
		return err
	}
	return db.Gorm.Exec(
		"CREATE INDEX IF NOT EXISTS idx_service_requests_geometry ON service_requests USING GIST (geometry)",
	).Error
}
