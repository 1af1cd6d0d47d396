package config

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	model "pph-connect.com/pph-connect/internal/models"
)

func New(dsn string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Project{},
		&model.ProjectAssignment{},
		&model.Question{},
		&model.Task{},
		&model.Answer{},
		&model.ReviewTask{},
		&model.Review{},
		&model.TrainingCompletion{},
		&model.WorkerQuality{},
	); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	return db
}
