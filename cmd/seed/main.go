package main

import (
	"errors"
	"flag"
	"log"

	"github.com/kidcanvas/api/internal/auth"
	"github.com/kidcanvas/api/internal/config"
	"github.com/kidcanvas/api/internal/database"
	"github.com/kidcanvas/api/internal/model"
	"gorm.io/gorm"
)

var processTypes = []model.ProcessType{
	{Name: "story", Description: "Generate an illustrated story from the drawing"},
	{Name: "animation", Description: "Animate the characters in the drawing"},
	{Name: "coloring", Description: "Produce a printable coloring page from the drawing"},
}

func main() {
	adminEmail := flag.String("admin-email", "", "Create an admin account with this email")
	adminPassword := flag.String("admin-password", "", "Password for the admin account")
	adminName := flag.String("admin-name", "Administrator", "Display name for the admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	inserted, skipped := seedProcessTypes(db)
	log.Printf("Process types: inserted=%d, skipped=%d", inserted, skipped)

	if *adminEmail != "" {
		if *adminPassword == "" {
			log.Fatal("-admin-password is required when -admin-email is set")
		}
		if err := seedAdmin(db, *adminName, *adminEmail, *adminPassword); err != nil {
			log.Fatalf("Failed to seed admin account: %v", err)
		}
	}

	log.Println("Seeding complete")
}

func seedProcessTypes(db *gorm.DB) (inserted, skipped int) {
	for _, pt := range processTypes {
		var existing model.ProcessType
		err := db.Where("name = ?", pt.Name).First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("Failed to check process type %q: %v", pt.Name, err)
		}
		if err := db.Create(&pt).Error; err != nil {
			log.Fatalf("Failed to insert process type %q: %v", pt.Name, err)
		}
		inserted++
	}
	return inserted, skipped
}

func seedAdmin(db *gorm.DB, name, email, password string) error {
	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("Admin account %s already exists, skipping", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Created admin account %s", email)
	return nil
}
