package main

import (
	"log"
	"os"

	"recoup/internal/config"
	"recoup/internal/models"
	"recoup/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()
	settings := config.Load()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.Connect(settings.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.Printf("⚠️ Failed to get SQL DB instance: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			log.Printf("⚠️ Failed to close PostgreSQL connection: %v", err)
		}
	}()

	operatorRepo := repositories.NewOperatorRepository(db)
	if _, err := operatorRepo.GetByEmail(adminEmail); err == nil {
		log.Println("Admin operator already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	admin := models.Operator{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		Name:         os.Getenv("ADMIN_NAME"),
		Role:         "admin",
		TokenVersion: 1,
	}

	if err := operatorRepo.Create(&admin); err != nil {
		log.Fatal("Failed to create admin operator:", err)
	}

	log.Println("✅ Admin operator created successfully!")
}
