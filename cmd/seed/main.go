package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/database"
	"github.com/gatewarden/gatewarden/internal/models"
)

// Seeds a development database with a default operator and a demo route
// guarded by a login challenge.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	password := os.Getenv("GW_SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "changeme"
	}

	var count int64
	db.Model(&models.Operator{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		op := models.Operator{Username: "admin", Enabled: true}
		if err := op.SetPassword(password); err != nil {
			log.Fatalf("hash password: %v", err)
		}
		if err := db.Create(&op).Error; err != nil {
			log.Fatalf("create operator: %v", err)
		}
		log.Printf("created operator %q", op.Username)
	}

	db.Model(&models.ProxyRoute{}).Where("subdomain = ?", "demo").Count(&count)
	if count == 0 {
		loginCfg, _ := json.Marshal(map[string]string{"username": "demo", "password": "demo"})
		route := models.ProxyRoute{
			Enabled:     true,
			Title:       "Demo backend",
			Subdomain:   "demo",
			Destination: "http://127.0.0.1:3000",
			AuthSteps: []models.AuthStep{
				{
					Order:           0,
					ChallengeTypeID: challenge.TypeLogin,
					Config:          string(loginCfg),
				},
			},
		}
		if err := db.Create(&route).Error; err != nil {
			log.Fatalf("create demo route: %v", err)
		}
		log.Printf("created demo route %q", route.Subdomain)
	}
}
