package main

import (
	"log"
	"os"

	"member-portal-be/internal/model"
	"member-portal-be/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM migration...")

	log.Println("Step 1: Setting up extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.User{},
		&model.MembershipTier{},
		&model.MembershipRenewal{},
		&model.MemberFeedback{},
		&model.Referral{},
		&model.CommissionRule{},
		&model.CommissionPayout{},
		&model.Notification{},
		&model.NotificationTemplate{},
		&model.AuditLog{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Seeding config rows...")
	seedConfigRows(db)

	log.Println("Migration completed successfully.")
}

// seedConfigRows inserts the tier and commission-rule config rows, skipping
// any that already exist so re-runs are safe.
func seedConfigRows(db *gorm.DB) {
	tiers := []model.MembershipTier{
		{Name: model.MemberTypeRegular, Ordinal: 0, Price: 0, DurationMonths: 12, Benefits: datatypes.NewJSONSlice([]string{"Member directory", "Event access"})},
		{Name: model.MemberTypePremium, Ordinal: 1, Price: 99, DurationMonths: 12, Benefits: datatypes.NewJSONSlice([]string{"Member directory", "Event access", "Priority referrals", "Training library"})},
		{Name: model.MemberTypeLifetime, Ordinal: 2, Price: 499, DurationMonths: 0, Benefits: datatypes.NewJSONSlice([]string{"All premium benefits", "Lifetime membership"})},
		{Name: model.MemberTypeHonorary, Ordinal: 3, Price: 0, DurationMonths: 0, Benefits: datatypes.NewJSONSlice([]string{"All premium benefits", "Honorary recognition"})},
	}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).Create(&tiers).Error; err != nil {
		log.Printf("Warn: Failed to seed membership tiers: %v", err)
	}

	rules := []model.CommissionRule{
		{Tier: "TIER_1", Percentage: 5, FlatAmount: 0, MinimumSale: 50},
		{Tier: "TIER_2", Percentage: 7.5, FlatAmount: 10, MinimumSale: 50},
		{Tier: "TIER_3", Percentage: 10, FlatAmount: 25, MinimumSale: 100},
	}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "tier"}}, DoNothing: true}).Create(&rules).Error; err != nil {
		log.Printf("Warn: Failed to seed commission rules: %v", err)
	}
}
