package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/wecubehq/wecube-backend/internal/config"
	"github.com/wecubehq/wecube-backend/internal/db"
	"github.com/wecubehq/wecube-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedListing struct {
	Title       string
	Description string
	Price       float64
	Condition   string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := gdb.AutoMigrate(&model.User{}, &model.Listing{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	canSeed, err := shouldSeed(gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("listings already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	seller := &model.User{
		UID:       "seed-seller",
		FirstName: "Demo",
		LastName:  "Seller",
		Email:     "demo-seller@example.com",
	}
	if err := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(seller).Error; err != nil {
		return fmt.Errorf("seed seller: %w", err)
	}

	listings := buildSeedListings()

	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", seller.UID).Delete(&model.Listing{}).Error; err != nil {
			return fmt.Errorf("clear old seed listings: %w", err)
		}
		for i, sl := range listings {
			listing := &model.Listing{
				Ref:         fmt.Sprintf("listing_seed-%03d", i+1),
				UserID:      seller.UID,
				Title:       sl.Title,
				Description: sl.Description,
				Price:       sl.Price,
				Condition:   sl.Condition,
				Status:      model.ListingStatusActive,
				DeliveryOptions: model.DeliveryOptions{
					Shipping: true,
				},
			}
			if err := tx.Create(listing).Error; err != nil {
				return fmt.Errorf("seed listing %q: %w", sl.Title, err)
			}
		}
		log.Printf("seeded %d listings", len(listings))
		return nil
	})
}

func shouldSeed(gdb *gorm.DB) (bool, error) {
	if strings.EqualFold(os.Getenv("FORCE_SEED"), "true") {
		return true, nil
	}
	var count int64
	if err := gdb.Model(&model.Listing{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count listings: %w", err)
	}
	return count == 0, nil
}

func buildSeedListings() []seedListing {
	return []seedListing{
		{Title: "GAN 12 MagLev 3x3", Description: "Flagship magnetic 3x3, barely used. Comes with original case and extra magnets.", Price: 54.99, Condition: "like-new"},
		{Title: "MoYu RS3 M 2020", Description: "The classic budget speed cube. Lubed with DNM-37, turns great.", Price: 9.50, Condition: "good"},
		{Title: "YJ MGC Elite 4x4", Description: "Well broken in, stable and fast. Small scuff on the white face center.", Price: 22.00, Condition: "good"},
		{Title: "QiYi MS 2x2 Magnetic", Description: "Pocket cube with light magnets, great for one-handed practice.", Price: 7.25, Condition: "like-new"},
		{Title: "X-Man Galaxy V2 Megaminx", Description: "Sculpted ridged design, factory magnets. Stickers intact.", Price: 18.00, Condition: "fair"},
		{Title: "GAN Skewb M Enhanced", Description: "Strong magnet version, corner cutting is forgiving.", Price: 16.50, Condition: "good"},
		{Title: "MoYu Weilong WR M V9", Description: "Sealed in box, won as a competition prize. Ball-core version.", Price: 39.99, Condition: "new"},
		{Title: "QiYi Clock Magnetic", Description: "Pin mechanism is smooth, dials click cleanly. Rare to find second-hand.", Price: 21.00, Condition: "good"},
		{Title: "Vintage Rubik's Brand 3x3 (1980s)", Description: "Original Hungarian-era cube, stiff but all stickers original. Collector's piece.", Price: 45.00, Condition: "fair"},
		{Title: "YuXin Little Magic Pyraminx", Description: "Great starter pyraminx, tips hold well.", Price: 6.00, Condition: "good"},
		{Title: "GAN 356 Air (2019)", Description: "Older flagship, still a smooth main. Spare GES nuts included.", Price: 14.00, Condition: "good"},
		{Title: "DaYan TengYun V2 M", Description: "Quiet and buttery. Ideal if you practice late at night.", Price: 25.50, Condition: "like-new"},
	}
}
