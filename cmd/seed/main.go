// Command main fills the database with generated forum data.
package main

import (
	"context"
	"flag"
	"log"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/seed"
)

func main() {
	preset := flag.String("preset", "small", "Built-in preset to apply (small, demo)")
	presetFile := flag.String("preset-file", "", "Path to a YAML preset; overrides -preset")
	clean := flag.Bool("clean", false, "Delete existing forum data before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 keeps the preset's value")
	flag.Parse()

	var (
		opts seed.Options
		err  error
	)
	if *presetFile != "" {
		opts, err = seed.LoadPreset(*presetFile)
	} else {
		opts, err = seed.Preset(*preset)
	}
	if err != nil {
		log.Fatalf("Failed to load preset: %v", err)
	}
	if *clean {
		opts.Clean = true
	}
	if *randSeed != 0 {
		opts.Seed = *randSeed
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sum, err := seed.NewSeeder(db).Run(context.Background(), opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d posts, %d votes, %d replies, %d friendships (%d pending invites)",
		sum.Users, sum.Posts, sum.Votes, sum.Replies, sum.Friendships, sum.Pending)
}
