// Command main runs the database seeder.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"appx/internal/config"
	"appx/internal/database"
	"appx/internal/middleware"
	"appx/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	maxDays := flag.Int("max-days", 90, "Spread post timestamps over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s, err := seed.NewSeeder(db, seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		MaxDays:     *maxDays,
		RandSeed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	if _, err := s.Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	middleware.Logger.Info("seeded accounts share one password",
		slog.String("password", seed.DemoPassword),
		slog.String("login", "demo@example.com"))
}
