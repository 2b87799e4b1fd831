// Command seed fills a development database with demo storytellers.
package main

import (
	"flag"
	"log"

	"github.com/arvi1709/AI-library/internal/config"
	"github.com/arvi1709/AI-library/internal/database"
	"github.com/arvi1709/AI-library/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numStories := flag.Int("stories", 80, "Number of stories to create")
	engagement := flag.Int("engagement", 20, "Chance in percent that a reader interacts with a story")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", true, "Use the minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Generate without writing")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumStories:  *numStories,
		Engagement:  *engagement,
		ShouldClean: *shouldClean,
		Factory:     seed.FactoryOptions{SkipBcrypt: *fast, DryRun: *dryRun},
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users and %d stories. Every account's password is %q.", res.Users, res.Stories, seed.DemoPassword)
}
