package seed

import (
	"fmt"
	"log"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers   int
	NumStories int
	// Engagement is the chance, in percent, that a given reader interacts
	// with a given story.
	Engagement  int
	ShouldClean bool
	Factory     FactoryOptions
}

// Result counts what Seed created.
type Result struct {
	Users    int
	Stories  int
	Comments int
	Likes    int
	Follows  int
}

// tables in delete order; children before parents.
var tables = []string{
	"account_deletion_steps",
	"account_deletions",
	"notifications",
	"reports",
	"empathy_ratings",
	"bookmarks",
	"follows",
	"story_likes",
	"like_records",
	"comments",
	"stories",
	"users",
}

// Seed populates the database with demo storytellers, stories and the
// engagement between them.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	if opts.NumUsers <= 0 {
		return nil, fmt.Errorf("seed needs at least one user")
	}
	if opts.Engagement <= 0 {
		opts.Engagement = 20
	}
	log.Printf("🌱 Seeding %d users and %d stories...", opts.NumUsers, opts.NumStories)

	if opts.ShouldClean && !opts.Factory.DryRun {
		if err := Clear(db); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	f := NewFactory(db, opts.Factory)
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", res.Users)

	stories := make([]*models.Story, 0, opts.NumStories)
	for i := 0; i < opts.NumStories; i++ {
		stories = append(stories, f.BuildStory(users[f.rnd.Intn(len(users))]))
	}
	if err := f.CreateStoriesBatch(stories); err != nil {
		return nil, fmt.Errorf("create stories: %w", err)
	}
	res.Stories = len(stories)
	log.Printf("✓ %d stories created", res.Stories)

	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID || f.rnd.Intn(100) >= opts.Engagement {
				continue
			}
			if err := f.Follow(a, b); err != nil {
				return nil, fmt.Errorf("follow: %w", err)
			}
			res.Follows++
		}
	}

	for _, story := range stories {
		if story.Status != models.StoryStatusPublished {
			continue
		}
		for _, reader := range users {
			if reader.ID == story.AuthorID || f.rnd.Intn(100) >= opts.Engagement {
				continue
			}
			if err := f.Like(reader, story); err != nil {
				return nil, fmt.Errorf("like: %w", err)
			}
			res.Likes++
			if err := f.Rate(reader, story); err != nil {
				return nil, fmt.Errorf("rate: %w", err)
			}
			if f.rnd.Intn(3) == 0 {
				if _, err := f.CreateComment(reader, story); err != nil {
					return nil, fmt.Errorf("comment: %w", err)
				}
				res.Comments++
			}
			if f.rnd.Intn(4) == 0 {
				if err := f.Bookmark(reader, story); err != nil {
					return nil, fmt.Errorf("bookmark: %w", err)
				}
			}
		}
	}
	log.Printf("✓ %d follows, %d likes, %d comments", res.Follows, res.Likes, res.Comments)

	log.Println("🎉 Database seeding completed successfully!")
	return res, nil
}

// Clear deletes every row the seeder can create.
func Clear(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}
