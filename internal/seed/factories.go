// Package seed provides helpers to create demo data for development
// databases. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "storyhouse"

// FactoryOptions tune how entities are generated.
type FactoryOptions struct {
	// MaxDays spreads created_at over this many days in the past.
	MaxDays int
	// SkipBcrypt stores a cheap hash so large seeds finish quickly.
	SkipBcrypt bool
	// DryRun assigns synthetic IDs without writing.
	DryRun bool
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts FactoryOptions
	rnd  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rnd: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(b)
	return f.hash, nil
}

// pastTime returns a realistic created_at within MaxDays.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rnd.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	user := &models.User{
		Name:         gofakeit.Name(),
		Email:        strings.ToLower(fmt.Sprintf("%s.%d@%s", gofakeit.Username(), gofakeit.Number(100, 999), gofakeit.DomainName())),
		PasswordHash: hash,
		CreatedAt:    f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Name, user.Email)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	if user.ImageURL == "" {
		user.ImageURL = models.DefaultUserImageURL(user.ID)
		if err := f.db.Model(user).Update("image_url", user.ImageURL).Error; err != nil {
			return nil, err
		}
	}
	return user, nil
}

// BuildStory constructs a story by author without persisting it.
func (f *Factory) BuildStory(author *models.User, overrides ...func(*models.Story)) *models.Story {
	created := f.pastTime()
	paragraphs := gofakeit.Paragraph(3, 4, 12, "\n\n")
	categories := f.pickCategories(1 + f.rnd.Intn(2))

	story := &models.Story{
		AuthorID:         author.ID,
		AuthorName:       author.DisplayName(),
		AuthorImageURL:   author.ImageURL,
		Title:            strings.TrimSuffix(gofakeit.Sentence(4+f.rnd.Intn(4)), "."),
		ShortDescription: gofakeit.Sentence(12),
		Content:          paragraphs,
		Summary:          gofakeit.Sentence(20),
		Tags:             datatypes.JSONSlice[string]{gofakeit.Word(), gofakeit.Word(), gofakeit.Hobby()},
		Categories:       datatypes.JSONSlice[string](categories),
		Status:           models.StoryStatusPublished,
		ImageURL:         models.DefaultStoryImageURL(created),
		FileName:         models.DefaultStoryFileName,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	// roughly one in eight stories waits for review
	if f.rnd.Intn(8) == 0 {
		story.Status = models.StoryStatusPendingReview
	}
	for _, override := range overrides {
		override(story)
	}
	return story
}

func (f *Factory) pickCategories(n int) []string {
	idx := f.rnd.Perm(len(models.MasterCategories))
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, models.MasterCategories[i])
	}
	return out
}

// CreateStoriesBatch persists multiple stories in a single DB call.
func (f *Factory) CreateStoriesBatch(stories []*models.Story) error {
	if len(stories) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, s := range stories {
			f.nextID++
			s.ID = f.nextID
		}
		log.Printf("[dry-run] CreateStoriesBatch: %d stories (no DB write)", len(stories))
		return nil
	}
	return f.db.CreateInBatches(stories, 100).Error
}

// CreateComment persists a comment by user on story.
func (f *Factory) CreateComment(user *models.User, story *models.Story) (*models.Comment, error) {
	comment := &models.Comment{
		StoryID:        story.ID,
		AuthorID:       user.ID,
		AuthorName:     user.DisplayName(),
		AuthorImageURL: user.ImageURL,
		Text:           gofakeit.Sentence(8 + f.rnd.Intn(12)),
		CreatedAt:      story.CreatedAt.Add(time.Duration(1+f.rnd.Intn(72)) * time.Hour),
	}
	if f.opts.DryRun {
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Like adds user to the story's like set, creating the record on first like.
func (f *Factory) Like(user *models.User, story *models.Story) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.LikeRecord{StoryID: story.ID}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.StoryLike{StoryID: story.ID, UserID: user.ID}).Error
	})
}

// Follow makes follower follow followee. Self-follows are ignored.
func (f *Factory) Follow(follower, followee *models.User) error {
	if f.opts.DryRun || follower.ID == followee.ID {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}).Error
}

// Bookmark saves story for user.
func (f *Factory) Bookmark(user *models.User, story *models.Story) error {
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Bookmark{UserID: user.ID, StoryID: story.ID}).Error
}

// Rate records a random empathy rating, skewed towards the upper half.
func (f *Factory) Rate(user *models.User, story *models.Story) error {
	if f.opts.DryRun {
		return nil
	}
	rating := models.EmpathyMax/2 + f.rnd.Intn(models.EmpathyMax/2+1)
	return f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "story_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
	}).Create(&models.EmpathyRating{StoryID: story.ID, UserID: user.ID, Rating: rating}).Error
}
