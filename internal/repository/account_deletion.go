package repository

import (
	"context"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
)

// AccountDeletionRepository keeps the resumable deletion log and performs the
// bulk deletes each step needs. Every purge method is idempotent.
type AccountDeletionRepository interface {
	FindOpen(ctx context.Context, userID uint) (*models.AccountDeletion, error)
	Get(ctx context.Context, id uint) (*models.AccountDeletion, error)
	List(ctx context.Context, status models.DeletionStatus) ([]models.AccountDeletion, error)
	Create(ctx context.Context, deletion *models.AccountDeletion) error
	Claim(ctx context.Context, id uint, now, staleBefore time.Time) (bool, error)
	SaveProgress(ctx context.Context, deletion *models.AccountDeletion) error
	SaveStep(ctx context.Context, step *models.AccountDeletionStep) error

	StoryRefs(ctx context.Context, userID uint) ([]uint, []string, error)
	DeleteStoryComments(ctx context.Context, storyIDs []uint) error
	DeleteStoryLikes(ctx context.Context, storyIDs []uint) error
	DeleteStoryReports(ctx context.Context, storyIDs []uint) error
	DeleteStories(ctx context.Context, storyIDs []uint) error
	DetachUser(ctx context.Context, userID uint) error
	DeleteNotifications(ctx context.Context, userID uint) error
	DeleteUser(ctx context.Context, userID uint) error
	Footprint(ctx context.Context, userID uint, storyIDs []uint) (map[string]int64, error)
}

type accountDeletionRepository struct {
	db *gorm.DB
}

func NewAccountDeletionRepository(db *gorm.DB) AccountDeletionRepository {
	return &accountDeletionRepository{db: db}
}

func preloadSteps(db *gorm.DB) *gorm.DB {
	return db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindOpen returns the user's latest unfinished deletion, or nil, nil.
func (r *accountDeletionRepository) FindOpen(ctx context.Context, userID uint) (*models.AccountDeletion, error) {
	var d models.AccountDeletion
	err := preloadSteps(r.db.WithContext(ctx)).
		Where("user_id = ? AND status <> ?", userID, models.DeletionCompleted).
		Order("id DESC").
		Take(&d).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &d, nil
}

func (r *accountDeletionRepository) Get(ctx context.Context, id uint) (*models.AccountDeletion, error) {
	var d models.AccountDeletion
	if err := preloadSteps(r.db.WithContext(ctx)).First(&d, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Account deletion", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &d, nil
}

// List returns deletions in the given status, or all of them when status is empty.
func (r *accountDeletionRepository) List(ctx context.Context, status models.DeletionStatus) ([]models.AccountDeletion, error) {
	out := []models.AccountDeletion{}
	q := preloadSteps(r.db.WithContext(ctx)).Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// Create stores the deletion and its steps together.
func (r *accountDeletionRepository) Create(ctx context.Context, deletion *models.AccountDeletion) error {
	if err := r.db.WithContext(ctx).Create(deletion).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Claim marks the deletion running for the caller. It reports false while
// another run holds a claim taken after staleBefore.
func (r *accountDeletionRepository) Claim(ctx context.Context, id uint, now, staleBefore time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AccountDeletion{}).
		Where("id = ? AND (status <> ? OR claimed_at IS NULL OR claimed_at < ?)", id, models.DeletionRunning, staleBefore).
		Updates(map[string]interface{}{"status": models.DeletionRunning, "claimed_at": now})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *accountDeletionRepository) SaveProgress(ctx context.Context, deletion *models.AccountDeletion) error {
	err := r.db.WithContext(ctx).Model(deletion).
		Select("status", "attempts", "last_error", "completed_at", "story_ids", "story_images").
		Updates(deletion).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountDeletionRepository) SaveStep(ctx context.Context, step *models.AccountDeletionStep) error {
	err := r.db.WithContext(ctx).Model(step).
		Select("status", "error", "completed_at").
		Updates(step).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// StoryRefs returns the ids and banner URLs of every story the user wrote.
func (r *accountDeletionRepository) StoryRefs(ctx context.Context, userID uint) ([]uint, []string, error) {
	var rows []struct {
		ID       uint
		ImageURL string
	}
	err := r.db.WithContext(ctx).Model(&models.Story{}).
		Select("id", "image_url").
		Where("author_id = ?", userID).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	ids := make([]uint, 0, len(rows))
	images := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		if row.ImageURL != "" {
			images = append(images, row.ImageURL)
		}
	}
	return ids, images, nil
}

func (r *accountDeletionRepository) deleteWhere(ctx context.Context, query string, arg interface{}, targets ...interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range targets {
			if err := tx.Where(query, arg).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *accountDeletionRepository) DeleteStoryComments(ctx context.Context, storyIDs []uint) error {
	if len(storyIDs) == 0 {
		return nil
	}
	return r.deleteWhere(ctx, "story_id IN ?", storyIDs, &models.Comment{})
}

func (r *accountDeletionRepository) DeleteStoryLikes(ctx context.Context, storyIDs []uint) error {
	if len(storyIDs) == 0 {
		return nil
	}
	return r.deleteWhere(ctx, "story_id IN ?", storyIDs, &models.StoryLike{}, &models.LikeRecord{})
}

// DeleteStoryReports also clears ratings and bookmarks that point at the stories.
func (r *accountDeletionRepository) DeleteStoryReports(ctx context.Context, storyIDs []uint) error {
	if len(storyIDs) == 0 {
		return nil
	}
	return r.deleteWhere(ctx, "story_id IN ?", storyIDs, &models.Report{}, &models.EmpathyRating{}, &models.Bookmark{})
}

func (r *accountDeletionRepository) DeleteStories(ctx context.Context, storyIDs []uint) error {
	if len(storyIDs) == 0 {
		return nil
	}
	return r.deleteWhere(ctx, "id IN ?", storyIDs, &models.Story{})
}

// DetachUser removes every edge that names the user: follows in both
// directions, and the user's likes, bookmarks, ratings and comments.
func (r *accountDeletionRepository) DetachUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR followee_id = ?", userID, userID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{&models.StoryLike{}, &models.Bookmark{}, &models.EmpathyRating{}} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("author_id = ?", userID).Delete(&models.Comment{}).Error
	})
}

func (r *accountDeletionRepository) DeleteNotifications(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{}).Error
}

func (r *accountDeletionRepository) DeleteUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, userID).Error
}

// Footprint counts the rows that still reference the user or their stories.
// A finished deletion leaves every count at zero.
func (r *accountDeletionRepository) Footprint(ctx context.Context, userID uint, storyIDs []uint) (map[string]int64, error) {
	db := r.db.WithContext(ctx)
	if len(storyIDs) == 0 {
		// IN () is not valid SQL; 0 is never a story id.
		storyIDs = []uint{0}
	}
	counts := map[string]int64{}
	checks := []struct {
		name  string
		model interface{}
		query string
		args  []interface{}
	}{
		{"users", &models.User{}, "id = ?", []interface{}{userID}},
		{"stories", &models.Story{}, "author_id = ? OR id IN ?", []interface{}{userID, storyIDs}},
		{"comments", &models.Comment{}, "author_id = ? OR story_id IN ?", []interface{}{userID, storyIDs}},
		{"like_records", &models.LikeRecord{}, "story_id IN ?", []interface{}{storyIDs}},
		{"story_likes", &models.StoryLike{}, "user_id = ? OR story_id IN ?", []interface{}{userID, storyIDs}},
		{"reports", &models.Report{}, "story_id IN ?", []interface{}{storyIDs}},
		{"follows", &models.Follow{}, "follower_id = ? OR followee_id = ?", []interface{}{userID, userID}},
		{"bookmarks", &models.Bookmark{}, "user_id = ? OR story_id IN ?", []interface{}{userID, storyIDs}},
		{"empathy_ratings", &models.EmpathyRating{}, "user_id = ? OR story_id IN ?", []interface{}{userID, storyIDs}},
		{"notifications", &models.Notification{}, "user_id = ?", []interface{}{userID}},
	}
	for _, c := range checks {
		var n int64
		if err := db.Model(c.model).Where(c.query, c.args...).Count(&n).Error; err != nil {
			return nil, models.NewInternalError(err)
		}
		counts[c.name] = n
	}
	return counts, nil
}
