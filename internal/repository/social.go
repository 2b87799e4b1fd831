package repository

import (
	"context"
	"time"

	"github.com/arvi1709/AI-library/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialRepository owns the follow, like and bookmark edges. Each toggle is a
// single-row delete or insert inside one transaction, so concurrent toggles
// never overwrite each other's members.
type SocialRepository interface {
	ToggleFollow(ctx context.Context, followerID, followeeID uint) (bool, error)
	ToggleLike(ctx context.Context, storyID, userID uint) (*models.LikeRecord, error)
	ToggleBookmark(ctx context.Context, userID, storyID uint) (bool, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	GetLikeRecord(ctx context.Context, storyID uint) (*models.LikeRecord, error)
	ListLikeRecords(ctx context.Context) ([]models.LikeRecord, error)
}

type socialRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSocialRepository creates a new SocialRepository
func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db, now: time.Now}
}

// ToggleFollow removes the edge if present, otherwise adds it. It reports
// whether followerID follows followeeID afterwards.
func (r *socialRepository) ToggleFollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var following bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			following = false
			return nil
		}
		following = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID, CreatedAt: r.now()}).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return following, nil
}

// ToggleLike adds or removes userID from the story's like set and returns the
// record as it stands afterwards. The record itself is never removed here.
func (r *socialRepository) ToggleLike(ctx context.Context, storyID, userID uint) (*models.LikeRecord, error) {
	record := &models.LikeRecord{StoryID: storyID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.LikeRecord{StoryID: storyID, CreatedAt: now}).Error; err != nil {
			return err
		}

		res := tx.Where("story_id = ? AND user_id = ?", storyID, userID).Delete(&models.StoryLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.StoryLike{StoryID: storyID, UserID: userID, CreatedAt: now}).Error; err != nil {
				return err
			}
		}

		if err := tx.First(record, "story_id = ?", storyID).Error; err != nil {
			return err
		}
		ids, err := likeMembers(tx, storyID)
		record.UserIDs = ids
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return record, nil
}

// ToggleBookmark reports whether the story is bookmarked afterwards.
func (r *socialRepository) ToggleBookmark(ctx context.Context, userID, storyID uint) (bool, error) {
	var saved bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND story_id = ?", userID, storyID).Delete(&models.Bookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			saved = false
			return nil
		}
		saved = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Bookmark{UserID: userID, StoryID: storyID, CreatedAt: r.now()}).Error
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return saved, nil
}

func (r *socialRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Order("created_at, follower_id").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *socialRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at, followee_id").
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// GetLikeRecord returns the story's like record, or an empty one if nobody has liked it yet.
func (r *socialRepository) GetLikeRecord(ctx context.Context, storyID uint) (*models.LikeRecord, error) {
	record := &models.LikeRecord{StoryID: storyID}
	db := r.db.WithContext(ctx)
	if err := db.First(record, "story_id = ?", storyID).Error; err != nil && !isNotFound(err) {
		return nil, models.NewInternalError(err)
	}
	ids, err := likeMembers(db, storyID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	record.UserIDs = ids
	return record, nil
}

// ListLikeRecords returns every like record with its members, for sync snapshots.
func (r *socialRepository) ListLikeRecords(ctx context.Context) ([]models.LikeRecord, error) {
	records := []models.LikeRecord{}
	db := r.db.WithContext(ctx)
	if err := db.Order("story_id").Find(&records).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	var members []models.StoryLike
	if err := db.Order("story_id, created_at, user_id").Find(&members).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	byStory := make(map[uint][]uint, len(records))
	for _, m := range members {
		byStory[m.StoryID] = append(byStory[m.StoryID], m.UserID)
	}
	for i := range records {
		records[i].UserIDs = byStory[records[i].StoryID]
		if records[i].UserIDs == nil {
			records[i].UserIDs = []uint{}
		}
	}
	return records, nil
}

func likeMembers(db *gorm.DB, storyID uint) ([]uint, error) {
	ids := []uint{}
	err := db.Model(&models.StoryLike{}).
		Where("story_id = ?", storyID).
		Order("created_at, user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
