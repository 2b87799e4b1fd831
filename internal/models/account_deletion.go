package models

import "time"

// DeletionStatus is the state of an account deletion or one of its steps.
type DeletionStatus string

const (
	DeletionPending   DeletionStatus = "pending"
	DeletionRunning   DeletionStatus = "running"
	DeletionCompleted DeletionStatus = "completed"
	DeletionFailed    DeletionStatus = "failed"
)

// Account deletion steps, in execution order.
const (
	StepDeleteStoryImages   = "delete_story_images"
	StepDeleteStoryComments = "delete_story_comments"
	StepDeleteStoryLikes    = "delete_story_likes"
	StepDeleteStoryReports  = "delete_story_reports"
	StepDeleteStories       = "delete_stories"
	StepDetachSocialGraph   = "detach_social_graph"
	StepDeleteNotifications = "delete_notifications"
	StepDeleteUserRecord    = "delete_user_record"
	StepDeleteProfileImage  = "delete_profile_image"
	StepRevokeSessions      = "revoke_sessions"
)

// DeletionSteps lists every step of an account deletion in the order they run.
var DeletionSteps = []string{
	StepDeleteStoryImages,
	StepDeleteStoryComments,
	StepDeleteStoryLikes,
	StepDeleteStoryReports,
	StepDeleteStories,
	StepDetachSocialGraph,
	StepDeleteNotifications,
	StepDeleteUserRecord,
	StepDeleteProfileImage,
	StepRevokeSessions,
}

// AccountDeletion is the durable log of one account's removal. It survives the
// user row so a failed run can be resumed from the first unfinished step.
type AccountDeletion struct {
	ID          uint                  `gorm:"primaryKey" json:"id"`
	UserID      uint                  `gorm:"not null;index" json:"user_id"`
	Email       string                `json:"email"`
	ImageURL    string                `json:"image_url"`
	StoryIDs    []uint                `gorm:"serializer:json" json:"story_ids"`
	StoryImages []string              `gorm:"serializer:json" json:"story_images"`
	TokenID     string                `json:"-"`
	TokenExpiry time.Time             `json:"-"`
	Status      DeletionStatus        `gorm:"type:varchar(20);not null;index" json:"status"`
	Attempts    int                   `gorm:"not null;default:0" json:"attempts"`
	LastError   string                `gorm:"type:text" json:"last_error,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time            `json:"-"`
	Steps       []AccountDeletionStep `gorm:"foreignKey:DeletionID;constraint:OnDelete:CASCADE" json:"steps"`
}

// AccountDeletionStep is one entry of the deletion log.
type AccountDeletionStep struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	DeletionID  uint           `gorm:"not null;uniqueIndex:idx_deletion_step" json:"-"`
	Position    int            `gorm:"not null" json:"position"`
	Name        string         `gorm:"not null;uniqueIndex:idx_deletion_step" json:"name"`
	Status      DeletionStatus `gorm:"type:varchar(20);not null" json:"status"`
	Error       string         `gorm:"type:text" json:"error,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NextStep returns the first step that has not completed, or nil when all are done.
func (d *AccountDeletion) NextStep() *AccountDeletionStep {
	for i := range d.Steps {
		if d.Steps[i].Status != DeletionCompleted {
			return &d.Steps[i]
		}
	}
	return nil
}
