package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/cache"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/observability"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

// DeletionFailedMessage is shown to a user whose account deletion stopped on a failed step.
const DeletionFailedMessage = "An unexpected error occurred while deleting your account."

// deletionClaimTTL is how long a running deletion keeps other runs out. A
// claim older than this belongs to a run that died and may be taken over.
const deletionClaimTTL = 10 * time.Minute

// Steps that act on the account's stories. They run again when stories appear
// after the deletion was recorded.
var storySteps = map[string]bool{
	models.StepDeleteStoryImages:   true,
	models.StepDeleteStoryComments: true,
	models.StepDeleteStoryLikes:    true,
	models.StepDeleteStoryReports:  true,
	models.StepDeleteStories:       true,
}

// SessionCloser drops a user's live connections once their account is gone.
type SessionCloser func(userID uint)

// AccountDeletionService removes an account and everything it authored as a
// logged sequence of idempotent steps. A failed run stops at the failing step
// and can be resumed from there.
type AccountDeletionService struct {
	repo        repository.AccountDeletionRepository
	images      *ImageService
	revocations auth.RevocationStore
	mail        Mailer
	cache       Cache
	changes     ChangeNotifier
	closeUser   SessionCloser
	window      time.Duration
	now         func() time.Time
}

type AccountDeletionDeps struct {
	Repo              repository.AccountDeletionRepository
	Images            *ImageService
	Revocations       auth.RevocationStore
	Mail              Mailer
	Cache             Cache
	Changes           ChangeNotifier
	CloseUser         SessionCloser
	RecentLoginWindow time.Duration
}

func NewAccountDeletionService(deps AccountDeletionDeps) *AccountDeletionService {
	window := deps.RecentLoginWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &AccountDeletionService{
		repo:        deps.Repo,
		images:      deps.Images,
		revocations: deps.Revocations,
		mail:        deps.Mail,
		cache:       cacheOrNoop(deps.Cache),
		changes:     changesOrNoop(deps.Changes),
		closeUser:   deps.CloseUser,
		window:      window,
		now:         time.Now,
	}
}

// Start deletes the session's account. The password must have been entered
// within the recent-login window; otherwise nothing is touched. An unfinished
// deletion for the same user is reused rather than duplicated.
func (s *AccountDeletionService) Start(ctx context.Context, session *auth.Session, email, imageURL string) (*models.AccountDeletion, error) {
	if session == nil {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	if !session.RecentlyAuthenticated(s.now(), s.window) {
		return nil, models.NewRequiresRecentLoginError()
	}

	deletion, err := s.repo.FindOpen(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if deletion == nil {
		deletion, err = s.create(ctx, session, email, imageURL)
		if err != nil {
			return nil, err
		}
	} else {
		deletion.TokenID = session.TokenID
		deletion.TokenExpiry = session.ExpiresAt
	}
	return deletion, s.run(ctx, deletion)
}

// Resume re-runs a stored deletion from its first unfinished step.
func (s *AccountDeletionService) Resume(ctx context.Context, id uint) (*models.AccountDeletion, error) {
	deletion, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if deletion.Status == models.DeletionCompleted {
		return deletion, nil
	}
	return deletion, s.run(ctx, deletion)
}

// List returns stored deletions, optionally filtered by status.
func (s *AccountDeletionService) List(ctx context.Context, status models.DeletionStatus) ([]models.AccountDeletion, error) {
	return s.repo.List(ctx, status)
}

// Footprint reports how many rows still reference the deleted account.
func (s *AccountDeletionService) Footprint(ctx context.Context, id uint) (map[string]int64, error) {
	deletion, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.repo.Footprint(ctx, deletion.UserID, deletion.StoryIDs)
}

func (s *AccountDeletionService) create(ctx context.Context, session *auth.Session, email, imageURL string) (*models.AccountDeletion, error) {
	storyIDs, storyImages, err := s.repo.StoryRefs(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	deletion := &models.AccountDeletion{
		UserID:      session.UserID,
		Email:       email,
		ImageURL:    imageURL,
		StoryIDs:    storyIDs,
		StoryImages: storyImages,
		TokenID:     session.TokenID,
		TokenExpiry: session.ExpiresAt,
		Status:      models.DeletionPending,
		StartedAt:   s.now(),
		Steps:       make([]models.AccountDeletionStep, 0, len(models.DeletionSteps)),
	}
	for i, name := range models.DeletionSteps {
		deletion.Steps = append(deletion.Steps, models.AccountDeletionStep{
			Position: i + 1,
			Name:     name,
			Status:   models.DeletionPending,
		})
	}
	if err := s.repo.Create(ctx, deletion); err != nil {
		return nil, err
	}
	return deletion, nil
}

func (s *AccountDeletionService) run(ctx context.Context, d *models.AccountDeletion) error {
	span, ctx := observability.StartSpan(ctx, "account_deletion.run",
		attribute.Int("deletion.id", int(d.ID)),
		attribute.Int("user.id", int(d.UserID)))
	defer span.End()

	now := s.now()
	claimed, err := s.repo.Claim(ctx, d.ID, now, now.Add(-deletionClaimTTL))
	if err != nil {
		span.SetError(err)
		return err
	}
	if !claimed {
		return models.NewConflictError("Account deletion is already in progress.")
	}
	d.ClaimedAt = &now
	d.Status = models.DeletionRunning
	d.Attempts++
	d.LastError = ""
	if err := s.refresh(ctx, d); err != nil {
		span.SetError(err)
		d.Status = models.DeletionFailed
		d.LastError = err.Error()
		if saveErr := s.repo.SaveProgress(ctx, d); saveErr != nil {
			slog.ErrorContext(ctx, "failed to record deletion failure", "deletion_id", d.ID, "error", saveErr)
		}
		return models.NewInternalErrorMessage(DeletionFailedMessage, err)
	}
	if err := s.repo.SaveProgress(ctx, d); err != nil {
		span.SetError(err)
		return err
	}

	for step := d.NextStep(); step != nil; step = d.NextStep() {
		if err := s.runStep(ctx, d, step); err != nil {
			span.SetError(err)
			slog.ErrorContext(ctx, "account deletion step failed",
				"deletion_id", d.ID, "user_id", d.UserID, "step", step.Name, "error", err)
			d.Status = models.DeletionFailed
			d.LastError = fmt.Sprintf("%s: %v", step.Name, err)
			if saveErr := s.repo.SaveProgress(ctx, d); saveErr != nil {
				slog.ErrorContext(ctx, "failed to record deletion failure", "deletion_id", d.ID, "error", saveErr)
			}
			return models.NewInternalErrorMessage(DeletionFailedMessage, err)
		}
	}

	completed := s.now()
	d.Status = models.DeletionCompleted
	d.CompletedAt = &completed
	if err := s.repo.SaveProgress(ctx, d); err != nil {
		span.SetError(err)
		return models.NewInternalErrorMessage(DeletionFailedMessage, err)
	}
	s.finish(ctx, d)
	return nil
}

// refresh catches up with writes made since the last run. Until the user row
// is gone the account can still post stories, like and comment, so new
// stories are added to the log and the steps that cover them are reopened.
func (s *AccountDeletionService) refresh(ctx context.Context, d *models.AccountDeletion) error {
	if stepCompleted(d, models.StepDeleteUserRecord) {
		return nil
	}
	ids, images, err := s.repo.StoryRefs(ctx, d.UserID)
	if err != nil {
		return err
	}

	knownIDs := make(map[uint]bool, len(d.StoryIDs))
	for _, id := range d.StoryIDs {
		knownIDs[id] = true
	}
	knownImages := make(map[string]bool, len(d.StoryImages))
	for _, url := range d.StoryImages {
		knownImages[url] = true
	}
	grew := false
	for _, id := range ids {
		if !knownIDs[id] {
			d.StoryIDs = append(d.StoryIDs, id)
			grew = true
		}
	}
	for _, url := range images {
		if !knownImages[url] {
			d.StoryImages = append(d.StoryImages, url)
			grew = true
		}
	}

	for i := range d.Steps {
		step := &d.Steps[i]
		if step.Status != models.DeletionCompleted {
			continue
		}
		reopen := step.Name == models.StepDetachSocialGraph || step.Name == models.StepDeleteNotifications
		if grew && storySteps[step.Name] {
			reopen = true
		}
		if !reopen {
			continue
		}
		step.Status = models.DeletionPending
		step.CompletedAt = nil
		if err := s.repo.SaveStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func stepCompleted(d *models.AccountDeletion, name string) bool {
	for _, step := range d.Steps {
		if step.Name == name {
			return step.Status == models.DeletionCompleted
		}
	}
	return false
}

func (s *AccountDeletionService) runStep(ctx context.Context, d *models.AccountDeletion, step *models.AccountDeletionStep) error {
	span, ctx := observability.StartSpan(ctx, "account_deletion."+step.Name)
	defer span.End()

	step.Status = models.DeletionRunning
	step.Error = ""
	if err := s.repo.SaveStep(ctx, step); err != nil {
		return err
	}

	if err := s.execute(ctx, d, step.Name); err != nil {
		span.SetError(err)
		observability.DeletionSteps.WithLabelValues(step.Name, "failed").Inc()
		step.Status = models.DeletionFailed
		step.Error = err.Error()
		if saveErr := s.repo.SaveStep(ctx, step); saveErr != nil {
			slog.ErrorContext(ctx, "failed to record step failure", "step", step.Name, "error", saveErr)
		}
		return err
	}

	done := s.now()
	step.Status = models.DeletionCompleted
	step.CompletedAt = &done
	observability.DeletionSteps.WithLabelValues(step.Name, "completed").Inc()
	return s.repo.SaveStep(ctx, step)
}

func (s *AccountDeletionService) execute(ctx context.Context, d *models.AccountDeletion, name string) error {
	switch name {
	case models.StepDeleteStoryImages:
		for _, url := range d.StoryImages {
			if err := s.deleteObject(ctx, url); err != nil {
				return err
			}
		}
		return nil
	case models.StepDeleteStoryComments:
		return s.repo.DeleteStoryComments(ctx, d.StoryIDs)
	case models.StepDeleteStoryLikes:
		return s.repo.DeleteStoryLikes(ctx, d.StoryIDs)
	case models.StepDeleteStoryReports:
		return s.repo.DeleteStoryReports(ctx, d.StoryIDs)
	case models.StepDeleteStories:
		return s.repo.DeleteStories(ctx, d.StoryIDs)
	case models.StepDetachSocialGraph:
		return s.repo.DetachUser(ctx, d.UserID)
	case models.StepDeleteNotifications:
		return s.repo.DeleteNotifications(ctx, d.UserID)
	case models.StepDeleteUserRecord:
		return s.repo.DeleteUser(ctx, d.UserID)
	case models.StepDeleteProfileImage:
		return s.deleteObject(ctx, d.ImageURL)
	case models.StepRevokeSessions:
		if s.revocations == nil || d.TokenID == "" {
			return nil
		}
		return s.revocations.Revoke(ctx, d.TokenID, d.TokenExpiry)
	default:
		return fmt.Errorf("unknown deletion step %q", name)
	}
}

// deleteObject removes a stored image. A missing object counts as deleted.
func (s *AccountDeletionService) deleteObject(ctx context.Context, url string) error {
	if s.images == nil || url == "" {
		return nil
	}
	if err := s.images.DeleteByURL(ctx, url); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	return nil
}

func (s *AccountDeletionService) finish(ctx context.Context, d *models.AccountDeletion) {
	keys := []string{cache.ProfileKey(d.UserID)}
	for _, id := range d.StoryIDs {
		keys = append(keys, cache.StoryKey(id))
	}
	s.cache.Invalidate(ctx, keys...)
	s.changes.Changed(ctx, CollectionUsers, CollectionStories, CollectionComments,
		CollectionLikes, CollectionReports, CollectionEmpathyRatings)

	if s.closeUser != nil {
		s.closeUser(d.UserID)
	}
	if s.mail != nil && d.Email != "" {
		if err := s.mail.AccountDeleted(ctx, d.Email); err != nil {
			slog.WarnContext(ctx, "failed to send account deleted mail", "deletion_id", d.ID, "error", err)
		}
	}
}
