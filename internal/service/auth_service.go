package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arvi1709/AI-library/internal/auth"
	"github.com/arvi1709/AI-library/internal/models"
	"github.com/arvi1709/AI-library/internal/repository"
	"github.com/arvi1709/AI-library/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentialsMessage = "Invalid email or password."

// dummyHash keeps login timing flat for unknown emails.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("storyhouse-timing-guard"), bcrypt.DefaultCost)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uint, authTime time.Time) (string, *auth.Session, error)
}

// TicketIssuer hands out single-use WebSocket tickets.
type TicketIssuer interface {
	Issue(ctx context.Context, s *auth.Session) (string, error)
}

type AuthService struct {
	users       repository.UserRepository
	tokens      TokenIssuer
	revocations auth.RevocationStore
	tickets     TicketIssuer
	images      *ImageService
	changes     ChangeNotifier
	now         func() time.Time
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Image    *UploadedFile
}

// AuthResult is returned by every call that issues a token.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

func NewAuthService(
	users repository.UserRepository,
	tokens TokenIssuer,
	revocations auth.RevocationStore,
	tickets TicketIssuer,
	images *ImageService,
	changes ChangeNotifier,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		revocations: revocations,
		tickets:     tickets,
		images:      images,
		changes:     changesOrNoop(changes),
		now:         time.Now,
	}
}

// Signup creates the account, stores the optional profile image and signs
// the user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email, and password are required")
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("An account with this email already exists.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	user.ImageURL = models.DefaultUserImageURL(user.ID)
	if in.Image != nil && len(in.Image.Content) > 0 && s.images != nil {
		url, err := s.images.SaveProfileImage(ctx, user.ID, *in.Image)
		if err != nil {
			return nil, err
		}
		user.ImageURL = url
	}
	if err := s.users.UpdateProfile(ctx, user.ID, user.Name, user.ImageURL); err != nil {
		return nil, err
	}
	s.changes.Changed(ctx, CollectionUsers)

	return s.issue(user, s.now())
}

// Login checks the password and issues a fresh session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = validation.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
	}
	return s.issue(user, s.now())
}

// Refresh replaces the session token. The new token keeps the original
// auth time, so a refresh never counts as a recent login.
func (s *AuthService) Refresh(ctx context.Context, session *auth.Session) (*AuthResult, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Account no longer exists")
		}
		return nil, err
	}
	res, err := s.issue(user, session.AuthTime)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, session); err != nil {
		return nil, err
	}
	return res, nil
}

// Logout revokes the session token.
func (s *AuthService) Logout(ctx context.Context, session *auth.Session) error {
	return s.revoke(ctx, session)
}

// WebSocketTicket issues a single-use ticket for the session.
func (s *AuthService) WebSocketTicket(ctx context.Context, session *auth.Session) (string, error) {
	if s.tickets == nil {
		return "", models.NewInternalErrorMessage("Realtime is unavailable", errors.New("tickets not configured"))
	}
	ticket, err := s.tickets.Issue(ctx, session)
	if err != nil {
		return "", models.NewInternalErrorMessage("Realtime is unavailable", err)
	}
	return ticket, nil
}

func (s *AuthService) revoke(ctx context.Context, session *auth.Session) error {
	if s.revocations == nil || session == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) issue(user *models.User, authTime time.Time) (*AuthResult, error) {
	token, session, err := s.tokens.Issue(user.ID, authTime)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}
