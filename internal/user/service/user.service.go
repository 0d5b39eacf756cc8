package service

import (
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cratetrack/internal/apperr"
	"cratetrack/internal/user/model"
	"cratetrack/pkg/logger"
)

const sessionTTL = 24 * time.Hour

// ProfileStore is the persistence surface for user profiles.
// *repository.UserRepository satisfies it.
type ProfileStore interface {
	Create(p *model.Profile) error
	GetByEmail(email string) (*model.Profile, error)
	GetByID(id string) (*model.Profile, error)
	UpdateRole(id, role string) (int64, error)
	List() ([]model.Profile, error)
}

// ProfileNotifier is poked after role changes so privileged profile
// subscriptions see them. *livequery.Feed satisfies it.
type ProfileNotifier interface {
	InvalidateProfiles()
}

type UserService struct {
	Store ProfileStore
	Feed  ProfileNotifier
}

func NewUserService(store ProfileStore, feed ProfileNotifier) *UserService {
	return &UserService{Store: store, Feed: feed}
}

// Register creates a profile with the default role and signs a session for
// it. Every rejection surfaces as an auth error with its reason.
func (s *UserService) Register(req model.RegisterRequest) (*model.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.Store.GetByEmail(email); err == nil {
		return nil, apperr.Authf("an account with this email already exists")
	} else if err != sql.ErrNoRows {
		return nil, apperr.Remotef("failed to create account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Authf("failed to process password")
	}

	profile := model.Profile{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Role:         model.RoleUser,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: string(hash),
	}
	if err := s.Store.Create(&profile); err != nil {
		return nil, apperr.Remotef("failed to create account")
	}
	s.Feed.InvalidateProfiles()

	return s.session(&profile)
}

// Login verifies credentials and signs a session token carrying the user's
// id and role.
func (s *UserService) Login(req model.LoginRequest) (*model.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	profile, err := s.Store.GetByEmail(email)
	if err == sql.ErrNoRows {
		return nil, apperr.Authf("no account found with this email")
	}
	if err != nil {
		return nil, apperr.Remotef("failed to sign in")
	}

	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Authf("incorrect password")
	}
	return s.session(profile)
}

// ToggleRole flips the target between user and admin. Toggling twice
// restores the original role; observers see each step through the feed.
func (s *UserService) ToggleRole(targetID string) error {
	profile, err := s.Store.GetByID(targetID)
	if err == sql.ErrNoRows {
		return apperr.Remotef("failed to update user role")
	}
	if err != nil {
		return apperr.Remotef("failed to update user role")
	}

	newRole := model.RoleAdmin
	if profile.Role == model.RoleAdmin {
		newRole = model.RoleUser
	}

	rows, err := s.Store.UpdateRole(targetID, newRole)
	if err != nil || rows == 0 {
		return apperr.Remotef("failed to update user role")
	}
	logger.Sugar.Infof("Role for user %s set to %s", targetID, newRole)
	s.Feed.InvalidateProfiles()
	return nil
}

// List enumerates every profile. Privileged callers only.
func (s *UserService) List() ([]model.Profile, error) {
	profiles, err := s.Store.List()
	if err != nil {
		return nil, apperr.Remotef("failed to load users")
	}
	return profiles, nil
}

func (s *UserService) session(profile *model.Profile) (*model.SessionResponse, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Sugar.Error("JWT_SECRET environment variable not set")
		return nil, apperr.Remotef("failed to sign in")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  profile.ID,
		"role": profile.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(sessionTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, apperr.Remotef("failed to sign in")
	}
	return &model.SessionResponse{Token: signed, Profile: *profile}, nil
}
