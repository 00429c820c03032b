package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/manishmaharjan/reservation-system/internal/model"
	"github.com/manishmaharjan/reservation-system/internal/repository"
)

const msgUserUpdateRequired = "At least one of username or email is required."

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an e-mail address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// Registration is the result of creating a user. APIKey is the raw key and
// is only ever available here.
type Registration struct {
	User   model.User
	APIKey string
}

// UserUpdate carries the profile fields to change.
type UserUpdate struct {
	Username *string
	Email    *string
}

// UserService manages users and resolves API keys.
type UserService struct {
	db    *sql.DB
	users *repository.UserRepo
	keys  *repository.APIKeyRepo
	log   *zap.Logger
}

func NewUserService(db *sql.DB, users *repository.UserRepo, keys *repository.APIKeyRepo, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{db: db, users: users, keys: keys, log: logger}
}

// Register creates a user together with their first API key.
func (s *UserService) Register(ctx context.Context, username, email string, admin bool) (Registration, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" {
		return Registration{}, fail(MalformedPayload, MsgUserFieldsRequired)
	}
	if !ValidEmail(email) {
		return Registration{}, fail(Conflict, MsgBadEmail)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Registration{}, internal("begin tx", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	u := model.User{Username: username, Email: email, Admin: admin}
	if err := s.users.CreateTx(ctx, tx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Registration{}, wrap(Conflict, MsgUserExists, err)
		}
		return Registration{}, internal("create user", err)
	}
	raw, err := s.keys.IssueTx(ctx, tx, u.ID, admin)
	if err != nil {
		return Registration{}, internal("issue api key", err)
	}
	if err := tx.Commit(); err != nil {
		return Registration{}, internal("commit tx", err)
	}
	committed = true

	s.log.Info("user registered", zap.Uint64("user_id", u.ID), zap.Bool("admin", admin))
	return Registration{User: u, APIKey: raw}, nil
}

// Authenticate resolves a raw API key to its user.
func (s *UserService) Authenticate(ctx context.Context, raw string) (model.User, error) {
	u, err := s.keys.Authenticate(ctx, raw)
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return model.User{}, fail(Unauthorized, MsgIncorrectKey)
	}
	if err != nil {
		return model.User{}, internal("authenticate", err)
	}
	return u, nil
}

// List returns every user. Callers gate it to admins.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}

// Get returns the caller's own profile.
func (s *UserService) Get(ctx context.Context, caller model.User, rawUserID string) (model.User, error) {
	id, err := Authorize(caller, rawUserID)
	if err != nil {
		return model.User{}, err
	}
	return s.load(ctx, id)
}

// Update changes the caller's username or email.
func (s *UserService) Update(ctx context.Context, caller model.User, rawUserID string, in UserUpdate) (model.User, error) {
	id, err := Authorize(caller, rawUserID)
	if err != nil {
		return model.User{}, err
	}
	if in.Username == nil && in.Email == nil {
		return model.User{}, fail(MalformedPayload, msgUserUpdateRequired)
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if in.Username != nil {
		if u.Username = strings.TrimSpace(*in.Username); u.Username == "" {
			return model.User{}, fail(MalformedPayload, MsgUserFieldsRequired)
		}
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
		if !ValidEmail(u.Email) {
			return model.User{}, fail(Conflict, MsgBadEmail)
		}
	}
	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.User{}, wrap(Conflict, MsgUserExists, err)
		case errors.Is(err, repository.ErrUserNotFound):
			return model.User{}, fail(NotFound, MsgUserNotFound)
		}
		return model.User{}, internal("update user", err)
	}
	u.Email = strings.ToLower(u.Email)
	return u, nil
}

// Delete removes the caller's account along with their reservations and keys.
func (s *UserService) Delete(ctx context.Context, caller model.User, rawUserID string) error {
	id, err := Authorize(caller, rawUserID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(NotFound, MsgUserNotFound)
		}
		return internal("delete user", err)
	}
	s.log.Info("user deleted", zap.Uint64("user_id", id))
	return nil
}

func (s *UserService) load(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, fail(NotFound, MsgUserNotFound)
	}
	if err != nil {
		return model.User{}, internal("get user", err)
	}
	return u, nil
}
