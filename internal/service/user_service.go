package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"marketplace/internal/credential"
	"marketplace/internal/domain"
	"marketplace/internal/event"
	"marketplace/internal/repository"
)

// UserField names a user attribute that UpdateField can change.
type UserField string

const (
	FieldUsername UserField = "username"
	FieldPassword UserField = "password"
	FieldEmail    UserField = "email"
	FieldRole     UserField = "role"
)

// ParseUserField accepts a field name in any letter case.
func ParseUserField(s string) (UserField, error) {
	f := UserField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FieldUsername, FieldPassword, FieldEmail, FieldRole:
		return f, nil
	}
	return "", domain.Validation("unknown user field %q", s)
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, email, role string) (*domain.User, error)
	// Login verifies credentials. Unknown usernames and wrong passwords fail
	// with the same error.
	Login(ctx context.Context, username, password string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateField(ctx context.Context, id int64, field UserField, value string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	// DeleteUser removes the account only; the seller's products stay.
	DeleteUser(ctx context.Context, id int64) error
}

type userService struct {
	users  repository.UserRepository
	codec  credential.Codec
	events event.Publisher
	log    logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(users repository.UserRepository, codec credential.Codec, events event.Publisher, log logrus.FieldLogger) UserService {
	if events == nil {
		events = event.NopPublisher{}
	}
	return &userService{
		users:  users,
		codec:  codec,
		events: events,
		log:    log,
	}
}

func (s *userService) Register(ctx context.Context, username, password, email, role string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Insert(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		Role:         r,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Conflict("username %q already exists", username)
		}
		return nil, domain.Storage("register user", err)
	}

	s.publish(ctx, event.UserRegistered, created)
	s.log.WithFields(logrus.Fields{
		"user_id": created.ID,
		"role":    created.Role,
	}).Info("user registered")

	return sanitizeUser(created), nil
}

func (s *userService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep timing uniform for unknown usernames
			s.codec.Verify(password, s.dummy())
			return nil, domain.InvalidCredentials()
		}
		return nil, domain.Storage("login", err)
	}

	if !s.codec.Verify(password, user.PasswordHash) {
		return nil, domain.InvalidCredentials()
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateField(ctx context.Context, id int64, field UserField, value string) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	switch field {
	case FieldUsername:
		value = strings.TrimSpace(value)
		if err := domain.ValidateUsername(value); err != nil {
			return err
		}
		if err := s.ensureUsernameFree(ctx, value, id); err != nil {
			return err
		}
		user.Username = value
	case FieldPassword:
		if err := domain.ValidatePassword(value); err != nil {
			return err
		}
		hash, err := s.hash(value)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	case FieldEmail:
		value = strings.TrimSpace(value)
		if err := domain.ValidateEmail(value); err != nil {
			return err
		}
		user.Email = value
	case FieldRole:
		r, err := domain.ParseRole(value)
		if err != nil {
			return err
		}
		user.Role = r
	default:
		return domain.Validation("unknown user field %q", field)
	}

	ok, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Conflict("username %q already exists", user.Username)
		}
		return domain.Storage("update user", err)
	}
	if !ok {
		return domain.NotFound("user", id)
	}

	s.publish(ctx, event.UserUpdated, user)
	s.log.WithFields(logrus.Fields{
		"user_id": id,
		"field":   field,
	}).Info("user updated")
	return nil
}

func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	out := make([]domain.User, len(users))
	for i := range users {
		out[i] = *sanitizeUser(&users[i])
	}
	return out, nil
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	user, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		return domain.Storage("delete user", err)
	}
	if !ok {
		return domain.NotFound("user", id)
	}

	s.publish(ctx, event.UserDeleted, user)
	s.log.WithField("user_id", id).Info("user deleted")
	return nil
}

func (s *userService) find(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("user", id)
		}
		return nil, domain.Storage("find user", err)
	}
	return user, nil
}

// ensureUsernameFree fails with a conflict when username belongs to a user
// other than selfID.
func (s *userService) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return domain.Storage("check username", err)
	case existing.ID != selfID:
		return domain.Conflict("username %q already exists", username)
	}
	return nil
}

func (s *userService) hash(password string) (string, error) {
	hash, err := s.codec.Hash(password)
	if err != nil {
		if errors.Is(err, credential.ErrPasswordTooLong) {
			return "", domain.Validation("password is too long")
		}
		return "", err
	}
	return hash, nil
}

func (s *userService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.codec.Hash("marketplace-dummy-password")
		if err != nil {
			s.log.WithError(err).Warn("compute dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *userService) publish(ctx context.Context, eventType string, user *domain.User) {
	e, err := event.New(eventType, event.AggregateUser, user.ID, event.UserData{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err == nil {
		err = s.events.Publish(ctx, e)
	}
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":   eventType,
			"user_id": user.ID,
		}).Warn("publish user event")
	}
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
