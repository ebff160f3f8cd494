package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/store"
	"github.com/petermazzocco/findit/models"
	"github.com/sirupsen/logrus"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email" validate:"required,max=120,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Accounts implements registration, login and session introspection. It
// returns users; binding them to a session is left to the caller.
type Accounts struct {
	store *store.Store
	log   *logrus.Logger
}

func NewAccounts(s *store.Store, log *logrus.Logger) *Accounts {
	return &Accounts{store: s, log: log}
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.Validation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to register user", err)
	}
	u := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")
	return u, nil
}

// Login checks credentials. Unknown users and wrong passwords fail with the
// same error.
func (a *Accounts) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := checkStruct(in); err != nil {
		if err == errMissingFields {
			return nil, errMissingLogin
		}
		return nil, err
	}
	u, err := a.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.ErrInvalidLogin
		}
		return nil, err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, apperr.ErrInvalidLogin
	}
	return u, nil
}

func (a *Accounts) CurrentUser(ctx context.Context, id uint) (*models.User, error) {
	return a.store.GetUser(ctx, id)
}

// CheckAuth resolves the session user. A missing session or a user that no
// longer exists yields nil without an error.
func (a *Accounts) CheckAuth(ctx context.Context, id uint, ok bool) (*models.User, error) {
	if !ok {
		return nil, nil
	}
	u, err := a.store.GetUser(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return u, err
}

// OAuthUser finds the account matching the identity's email or creates one
// with a derived username and an unusable password.
func (a *Accounts) OAuthUser(ctx context.Context, gu goth.User) (*models.User, error) {
	email := strings.TrimSpace(gu.Email)
	if err := checkField("email", email, "required,max=120,email"); err != nil {
		return nil, apperr.Validation("Provider did not return a usable email address")
	}

	u, err := a.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	username, err := a.freeUsername(ctx, auth.BaseUsername(gu))
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, apperr.Internal("Failed to create user", err)
	}
	u = &models.User{Username: username, Email: email, Password: hash}
	if err := a.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"user_id": u.ID, "provider": gu.Provider}).Info("user created from oauth")
	return u, nil
}

func (a *Accounts) freeUsername(ctx context.Context, base string) (string, error) {
	name := base
	for i := 2; ; i++ {
		taken, err := a.store.UsernameTaken(ctx, name)
		if err != nil {
			return "", apperr.Internal("Failed to create user", err)
		}
		if !taken {
			return name, nil
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}
