package service

import (
	"context"

	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/store"
	"github.com/petermazzocco/findit/internal/upload"
	"github.com/petermazzocco/findit/models"
	"github.com/sirupsen/logrus"
)

// UserUpdate is the admin user edit. Only is_admin can change; a nil value
// leaves the user as is.
type UserUpdate struct {
	IsAdmin *bool `json:"is_admin"`
}

// Moderation holds the admin-only operations. Callers are expected to have
// passed the admin gate.
type Moderation struct {
	store   *store.Store
	uploads *upload.Validator
	log     *logrus.Logger
}

func NewModeration(s *store.Store, uploads *upload.Validator, log *logrus.Logger) *Moderation {
	return &Moderation{store: s, uploads: uploads, log: log}
}

func (m *Moderation) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.store.ListUsers(ctx)
}

func (m *Moderation) UpdateUser(ctx context.Context, id uint, in UserUpdate) (*models.User, error) {
	if in.IsAdmin == nil {
		return m.store.GetUser(ctx, id)
	}
	u, err := m.store.SetAdmin(ctx, id, *in.IsAdmin)
	if err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"user_id": id, "is_admin": u.IsAdmin}).Info("user role changed")
	return u, nil
}

// DeleteUser removes user id together with all of their items. An admin
// can never delete their own account.
func (m *Moderation) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apperr.ErrSelfDeletion
	}
	images, err := m.store.DeleteUserCascade(ctx, id)
	if err != nil {
		return err
	}
	for _, name := range images {
		m.uploads.Remove(ctx, name)
	}
	m.log.WithFields(logrus.Fields{"user_id": id, "by": actorID, "images": len(images)}).Info("user deleted")
	return nil
}

func (m *Moderation) ListAllItems(ctx context.Context) ([]models.Item, error) {
	return m.store.ListItems(ctx, store.ItemFilter{})
}
