package handlers

import (
	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/service"
	"github.com/petermazzocco/findit/internal/upload"
	"github.com/sirupsen/logrus"
)

// Handler serves the HTTP API on top of the services.
type Handler struct {
	accounts   *service.Accounts
	items      *service.Items
	moderation *service.Moderation
	sessions   *auth.Sessions
	users      auth.UserLookup
	images     upload.Storage
	log        *logrus.Logger

	// maxBody caps request bodies.
	maxBody int64
}

type Deps struct {
	Accounts   *service.Accounts
	Items      *service.Items
	Moderation *service.Moderation
	Sessions   *auth.Sessions
	Users      auth.UserLookup
	Images     upload.Storage
	Log        *logrus.Logger
	MaxBody    int64
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		accounts:   d.Accounts,
		items:      d.Items,
		moderation: d.Moderation,
		sessions:   d.Sessions,
		users:      d.Users,
		images:     d.Images,
		log:        d.Log,
		maxBody:    d.MaxBody,
	}
}
