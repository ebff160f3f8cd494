package auth

import (
	"net/http"
	"os"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/petermazzocco/findit/internal/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const sessionUserKey = "user_id"

// Sessions keeps the authenticated user id in a server side session that
// the client references through a signed, http-only cookie.
type Sessions struct {
	store sessions.Store
	name  string
	log   *logrus.Logger
}

// NewFilesystemStore creates the on-disk session store configured by cfg.
func NewFilesystemStore(cfg config.Config) (*sessions.FilesystemStore, error) {
	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "creating session directory")
	}

	key := []byte(cfg.SecretKey)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewFilesystemStore(cfg.SessionDir, key)
	store.MaxAge(int(cfg.SessionLifetime.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.CookieSecure
	store.Options.SameSite = http.SameSiteLaxMode
	return store, nil
}

func NewSessions(store sessions.Store, name string, log *logrus.Logger) *Sessions {
	return &Sessions{store: store, name: name, log: log}
}

func (s *Sessions) get(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, s.name)
	if err != nil && s.log != nil {
		// A tampered, expired or unreadable cookie is treated as no session.
		s.log.WithError(err).Debug("discarding invalid session")
	}
	return session
}

// Login binds a fresh session to userID. A session the client already holds
// is erased first, so its id never becomes authenticated.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, userID uint) error {
	session := s.get(r)
	maxAge := session.Options.MaxAge
	if !session.IsNew {
		session.Options.MaxAge = -1
		if err := session.Save(r, w); err != nil {
			return errors.Wrap(err, "erasing previous session")
		}
	}

	session.ID = ""
	session.IsNew = true
	session.Values = map[interface{}]interface{}{sessionUserKey: userID}
	session.Options.MaxAge = maxAge
	return errors.Wrap(session.Save(r, w), "saving session")
}

// Logout clears the session. It succeeds when there was none.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session := s.get(r)
	delete(session.Values, sessionUserKey)
	session.Options.MaxAge = -1
	return errors.Wrap(session.Save(r, w), "clearing session")
}

// UserID reads the user id stored in the session of r.
func (s *Sessions) UserID(r *http.Request) (uint, bool) {
	session := s.get(r)
	id, ok := session.Values[sessionUserKey].(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
