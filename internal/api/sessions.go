package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/archeus/mt940-merger/internal/registry"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "mms"

// SessionStore maps session ids to per-session registries. Entries expire
// after the configured TTL of inactivity; expiry discards the working set,
// which is the only place uploaded data ever lives.
type SessionStore struct {
	ttl   time.Duration
	cache *cache.Cache
	log   *logrus.Logger
}

// NewSessionStore creates a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration, log *logrus.Logger) *SessionStore {
	return &SessionStore{
		ttl:   ttl,
		cache: cache.New(ttl, ttl),
		log:   log,
	}
}

// Registry returns the registry for the request's session, creating a new
// session (and setting its cookie) when none exists or it has expired.
// Each access slides the expiry window.
func (s *SessionStore) Registry(c *fiber.Ctx) *registry.Registry {
	if id := c.Cookies(SessionCookie); id != "" {
		if v, ok := s.cache.Get(id); ok {
			s.cache.SetDefault(id, v)
			return v.(*registry.Registry)
		}
	}

	id := uuid.NewString()
	reg := registry.New(s.log)
	s.cache.SetDefault(id, reg)
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	s.log.WithField("session", id).Debug("created session")
	return reg
}
