package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storeadmin-dev/storeadmin/internal/session"
)

const sessionEntryKey = "session_entry"

func setSessionEntry(c *gin.Context, entry *session.Entry) {
	c.Set(sessionEntryKey, entry)
}

// GetSessionEntry returns the browser session loaded for the request
func GetSessionEntry(c *gin.Context) (*session.Entry, bool) {
	value, exists := c.Get(sessionEntryKey)
	if !exists {
		return nil, false
	}

	entry, ok := value.(*session.Entry)
	return entry, ok
}

// sessionReader hands the route gate the request's session store
func sessionReader(c *gin.Context) (session.Reader, bool) {
	entry, ok := GetSessionEntry(c)
	if !ok {
		return nil, false
	}
	return entry.Store, true
}

func isAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// browserSessionMiddleware loads the browser session named by the session
// cookie. Browsers without a valid cookie get a new session, which is the
// admin panel's app load: its identity check starts right away.
func (s *Server) browserSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if token, err := c.Cookie(s.config.Session.CookieName); err == nil && token != "" {
			parsed, err := s.tokens.Parse(token)
			if err != nil {
				s.logger.Debug().Err(err).Msg("Ignoring invalid browser session cookie")
			} else {
				id = parsed
			}
		}

		entry, refresh, err := s.registry.Get(c.Request.Context(), id)
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to load browser session")
			if isAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		// The cookie's Max-Age slides with activity, like the vault's last-seen time
		if refresh || entry.ID != id {
			token, err := s.tokens.Issue(entry.ID)
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to issue browser session cookie")
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(s.config.Session.CookieName, token, int(s.config.Session.IdleTTL.Seconds()), "/", "", s.config.Session.CookieSecure, true)
		}

		setSessionEntry(c, entry)
		c.Next()
	}
}
