// Package gate decides whether a protected page may render for a session.
package gate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/session"
)

// LoginPath is where unauthenticated navigations are sent
const LoginPath = "/"

// Decision is the outcome of evaluating a session state
type Decision int

const (
	// Pending means the identity check has not resolved; render a placeholder
	Pending Decision = iota
	// Redirect means the session resolved without an identity
	Redirect
	// Allow means the session resolved with an identity
	Allow
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide maps a session state to a gate decision
func Decide(state session.State) Decision {
	switch {
	case state.Loading:
		return Pending
	case state.Identity == "":
		return Redirect
	default:
		return Allow
	}
}

// Evaluate waits up to wait for r to resolve, then decides
func Evaluate(ctx context.Context, r session.Reader, wait time.Duration) (session.State, Decision) {
	state := r.State()
	if state.Loading && wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		state = session.Wait(waitCtx, r)
		cancel()
	}
	return state, Decide(state)
}

// ReaderFunc resolves the session of the current request
type ReaderFunc func(c *gin.Context) (session.Reader, bool)

const identityKey = "gate.identity"

// Identity returns the identity the gate allowed the request with
func Identity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// Require guards a route group. Requests are let through only once their
// session has resolved with an identity.
func Require(lookup ReaderFunc, wait time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reader, ok := lookup(c)
		if !ok {
			deny(c)
			return
		}

		state, decision := Evaluate(c.Request.Context(), reader, wait)
		switch decision {
		case Allow:
			c.Set(identityKey, state.Identity)
			c.Next()
		case Pending:
			log.Debug().Str("path", c.Request.URL.Path).Msg("Session still loading, rendering placeholder")
			placeholder(c)
		default:
			deny(c)
		}
	}
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func deny(c *gin.Context) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.Redirect(http.StatusSeeOther, LoginPath)
	c.Abort()
}

const loadingPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading…</title></head>
<body><p>Loading…</p></body>
</html>
`

func placeholder(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"loading": true})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loadingPage))
	c.Abort()
}
