package gate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeadmin-dev/storeadmin/internal/session"
)

type checkerFunc func(ctx context.Context) (string, error)

func (f checkerFunc) CheckAdmin(ctx context.Context) (string, error) { return f(ctx) }

func resolved(identity string) *session.Store {
	store := session.NewStore(zerolog.Nop())
	store.Initialize(context.Background(), checkerFunc(func(context.Context) (string, error) {
		if identity == "" {
			return "", errors.New("network down")
		}
		return identity, nil
	}))
	return store
}

func TestDecide(t *testing.T) {
	tests := []struct {
		state session.State
		want  Decision
	}{
		{session.State{Loading: true}, Pending},
		{session.State{Loading: true, Identity: "A1"}, Pending},
		{session.State{}, Redirect},
		{session.State{Identity: "A1"}, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state))
		})
	}
}

func TestEvaluate_WaitsForResolution(t *testing.T) {
	store := session.NewStore(zerolog.Nop())
	go func() {
		time.Sleep(20 * time.Millisecond)
		store.SetIdentity("A1")
	}()

	state, decision := Evaluate(context.Background(), store, time.Second)
	assert.Equal(t, Allow, decision)
	assert.Equal(t, "A1", state.Identity)
}

func newRouter(reader session.Reader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	lookup := func(*gin.Context) (session.Reader, bool) {
		if reader == nil {
			return nil, false
		}
		return reader, true
	}
	protected := r.Group("/", Require(lookup, 10*time.Millisecond, zerolog.Nop()))
	protected.GET("/dashboard", func(c *gin.Context) {
		c.String(http.StatusOK, "hello "+Identity(c))
	})
	protected.GET("/api/session/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"identity": Identity(c)})
	})
	return r
}

func serve(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRequire_NeverRedirectsWhileLoading(t *testing.T) {
	r := newRouter(session.NewStore(zerolog.Nop()))

	w := serve(r, "/dashboard")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.Contains(t, w.Body.String(), "Loading")

	w = serve(r, "/api/session/me")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"loading":true}`, w.Body.String())
}

func TestRequire_RedirectsWithoutIdentity(t *testing.T) {
	r := newRouter(resolved(""))

	w := serve(r, "/dashboard")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))

	w = serve(r, "/api/session/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequire_RedirectsWithoutSession(t *testing.T) {
	r := newRouter(nil)

	w := serve(r, "/dashboard")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))
}

func TestRequire_AllowsIdentity(t *testing.T) {
	r := newRouter(resolved("A1"))

	w := serve(r, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello A1", w.Body.String())
}

func TestRequire_RedirectsAfterLogout(t *testing.T) {
	store := resolved("A1")
	r := newRouter(store)
	require.Equal(t, http.StatusOK, serve(r, "/dashboard").Code)

	store.SetIdentity("")
	assert.Equal(t, http.StatusSeeOther, serve(r, "/dashboard").Code)
}
