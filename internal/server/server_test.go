package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storeadmin-dev/storeadmin/internal/auth"
	"github.com/storeadmin-dev/storeadmin/internal/config"
	"github.com/storeadmin-dev/storeadmin/internal/database"
	"github.com/storeadmin-dev/storeadmin/internal/session"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
	"github.com/storeadmin-dev/storeadmin/internal/tasks"
	"github.com/storeadmin-dev/storeadmin/internal/vault"
)

const testSecret = "test-secret"

// fakeStoreAPI is an in-memory store API. With requireLogin set, the identity
// check only answers for the cookie handed out by adminLogin.
type fakeStoreAPI struct {
	mu           sync.Mutex
	requireLogin bool
	identity     string // raw get-admin body when requireLogin is false
	products     []storeapi.Product
	orders       []map[string]any
	block        chan struct{}
}

func newFakeStoreAPI() *fakeStoreAPI {
	return &fakeStoreAPI{
		products: []storeapi.Product{
			{ID: "p1", Name: "Ceramic Mug", Category: "Kitchen", Price: 12, Quantity: 4},
			{ID: "p2", Name: "Linen Shirt", Category: "Apparel", Price: 40, Quantity: 25},
		},
		orders: []map[string]any{
			{"_id": "665f1a2b3c4d5e6f7a8b9c0d", "name": "Ada", "email": "ada@example.com", "paymentStatus": "paid", "totalAmount": 52, "createdAt": "2024-05-01T10:00:00Z"},
		},
	}
}

func (f *fakeStoreAPI) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeStoreAPI) loggedIn(r *http.Request) bool {
	c, err := r.Cookie("token")
	return err == nil && c.Value == "valid"
}

func (f *fakeStoreAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/get-admin", func(w http.ResponseWriter, r *http.Request) {
		if f.block != nil {
			<-f.block
		}
		if !f.requireLogin {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, f.identity)
			return
		}
		if !f.loggedIn(r) {
			f.write(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Not logged in"})
			return
		}
		f.write(w, http.StatusOK, map[string]any{"success": true, "isAdmin": true, "adminId": "X"})
	})
	mux.HandleFunc("POST /api/admin/adminLogin", func(w http.ResponseWriter, r *http.Request) {
		var creds storeapi.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			f.write(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "valid", Path: "/"})
		f.write(w, http.StatusOK, map[string]any{"success": true, "message": "Login successful", "admin": map[string]string{"id": "X"}})
	})
	mux.HandleFunc("POST /api/admin/register", func(w http.ResponseWriter, r *http.Request) {
		f.write(w, http.StatusCreated, map[string]any{"success": true, "message": "Admin registered"})
	})
	mux.HandleFunc("POST /api/admin/adminLogout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		f.write(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("GET /api/order/recentOrder", func(w http.ResponseWriter, r *http.Request) {
		f.write(w, http.StatusOK, map[string]any{"success": true, "data": f.orders})
	})
	mux.HandleFunc("GET /api/product/getProductAll", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.write(w, http.StatusOK, map[string]any{"success": true, "data": f.products})
	})
	mux.HandleFunc("DELETE /api/product/deleteProduct/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, p := range f.products {
			if p.ID == r.PathValue("id") {
				f.products = append(f.products[:i], f.products[i+1:]...)
				f.write(w, http.StatusOK, map[string]any{"success": true, "message": "deleted"})
				return
			}
		}
		f.write(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
	})
	return mux
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "server.sqlite"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func testConfig(apiURL string, gateWait time.Duration) *config.Config {
	return &config.Config{
		HTTP:     config.HTTPConfig{Addr: ":0", CORSOrigins: []string{"http://localhost:5173"}},
		StoreAPI: config.StoreAPIConfig{URL: apiURL, Timeout: 5 * time.Second},
		Session: config.SessionConfig{
			Secret:       testSecret,
			CookieName:   "storeadmin_session",
			CheckTimeout: 5 * time.Second,
			IdleTTL:      time.Hour,
			GateWait:     gateWait,
		},
	}
}

func startServer(t *testing.T, apiURL string, db *gorm.DB, enq tasks.Enqueuer, gateWait time.Duration) *httptest.Server {
	t.Helper()
	return serve(t, apiURL, db, newTestRegistry(apiURL, db), enq, gateWait)
}

func newTestRegistry(apiURL string, db *gorm.DB) *session.Registry {
	return session.NewRegistry(vault.New(db, testSecret, zerolog.Nop()), func() (*storeapi.Client, error) {
		return storeapi.New(apiURL, 5*time.Second)
	}, 5*time.Second, zerolog.Nop())
}

func serve(t *testing.T, apiURL string, db *gorm.DB, registry *session.Registry, enq tasks.Enqueuer, gateWait time.Duration) *httptest.Server {
	t.Helper()
	cfg := testConfig(apiURL, gateWait)

	tokens, err := auth.NewTokens(testSecret, 0)
	require.NoError(t, err)

	s, err := newServer(cfg, zerolog.Nop(), "test", db, registry, tokens, enq)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		registry.Close()
	})
	return ts
}

// newBrowser returns a client that keeps cookies and does not follow redirects
func newBrowser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(t *testing.T, b *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := b.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func postForm(t *testing.T, b *http.Client, u string, values url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := b.PostForm(u, values)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealth(t *testing.T) {
	api := httptest.NewServer(newFakeStoreAPI().handler())
	defer api.Close()
	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, time.Second)

	resp, body := get(t, newBrowser(t), ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"online"`)
}

func TestDashboard_RendersForNestedIdentity(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.identity = `{"success":true,"isAdmin":true,"data":{"data":{"_id":"A1"}}}`
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	resp, body := get(t, browser, ts.URL+"/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Dashboard")
	assert.Contains(t, body, "Order #8B9C0D")
	assert.Contains(t, body, "badge-paid")
	assert.Contains(t, body, "₹52.00")
	assert.Contains(t, body, `action="/logout"`)

	resp, body = get(t, browser, ts.URL+"/api/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"identity":"A1","loading":false,"authenticated":true}`, body)
}

func TestDashboard_NetworkErrorRedirectsToLogin(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	apiURL := api.URL
	api.Close()

	ts := startServer(t, apiURL, openTestDB(t), &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	resp, _ := get(t, browser, ts.URL+"/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = get(t, browser, ts.URL+"/api/products")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := get(t, browser, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Admin Login")
	assert.NotContains(t, body, `action="/logout"`)
}

func TestGate_PlaceholderWhileLoading(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.identity = `{"success":true,"isAdmin":true,"adminId":"A1"}`
	fake.block = make(chan struct{})
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	defer close(fake.block)

	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, 10*time.Millisecond)
	browser := newBrowser(t)

	resp, body := get(t, browser, ts.URL+"/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))
	assert.Contains(t, body, "Loading")

	resp, body = get(t, browser, ts.URL+"/api/products")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"loading":true}`, body)
}

func TestLoginDeleteLogout(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.requireLogin = true
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	resp, _ := get(t, browser, ts.URL+"/dashboard")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// Wrong password keeps the visitor on the login screen
	resp, body := postForm(t, browser, ts.URL+"/", url.Values{"email": {"a@b.c"}, "password": {"nope"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="a@b.c"`)

	resp, _ = postForm(t, browser, ts.URL+"/", url.Values{"email": {"a@b.c"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, _ = get(t, browser, ts.URL+"/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp, body = get(t, browser, ts.URL+"/products?search=kitchen")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ceramic Mug")
	assert.Contains(t, body, "Low Stock")
	assert.NotContains(t, body, "Linen Shirt")

	resp, body = postForm(t, browser, ts.URL+"/products/p1/delete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "deleted")
	assert.NotContains(t, body, "Ceramic Mug")
	assert.Contains(t, body, "Linen Shirt")

	resp, body = postForm(t, browser, ts.URL+"/products/p1/delete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Product not found")

	resp, _ = postForm(t, browser, ts.URL+"/logout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, _ = get(t, browser, ts.URL+"/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLogin_SurvivesRestart(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.requireLogin = true
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	db := openTestDB(t)
	browser := newBrowser(t)

	first := startServer(t, api.URL, db, &fakeEnqueuer{}, 2*time.Second)
	resp, _ := postForm(t, browser, first.URL+"/", url.Values{"email": {"a@b.c"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	// A second server over the same database restores the store API cookie
	// and its identity check succeeds.
	second := startServer(t, api.URL, db, &fakeEnqueuer{}, 2*time.Second)
	firstURL, err := url.Parse(first.URL)
	require.NoError(t, err)
	secondURL, err := url.Parse(second.URL)
	require.NoError(t, err)
	browser.Jar.SetCookies(secondURL, browser.Jar.Cookies(firstURL))

	resp, _ = get(t, browser, second.URL+"/dashboard")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPISession(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.requireLogin = true
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	post := func(path, body string) (*http.Response, string) {
		resp, err := browser.Post(ts.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp, string(data)
	}

	resp, body := get(t, browser, ts.URL+"/api/session")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"identity":"","loading":false,"authenticated":false}`, body)

	resp, body = post("/api/session/login", `{"email":"a@b.c","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")

	resp, body = post("/api/session/login", `{"email":"a@b.c","password":"secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"redirect":"/dashboard"`)

	resp, body = get(t, browser, ts.URL+"/api/products")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"stock":"Low Stock"`)

	resp, _ = post("/api/session/logout", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, browser, ts.URL+"/api/products")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCaptureMetrics_Enqueues(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.identity = `{"success":true,"isAdmin":true,"adminId":"A1"}`
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	enq := &fakeEnqueuer{}
	ts := startServer(t, api.URL, openTestDB(t), enq, 2*time.Second)
	browser := newBrowser(t)

	resp, _ := postForm(t, browser, ts.URL+"/analytics/capture", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "message=Capture+queued")

	require.Len(t, enq.tasks, 1)
	payload, err := tasks.ParseTaskPayload(enq.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, tasks.SourceDashboard, payload.Source)
	assert.NotEmpty(t, payload.SessionID)

	resp, body := get(t, browser, ts.URL+"/analytics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "No captures yet.")
}

func TestCustomersAndOrders(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.identity = `{"success":true,"isAdmin":true,"adminId":"A1"}`
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	resp, body := get(t, browser, ts.URL+"/orders?search=ada")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "665F1A2B3C4D5E6F7A8B9C0D")

	resp, body = get(t, browser, ts.URL+"/customers")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "ada@example.com")

}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "storeadmin_session" {
			return c
		}
	}
	return nil
}

func TestSessionCookie_SlidesWithActivity(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.identity = `{"success":true,"isAdmin":true,"adminId":"A1"}`
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	db := openTestDB(t)
	registry := newTestRegistry(api.URL, db)
	ts := serve(t, api.URL, db, registry, &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	resp, _ := get(t, browser, ts.URL+"/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := sessionCookie(resp)
	require.NotNil(t, first)
	assert.Equal(t, 3600, first.MaxAge)

	// Inside the touch interval the browser keeps its cookie
	resp, _ = get(t, browser, ts.URL+"/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, sessionCookie(resp))

	// Once a touch is due the cookie is re-issued with a fresh Max-Age
	registry.SetTouchInterval(0)
	resp, _ = get(t, browser, ts.URL+"/dashboard")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := sessionCookie(resp)
	require.NotNil(t, refreshed)
	assert.Equal(t, 3600, refreshed.MaxAge)

	id, err := mustTokens(t).Parse(refreshed.Value)
	require.NoError(t, err)
	firstID, err := mustTokens(t).Parse(first.Value)
	require.NoError(t, err)
	assert.Equal(t, firstID, id)
}

func mustTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(testSecret, 0)
	require.NoError(t, err)
	return tokens
}

func TestRegister_StaysInRegisterMode(t *testing.T) {
	fake := newFakeStoreAPI()
	fake.requireLogin = true
	api := httptest.NewServer(fake.handler())
	defer api.Close()
	ts := startServer(t, api.URL, openTestDB(t), &fakeEnqueuer{}, 2*time.Second)
	browser := newBrowser(t)

	resp, body := postForm(t, browser, ts.URL+"/", url.Values{
		"mode":     {"register"},
		"name":     {"Ada"},
		"email":    {"ada@example.com"},
		"password": {"secret"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Admin registered")
	assert.Contains(t, body, "Admin Register")

	// Registering does not log the admin in
	resp, _ = get(t, browser, ts.URL+"/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}
