package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/storeadmin-dev/storeadmin/internal/cli/auth"
	"github.com/storeadmin-dev/storeadmin/internal/cli/client"
	"github.com/storeadmin-dev/storeadmin/internal/cli/config"
	"github.com/storeadmin-dev/storeadmin/internal/cli/userconfig"
	"github.com/storeadmin-dev/storeadmin/internal/login"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

// mockStoreAPI answers the identity check only for the cookie adminLogin sets
type mockStoreAPI struct {
	url      string
	mu       sync.Mutex
	products []storeapi.Product
	logouts  int
}

func (m *mockStoreAPI) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (m *mockStoreAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/get-admin", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("token"); err != nil || c.Value != "valid" {
			m.write(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Not logged in"})
			return
		}
		m.write(w, http.StatusOK, map[string]any{"success": true, "isAdmin": true, "data": map[string]any{"data": map[string]string{"_id": "A1"}}})
	})
	mux.HandleFunc("POST /api/admin/adminLogin", func(w http.ResponseWriter, r *http.Request) {
		var creds storeapi.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			m.write(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "valid", Path: "/"})
		m.write(w, http.StatusOK, map[string]any{"success": true, "message": "Login successful", "admin": map[string]string{"id": "A1"}})
	})
	mux.HandleFunc("POST /api/admin/register", func(w http.ResponseWriter, r *http.Request) {
		m.write(w, http.StatusOK, map[string]any{"success": true, "message": "Admin registered successfully"})
	})
	mux.HandleFunc("POST /api/admin/adminLogout", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.logouts++
		m.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1})
		m.write(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("GET /api/product/getProductAll", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.write(w, http.StatusOK, map[string]any{"success": true, "data": m.products})
	})
	mux.HandleFunc("GET /api/product/getproduct/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, p := range m.products {
			if p.ID == r.PathValue("id") {
				m.write(w, http.StatusOK, map[string]any{"success": true, "data": p})
				return
			}
		}
		m.write(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
	})
	mux.HandleFunc("DELETE /api/product/deleteProduct/{id}", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, p := range m.products {
			if p.ID == r.PathValue("id") {
				m.products = append(m.products[:i], m.products[i+1:]...)
				m.write(w, http.StatusOK, map[string]any{"success": true, "message": "Product deleted"})
				return
			}
		}
		m.write(w, http.StatusNotFound, map[string]any{"success": false, "message": "Product not found"})
	})
	mux.HandleFunc("GET /api/order/recentOrder", func(w http.ResponseWriter, r *http.Request) {
		m.write(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{
			{"_id": "665f1a2b3c4d5e6f7a8b9c0d", "name": "Ada", "email": "ada@example.com", "paymentStatus": "paid", "totalAmount": 1250.5, "createdAt": "2024-05-01T10:00:00Z"},
			{"_id": "665f1a2b3c4d5e6f7a8b9c0e", "name": "Grace", "email": "grace@example.com", "paymentStatus": "pending", "totalAmount": 80, "createdAt": "2024-05-02T10:00:00Z"},
		}})
	})
	return mux
}

// setupCLI starts a mock store API, mocks the keyring and returns options
// that point commands at it
func setupCLI(t *testing.T) (*mockStoreAPI, *bytes.Buffer, []Option) {
	t.Helper()
	keyring.MockInit()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("STOREADMIN_EMAIL", "")
	t.Setenv("STOREADMIN_PASSWORD", "")

	api := &mockStoreAPI{products: []storeapi.Product{
		{ID: "p1", Name: "Ceramic Mug", Category: "Kitchen", Price: 12, Quantity: 4},
		{ID: "p2", Name: "Linen Shirt", Category: "Apparel", Price: 1500, Quantity: 25},
	}}
	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)
	api.url = ts.URL

	var out bytes.Buffer
	server := &config.Server{Alias: "test", URL: ts.URL}
	return api, &out, []Option{WithServer(server), WithOutput(&out)}
}

func confirmWith(answer bool) Option {
	return WithConfirm(func(string) (bool, error) { return answer, nil })
}

func loginForTest(t *testing.T, opts []Option) {
	t.Helper()
	err := runSubmit(context.Background(), login.ModeLogin, login.Form{Email: "admin@example.com", Password: "secret"}, "", opts...)
	require.NoError(t, err)
}

func TestLogin_SavesSession(t *testing.T) {
	_, out, opts := setupCLI(t)

	loginForTest(t, opts)
	assert.Contains(t, out.String(), "Login successful")
	assert.Contains(t, out.String(), "Admin: A1")

	out.Reset()
	require.NoError(t, runWhoami(context.Background(), "", opts...))
	assert.Contains(t, out.String(), "A1 on test")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	_, _, opts := setupCLI(t)

	err := runSubmit(context.Background(), login.ModeLogin, login.Form{Email: "admin@example.com", Password: "wrong"}, "", opts...)
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())

	err = runWhoami(context.Background(), "", opts...)
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
}

func TestLogin_EmailFromEnvironment(t *testing.T) {
	_, _, opts := setupCLI(t)

	err := runSubmit(context.Background(), login.ModeLogin, login.Form{Password: "secret"}, "", opts...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email is required")

	t.Setenv("STOREADMIN_EMAIL", "admin@example.com")
	t.Setenv("STOREADMIN_PASSWORD", "secret")
	require.NoError(t, runSubmit(context.Background(), login.ModeLogin, login.Form{}, "", opts...))
}

func TestRegister(t *testing.T) {
	_, out, opts := setupCLI(t)

	err := runSubmit(context.Background(), login.ModeRegister, login.Form{Email: "new@example.com", Password: "pw"}, "", opts...)
	require.Error(t, err)
	assert.Equal(t, "Please fill in: name", err.Error())

	require.NoError(t, runSubmit(context.Background(), login.ModeRegister, login.Form{Name: "New", Email: "new@example.com", Password: "pw"}, "", opts...))
	assert.Contains(t, out.String(), "Admin registered successfully")

	// Registering does not log in
	err = runWhoami(context.Background(), "", opts...)
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)
}

func TestProtectedCommands_RequireLogin(t *testing.T) {
	_, _, opts := setupCLI(t)

	assert.ErrorIs(t, runProductsList(context.Background(), "", "", opts...), client.ErrNotAuthenticated)
	assert.ErrorIs(t, runProductShow(context.Background(), "", "p1", opts...), client.ErrNotAuthenticated)
	assert.ErrorIs(t, runProductDelete(context.Background(), "", "p1", append(opts, confirmWith(true))...), client.ErrNotAuthenticated)
	assert.ErrorIs(t, runOrdersList(context.Background(), "", "", opts...), client.ErrNotAuthenticated)
}

func TestProductsList(t *testing.T) {
	_, out, opts := setupCLI(t)
	loginForTest(t, opts)

	out.Reset()
	require.NoError(t, runProductsList(context.Background(), "", "", opts...))
	assert.Contains(t, out.String(), "Ceramic Mug")
	assert.Contains(t, out.String(), "Low Stock")
	assert.Contains(t, out.String(), "₹1,500.00")

	out.Reset()
	require.NoError(t, runProductsList(context.Background(), "", "apparel", opts...))
	assert.NotContains(t, out.String(), "Ceramic Mug")
	assert.Contains(t, out.String(), "Linen Shirt")

	out.Reset()
	require.NoError(t, runProductsList(context.Background(), "", "nothing-matches", opts...))
	assert.Contains(t, out.String(), "No products found.")
}

func TestProductShow(t *testing.T) {
	_, out, opts := setupCLI(t)
	loginForTest(t, opts)

	out.Reset()
	require.NoError(t, runProductShow(context.Background(), "", "p2", opts...))
	assert.Contains(t, out.String(), "Linen Shirt")
	assert.Contains(t, out.String(), "25 (In Stock)")

	err := runProductShow(context.Background(), "", "missing", opts...)
	require.Error(t, err)
	assert.Equal(t, "Product not found", err.Error())
}

func TestProductDelete(t *testing.T) {
	api, out, opts := setupCLI(t)
	loginForTest(t, opts)

	out.Reset()
	require.NoError(t, runProductDelete(context.Background(), "", "p1", append(opts, confirmWith(false))...))
	assert.Contains(t, out.String(), "Delete cancelled")
	assert.Len(t, api.products, 2)

	out.Reset()
	require.NoError(t, runProductDelete(context.Background(), "", "p1", append(opts, confirmWith(true))...))
	assert.Contains(t, out.String(), "Product deleted")
	assert.Contains(t, out.String(), "1 products remaining")

	err := runProductDelete(context.Background(), "", "p1", append(opts, confirmWith(true))...)
	require.Error(t, err)
	assert.Equal(t, "Product not found", err.Error())
}

func TestOrdersList(t *testing.T) {
	_, out, opts := setupCLI(t)
	loginForTest(t, opts)

	out.Reset()
	require.NoError(t, runOrdersList(context.Background(), "", "", opts...))
	output := out.String()
	assert.Contains(t, output, "#8B9C0D")
	assert.Contains(t, output, "PAID")
	assert.Contains(t, output, "₹1,250.50")
	// Newest first
	assert.Less(t, bytes.Index(out.Bytes(), []byte("Grace")), bytes.Index(out.Bytes(), []byte("Ada")))

	out.Reset()
	require.NoError(t, runOrdersList(context.Background(), "", "grace@", opts...))
	assert.NotContains(t, out.String(), "Ada")
}

func TestLogout(t *testing.T) {
	api, out, opts := setupCLI(t)
	loginForTest(t, opts)

	out.Reset()
	require.NoError(t, runLogout(context.Background(), "", append(opts, confirmWith(false))...))
	assert.Contains(t, out.String(), "Logout cancelled")
	assert.Zero(t, api.logouts)
	require.NoError(t, runWhoami(context.Background(), "", opts...))

	out.Reset()
	require.NoError(t, runLogout(context.Background(), "", append(opts, confirmWith(true))...))
	assert.Contains(t, out.String(), "Logged out")
	assert.Equal(t, 1, api.logouts)

	cookies, err := auth.Default.LoadCookies(api.url)
	require.NoError(t, err)
	assert.Empty(t, cookies)

	assert.ErrorIs(t, runProductsList(context.Background(), "", "", opts...), client.ErrNotAuthenticated)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	var out bytes.Buffer

	require.NoError(t, runInit("http://localhost:4000/", "", "http://localhost:8080", WithOutput(&out)))
	assert.Contains(t, out.String(), "Created ./storeadmin.yaml")

	require.NoError(t, runInit("https://api.example.com", "staging", "", WithOutput(&out)))
	require.NoError(t, runInit("http://localhost:4000", "", "", WithOutput(&out)))
	assert.Contains(t, out.String(), "already exists")

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, config.Server{Alias: "production", URL: "http://localhost:4000", Panel: "http://localhost:8080"}, cfg.Servers[0])
	assert.Equal(t, "staging", cfg.Servers[1].Alias)

	assert.Error(t, runInit("localhost:4000", "", "", WithOutput(&out)))
}

func TestSelectServer(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, config.Save(filepath.Join(dir, config.ConfigFileName), &config.Config{Servers: []config.Server{
		{Alias: "production", URL: "https://api.example.com"},
		{Alias: "staging", URL: "http://localhost:4000"},
	}}))
	var out bytes.Buffer

	require.NoError(t, runSelectServer("staging", WithOutput(&out)))
	assert.Contains(t, out.String(), "Selected server: staging")

	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", selected)

	e := newEnv()
	server, err := e.resolveServer("")
	require.NoError(t, err)
	assert.Equal(t, "staging", server.Alias)

	assert.Error(t, runSelectServer("missing", WithOutput(&out)))
}

func TestCommands_NoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	err := runWhoami(context.Background(), "", WithOutput(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storeadmin init")
}

func TestDash_NoPanel(t *testing.T) {
	server := &config.Server{Alias: "test", URL: "http://localhost:4000"}
	err := runDash("", WithServer(server), WithOutput(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panel")
}
