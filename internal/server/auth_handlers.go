package server

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/storeadmin-dev/storeadmin/internal/gate"
	"github.com/storeadmin-dev/storeadmin/internal/login"
	"github.com/storeadmin-dev/storeadmin/internal/session"
)

// SessionResponse is the JSON view of a browser session
type SessionResponse struct {
	Identity      string `json:"identity"`
	Loading       bool   `json:"loading"`
	Authenticated bool   `json:"authenticated"`
}

func (s *Server) loginPage(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	_, decision := gate.Evaluate(c.Request.Context(), entry.Store, s.config.Session.GateWait)
	if decision == gate.Allow {
		c.Redirect(http.StatusSeeOther, login.DashboardPath)
		return
	}

	s.render(c, http.StatusOK, "login.html", gin.H{
		"Mode":  login.ParseMode(c.Query("mode")),
		"Error": c.Query("error"),
	})
}

func (s *Server) submitCredentials(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	var form login.Form
	if err := c.ShouldBind(&form); err != nil {
		s.render(c, http.StatusBadRequest, "login.html", gin.H{"Mode": login.ModeLogin, "Error": "Invalid form"})
		return
	}
	form.Mode = login.ParseMode(string(form.Mode))

	result := s.loginService.Submit(c.Request.Context(), entry.Client, entry.Store, form)
	if result.Success && result.Redirect != "" {
		s.persistSession(c, entry)
		c.Redirect(http.StatusSeeOther, result.Redirect)
		return
	}

	data := gin.H{
		"Mode":    form.Mode,
		"Error":   result.Error,
		"Message": result.Message,
	}
	if !result.Success {
		// Keep what was typed, except the password
		data["Name"] = form.Name
		data["Email"] = form.Email
	}
	s.render(c, http.StatusOK, "login.html", data)
}

func (s *Server) logout(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	result := s.loginService.Logout(c.Request.Context(), entry.Client, entry.Store)
	if !result.Success {
		c.Redirect(http.StatusSeeOther, login.DashboardPath+"?error="+url.QueryEscape(result.Error))
		return
	}

	s.discardSession(c, entry)
	c.Redirect(http.StatusSeeOther, result.Redirect)
}

func (s *Server) getSession(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	state, _ := gate.Evaluate(c.Request.Context(), entry.Store, s.config.Session.GateWait)
	c.JSON(http.StatusOK, SessionResponse{
		Identity:      state.Identity,
		Loading:       state.Loading,
		Authenticated: state.Authenticated(),
	})
}

func (s *Server) apiLogin(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	var form login.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	form.Mode = login.ParseMode(string(form.Mode))

	result := s.loginService.Submit(c.Request.Context(), entry.Client, entry.Store, form)
	switch {
	case result.Success:
		if form.Mode == login.ModeLogin {
			s.persistSession(c, entry)
		}
		c.JSON(http.StatusOK, result)
	case form.Mode == login.ModeRegister:
		c.JSON(http.StatusBadRequest, result)
	default:
		c.JSON(http.StatusUnauthorized, result)
	}
}

func (s *Server) apiLogout(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	result := s.loginService.Logout(c.Request.Context(), entry.Client, entry.Store)
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}

	s.discardSession(c, entry)
	c.JSON(http.StatusOK, result)
}

// persistSession saves the store API cookies so the login survives restarts
func (s *Server) persistSession(c *gin.Context, entry *session.Entry) {
	if err := s.registry.Persist(c.Request.Context(), entry); err != nil {
		s.logger.Warn().Err(err).Str("session_id", entry.ID).Msg("Failed to persist browser session")
	}
}

func (s *Server) discardSession(c *gin.Context, entry *session.Entry) {
	if err := s.registry.Discard(c.Request.Context(), entry); err != nil {
		s.logger.Warn().Err(err).Str("session_id", entry.ID).Msg("Failed to clear browser session")
	}
}

var pageTitles = map[string]string{
	"login.html":        "Login",
	"dashboard.html":    "Dashboard",
	"products.html":     "Products",
	"product.html":      "Product",
	"product_form.html": "Product",
	"orders.html":       "Orders",
	"customers.html":    "Customers",
	"analytics.html":    "Analytics",
}

// render executes a page template with the layout data every page needs
func (s *Server) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if entry, ok := GetSessionEntry(c); ok {
		state := entry.Store.State()
		data["Authenticated"] = state.Authenticated()
		data["Identity"] = state.Identity
	}
	data["Path"] = c.Request.URL.Path
	if _, ok := data["Title"]; !ok {
		data["Title"] = pageTitles[page]
	}
	if _, ok := data["Message"]; !ok {
		data["Message"] = c.Query("message")
	}
	if _, ok := data["Error"]; !ok {
		data["Error"] = c.Query("error")
	}
	c.HTML(status, page, data)
}
