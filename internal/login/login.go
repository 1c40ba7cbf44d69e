// Package login submits admin credentials to the store API and records the
// outcome in the session store.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/session"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
)

const (
	// DashboardPath is where a successful login navigates
	DashboardPath = "/dashboard"
	// LoginPath is where a successful logout navigates
	LoginPath = "/"

	fallbackMessage = "Server error"
)

// Mode selects between logging in and registering
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)

// ParseMode maps a form or query value to a mode, defaulting to login
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeRegister)) {
		return ModeRegister
	}
	return ModeLogin
}

// Form is the credential form. Name is only required when registering.
type Form struct {
	Mode     Mode   `form:"mode" json:"mode"`
	Name     string `form:"name" json:"name" validate:"required_if=Mode register"`
	Email    string `form:"email" json:"email" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Result is what the login screen shows after a submission. Redirect is set
// when the caller should navigate away.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Authenticator is the part of the store API the login flow talks to
type Authenticator interface {
	Login(ctx context.Context, creds storeapi.Credentials) (*storeapi.AuthResponse, error)
	Register(ctx context.Context, creds storeapi.Credentials) (*storeapi.AuthResponse, error)
	Logout(ctx context.Context) error
}

// Service handles credential submission and logout
type Service struct {
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewService creates a new login service
func NewService(validate *validator.Validate, logger zerolog.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	return &Service{
		validate: validate,
		logger:   logger.With().Str("component", "login_service").Logger(),
	}
}

// Submit sends form to the login or register endpoint. A successful login
// records the admin identity in store. Failures leave store untouched.
func (s *Service) Submit(ctx context.Context, api Authenticator, store session.Writer, form Form) Result {
	if form.Mode != ModeRegister {
		form.Mode = ModeLogin
	}

	if err := s.validate.Struct(form); err != nil {
		return Result{Error: validationMessage(err)}
	}

	creds := storeapi.Credentials{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	}

	if form.Mode == ModeRegister {
		creds.Name = strings.TrimSpace(form.Name)
		resp, err := api.Register(ctx, creds)
		if err != nil {
			s.logger.Warn().Err(err).Str("email", creds.Email).Msg("Admin registration failed")
			return Result{Error: storeapi.MessageOf(err, fallbackMessage)}
		}
		s.logger.Info().Str("email", creds.Email).Msg("Admin registered")
		return Result{Success: true, Message: resp.Message}
	}

	resp, err := api.Login(ctx, creds)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", creds.Email).Msg("Admin login failed")
		return Result{Error: storeapi.MessageOf(err, fallbackMessage)}
	}
	if resp.Admin == nil || resp.Admin.ID == "" {
		s.logger.Error().Str("email", creds.Email).Msg("Login response carried no admin id")
		return Result{Error: fallbackMessage}
	}

	store.SetIdentity(resp.Admin.ID)
	s.logger.Info().Str("admin_id", resp.Admin.ID).Msg("Admin logged in")

	return Result{Success: true, Message: resp.Message, Redirect: DashboardPath}
}

// Logout ends the store API session. The identity is cleared only when the
// store API confirms.
func (s *Service) Logout(ctx context.Context, api Authenticator, store session.Writer) Result {
	if err := api.Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Admin logout failed")
		return Result{Error: storeapi.MessageOf(err, "Logout failed")}
	}

	store.SetIdentity("")
	s.logger.Info().Msg("Admin logged out")

	return Result{Success: true, Redirect: LoginPath}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallbackMessage
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return fmt.Sprintf("Please fill in: %s", strings.Join(fields, ", "))
}
