package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/storeadmin-dev/storeadmin/internal/analytics"
	"github.com/storeadmin-dev/storeadmin/internal/login"
	"github.com/storeadmin-dev/storeadmin/internal/session"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
	"github.com/storeadmin-dev/storeadmin/internal/tasks"
)

// MetricsCapturer stores metric snapshots using a service account on the
// store API. It keeps one store API session for the life of the worker.
type MetricsCapturer struct {
	mu        sync.Mutex
	client    *storeapi.Client
	store     *session.Store
	login     *login.Service
	analytics *analytics.Service
	email     string
	password  string
	retention time.Duration
	logger    zerolog.Logger
}

// NewMetricsCapturer creates a capturer. Credentials may be empty when the
// store API does not require a session for reads.
func NewMetricsCapturer(client *storeapi.Client, loginService *login.Service, analyticsService *analytics.Service, email, password string, retention time.Duration, logger zerolog.Logger) *MetricsCapturer {
	logger = logger.With().Str("component", "metrics_capture").Logger()
	return &MetricsCapturer{
		client:    client,
		store:     session.NewStore(logger),
		login:     loginService,
		analytics: analyticsService,
		email:     email,
		password:  password,
		retention: retention,
		logger:    logger,
	}
}

// HandleCaptureMetrics processes a metrics:capture task
func (m *MetricsCapturer) HandleCaptureMetrics(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseTaskPayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logger.With().Str("source", payload.Source).Str("session_id", payload.SessionID).Logger()

	if err := m.ensureSession(ctx); err != nil {
		log.Warn().Err(err).Msg("No store API session, capturing anonymously")
	}

	snapshot, err := m.analytics.Capture(ctx, m.client)
	var apiErr *storeapi.APIError
	if errors.As(err, &apiErr) && apiErr.Unauthorized() {
		log.Info().Msg("Store API session expired, logging in again")
		m.store.SetIdentity("")
		if loginErr := m.authenticate(ctx); loginErr != nil {
			return fmt.Errorf("failed to capture metrics: %w", loginErr)
		}
		snapshot, err = m.analytics.Capture(ctx, m.client)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to capture metrics")
		return fmt.Errorf("failed to capture metrics: %w", err)
	}

	if m.retention > 0 {
		pruned, err := m.analytics.PruneBefore(ctx, snapshot.CapturedAt.Add(-m.retention))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to prune old metric snapshots")
		} else if pruned > 0 {
			log.Info().Int64("pruned", pruned).Msg("Pruned old metric snapshots")
		}
	}

	return nil
}

// ensureSession runs the identity check once and logs in when it comes back
// without an admin
func (m *MetricsCapturer) ensureSession(ctx context.Context) error {
	m.store.Initialize(ctx, m.client)
	if m.store.State().Authenticated() {
		return nil
	}
	return m.authenticate(ctx)
}

func (m *MetricsCapturer) authenticate(ctx context.Context) error {
	if m.email == "" {
		return fmt.Errorf("STORE_API_EMAIL is not set")
	}

	result := m.login.Submit(ctx, m.client, m.store, login.Form{
		Mode:     login.ModeLogin,
		Email:    m.email,
		Password: m.password,
	})
	if !result.Success {
		return fmt.Errorf("failed to log in to store API: %s", result.Error)
	}
	return nil
}
