package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/storeadmin-dev/storeadmin/internal/analytics"
	"github.com/storeadmin-dev/storeadmin/internal/models"
	"github.com/storeadmin-dev/storeadmin/internal/orders"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
	"github.com/storeadmin-dev/storeadmin/internal/tasks"
)

// MetricsResponse is the JSON view of the dashboard metrics
type MetricsResponse struct {
	Current analytics.Metrics       `json:"current"`
	Cards   []analytics.Card        `json:"cards"`
	History []models.MetricSnapshot `json:"history"`
}

// currentMetrics computes live metrics and the cards comparing them to the
// last captured snapshot
func (s *Server) currentMetrics(c *gin.Context) (analytics.Metrics, []analytics.Card, []storeapi.Order, error) {
	entry, _ := GetSessionEntry(c)
	ctx := c.Request.Context()

	current, orderList, err := s.analyticsService.Current(ctx, entry.Client)
	if err != nil {
		return analytics.Metrics{}, nil, nil, err
	}

	var previous *analytics.Metrics
	latest, err := s.analyticsService.Latest(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load latest metric snapshot")
	} else if latest != nil {
		m := analytics.FromSnapshot(*latest)
		previous = &m
	}

	return current, analytics.Cards(current, previous), orderList, nil
}

func (s *Server) dashboardPage(c *gin.Context) {
	_, cards, orderList, err := s.currentMetrics(c)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load dashboard data")
		s.render(c, http.StatusOK, "dashboard.html", gin.H{
			"Cards":  analytics.Cards(analytics.Metrics{}, nil),
			"Orders": []storeapi.Order{},
			"Error":  storeapi.MessageOf(err, "Failed to load dashboard data"),
		})
		return
	}

	s.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Cards":  cards,
		"Orders": orders.SortNewest(orderList),
	})
}

func (s *Server) analyticsPage(c *gin.Context) {
	history, err := s.analyticsService.History(c.Request.Context(), analytics.DefaultHistory)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list metric snapshots")
		s.render(c, http.StatusInternalServerError, "analytics.html", gin.H{"Error": "Failed to load analytics"})
		return
	}

	s.render(c, http.StatusOK, "analytics.html", gin.H{
		"Snapshots": history,
	})
}

func (s *Server) captureMetrics(c *gin.Context) {
	entry, _ := GetSessionEntry(c)

	task, err := tasks.NewCaptureMetricsTask(tasks.SourceDashboard, entry.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create capture task")
		c.Redirect(http.StatusSeeOther, "/analytics?error="+url.QueryEscape("Failed to queue capture"))
		return
	}

	info, err := s.enqueuer.Enqueue(task)
	switch {
	case errors.Is(err, asynq.ErrDuplicateTask):
		c.Redirect(http.StatusSeeOther, "/analytics?message="+url.QueryEscape("A capture is already queued"))
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to enqueue capture task")
		c.Redirect(http.StatusSeeOther, "/analytics?error="+url.QueryEscape("Failed to queue capture"))
	default:
		s.logger.Info().Str("task_id", info.ID).Str("session_id", entry.ID).Msg("Metrics capture queued")
		c.Redirect(http.StatusSeeOther, "/analytics?message="+url.QueryEscape("Capture queued"))
	}
}

func (s *Server) getMetrics(c *gin.Context) {
	current, cards, _, err := s.currentMetrics(c)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to compute metrics")
		c.JSON(http.StatusBadGateway, gin.H{"error": storeapi.MessageOf(err, "Failed to load metrics")})
		return
	}

	history, err := s.analyticsService.History(c.Request.Context(), analytics.DefaultHistory)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list metric snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, MetricsResponse{Current: current, Cards: cards, History: history})
}
