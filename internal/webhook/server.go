// Package webhook exposes the orchestration triggers over HTTP.
package webhook

import (
	"context"
	"net/http"

	"github.com/danielolaszy/covalynce/internal/github"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/gin-gonic/gin"
	gh "github.com/google/go-github/v41/github"
)

const (
	headerUserID     = "X-User-Id"
	actionClosed     = "closed"
	eventPullRequest = "pull_request"
	eventPing        = "ping"
)

// MergeHandler handles merged pull requests.
type MergeHandler interface {
	HandleMerge(ctx context.Context, pr models.PullRequestRecord, userID string) models.MergeResult
}

// StoryReconciler checks a user's stories on demand.
type StoryReconciler interface {
	Reconcile(ctx context.Context, userID string) []models.StoryTrackingEntry
}

// Server is the HTTP trigger surface.
type Server struct {
	merges  MergeHandler
	stories StoryReconciler
	secret  []byte
	router  *gin.Engine
}

// NewServer creates a new webhook server. An empty secret disables
// signature validation.
func NewServer(merges MergeHandler, stories StoryReconciler, secret string) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		merges:  merges,
		stories: stories,
		secret:  []byte(secret),
		router:  router,
	}

	router.GET("/healthz", s.handleHealth)
	router.POST("/webhooks/github", s.handleGitHubWebhook)
	router.POST("/stories/check", s.handleStoryCheck)

	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server
func (s *Server) Run(addr string) error {
	logging.Info("webhook server listening", "addr", addr)
	return s.router.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logging.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

// handleGitHubWebhook relays closed pull request events to the merge handler.
// The user the repository belongs to is passed as the user_id query
// parameter of the webhook URL.
func (s *Server) handleGitHubWebhook(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}

	payload, err := gh.ValidatePayload(c.Request, s.secret)
	if err != nil {
		logging.Warn("rejected github webhook", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
		return
	}

	eventType := gh.WebHookType(c.Request)
	if eventType == eventPing {
		c.JSON(http.StatusOK, gin.H{"status": "pong"})
		return
	}
	if eventType != eventPullRequest {
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored", "reason": "unsupported event " + eventType})
		return
	}

	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		logging.Warn("failed to parse github webhook", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}

	prEvent, ok := event.(*gh.PullRequestEvent)
	if !ok || prEvent.GetAction() != actionClosed {
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored", "reason": "pull request not closed"})
		return
	}

	result := s.merges.HandleMerge(c.Request.Context(), github.FromPullRequest(prEvent.GetPullRequest()), userID)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStoryCheck(c *gin.Context) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": headerUserID + " header is required"})
		return
	}

	entries := s.stories.Reconcile(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"stories": entries})
}
