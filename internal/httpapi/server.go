package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck/internal/accounts"
	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/logger"
	"github.com/taskdeck/taskdeck/internal/projects"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

const ctxUserID = "userID"

// Server wires the domain services into an HTTP JSON API
type Server struct {
	accounts *accounts.Service
	projects *projects.Service
	tasks    *tasks.Service
	sessions *SessionManager
	log      logger.Logger
}

// NewServer builds the API server
func NewServer(acc *accounts.Service, prj *projects.Service, tsk *tasks.Service, sessions *SessionManager) *Server {
	return &Server{
		accounts: acc,
		projects: prj,
		tasks:    tsk,
		sessions: sessions,
		log:      logger.HTTP(),
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", s.handleSignUp)
		auth.POST("/sign-in", s.handleSignIn)
	}

	api := r.Group("/api", s.requireSession)
	{
		api.GET("/me", s.handleProfile)
		api.PATCH("/me", s.handleUpdateProfile)
		api.GET("/me/tasks", s.handleMyTasks)
		api.GET("/me/dashboard", s.handleDashboard)
		api.GET("/users", s.handleSearchUsers)

		api.GET("/projects", s.handleListProjects)
		api.GET("/projects/sidebar", s.handleSidebarProjects)
		api.POST("/projects", s.handleCreateProject)
		api.GET("/projects/:id", s.handleGetProject)
		api.PATCH("/projects/:id", s.handleUpdateProject)
		api.DELETE("/projects/:id", s.handleDeleteProject)
		api.POST("/projects/:id/members", s.handleAddMember)
		api.DELETE("/projects/:id/members/:userId", s.handleRemoveMember)
		api.GET("/projects/:id/candidates", s.handleUsersNotInProject)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/toggle", s.handleToggleTask)

		api.GET("/tags", s.handleListTags)
		api.POST("/tags", s.handleCreateTag)
	}

	return r
}

// requireSession validates the bearer token and stashes the user id
func (s *Server) requireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	userID, err := s.sessions.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// fail maps a domain error onto an HTTP status and a short message body
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.Unauthorized(err):
		status = http.StatusUnauthorized
	case apperr.Forbidden(err):
		status = http.StatusForbidden
	case apperr.NotFound(err):
		status = http.StatusNotFound
	case apperr.BadRequest(err):
		status = http.StatusBadRequest
	case apperr.Conflict(err):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	} else {
		s.log.Debug("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}

	var e *apperr.Error
	msg := apperr.UserMessage(err)
	if !errors.As(err, &e) && status != http.StatusInternalServerError {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
