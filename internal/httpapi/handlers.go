package httpapi

import (
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck/internal/accounts"
	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/projects"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

// --- auth ---

type signUpRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleSignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords don't match"})
		return
	}

	res, err := s.accounts.SignUp(c.Request.Context(), accounts.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	user, err := s.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		s.fail(c, apperr.Wrap(err, apperr.ErrInternal, "httpapi.SignIn"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// --- profile / users ---

func (s *Server) handleProfile(c *gin.Context) {
	user, err := s.accounts.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateProfileRequest struct {
	Name  models.Optional[string] `json:"name"`
	Image models.Optional[string] `json:"image"`
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	user, err := s.accounts.UpdateProfile(c.Request.Context(), currentUser(c), accounts.UpdateProfileInput{
		Name:  req.Name,
		Image: req.Image,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleSearchUsers(c *gin.Context) {
	users, err := s.accounts.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(users))
}

func (s *Server) handleDashboard(c *gin.Context) {
	stats, err := s.accounts.Dashboard(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleMyTasks(c *gin.Context) {
	filter := tasks.AssignedFilter{
		SortBy:    c.DefaultQuery("sortBy", "createdAt"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	}
	if !tasks.ValidSortField(filter.SortBy) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort field"})
		return
	}
	if !tasks.ValidSortOrder(filter.SortOrder) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort order"})
		return
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		filter.Status = &status
	}

	ts, err := s.tasks.ListAssigned(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, taskResponses(ts))
}

// --- projects ---

func (s *Server) handleListProjects(c *gin.Context) {
	ps, err := s.projects.ListForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(ps))
}

func (s *Server) handleSidebarProjects(c *gin.Context) {
	ps, err := s.projects.ListSidebar(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(ps))
}

type createProjectRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	p, err := s.projects.Create(c.Request.Context(), currentUser(c), projects.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleGetProject(c *gin.Context) {
	detail, err := s.projects.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

type updateProjectRequest struct {
	Title       models.Optional[string] `json:"title"`
	Description models.Optional[string] `json:"description"`
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	p, err := s.projects.Update(c.Request.Context(), currentUser(c), c.Param("id"), projects.UpdateProjectInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	if err := s.projects.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMemberRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleAddMember(c *gin.Context) {
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		badJSON(c)
		return
	}

	if err := s.projects.AddMember(c.Request.Context(), currentUser(c), c.Param("id"), req.UserID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	if err := s.projects.RemoveMember(c.Request.Context(), currentUser(c), c.Param("id"), c.Param("userId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUsersNotInProject(c *gin.Context) {
	users, err := s.projects.UsersNotInProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(users))
}

// --- tasks ---

// taskResponse augments the task payload with a relative due label and
// display names for the enums.
type taskResponse struct {
	models.Task
	StatusDisplay   string `json:"statusDisplay"`
	PriorityDisplay string `json:"priorityDisplay"`
	DueLabel        string `json:"dueLabel,omitempty"`
	Bucket          string `json:"bucket"`
}

func newTaskResponse(t models.Task) taskResponse {
	resp := taskResponse{
		Task:            t,
		StatusDisplay:   t.Status.Display(),
		PriorityDisplay: t.Priority.Display(),
		Bucket:          string(tasks.BucketFor(t, time.Now())),
	}
	if t.DueDate != nil {
		resp.DueLabel = humanize.Time(*t.DueDate)
	}
	return resp
}

func taskResponses(ts []models.Task) []taskResponse {
	out := make([]taskResponse, len(ts))
	for i, t := range ts {
		out[i] = newTaskResponse(t)
	}
	return out
}

func (s *Server) handleListTasks(c *gin.Context) {
	var projectID *string
	if id := c.Query("projectId"); id != "" {
		projectID = &id
	}

	ts, err := s.tasks.List(c.Request.Context(), currentUser(c), projectID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, taskResponses(ts))
}

type createTaskRequest struct {
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	ProjectID   *string             `json:"projectId"`
	DueDate     *time.Time          `json:"dueDate"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	AssigneeIDs []string            `json:"assigneeIds"`
	TagIDs      []string            `json:"tagIds"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	t, err := s.tasks.Create(c.Request.Context(), currentUser(c), tasks.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeIDs: req.AssigneeIDs,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTaskResponse(*t))
}

func (s *Server) handleGetTask(c *gin.Context) {
	t, err := s.tasks.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(*t))
}

type updateTaskRequest struct {
	Title       models.Optional[string]              `json:"title"`
	Description models.Optional[string]              `json:"description"`
	Status      models.Optional[models.TaskStatus]   `json:"status"`
	Priority    models.Optional[models.TaskPriority] `json:"priority"`
	DueDate     models.Optional[time.Time]           `json:"dueDate"`
	ProjectID   models.Optional[string]              `json:"projectId"`
	AssigneeIDs models.Optional[[]string]            `json:"assigneeIds"`
	TagIDs      models.Optional[[]string]            `json:"tagIds"`
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	t, err := s.tasks.Update(c.Request.Context(), currentUser(c), c.Param("id"), tasks.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
		AssigneeIDs: req.AssigneeIDs,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(*t))
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.tasks.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleToggleTask(c *gin.Context) {
	t, err := s.tasks.ToggleCompletion(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newTaskResponse(*t))
}

// --- tags ---

func (s *Server) handleListTags(c *gin.Context) {
	tags, err := s.tasks.ListTags(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(tags))
}

type createTagRequest struct {
	Name      string  `json:"name"`
	ColorCode *string `json:"colorCode"`
}

func (s *Server) handleCreateTag(c *gin.Context) {
	var req createTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	tag, err := s.tasks.CreateTag(c.Request.Context(), tasks.CreateTagInput{
		Name:      req.Name,
		ColorCode: req.ColorCode,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// orEmpty keeps empty list responses as [] instead of null
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
