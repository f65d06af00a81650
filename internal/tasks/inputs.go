package tasks

import (
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/models"
)

// CreateTaskInput carries the fields accepted when creating a task.
// Zero-valued Status/Priority take the TODO/MEDIUM defaults.
type CreateTaskInput struct {
	Title       string
	Description *string
	ProjectID   *string
	DueDate     *time.Time
	Status      models.TaskStatus
	Priority    models.TaskPriority
	AssigneeIDs []string
	TagIDs      []string
}

// Normalize applies defaults and the empty-string project sentinel
func (in *CreateTaskInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = models.TaskStatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if in.ProjectID != nil && *in.ProjectID == "" {
		in.ProjectID = nil
	}
}

// Validate checks the input after Normalize
func (in *CreateTaskInput) Validate() error {
	const op = "tasks.Create"
	if in.Title == "" {
		return apperr.New(apperr.ErrBadRequest, op, "Title is required")
	}
	if len(in.Title) > models.MaxTaskTitleLen {
		return apperr.New(apperr.ErrBadRequest, op, "Title must be at most %d characters", models.MaxTaskTitleLen)
	}
	if !in.Status.Valid() {
		return apperr.New(apperr.ErrBadRequest, op, "Invalid status %q", in.Status)
	}
	if !in.Priority.Valid() {
		return apperr.New(apperr.ErrBadRequest, op, "Invalid priority %q", in.Priority)
	}
	return nil
}

// UpdateTaskInput distinguishes absent fields (left untouched) from fields
// explicitly set, including set-to-null for the nullable ones. An explicit
// null or empty string for ProjectID detaches the task into a personal one.
// AssigneeIDs and TagIDs, when set, replace the full relation set.
type UpdateTaskInput struct {
	Title       models.Optional[string]
	Description models.Optional[string]
	Status      models.Optional[models.TaskStatus]
	Priority    models.Optional[models.TaskPriority]
	DueDate     models.Optional[time.Time]
	ProjectID   models.Optional[string]
	AssigneeIDs models.Optional[[]string]
	TagIDs      models.Optional[[]string]
}

// Validate checks the supplied fields only
func (in *UpdateTaskInput) Validate() error {
	const op = "tasks.Update"
	if in.Title.Present() {
		title := strings.TrimSpace(in.Title.Value)
		if title == "" {
			return apperr.New(apperr.ErrBadRequest, op, "Title is required")
		}
		if len(title) > models.MaxTaskTitleLen {
			return apperr.New(apperr.ErrBadRequest, op, "Title must be at most %d characters", models.MaxTaskTitleLen)
		}
	}
	if in.Title.Set && in.Title.Null {
		return apperr.New(apperr.ErrBadRequest, op, "Title cannot be null")
	}
	if in.Status.Present() && !in.Status.Value.Valid() {
		return apperr.New(apperr.ErrBadRequest, op, "Invalid status %q", in.Status.Value)
	}
	if in.Status.Set && in.Status.Null {
		return apperr.New(apperr.ErrBadRequest, op, "Status cannot be null")
	}
	if in.Priority.Present() && !in.Priority.Value.Valid() {
		return apperr.New(apperr.ErrBadRequest, op, "Invalid priority %q", in.Priority.Value)
	}
	if in.Priority.Set && in.Priority.Null {
		return apperr.New(apperr.ErrBadRequest, op, "Priority cannot be null")
	}
	return nil
}

// CreateTagInput carries the fields accepted when creating a tag
type CreateTagInput struct {
	Name      string
	ColorCode *string
}

// Validate checks the tag input
func (in *CreateTagInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.New(apperr.ErrBadRequest, "tasks.CreateTag", "Name is required")
	}
	return nil
}

// AssignedFilter narrows and orders a user's assigned-task listing
type AssignedFilter struct {
	Status    *models.TaskStatus
	SortBy    string // dueDate, priority or createdAt
	SortOrder string // asc or desc
}

// Priority is stored as text, so a bare ORDER BY would sort it
// alphabetically (HIGH, LOW, MEDIUM). The CASE ranks it semantically.
var assignedSortColumns = map[string]string{
	"dueDate":   "t.due_date",
	"priority":  "CASE t.priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 END",
	"createdAt": "t.created_at",
}

// ValidSortField reports whether s names a supported sort field
func ValidSortField(s string) bool {
	_, ok := assignedSortColumns[s]
	return ok
}

// ValidSortOrder reports whether s is "asc" or "desc"
func ValidSortOrder(s string) bool {
	return strings.EqualFold(s, "asc") || strings.EqualFold(s, "desc")
}

// OrderClause resolves the filter to a SQL ORDER BY expression,
// defaulting to newest first.
func (f AssignedFilter) OrderClause() string {
	col, ok := assignedSortColumns[f.SortBy]
	if !ok {
		col = "t.created_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}
