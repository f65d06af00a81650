package models

import (
	"time"
)

// TaskStatus represents the workflow state of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is a known status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Display returns the user-facing label for s
func (s TaskStatus) Display() string {
	switch s {
	case TaskStatusTodo:
		return "To Do"
	case TaskStatusInProgress:
		return "In Progress"
	case TaskStatusDone:
		return "Done"
	}
	return string(s)
}

// TaskPriority represents the priority level of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Display returns the user-facing label for p
func (p TaskPriority) Display() string {
	switch p {
	case TaskPriorityLow:
		return "Low"
	case TaskPriorityMedium:
		return "Medium"
	case TaskPriorityHigh:
		return "High"
	}
	return string(p)
}

// Field length limits enforced before any write
const (
	MaxProjectTitleLen = 100
	MaxTaskTitleLen    = 255
	MaxUserNameLen     = 100
)

// User is the local profile row keyed by the verifier-issued id
type User struct {
	ID            string     `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	Name          *string    `db:"name" json:"name"`
	Image         *string    `db:"image" json:"image"`
	EmailVerified *time.Time `db:"email_verified" json:"emailVerified"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// UserRef is the lightweight user shape embedded in project and task payloads
type UserRef struct {
	ID    string  `db:"id" json:"id"`
	Name  *string `db:"name" json:"name"`
	Email string  `db:"email" json:"email,omitempty"`
	Image *string `db:"image" json:"image"`
}

// Project is exclusively administered by its creator for destructive updates
type Project struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	CreatedByID string    `db:"created_by_id" json:"createdById"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	CreatedBy   *UserRef `db:"-" json:"createdBy,omitempty"`
	TaskCount   int      `db:"-" json:"taskCount"`
	MemberCount int      `db:"-" json:"memberCount"`
}

// ProjectDetail is the full project view returned to members
type ProjectDetail struct {
	Project
	Tasks   []Task    `json:"tasks"`
	Members []UserRef `json:"members"`
}

// ProjectMember links a user into a project; the creator's row is permanent
type ProjectMember struct {
	ProjectID string `db:"project_id" json:"projectId"`
	UserID    string `db:"user_id" json:"userId"`
}

// Task belongs to at most one project; a nil ProjectID marks a personal task
type Task struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description *string      `db:"description" json:"description"`
	Status      TaskStatus   `db:"status" json:"status"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	DueDate     *time.Time   `db:"due_date" json:"dueDate"`
	ProjectID   *string      `db:"project_id" json:"projectId"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`

	ProjectTitle *string   `db:"-" json:"projectTitle,omitempty"`
	Assignees    []UserRef `db:"-" json:"assignees,omitempty"`
	Tags         []Tag     `db:"-" json:"tags,omitempty"`
}

// Tag is a shared vocabulary entry, never deleted by task operations
type Tag struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	ColorCode *string `db:"color_code" json:"colorCode"`
}
