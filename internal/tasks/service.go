package tasks

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/logger"
	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/store"
)

// Service implements the task lifecycle: creation, partial updates with
// replace-all assignee/tag reconciliation, deletion and completion toggling.
type Service struct {
	db  *sqlx.DB
	log logger.Logger
	now func() time.Time
}

// NewService builds a task service over the shared database handle
func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:  db,
		log: logger.Tasks(),
		now: time.Now,
	}
}

// List returns the tasks visible to userID. With a project id it returns
// that project's tasks after re-verifying the caller's membership; without
// one it returns tasks the user is assigned to plus personal tasks.
func (s *Service) List(ctx context.Context, userID string, projectID *string) ([]models.Task, error) {
	const op = "tasks.List"

	var b squirrel.SelectBuilder
	if projectID != nil {
		if err := RequireProjectAccess(ctx, s.db, userID, *projectID); err != nil {
			return nil, store.TranslateError(err, op)
		}
		b = taskSelect().
			Where(squirrel.Eq{"t.project_id": *projectID}).
			OrderBy("t.created_at DESC")
	} else {
		b = taskSelect().
			Where(squirrel.Or{
				squirrel.Expr("EXISTS (SELECT 1 FROM task_assignments ta WHERE ta.task_id = t.id AND ta.user_id = ?)", userID),
				squirrel.Expr("t.project_id IS NULL"),
			}).
			OrderBy("t.created_at DESC")
	}

	ts, err := selectTasks(ctx, s.db, b)
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := AttachTaskRelations(ctx, s.db, ts); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return ts, nil
}

// ListAssigned returns tasks where userID is an assignee, optionally
// filtered by status and re-sorted.
func (s *Service) ListAssigned(ctx context.Context, userID string, filter AssignedFilter) ([]models.Task, error) {
	const op = "tasks.ListAssigned"

	b := taskSelect().
		Where(squirrel.Expr("EXISTS (SELECT 1 FROM task_assignments ta WHERE ta.task_id = t.id AND ta.user_id = ?)", userID)).
		OrderBy(filter.OrderClause())
	if filter.Status != nil {
		b = b.Where(squirrel.Eq{"t.status": *filter.Status})
	}

	ts, err := selectTasks(ctx, s.db, b)
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := AttachTaskRelations(ctx, s.db, ts); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return ts, nil
}

// Get returns a single task with its relations after an access check
func (s *Service) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	const op = "tasks.Get"

	t, err := fetchTask(ctx, s.db, taskID)
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := s.authorize(ctx, s.db, userID, t); err != nil {
		return nil, err
	}

	ts := []models.Task{*t}
	if err := AttachTaskRelations(ctx, s.db, ts); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return &ts[0], nil
}

// Create inserts a task together with its assignment and tag-link rows in
// one transaction, so a task can never exist without at least one assignee.
// With no assignees supplied the creator is assigned.
func (s *Service) Create(ctx context.Context, userID string, in CreateTaskInput) (*models.Task, error) {
	const op = "tasks.Create"

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if in.ProjectID != nil {
		if err := RequireProjectAccess(ctx, s.db, userID, *in.ProjectID); err != nil {
			return nil, store.TranslateError(err, op)
		}
	}

	assignees := dedupe(in.AssigneeIDs)
	if len(assignees) == 0 {
		assignees = []string{userID}
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		ProjectID:   in.ProjectID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		query, args, err := psql.Insert("tasks").
			Columns("id", "title", "description", "status", "priority", "due_date", "project_id", "created_at", "updated_at").
			Values(task.ID, task.Title, task.Description, task.Status, task.Priority, task.DueDate, task.ProjectID, task.CreatedAt, task.UpdatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		if err := insertAssignments(ctx, tx, task.ID, assignees); err != nil {
			return err
		}
		return insertTagLinks(ctx, tx, task.ID, dedupe(in.TagIDs))
	})
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	s.log.Info("task created", "task", task.ID, "project", task.ProjectID)

	ts := []models.Task{*task}
	if err := AttachTaskRelations(ctx, s.db, ts); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return &ts[0], nil
}

// Update applies the supplied scalar fields and, when assignee or tag sets
// are supplied (even empty), replaces the full relation set. Everything
// runs in one transaction.
func (s *Service) Update(ctx context.Context, userID, taskID string, in UpdateTaskInput) (*models.Task, error) {
	const op = "tasks.Update"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Task
	err := store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := fetchTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, userID, t); err != nil {
			return err
		}

		sets := map[string]interface{}{
			"updated_at": s.now().UTC(),
		}
		if in.Title.Present() {
			sets["title"] = in.Title.Value
		}
		if in.Description.Set {
			if in.Description.Null {
				sets["description"] = nil
			} else {
				sets["description"] = in.Description.Value
			}
		}
		if in.Status.Present() {
			sets["status"] = in.Status.Value
		}
		if in.Priority.Present() {
			sets["priority"] = in.Priority.Value
		}
		if in.DueDate.Set {
			if in.DueDate.Null {
				sets["due_date"] = nil
			} else {
				sets["due_date"] = in.DueDate.Value
			}
		}
		if in.ProjectID.Set {
			// Empty string is the UI sentinel for "no project"
			if in.ProjectID.Null || in.ProjectID.Value == "" {
				sets["project_id"] = nil
			} else {
				if err := RequireProjectAccess(ctx, tx, userID, in.ProjectID.Value); err != nil {
					return err
				}
				sets["project_id"] = in.ProjectID.Value
			}
		}

		query, args, err := psql.Update("tasks").SetMap(sets).Where(squirrel.Eq{"id": taskID}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		if in.AssigneeIDs.Set {
			if err := deleteRelation(ctx, tx, "task_assignments", taskID); err != nil {
				return err
			}
			if err := insertAssignments(ctx, tx, taskID, dedupe(in.AssigneeIDs.Value)); err != nil {
				return err
			}
		}
		if in.TagIDs.Set {
			if err := deleteRelation(ctx, tx, "task_tags", taskID); err != nil {
				return err
			}
			if err := insertTagLinks(ctx, tx, taskID, dedupe(in.TagIDs.Value)); err != nil {
				return err
			}
		}

		updated, err = fetchTask(ctx, tx, taskID)
		return err
	})
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	ts := []models.Task{*updated}
	if err := AttachTaskRelations(ctx, s.db, ts); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return &ts[0], nil
}

// Delete removes a task; assignment and tag-link rows go with it via the
// store cascades.
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	const op = "tasks.Delete"

	t, err := fetchTask(ctx, s.db, taskID)
	if err != nil {
		return store.TranslateError(err, op)
	}
	if err := s.authorize(ctx, s.db, userID, t); err != nil {
		return err
	}

	query, args, err := psql.Delete("tasks").Where(squirrel.Eq{"id": taskID}).ToSql()
	if err != nil {
		return store.TranslateError(err, op)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.TranslateError(err, op)
	}

	s.log.Info("task deleted", "task", taskID)
	return nil
}

// ToggleCompletion flips a task between DONE and TODO. Reopening a DONE
// task always yields TODO, never IN_PROGRESS.
func (s *Service) ToggleCompletion(ctx context.Context, userID, taskID string) (*models.Task, error) {
	const op = "tasks.ToggleCompletion"

	t, err := fetchTask(ctx, s.db, taskID)
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := s.authorize(ctx, s.db, userID, t); err != nil {
		return nil, err
	}

	next := models.TaskStatusDone
	if t.Status == models.TaskStatusDone {
		next = models.TaskStatusTodo
	}

	now := s.now().UTC()
	query, args, err := psql.Update("tasks").
		Set("status", next).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}

	t.Status = next
	t.UpdatedAt = now
	return t, nil
}

// authorize enforces the access rule for mutating or reading a single
// task: membership in the owning project for project tasks, an assignment
// row for personal ones. Failures read as NotFound so task existence is
// not leaked.
func (s *Service) authorize(ctx context.Context, q store.Querier, userID string, t *models.Task) error {
	const op = "tasks.authorize"

	if t.ProjectID != nil {
		if err := RequireProjectAccess(ctx, q, userID, *t.ProjectID); err != nil {
			return store.TranslateError(err, op)
		}
		return nil
	}

	query, args, err := psql.Select("COUNT(*)").
		From("task_assignments").
		Where(squirrel.Eq{"task_id": t.ID, "user_id": userID}).
		ToSql()
	if err != nil {
		return store.TranslateError(err, op)
	}
	var n int
	if err := q.GetContext(ctx, &n, query, args...); err != nil {
		return store.TranslateError(err, op)
	}
	if n == 0 {
		return apperr.New(apperr.ErrNotFound, op, "Task not found")
	}
	return nil
}

func insertAssignments(ctx context.Context, q store.Querier, taskID string, userIDs []string) error {
	return insertPairs(ctx, q, "task_assignments", "user_id", taskID, userIDs)
}

func insertTagLinks(ctx context.Context, q store.Querier, taskID string, tagIDs []string) error {
	return insertPairs(ctx, q, "task_tags", "tag_id", taskID, tagIDs)
}

func insertPairs(ctx context.Context, q store.Querier, table, column, taskID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b := psql.Insert(table).Columns("task_id", column)
	for _, id := range ids {
		b = b.Values(taskID, id)
	}
	query, args, err := b.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

func deleteRelation(ctx context.Context, q store.Querier, table, taskID string) error {
	query, args, err := psql.Delete(table).Where(squirrel.Eq{"task_id": taskID}).ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
