package tasks

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/store"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const taskColumns = "t.id, t.title, t.description, t.status, t.priority, t.due_date, t.project_id, t.created_at, t.updated_at, p.title AS project_title"

func taskSelect() squirrel.SelectBuilder {
	return psql.Select(taskColumns).
		From("tasks t").
		LeftJoin("projects p ON p.id = t.project_id")
}

func selectTasks(ctx context.Context, q store.Querier, b squirrel.SelectBuilder) ([]models.Task, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.DueDate, &t.ProjectID, &t.CreatedAt, &t.UpdatedAt, &t.ProjectTitle,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// fetchTask loads a single task or a NotFound error
func fetchTask(ctx context.Context, q store.Querier, taskID string) (*models.Task, error) {
	ts, err := selectTasks(ctx, q, taskSelect().Where(squirrel.Eq{"t.id": taskID}))
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, apperr.New(apperr.ErrNotFound, "tasks.Get", "Task not found")
	}
	return &ts[0], nil
}

// ListProjectTasks returns a project's tasks newest first, with assignees
// and tags attached. Callers are responsible for the access check.
func ListProjectTasks(ctx context.Context, q store.Querier, projectID string) ([]models.Task, error) {
	ts, err := selectTasks(ctx, q, taskSelect().
		Where(squirrel.Eq{"t.project_id": projectID}).
		OrderBy("t.created_at DESC"))
	if err != nil {
		return nil, err
	}
	if err := AttachTaskRelations(ctx, q, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// AttachTaskRelations loads the assignee and tag sets for each task
func AttachTaskRelations(ctx context.Context, q store.Querier, ts []models.Task) error {
	if len(ts) == 0 {
		return nil
	}

	ids := make([]string, len(ts))
	index := make(map[string]*models.Task, len(ts))
	for i := range ts {
		ids[i] = ts[i].ID
		index[ts[i].ID] = &ts[i]
	}

	query, args, err := psql.Select("ta.task_id", "u.id", "u.name", "u.image").
		From("task_assignments ta").
		Join("users u ON u.id = ta.user_id").
		Where(squirrel.Eq{"ta.task_id": ids}).
		OrderBy("u.name ASC").
		ToSql()
	if err != nil {
		return err
	}
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var taskID string
		var u models.UserRef
		if err := rows.Scan(&taskID, &u.ID, &u.Name, &u.Image); err != nil {
			return err
		}
		if t := index[taskID]; t != nil {
			t.Assignees = append(t.Assignees, u)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query, args, err = psql.Select("tt.task_id", "g.id", "g.name", "g.color_code").
		From("task_tags tt").
		Join("tags g ON g.id = tt.tag_id").
		Where(squirrel.Eq{"tt.task_id": ids}).
		OrderBy("g.name ASC").
		ToSql()
	if err != nil {
		return err
	}
	rows, err = q.QueryxContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var taskID string
		var g models.Tag
		if err := rows.Scan(&taskID, &g.ID, &g.Name, &g.ColorCode); err != nil {
			return err
		}
		if t := index[taskID]; t != nil {
			t.Tags = append(t.Tags, g)
		}
	}
	return rows.Err()
}

// RequireProjectAccess fails with NotFound unless userID is the project's
// creator or a member. Authorization failure is indistinguishable from a
// missing project so membership is never leaked.
func RequireProjectAccess(ctx context.Context, q store.Querier, userID, projectID string) error {
	query, args, err := psql.Select("COUNT(*)").
		From("projects p").
		Where(squirrel.Eq{"p.id": projectID}).
		Where(squirrel.Or{
			squirrel.Eq{"p.created_by_id": userID},
			squirrel.Expr("EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = ?)", userID),
		}).
		ToSql()
	if err != nil {
		return err
	}

	var n int
	if err := q.GetContext(ctx, &n, query, args...); err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.ErrNotFound, "tasks.RequireProjectAccess", "Project not found or access denied")
	}
	return nil
}
