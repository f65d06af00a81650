package accounts

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/store"
)

// DashboardStats are the read-only aggregates behind the home screen
type DashboardStats struct {
	CompletedTasks int `json:"completedTasksCount"`
	Collaborators  int `json:"collaboratorsCount"`
}

// Dashboard computes the user's completed-task count and the number of
// distinct collaborators sharing a project with them.
func (s *Service) Dashboard(ctx context.Context, userID string) (*DashboardStats, error) {
	const op = "accounts.Dashboard"

	stats := &DashboardStats{}

	query, args, err := psql.Select("COUNT(*)").
		From("tasks t").
		Where(squirrel.Eq{"t.status": models.TaskStatusDone}).
		Where(squirrel.Expr("EXISTS (SELECT 1 FROM task_assignments ta WHERE ta.task_id = t.id AND ta.user_id = ?)", userID)).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := s.db.GetContext(ctx, &stats.CompletedTasks, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}

	// Distinct users co-occurring with userID in any shared project's
	// membership list, excluding the user themselves.
	query, args, err = psql.Select("COUNT(DISTINCT pm.user_id)").
		From("project_members pm").
		Where(squirrel.NotEq{"pm.user_id": userID}).
		Where(squirrel.Expr(`pm.project_id IN (
			SELECT p.id FROM projects p
			WHERE p.created_by_id = ?
			   OR EXISTS (SELECT 1 FROM project_members me WHERE me.project_id = p.id AND me.user_id = ?)
		)`, userID, userID)).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := s.db.GetContext(ctx, &stats.Collaborators, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}

	return stats, nil
}
