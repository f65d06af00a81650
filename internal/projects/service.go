package projects

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/logger"
	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/tasks"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Service implements project CRUD and membership management. Destructive
// and update operations are reserved for the project's creator.
type Service struct {
	db  *sqlx.DB
	log logger.Logger
	now func() time.Time
}

// NewService builds a project service over the shared database handle
func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:  db,
		log: logger.Projects(),
		now: time.Now,
	}
}

// CreateProjectInput carries the fields accepted when creating a project
type CreateProjectInput struct {
	Title       string
	Description *string
}

// Validate checks the input
func (in *CreateProjectInput) Validate() error {
	const op = "projects.Create"
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return apperr.New(apperr.ErrBadRequest, op, "Title is required")
	}
	if len(in.Title) > models.MaxProjectTitleLen {
		return apperr.New(apperr.ErrBadRequest, op, "Title must be at most %d characters", models.MaxProjectTitleLen)
	}
	return nil
}

// UpdateProjectInput carries partial project updates; absent fields are
// left untouched.
type UpdateProjectInput struct {
	Title       models.Optional[string]
	Description models.Optional[string]
}

// Validate checks the supplied fields only
func (in *UpdateProjectInput) Validate() error {
	const op = "projects.Update"
	if in.Title.Set && in.Title.Null {
		return apperr.New(apperr.ErrBadRequest, op, "Title cannot be null")
	}
	if in.Title.Present() {
		title := strings.TrimSpace(in.Title.Value)
		if title == "" {
			return apperr.New(apperr.ErrBadRequest, op, "Title is required")
		}
		if len(title) > models.MaxProjectTitleLen {
			return apperr.New(apperr.ErrBadRequest, op, "Title must be at most %d characters", models.MaxProjectTitleLen)
		}
	}
	return nil
}

const projectColumns = `p.id, p.title, p.description, p.created_by_id, p.created_at, p.updated_at,
	u.id AS creator_id, u.name AS creator_name, u.image AS creator_image,
	(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS task_count,
	(SELECT COUNT(*) FROM project_members pm2 WHERE pm2.project_id = p.id) AS member_count`

func projectSelect() squirrel.SelectBuilder {
	return psql.Select(projectColumns).
		From("projects p").
		Join("users u ON u.id = p.created_by_id")
}

func accessPredicate(userID string) squirrel.Sqlizer {
	return squirrel.Or{
		squirrel.Eq{"p.created_by_id": userID},
		squirrel.Expr("EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = ?)", userID),
	}
}

func scanProjects(ctx context.Context, q store.Querier, b squirrel.SelectBuilder) ([]models.Project, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		var creator models.UserRef
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt,
			&creator.ID, &creator.Name, &creator.Image, &p.TaskCount, &p.MemberCount,
		); err != nil {
			return nil, err
		}
		p.CreatedBy = &creator
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListForUser returns every project the user created or belongs to,
// newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Project, error) {
	const op = "projects.ListForUser"

	out, err := scanProjects(ctx, s.db, projectSelect().
		Where(accessPredicate(userID)).
		OrderBy("p.created_at DESC"))
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	return out, nil
}

// SidebarProject is the trimmed project shape for navigation listings
type SidebarProject struct {
	ID    string `db:"id" json:"id"`
	Title string `db:"title" json:"title"`
}

// ListSidebar returns up to ten of the user's projects ordered by title
func (s *Service) ListSidebar(ctx context.Context, userID string) ([]SidebarProject, error) {
	const op = "projects.ListSidebar"

	query, args, err := psql.Select("p.id", "p.title").
		From("projects p").
		Where(accessPredicate(userID)).
		OrderBy("p.title ASC").
		Limit(10).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	var out []SidebarProject
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return out, nil
}

// Get returns the full project view for a creator or member. Non-members
// get NotFound: access denial reads the same as absence.
func (s *Service) Get(ctx context.Context, userID, projectID string) (*models.ProjectDetail, error) {
	const op = "projects.Get"

	ps, err := scanProjects(ctx, s.db, projectSelect().
		Where(squirrel.Eq{"p.id": projectID}).
		Where(accessPredicate(userID)))
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if len(ps) == 0 {
		return nil, apperr.New(apperr.ErrNotFound, op, "Project not found or access denied")
	}

	detail := &models.ProjectDetail{Project: ps[0]}

	detail.Tasks, err = tasks.ListProjectTasks(ctx, s.db, projectID)
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	query, args, err := psql.Select("u.id", "u.name", "u.email", "u.image").
		From("project_members pm").
		Join("users u ON u.id = pm.user_id").
		Where(squirrel.Eq{"pm.project_id": projectID}).
		OrderBy("u.name ASC").
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if err := s.db.SelectContext(ctx, &detail.Members, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}

	return detail, nil
}

// Create inserts the project and the creator's membership row in a single
// transaction; both persist or neither does.
func (s *Service) Create(ctx context.Context, userID string, in CreateProjectInput) (*models.Project, error) {
	const op = "projects.Create"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Project{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		CreatedByID: userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		query, args, err := psql.Insert("projects").
			Columns("id", "title", "description", "created_by_id", "created_at", "updated_at").
			Values(p.ID, p.Title, p.Description, p.CreatedByID, p.CreatedAt, p.UpdatedAt).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}

		query, args, err = psql.Insert("project_members").
			Columns("project_id", "user_id").
			Values(p.ID, userID).
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	s.log.Info("project created", "project", p.ID, "creator", userID)
	p.MemberCount = 1
	return p, nil
}

// Update applies partial field updates; only the creator may update
func (s *Service) Update(ctx context.Context, userID, projectID string, in UpdateProjectInput) (*models.Project, error) {
	const op = "projects.Update"

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireCreator(ctx, userID, projectID, "You cannot update this project"); err != nil {
		return nil, err
	}

	sets := map[string]interface{}{
		"updated_at": s.now().UTC(),
	}
	if in.Title.Present() {
		sets["title"] = strings.TrimSpace(in.Title.Value)
	}
	if in.Description.Set {
		if in.Description.Null {
			sets["description"] = nil
		} else {
			sets["description"] = in.Description.Value
		}
	}

	query, args, err := psql.Update("projects").SetMap(sets).Where(squirrel.Eq{"id": projectID}).ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}

	ps, err := scanProjects(ctx, s.db, projectSelect().Where(squirrel.Eq{"p.id": projectID}))
	if err != nil {
		return nil, store.TranslateError(err, op)
	}
	if len(ps) == 0 {
		return nil, apperr.New(apperr.ErrNotFound, op, "Project not found")
	}
	return &ps[0], nil
}

// Delete removes a project; tasks and memberships cascade at the store
// level. Only the creator may delete.
func (s *Service) Delete(ctx context.Context, userID, projectID string) error {
	const op = "projects.Delete"

	if err := s.requireCreator(ctx, userID, projectID, "You cannot delete this project"); err != nil {
		return err
	}

	query, args, err := psql.Delete("projects").Where(squirrel.Eq{"id": projectID}).ToSql()
	if err != nil {
		return store.TranslateError(err, op)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.TranslateError(err, op)
	}

	s.log.Info("project deleted", "project", projectID)
	return nil
}

// AddMember inserts a membership. Only the creator may add members, and
// re-adding an existing member is a no-op rather than an error.
func (s *Service) AddMember(ctx context.Context, actingUserID, projectID, targetUserID string) error {
	const op = "projects.AddMember"

	if err := s.requireCreator(ctx, actingUserID, projectID, "You cannot manage members of this project"); err != nil {
		return err
	}

	query, args, err := psql.Insert("project_members").
		Columns("project_id", "user_id").
		Values(projectID, targetUserID).
		Suffix("ON CONFLICT (project_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return store.TranslateError(err, op)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.TranslateError(err, op)
	}

	s.log.Info("member added", "project", projectID, "user", targetUserID)
	return nil
}

// RemoveMember deletes a membership. The creator's own membership is
// permanent and removing it fails with BadRequest no matter who asks.
func (s *Service) RemoveMember(ctx context.Context, actingUserID, projectID, targetUserID string) error {
	const op = "projects.RemoveMember"

	creatorID, err := s.creatorOf(ctx, projectID, "You cannot manage members of this project")
	if err != nil {
		return err
	}
	if creatorID != actingUserID {
		return apperr.New(apperr.ErrForbidden, op, "You cannot manage members of this project")
	}
	if targetUserID == creatorID {
		return apperr.New(apperr.ErrBadRequest, op, "Project creator cannot be removed")
	}

	query, args, err := psql.Delete("project_members").
		Where(squirrel.Eq{"project_id": projectID, "user_id": targetUserID}).
		ToSql()
	if err != nil {
		return store.TranslateError(err, op)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return store.TranslateError(err, op)
	}

	s.log.Info("member removed", "project", projectID, "user", targetUserID)
	return nil
}

// UsersNotInProject returns users outside the current membership set,
// ordered by name. Used to populate the invite picker.
func (s *Service) UsersNotInProject(ctx context.Context, projectID string) ([]models.UserRef, error) {
	const op = "projects.UsersNotInProject"

	query, args, err := psql.Select("u.id", "u.name", "u.email", "u.image").
		From("users u").
		Where(squirrel.Expr("NOT EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = ? AND pm.user_id = u.id)", projectID)).
		OrderBy("u.name ASC").
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	var out []models.UserRef
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return out, nil
}

// creatorOf resolves the project's creator id. A missing project surfaces
// as Forbidden carrying the caller's denial message, so guessing project
// ids reads like the same permission error as a real denial.
func (s *Service) creatorOf(ctx context.Context, projectID, denied string) (string, error) {
	const op = "projects.creatorOf"

	query, args, err := psql.Select("created_by_id").
		From("projects").
		Where(squirrel.Eq{"id": projectID}).
		ToSql()
	if err != nil {
		return "", store.TranslateError(err, op)
	}

	var creatorID string
	if err := s.db.GetContext(ctx, &creatorID, query, args...); err != nil {
		if apperr.NotFound(store.TranslateError(err, op)) {
			return "", apperr.New(apperr.ErrForbidden, op, "%s", denied)
		}
		return "", store.TranslateError(err, op)
	}
	return creatorID, nil
}

func (s *Service) requireCreator(ctx context.Context, userID, projectID, denied string) error {
	creatorID, err := s.creatorOf(ctx, projectID, denied)
	if err != nil {
		return err
	}
	if creatorID != userID {
		return apperr.New(apperr.ErrForbidden, "projects.requireCreator", "%s", denied)
	}
	return nil
}
