package projects

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/models"
)

const (
	creatorID = "a1b2c3d4-e5f6-7890-1234-567890abcdef"
	memberID  = "d4e5f6a7-b8c9-0123-4567-890123def012"
	projectID = "b2c3d4e5-f6a7-8901-2345-678901bcdef0"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewService(sqlx.NewDb(db, "postgres"))
	s.now = func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func projectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "description", "created_by_id", "created_at", "updated_at",
		"creator_id", "creator_name", "creator_image", "task_count", "member_count",
	})
}

func addProjectRow(rows *sqlmock.Rows, members int) *sqlmock.Rows {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(projectID, "Q2 Launch", nil, creatorID, now, now, creatorID, "Ada", nil, 3, members)
}

func expectCreatorLookup(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery(`SELECT created_by_id FROM projects WHERE id = \$1`).
		WithArgs(projectID).
		WillReturnRows(rows)
}

func creatorRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"created_by_id"}).AddRow(creatorID)
}

func TestCreateProject(t *testing.T) {
	t.Run("project and creator membership persist together", func(t *testing.T) {
		s, mock := newTestService(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO projects \(id,title,description,created_by_id,created_at,updated_at\)`).
			WithArgs(sqlmock.AnyArg(), "Q2 Launch", nil, creatorID, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO project_members \(project_id,user_id\)`).
			WithArgs(sqlmock.AnyArg(), creatorID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		p, err := s.Create(context.Background(), creatorID, CreateProjectInput{Title: "  Q2 Launch  "})
		require.NoError(t, err)
		assert.Equal(t, "Q2 Launch", p.Title)
		assert.Equal(t, creatorID, p.CreatedByID)
		assert.Equal(t, 1, p.MemberCount)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("membership insert failure rolls the project back", func(t *testing.T) {
		s, mock := newTestService(t)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO projects`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO project_members`).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		_, err := s.Create(context.Background(), creatorID, CreateProjectInput{Title: "Q2 Launch"})
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blank title is rejected before any write", func(t *testing.T) {
		s, mock := newTestService(t)

		_, err := s.Create(context.Background(), creatorID, CreateProjectInput{Title: "   "})
		assert.True(t, apperr.BadRequest(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetProject(t *testing.T) {
	t.Run("member sees the full detail view", func(t *testing.T) {
		s, mock := newTestService(t)

		mock.ExpectQuery(`SELECT p\.id, .* FROM projects p JOIN users u ON u\.id = p\.created_by_id WHERE p\.id = \$1 AND \(p\.created_by_id = \$2 OR EXISTS`).
			WithArgs(projectID, memberID, memberID).
			WillReturnRows(addProjectRow(projectRows(), 2))
		mock.ExpectQuery(`SELECT t\.id, .* FROM tasks t .* WHERE t\.project_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "title", "description", "status", "priority",
				"due_date", "project_id", "created_at", "updated_at", "project_title",
			}))
		mock.ExpectQuery(`SELECT u\.id, u\.name, u\.email, u\.image FROM project_members pm`).
			WithArgs(projectID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "image"}).
				AddRow(creatorID, "Ada", "ada@example.com", nil).
				AddRow(memberID, "Lin", "lin@example.com", nil))

		detail, err := s.Get(context.Background(), memberID, projectID)
		require.NoError(t, err)
		assert.Equal(t, "Q2 Launch", detail.Title)
		assert.Len(t, detail.Members, 2)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-member cannot tell the project exists", func(t *testing.T) {
		s, mock := newTestService(t)

		mock.ExpectQuery(`SELECT p\.id, .* FROM projects p`).WillReturnRows(projectRows())

		_, err := s.Get(context.Background(), "someone-else", projectID)
		assert.True(t, apperr.NotFound(err))
		assert.Contains(t, err.Error(), "Project not found or access denied")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateProject(t *testing.T) {
	t.Run("creator updates the title", func(t *testing.T) {
		s, mock := newTestService(t)

		expectCreatorLookup(mock, creatorRow())
		mock.ExpectExec(`UPDATE projects SET title = \$1, updated_at = \$2 WHERE id = \$3`).
			WithArgs("Renamed", sqlmock.AnyArg(), projectID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT p\.id, .* FROM projects p`).
			WillReturnRows(addProjectRow(projectRows(), 2))

		_, err := s.Update(context.Background(), creatorID, projectID, UpdateProjectInput{
			Title: models.Some("Renamed"),
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member without creator rights is refused", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, creatorRow())

		_, err := s.Update(context.Background(), memberID, projectID, UpdateProjectInput{
			Title: models.Some("Renamed"),
		})
		assert.True(t, apperr.Forbidden(err))
		assert.Contains(t, err.Error(), "You cannot update this project")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteProject(t *testing.T) {
	t.Run("creator deletes", func(t *testing.T) {
		s, mock := newTestService(t)

		expectCreatorLookup(mock, creatorRow())
		mock.ExpectExec(`DELETE FROM projects WHERE id = \$1`).
			WithArgs(projectID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Delete(context.Background(), creatorID, projectID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing project reads as a permission error", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, sqlmock.NewRows([]string{"created_by_id"}))

		err := s.Delete(context.Background(), creatorID, projectID)
		assert.True(t, apperr.Forbidden(err))
		assert.Contains(t, err.Error(), "You cannot delete this project")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	// Denials for a nonexistent project carry the same message as the
	// operation's own refusal, so each op keeps its wording.
	t.Run("missing project keeps the update denial wording", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, sqlmock.NewRows([]string{"created_by_id"}))

		_, err := s.Update(context.Background(), creatorID, projectID, UpdateProjectInput{
			Title: models.Some("Renamed"),
		})
		assert.True(t, apperr.Forbidden(err))
		assert.Contains(t, err.Error(), "You cannot update this project")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing project keeps the membership denial wording", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, sqlmock.NewRows([]string{"created_by_id"}))

		err := s.AddMember(context.Background(), creatorID, projectID, memberID)
		assert.True(t, apperr.Forbidden(err))
		assert.Contains(t, err.Error(), "You cannot manage members of this project")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMembership(t *testing.T) {
	t.Run("creator adds a member", func(t *testing.T) {
		s, mock := newTestService(t)

		expectCreatorLookup(mock, creatorRow())
		mock.ExpectExec(`INSERT INTO project_members \(project_id,user_id\) VALUES \(\$1,\$2\) ON CONFLICT \(project_id, user_id\) DO NOTHING`).
			WithArgs(projectID, memberID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.AddMember(context.Background(), creatorID, projectID, memberID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("re-adding an existing member is a no-op", func(t *testing.T) {
		s, mock := newTestService(t)

		expectCreatorLookup(mock, creatorRow())
		mock.ExpectExec(`INSERT INTO project_members`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, s.AddMember(context.Background(), creatorID, projectID, memberID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("only the creator manages members", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, creatorRow())

		err := s.AddMember(context.Background(), memberID, projectID, "new-user")
		assert.True(t, apperr.Forbidden(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creator removes a member", func(t *testing.T) {
		s, mock := newTestService(t)

		expectCreatorLookup(mock, creatorRow())
		mock.ExpectExec(`DELETE FROM project_members WHERE project_id = \$1 AND user_id = \$2`).
			WithArgs(projectID, memberID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.RemoveMember(context.Background(), creatorID, projectID, memberID))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("the creator membership is permanent", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, creatorRow())

		err := s.RemoveMember(context.Background(), creatorID, projectID, creatorID)
		assert.True(t, apperr.BadRequest(err))
		assert.Contains(t, err.Error(), "Project creator cannot be removed")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-creator cannot remove anyone, including the creator", func(t *testing.T) {
		s, mock := newTestService(t)
		expectCreatorLookup(mock, creatorRow())

		err := s.RemoveMember(context.Background(), memberID, projectID, creatorID)
		assert.True(t, apperr.Forbidden(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListSidebar(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery(`SELECT p\.id, p\.title FROM projects p WHERE .* ORDER BY p\.title ASC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).
			AddRow("p1", "Alpha").
			AddRow("p2", "Beta"))

	out, err := s.ListSidebar(context.Background(), memberID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Alpha", out[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersNotInProject(t *testing.T) {
	s, mock := newTestService(t)

	mock.ExpectQuery(`SELECT u\.id, u\.name, u\.email, u\.image FROM users u WHERE NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "image"}).
			AddRow("u9", "Zed", "zed@example.com", nil))

	out, err := s.UsersNotInProject(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Name)
	assert.Equal(t, "Zed", *out[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
