package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/identity"
	"github.com/taskdeck/taskdeck/internal/models"
)

const (
	accountID = "a1b2c3d4-e5f6-7890-1234-567890abcdef"
	testEmail = "ada@example.com"
)

// fakeVerifier scripts the external identity provider for saga tests
type fakeVerifier struct {
	signUpIdent *identity.Identity
	signUpErr   error
	signInIdent *identity.Identity
	signInErr   error
	deleteErr   error

	deletedIDs []string
}

func (f *fakeVerifier) SignUp(ctx context.Context, email, password, name string) (*identity.Identity, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return f.signUpIdent, nil
}

func (f *fakeVerifier) SignInWithPassword(ctx context.Context, email, password string) (*identity.Identity, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.signInIdent, nil
}

func (f *fakeVerifier) DeleteUser(ctx context.Context, userID string) error {
	f.deletedIDs = append(f.deletedIDs, userID)
	return f.deleteErr
}

func newTestService(t *testing.T, v identity.Verifier) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewService(sqlx.NewDb(db, "postgres"), v)
	s.now = func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func confirmedIdentity() *identity.Identity {
	at := time.Date(2026, time.March, 10, 11, 59, 0, 0, time.UTC)
	return &identity.Identity{UserID: accountID, Email: testEmail, EmailConfirmedAt: &at}
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "name", "image", "email_verified", "created_at"})
}

func TestSignUp(t *testing.T) {
	input := SignUpInput{Email: testEmail, Password: "correcthorse", Name: "Ada"}

	t.Run("confirmed identity can sign in immediately", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: confirmedIdentity()}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users \(id,email,name,email_verified,created_at\)`).
			WithArgs(accountID, testEmail, "Ada", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		res, err := s.SignUp(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, accountID, res.UserID)
		assert.True(t, res.EmailConfirmed)
		assert.Contains(t, res.Message, "Please sign in.")
		assert.Empty(t, v.deletedIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unconfirmed identity is told to check email", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: &identity.Identity{UserID: accountID, Email: testEmail}}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))

		res, err := s.SignUp(context.Background(), input)
		require.NoError(t, err)
		assert.False(t, res.EmailConfirmed)
		assert.Contains(t, res.Message, "check your email")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blank name falls back to the email local part", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: confirmedIdentity()}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(accountID, testEmail, "ada", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		_, err := s.SignUp(context.Background(), SignUpInput{Email: testEmail, Password: "correcthorse"})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already-registered email is a Conflict without local writes", func(t *testing.T) {
		v := &fakeVerifier{signUpErr: identity.ErrAlreadyRegistered}
		s, mock := newTestService(t, v)

		_, err := s.SignUp(context.Background(), input)
		assert.True(t, apperr.Conflict(err))
		assert.Empty(t, v.deletedIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("profile email conflict keeps the verifier identity", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: confirmedIdentity()}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{
			Code:       "23505",
			Message:    `duplicate key value violates unique constraint "users_email_key"`,
			Constraint: "users_email_key",
		})

		_, err := s.SignUp(context.Background(), input)
		assert.True(t, apperr.Conflict(err))
		assert.Empty(t, v.deletedIDs, "identity must not be rolled back on an email conflict")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("profile id conflict keeps the verifier identity", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: confirmedIdentity()}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{
			Code:       "23505",
			Message:    `duplicate key value violates unique constraint "users_pkey"`,
			Constraint: "users_pkey",
		})

		_, err := s.SignUp(context.Background(), input)
		require.Error(t, err)
		assert.False(t, apperr.Conflict(err))
		assert.Empty(t, v.deletedIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other profile write failures delete the new identity", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: confirmedIdentity()}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection reset"))

		_, err := s.SignUp(context.Background(), input)
		require.Error(t, err)
		assert.Equal(t, []string{accountID}, v.deletedIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed compensation still surfaces the original error", func(t *testing.T) {
		v := &fakeVerifier{signUpIdent: confirmedIdentity(), deleteErr: errors.New("verifier down")}
		s, mock := newTestService(t, v)

		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("disk full"))

		_, err := s.SignUp(context.Background(), input)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("input validation", func(t *testing.T) {
		s, mock := newTestService(t, &fakeVerifier{})

		cases := map[string]SignUpInput{
			"bad email":      {Email: "not-an-email", Password: "correcthorse"},
			"short password": {Email: testEmail, Password: "short"},
			"one-rune name":  {Email: testEmail, Password: "correcthorse", Name: "A"},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := s.SignUp(context.Background(), in)
				assert.True(t, apperr.BadRequest(err))
			})
		}
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSignIn(t *testing.T) {
	t.Run("wrong credentials are Unauthorized", func(t *testing.T) {
		v := &fakeVerifier{signInErr: identity.ErrInvalidCredentials}
		s, mock := newTestService(t, v)

		_, err := s.SignIn(context.Background(), testEmail, "wrong")
		assert.True(t, apperr.Unauthorized(err))
		assert.Contains(t, err.Error(), "Invalid email or password")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first sign-in creates the profile row", func(t *testing.T) {
		ident := confirmedIdentity()
		ident.Name = "Ada Lovelace"
		s, mock := newTestService(t, &fakeVerifier{signInIdent: ident})

		mock.ExpectQuery(`SELECT id, email, name, image, email_verified, created_at FROM users WHERE email = \$1`).
			WithArgs(testEmail).
			WillReturnRows(userRows())
		mock.ExpectExec(`INSERT INTO users \(id,email,name,image,email_verified,created_at\)`).
			WithArgs(accountID, testEmail, "Ada Lovelace", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := s.SignIn(context.Background(), testEmail, "correcthorse")
		require.NoError(t, err)
		assert.Equal(t, accountID, user.ID)
		require.NotNil(t, user.Name)
		assert.Equal(t, "Ada Lovelace", *user.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("later sign-ins refresh the profile from the verifier", func(t *testing.T) {
		ident := confirmedIdentity()
		ident.Name = "Ada L."
		ident.AvatarURL = "https://example.com/ada.png"
		s, mock := newTestService(t, &fakeVerifier{signInIdent: ident})

		created := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(`SELECT id, email, name, image, email_verified, created_at FROM users`).
			WillReturnRows(userRows().AddRow(accountID, testEmail, "Ada", nil, nil, created))
		mock.ExpectExec(`UPDATE users SET email_verified = \$1, image = \$2, name = \$3 WHERE email = \$4`).
			WithArgs(sqlmock.AnyArg(), "https://example.com/ada.png", "Ada L.", testEmail).
			WillReturnResult(sqlmock.NewResult(0, 1))

		user, err := s.SignIn(context.Background(), testEmail, "correcthorse")
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", *user.Name)
		assert.NotNil(t, user.EmailVerified)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("name and image update then re-read", func(t *testing.T) {
		s, mock := newTestService(t, &fakeVerifier{})

		mock.ExpectExec(`UPDATE users SET image = \$1, name = \$2 WHERE id = \$3`).
			WithArgs("https://example.com/new.png", "Ada Byron", accountID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, email, name, image, email_verified, created_at FROM users WHERE id = \$1`).
			WithArgs(accountID).
			WillReturnRows(userRows().AddRow(accountID, testEmail, "Ada Byron", "https://example.com/new.png", nil, time.Now()))

		user, err := s.UpdateProfile(context.Background(), accountID, UpdateProfileInput{
			Name:  models.Some(" Ada Byron "),
			Image: models.Some("https://example.com/new.png"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Ada Byron", *user.Name)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-http image URL is rejected", func(t *testing.T) {
		s, mock := newTestService(t, &fakeVerifier{})

		_, err := s.UpdateProfile(context.Background(), accountID, UpdateProfileInput{
			Image: models.Some("ftp://example.com/x.png"),
		})
		assert.True(t, apperr.BadRequest(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null image clears it", func(t *testing.T) {
		s, mock := newTestService(t, &fakeVerifier{})

		mock.ExpectExec(`UPDATE users SET image = \$1 WHERE id = \$2`).
			WithArgs(nil, accountID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT id, email, name, image, email_verified, created_at FROM users`).
			WillReturnRows(userRows().AddRow(accountID, testEmail, "Ada", nil, nil, time.Now()))

		user, err := s.UpdateProfile(context.Background(), accountID, UpdateProfileInput{
			Image: models.Null[string](),
		})
		require.NoError(t, err)
		assert.Nil(t, user.Image)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSearchUsers(t *testing.T) {
	t.Run("empty query short-circuits", func(t *testing.T) {
		s, mock := newTestService(t, &fakeVerifier{})

		out, err := s.SearchUsers(context.Background(), "   ")
		require.NoError(t, err)
		assert.Nil(t, out)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matches name or email, capped at ten", func(t *testing.T) {
		s, mock := newTestService(t, &fakeVerifier{})

		mock.ExpectQuery(`SELECT id, name, email, image FROM users WHERE \(name ILIKE \$1 OR email ILIKE \$2\) ORDER BY name ASC LIMIT 10`).
			WithArgs("%ada%", "%ada%").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "image"}).
				AddRow(accountID, "Ada", testEmail, nil))

		out, err := s.SearchUsers(context.Background(), "ada")
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDashboard(t *testing.T) {
	s, mock := newTestService(t, &fakeVerifier{})

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks t WHERE t\.status = \$1 AND EXISTS`).
		WithArgs(models.TaskStatusDone, accountID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT pm\.user_id\) FROM project_members pm WHERE pm\.user_id <> \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	stats, err := s.Dashboard(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.CompletedTasks)
	assert.Equal(t, 3, stats.Collaborators)
	require.NoError(t, mock.ExpectationsWereMet())
}
