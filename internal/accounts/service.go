package accounts

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/identity"
	"github.com/taskdeck/taskdeck/internal/logger"
	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/store"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Service owns account provisioning and profile operations. Credentials
// live with the external verifier; this service keeps the local profile
// rows in step with it.
type Service struct {
	db       *sqlx.DB
	verifier identity.Verifier
	log      logger.Logger
	now      func() time.Time
}

// NewService builds an account service
func NewService(db *sqlx.DB, verifier identity.Verifier) *Service {
	return &Service{
		db:       db,
		verifier: verifier,
		log:      logger.Auth(),
		now:      time.Now,
	}
}

// SignUpInput carries the sign-up form fields
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// Validate checks the sign-up input
func (in *SignUpInput) Validate() error {
	const op = "accounts.SignUp"
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Name = strings.TrimSpace(in.Name)

	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperr.New(apperr.ErrBadRequest, op, "Invalid email address")
	}
	if len(in.Password) < 8 {
		return apperr.New(apperr.ErrBadRequest, op, "Password must be at least 8 characters")
	}
	if in.Name != "" {
		if len(in.Name) < 2 {
			return apperr.New(apperr.ErrBadRequest, op, "Name must be at least 2 characters")
		}
		if len(in.Name) > models.MaxUserNameLen {
			return apperr.New(apperr.ErrBadRequest, op, "Name must be at most %d characters", models.MaxUserNameLen)
		}
	}
	return nil
}

// SignUpResult reports the outcome of a successful sign-up
type SignUpResult struct {
	UserID         string `json:"userId"`
	EmailConfirmed bool   `json:"emailConfirmed"`
	Message        string `json:"message"`
}

// SignUp provisions an identity with the verifier and then the local
// profile row. If the profile write fails for any reason other than an
// email or primary-key conflict, the just-created identity is deleted as
// a best-effort compensating action and the original error is surfaced.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	const op = "accounts.SignUp"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	ident, err := s.verifier.SignUp(ctx, in.Email, in.Password, in.Name)
	if err != nil {
		if err == identity.ErrAlreadyRegistered {
			return nil, apperr.New(apperr.ErrConflict, op, "A user with this email already exists")
		}
		s.log.Error("verifier sign-up failed", "email", in.Email, "error", err)
		return nil, apperr.Wrap(err, apperr.ErrInternal, op)
	}

	name := in.Name
	if name == "" {
		name = emailLocalPart(ident.Email)
	}

	query, args, err := psql.Insert("users").
		Columns("id", "email", "name", "email_verified", "created_at").
		Values(ident.UserID, ident.Email, name, ident.EmailConfirmedAt, s.now().UTC()).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if store.IsUniqueViolation(err, "users_email_key") {
			// A profile already holds this email. The verifier identity may
			// belong to its legitimate owner retrying, so no rollback.
			return nil, apperr.New(apperr.ErrConflict, op, "A user profile with this email already exists")
		}
		if store.IsUniqueViolation(err, "users_pkey") {
			// The identity already owns that row; deleting it would orphan
			// a legitimate account.
			s.log.Warn("profile row already exists for verifier id", "user", ident.UserID)
			return nil, apperr.New(apperr.ErrInternal, op, "User profile conflict")
		}

		if delErr := s.verifier.DeleteUser(ctx, ident.UserID); delErr != nil {
			s.log.Error("failed to roll back verifier identity", "user", ident.UserID, "error", delErr)
		} else {
			s.log.Info("rolled back verifier identity", "user", ident.UserID)
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, op)
	}

	res := &SignUpResult{
		UserID:         ident.UserID,
		EmailConfirmed: ident.EmailConfirmedAt != nil,
	}
	if res.EmailConfirmed {
		res.Message = "Account created successfully! Please sign in."
	} else {
		res.Message = "Account created successfully! Please check your email to confirm your account."
	}
	s.log.Info("account created", "user", ident.UserID, "confirmed", res.EmailConfirmed)
	return res, nil
}

// SignIn verifies the credential pair and keeps the local profile in step
// with the verifier: the profile is created on first sign-in and its
// name, avatar and confirmation state are refreshed on later ones.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	const op = "accounts.SignIn"

	email = strings.TrimSpace(strings.ToLower(email))
	ident, err := s.verifier.SignInWithPassword(ctx, email, password)
	if err != nil {
		if err == identity.ErrInvalidCredentials {
			return nil, apperr.New(apperr.ErrUnauthorized, op, "Invalid email or password")
		}
		return nil, apperr.Wrap(err, apperr.ErrInternal, op)
	}

	user, err := s.userByEmail(ctx, email)
	if err != nil && !apperr.NotFound(err) {
		return nil, err
	}

	if user == nil {
		name := ident.Name
		if name == "" {
			name = emailLocalPart(ident.Email)
		}
		var image *string
		if ident.AvatarURL != "" {
			image = &ident.AvatarURL
		}
		user = &models.User{
			ID:            ident.UserID,
			Email:         ident.Email,
			Name:          &name,
			Image:         image,
			EmailVerified: ident.EmailConfirmedAt,
			CreatedAt:     s.now().UTC(),
		}

		query, args, err := psql.Insert("users").
			Columns("id", "email", "name", "image", "email_verified", "created_at").
			Values(user.ID, user.Email, user.Name, user.Image, user.EmailVerified, user.CreatedAt).
			ToSql()
		if err != nil {
			return nil, store.TranslateError(err, op)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, store.TranslateError(err, op)
		}
		return user, nil
	}

	sets := map[string]interface{}{}
	if ident.Name != "" {
		sets["name"] = ident.Name
		user.Name = &ident.Name
	}
	if ident.AvatarURL != "" {
		sets["image"] = ident.AvatarURL
		user.Image = &ident.AvatarURL
	}
	if ident.EmailConfirmedAt != nil {
		sets["email_verified"] = ident.EmailConfirmedAt
		user.EmailVerified = ident.EmailConfirmedAt
	}
	if len(sets) > 0 {
		query, args, err := psql.Update("users").SetMap(sets).Where(squirrel.Eq{"email": email}).ToSql()
		if err != nil {
			return nil, store.TranslateError(err, op)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, store.TranslateError(err, op)
		}
	}
	return user, nil
}

// Profile returns the caller's own profile
func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	const op = "accounts.Profile"

	query, args, err := psql.Select("id", "email", "name", "image", "email_verified", "created_at").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	var u models.User
	if err := s.db.GetContext(ctx, &u, query, args...); err != nil {
		err = store.TranslateError(err, op)
		if apperr.NotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, op, "User not found")
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfileInput carries the editable profile fields
type UpdateProfileInput struct {
	Name  models.Optional[string]
	Image models.Optional[string]
}

// Validate checks the supplied fields only
func (in *UpdateProfileInput) Validate() error {
	const op = "accounts.UpdateProfile"
	if in.Name.Present() {
		name := strings.TrimSpace(in.Name.Value)
		if name == "" {
			return apperr.New(apperr.ErrBadRequest, op, "Name is required")
		}
		if len(name) > models.MaxUserNameLen {
			return apperr.New(apperr.ErrBadRequest, op, "Name must be at most %d characters", models.MaxUserNameLen)
		}
	}
	if in.Name.Set && in.Name.Null {
		return apperr.New(apperr.ErrBadRequest, op, "Name cannot be null")
	}
	if in.Image.Present() {
		u, err := url.Parse(in.Image.Value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return apperr.New(apperr.ErrBadRequest, op, "Image must be a valid URL")
		}
	}
	return nil
}

// UpdateProfile applies profile edits for the caller
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.User, error) {
	const op = "accounts.UpdateProfile"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	sets := map[string]interface{}{}
	if in.Name.Present() {
		sets["name"] = strings.TrimSpace(in.Name.Value)
	}
	if in.Image.Set {
		if in.Image.Null {
			sets["image"] = nil
		} else {
			sets["image"] = in.Image.Value
		}
	}
	if len(sets) > 0 {
		query, args, err := psql.Update("users").SetMap(sets).Where(squirrel.Eq{"id": userID}).ToSql()
		if err != nil {
			return nil, store.TranslateError(err, op)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return nil, store.TranslateError(err, op)
		}
	}
	return s.Profile(ctx, userID)
}

// SearchUsers finds users by a case-insensitive name or email match. An
// empty query returns nothing.
func (s *Service) SearchUsers(ctx context.Context, queryText string) ([]models.UserRef, error) {
	const op = "accounts.SearchUsers"

	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, nil
	}

	pattern := "%" + queryText + "%"
	query, args, err := psql.Select("id", "name", "email", "image").
		From("users").
		Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
		}).
		OrderBy("name ASC").
		Limit(10).
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

func (s *Service) userByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "accounts.userByEmail"

	query, args, err := psql.Select("id", "email", "name", "image", "email_verified", "created_at").
		From("users").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	var u models.User
	if err := s.db.GetContext(ctx, &u, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return &u, nil
}

func emailLocalPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
