package tasks

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/apperr"
	"github.com/taskdeck/taskdeck/internal/models"
	"github.com/taskdeck/taskdeck/internal/store"
)

// CreateTag adds a shared vocabulary entry. Tag names are globally unique;
// a duplicate fails with Conflict.
func (s *Service) CreateTag(ctx context.Context, in CreateTagInput) (*models.Tag, error) {
	const op = "tasks.CreateTag"

	if err := in.Validate(); err != nil {
		return nil, err
	}

	tag := &models.Tag{
		ID:        uuid.NewString(),
		Name:      in.Name,
		ColorCode: in.ColorCode,
	}

	query, args, err := psql.Insert("tags").
		Columns("id", "name", "color_code").
		Values(tag.ID, tag.Name, tag.ColorCode).
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if store.IsUniqueViolation(err, "uk_tags_name") {
			return nil, apperr.New(apperr.ErrConflict, op, "A tag with this name already exists")
		}
		return nil, store.TranslateError(err, op)
	}

	s.log.Debug("tag created", "tag", tag.ID, "name", tag.Name)
	return tag, nil
}

// ListTags returns the full tag vocabulary ordered by name
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	const op = "tasks.ListTags"

	query, args, err := psql.Select("id", "name", "color_code").
		From("tags").
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, store.TranslateError(err, op)
	}

	var out []models.Tag
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, store.TranslateError(err, op)
	}
	return out, nil
}
