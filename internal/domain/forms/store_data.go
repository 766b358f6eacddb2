package forms

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateForm(ctx context.Context, form Form) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO forms (title, description, is_active)
    VALUES ($1,$2,$3)
    RETURNING id
  `, form.Title, form.Description, form.IsActive).Scan(&id)
	return id, err
}

func (s *Store) UpdateForm(ctx context.Context, formID string, form Form) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE forms
    SET title = $1, description = $2, updated_at = now()
    WHERE id = $3
  `, form.Title, form.Description, formID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetFormActive(ctx context.Context, formID string, active bool) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE forms SET is_active = $1, updated_at = now() WHERE id = $2
  `, active, formID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetForm(ctx context.Context, formID string) (Form, error) {
	var form Form
	err := s.DB.QueryRow(ctx, `
    SELECT id, title, COALESCE(description, ''), is_active, created_at, updated_at
    FROM forms WHERE id = $1
  `, formID).Scan(&form.ID, &form.Title, &form.Description, &form.IsActive, &form.CreatedAt, &form.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Form{}, ErrNotFound
	}
	return form, err
}

func (s *Store) ListForms(ctx context.Context, activeOnly bool) ([]Form, error) {
	query := `
    SELECT id, title, COALESCE(description, ''), is_active, created_at, updated_at
    FROM forms`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Form
	for rows.Next() {
		var form Form
		if err := rows.Scan(&form.ID, &form.Title, &form.Description, &form.IsActive, &form.CreatedAt, &form.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, form)
	}
	return out, rows.Err()
}

func (s *Store) CreateSection(ctx context.Context, section Section) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO form_sections (form_id, title, description, section_order, visible_to, is_active)
    VALUES ($1,$2,$3,
      COALESCE((SELECT MAX(section_order) FROM form_sections WHERE form_id = $1), 0) + 1,
      $4,$5)
    RETURNING id
  `, section.FormID, section.Title, section.Description, section.VisibleTo, section.IsActive).Scan(&id)
	return id, err
}

func (s *Store) UpdateSection(ctx context.Context, sectionID string, section Section) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE form_sections
    SET title = $1, description = $2, visible_to = $3, is_active = $4
    WHERE id = $5
  `, section.Title, section.Description, section.VisibleTo, section.IsActive, sectionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetSection(ctx context.Context, sectionID string) (Section, error) {
	var section Section
	err := s.DB.QueryRow(ctx, `
    SELECT id, form_id, title, COALESCE(description, ''), section_order, visible_to, is_active
    FROM form_sections WHERE id = $1
  `, sectionID).Scan(&section.ID, &section.FormID, &section.Title, &section.Description,
		&section.SectionOrder, &section.VisibleTo, &section.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Section{}, ErrNotFound
	}
	return section, err
}

func (s *Store) ListSections(ctx context.Context, formID string) ([]Section, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, form_id, title, COALESCE(description, ''), section_order, visible_to, is_active
    FROM form_sections
    WHERE form_id = $1
    ORDER BY section_order
  `, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var section Section
		if err := rows.Scan(&section.ID, &section.FormID, &section.Title, &section.Description,
			&section.SectionOrder, &section.VisibleTo, &section.IsActive); err != nil {
			return nil, err
		}
		out = append(out, section)
	}
	return out, rows.Err()
}

// ReorderSections rewrites section_order in one transaction. The ordered list
// must name every section of the form exactly once.
func (s *Store) ReorderSections(ctx context.Context, formID string, orderedIDs []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `
    SELECT COUNT(1) FROM form_sections WHERE form_id = $1
  `, formID).Scan(&existing); err != nil {
		return err
	}
	if existing != len(orderedIDs) {
		return ErrReorderMismatch
	}

	for i, sectionID := range orderedIDs {
		tag, err := tx.Exec(ctx, `
      UPDATE form_sections SET section_order = $1
      WHERE id = $2 AND form_id = $3
    `, i+1, sectionID, formID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrReorderMismatch
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateQuestion(ctx context.Context, question Question) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO form_questions (section_id, text, description, response_type, options, is_required, question_order, is_active)
    VALUES ($1,$2,$3,$4,$5,$6,
      COALESCE((SELECT MAX(question_order) FROM form_questions WHERE section_id = $1), 0) + 1,
      $7)
    RETURNING id
  `, question.SectionID, question.Text, question.Description, question.ResponseType,
		nullIfEmpty(question.Options), question.IsRequired, question.IsActive).Scan(&id)
	return id, err
}

func (s *Store) UpdateQuestion(ctx context.Context, questionID string, question Question) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE form_questions
    SET text = $1, description = $2, response_type = $3, options = $4,
        is_required = $5, is_active = $6
    WHERE id = $7
  `, question.Text, question.Description, question.ResponseType,
		nullIfEmpty(question.Options), question.IsRequired, question.IsActive, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, questionID string) (Question, error) {
	var question Question
	err := s.DB.QueryRow(ctx, `
    SELECT id, section_id, text, COALESCE(description, ''), response_type,
           COALESCE(options::text, ''), is_required, question_order, is_active
    FROM form_questions WHERE id = $1
  `, questionID).Scan(&question.ID, &question.SectionID, &question.Text, &question.Description,
		&question.ResponseType, &question.Options, &question.IsRequired, &question.QuestionOrder, &question.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return question, err
}

func (s *Store) ListQuestions(ctx context.Context, sectionID string) ([]Question, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, section_id, text, COALESCE(description, ''), response_type,
           COALESCE(options::text, ''), is_required, question_order, is_active
    FROM form_questions
    WHERE section_id = $1
    ORDER BY question_order
  `, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var question Question
		if err := rows.Scan(&question.ID, &question.SectionID, &question.Text, &question.Description,
			&question.ResponseType, &question.Options, &question.IsRequired, &question.QuestionOrder, &question.IsActive); err != nil {
			return nil, err
		}
		out = append(out, question)
	}
	return out, rows.Err()
}

func (s *Store) ReorderQuestions(ctx context.Context, sectionID string, orderedIDs []string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `
    SELECT COUNT(1) FROM form_questions WHERE section_id = $1
  `, sectionID).Scan(&existing); err != nil {
		return err
	}
	if existing != len(orderedIDs) {
		return ErrReorderMismatch
	}

	for i, questionID := range orderedIDs {
		tag, err := tx.Exec(ctx, `
      UPDATE form_questions SET question_order = $1
      WHERE id = $2 AND section_id = $3
    `, i+1, questionID, sectionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrReorderMismatch
		}
	}
	return tx.Commit(ctx)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
