package appraisal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const appraisalColumns = `
    id, employee_id, form_id, status,
    COALESCE(current_approval_level, 0), COALESCE(total_approval_levels, 0),
    period_from, period_to,
    COALESCE(total_score, 0), COALESCE(grade, ''), COALESCE(overall_comments, ''),
    COALESCE(final_approver_id::text, ''), submitted_at, reviewed_at, created_at`

func (s *Store) CreateAppraisal(ctx context.Context, employeeID, formID string, periodFrom, periodTo time.Time) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO appraisals (employee_id, form_id, status, period_from, period_to)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, employeeID, formID, StatusDraft, periodFrom, periodTo).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) GetAppraisal(ctx context.Context, appraisalID string) (Appraisal, error) {
	row := s.DB.QueryRow(ctx, "SELECT"+appraisalColumns+" FROM appraisals WHERE id = $1", appraisalID)
	appr, err := scanAppraisal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appraisal{}, ErrNotFound
	}
	return appr, err
}

func (s *Store) OpenAppraisalID(ctx context.Context, employeeID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM appraisals
    WHERE employee_id = $1 AND status IN ($2,$3,$4)
    ORDER BY created_at DESC
    LIMIT 1
  `, employeeID, StatusDraft, StatusSubmitted, StatusInReview).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListForEmployee(ctx context.Context, employeeID string) ([]Appraisal, error) {
	rows, err := s.DB.Query(ctx, "SELECT"+appraisalColumns+`
    FROM appraisals
    WHERE employee_id = $1
    ORDER BY created_at DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppraisals(rows)
}

func (s *Store) ListByStatus(ctx context.Context, status string, limit, offset int) ([]Appraisal, error) {
	query := "SELECT" + appraisalColumns + " FROM appraisals"
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppraisals(rows)
}

func (s *Store) ListPendingForApprover(ctx context.Context, approverID string) ([]PendingApproval, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT a.id, a.employee_id, e.name, a.form_id, a.status,
           aa.approval_level, aa.approver_role, aa.can_rate, a.submitted_at
    FROM appraisals a
    JOIN appraisal_approvals aa
      ON aa.appraisal_id = a.id AND aa.approval_level = a.current_approval_level
    JOIN employees e ON e.id = a.employee_id
    WHERE aa.approver_id = $1
      AND aa.status = $2
      AND a.status IN ($3,$4)
    ORDER BY a.submitted_at ASC
  `, approverID, LevelStatusPending, StatusSubmitted, StatusInReview)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingApproval
	for rows.Next() {
		var item PendingApproval
		var submittedAt *time.Time
		if err := rows.Scan(&item.AppraisalID, &item.EmployeeID, &item.EmployeeName, &item.FormID, &item.Status,
			&item.Level, &item.ApproverRole, &item.CanRate, &submittedAt); err != nil {
			return nil, err
		}
		if submittedAt != nil {
			item.SubmittedAt = *submittedAt
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) ListLevels(ctx context.Context, appraisalID string) ([]ApprovalLevel, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT appraisal_id, approval_level, approver_id, approver_role,
           can_rate, is_final_approver, status, COALESCE(comments, ''), action_at
    FROM appraisal_approvals
    WHERE appraisal_id = $1
    ORDER BY approval_level ASC
  `, appraisalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []ApprovalLevel
	for rows.Next() {
		var lvl ApprovalLevel
		if err := rows.Scan(&lvl.AppraisalID, &lvl.Level, &lvl.ApproverID, &lvl.ApproverRole,
			&lvl.CanRate, &lvl.IsFinalApprover, &lvl.Status, &lvl.Comments, &lvl.ActionAt); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}

func (s *Store) CurrentLevel(ctx context.Context, appraisalID string) (ApprovalLevel, bool, error) {
	var lvl ApprovalLevel
	err := s.DB.QueryRow(ctx, `
    SELECT appraisal_id, approval_level, approver_id, approver_role,
           can_rate, is_final_approver, status, COALESCE(comments, ''), action_at
    FROM appraisal_approvals
    WHERE appraisal_id = $1 AND status = $2
    ORDER BY approval_level ASC
    LIMIT 1
  `, appraisalID, LevelStatusPending).Scan(&lvl.AppraisalID, &lvl.Level, &lvl.ApproverID, &lvl.ApproverRole,
		&lvl.CanRate, &lvl.IsFinalApprover, &lvl.Status, &lvl.Comments, &lvl.ActionAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ApprovalLevel{}, false, nil
	}
	if err != nil {
		return ApprovalLevel{}, false, err
	}
	return lvl, true, nil
}

func (s *Store) LevelApprover(ctx context.Context, appraisalID string, level int) (string, error) {
	var approverID string
	err := s.DB.QueryRow(ctx, `
    SELECT approver_id FROM appraisal_approvals
    WHERE appraisal_id = $1 AND approval_level = $2
  `, appraisalID, level).Scan(&approverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return approverID, err
}

// ReplaceChain persists the whole chain in one transaction: existing rows are
// removed, the new levels inserted, and the appraisal's level counters reset.
// The (appraisal_id, approval_level) uniqueness constraint turns a lost
// double-build race into ErrChainAlreadyBuilt.
func (s *Store) ReplaceChain(ctx context.Context, appraisalID string, levels []ApprovalLevel) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM appraisal_approvals WHERE appraisal_id = $1", appraisalID); err != nil {
		return err
	}
	for _, lvl := range levels {
		if _, err := tx.Exec(ctx, `
      INSERT INTO appraisal_approvals
        (appraisal_id, approval_level, approver_id, approver_role, can_rate, is_final_approver, status)
      VALUES ($1,$2,$3,$4,$5,$6,$7)
    `, appraisalID, lvl.Level, lvl.ApproverID, lvl.ApproverRole, lvl.CanRate, lvl.IsFinalApprover, LevelStatusPending); err != nil {
			if isUniqueViolation(err) {
				return ErrChainAlreadyBuilt
			}
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
    UPDATE appraisals
    SET current_approval_level = 1, total_approval_levels = $1
    WHERE id = $2
  `, len(levels), appraisalID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) MarkSubmitted(ctx context.Context, appraisalID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisals
    SET status = $1, submitted_at = now()
    WHERE id = $2 AND status = $3
  `, StatusSubmitted, appraisalID, StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPersistenceConflict
	}
	return nil
}

// ApproveLevel decides the level and, in the same transaction, either
// advances the appraisal to the next level or completes it with the final
// score and grade. The level update is conditioned on the row still being
// pending for this approver; zero affected rows means the race was lost.
func (s *Store) ApproveLevel(ctx context.Context, appraisalID string, level int, approverID, comments string, final bool, score float64, grade string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE appraisal_approvals
    SET status = $1, comments = $2, action_at = now()
    WHERE appraisal_id = $3 AND approval_level = $4 AND approver_id = $5 AND status = $6
  `, LevelStatusApproved, nullIfEmpty(comments), appraisalID, level, approverID, LevelStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPersistenceConflict
	}

	if final {
		if _, err := tx.Exec(ctx, `
      UPDATE appraisals
      SET status = $1, total_score = $2, grade = $3,
          final_approver_id = $4, reviewed_at = now()
      WHERE id = $5
    `, StatusCompleted, score, grade, approverID, appraisalID); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, `
      UPDATE appraisals
      SET status = $1, current_approval_level = $2
      WHERE id = $3
    `, StatusInReview, level+1, appraisalID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// RejectLevel marks the level rejected and reverts the appraisal to draft so
// the employee can revise and resubmit. Levels above the rejected one are
// never touched.
func (s *Store) RejectLevel(ctx context.Context, appraisalID string, level int, approverID, comments string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE appraisal_approvals
    SET status = $1, comments = $2, action_at = now()
    WHERE appraisal_id = $3 AND approval_level = $4 AND approver_id = $5 AND status = $6
  `, LevelStatusRejected, nullIfEmpty(comments), appraisalID, level, approverID, LevelStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPersistenceConflict
	}

	if _, err := tx.Exec(ctx, `
    UPDATE appraisals SET status = $1 WHERE id = $2
  `, StatusDraft, appraisalID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CancelAppraisal(ctx context.Context, appraisalID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE appraisals SET status = $1
    WHERE id = $2 AND status NOT IN ($1, $3)
  `, StatusCancelled, appraisalID, StatusCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPersistenceConflict
	}
	return nil
}

func (s *Store) SetOverallComments(ctx context.Context, appraisalID, comments string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE appraisals SET overall_comments = $1 WHERE id = $2
  `, comments, appraisalID)
	return err
}

func (s *Store) SaveEmployeeResponse(ctx context.Context, appraisalID, questionID string, input ResponseInput) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO responses (appraisal_id, question_id, employee_response, employee_rating, employee_comments)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (appraisal_id, question_id) DO UPDATE
      SET employee_response = EXCLUDED.employee_response,
          employee_rating   = EXCLUDED.employee_rating,
          employee_comments = EXCLUDED.employee_comments,
          updated_at = now()
  `, appraisalID, questionID, nullIfEmpty(input.Response), input.Rating, nullIfEmpty(input.Comments))
	return err
}

func (s *Store) SaveManagerRating(ctx context.Context, appraisalID, questionID string, input ResponseInput) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO responses (appraisal_id, question_id, manager_response, manager_rating, manager_comments)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (appraisal_id, question_id) DO UPDATE
      SET manager_response = EXCLUDED.manager_response,
          manager_rating   = EXCLUDED.manager_rating,
          manager_comments = EXCLUDED.manager_comments,
          updated_at = now()
  `, appraisalID, questionID, nullIfEmpty(input.Response), input.Rating, nullIfEmpty(input.Comments))
	return err
}

// ManagerRatings returns the manager ratings on rating-type questions in the
// Performance Assessment sections, paired with each question's maximum.
func (s *Store) ManagerRatings(ctx context.Context, appraisalID string) ([]RatingSample, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.manager_rating,
           CASE fq.response_type WHEN 'rating_5' THEN 5 ELSE 10 END
    FROM responses r
    JOIN form_questions fq ON fq.id = r.question_id
    WHERE r.appraisal_id = $1
      AND r.manager_rating IS NOT NULL
      AND fq.response_type IN ('rating_5', 'rating_10')
    ORDER BY fq.question_order
  `, appraisalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []RatingSample
	for rows.Next() {
		var sample RatingSample
		if err := rows.Scan(&sample.Value, &sample.Max); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func (s *Store) ListResponses(ctx context.Context, appraisalID string) ([]Response, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.appraisal_id, r.question_id,
           COALESCE(r.employee_response, ''), r.employee_rating, COALESCE(r.employee_comments, ''),
           COALESCE(r.manager_response, ''), r.manager_rating, COALESCE(r.manager_comments, '')
    FROM responses r
    JOIN form_questions fq ON fq.id = r.question_id
    JOIN form_sections fs ON fs.id = fq.section_id
    WHERE r.appraisal_id = $1
    ORDER BY fs.section_order, fq.question_order
  `, appraisalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		var resp Response
		if err := rows.Scan(&resp.AppraisalID, &resp.QuestionID,
			&resp.EmployeeResponse, &resp.EmployeeRating, &resp.EmployeeComments,
			&resp.ManagerResponse, &resp.ManagerRating, &resp.ManagerComments); err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

func (s *Store) SaveSectionComment(ctx context.Context, appraisalID, sectionID, comment string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO section_comments (appraisal_id, section_id, comment)
    VALUES ($1,$2,$3)
    ON CONFLICT (appraisal_id, section_id) DO UPDATE
      SET comment = EXCLUDED.comment, updated_at = now()
  `, appraisalID, sectionID, comment)
	return err
}

func scanAppraisal(row pgx.Row) (Appraisal, error) {
	var appr Appraisal
	err := row.Scan(&appr.ID, &appr.EmployeeID, &appr.FormID, &appr.Status,
		&appr.CurrentApprovalLevel, &appr.TotalApprovalLevels,
		&appr.PeriodFrom, &appr.PeriodTo,
		&appr.TotalScore, &appr.Grade, &appr.OverallComments,
		&appr.FinalApproverID, &appr.SubmittedAt, &appr.ReviewedAt, &appr.CreatedAt)
	return appr, err
}

func collectAppraisals(rows pgx.Rows) ([]Appraisal, error) {
	var out []Appraisal
	for rows.Next() {
		appr, err := scanAppraisal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appr)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
