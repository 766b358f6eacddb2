package appraisal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Service struct {
	store StoreAPI
	dir   Directory
}

func NewService(store StoreAPI, dir Directory) *Service {
	return &Service{store: store, dir: dir}
}

// CreateDraft opens a new draft appraisal for the employee. An employee may
// only have one open appraisal (draft, submitted or in review) at a time.
func (s *Service) CreateDraft(ctx context.Context, employeeID, formID string, periodFrom, periodTo time.Time) (string, error) {
	openID, err := s.store.OpenAppraisalID(ctx, employeeID)
	if err != nil {
		return "", err
	}
	if openID != "" {
		return "", fmt.Errorf("employee already has open appraisal %s: %w", openID, ErrInvalidState)
	}
	return s.store.CreateAppraisal(ctx, employeeID, formID, periodFrom, periodTo)
}

func (s *Service) Get(ctx context.Context, appraisalID string) (Appraisal, error) {
	return s.store.GetAppraisal(ctx, appraisalID)
}

func (s *Service) ListForEmployee(ctx context.Context, employeeID string) ([]Appraisal, error) {
	return s.store.ListForEmployee(ctx, employeeID)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]Appraisal, error) {
	return s.store.ListByStatus(ctx, status, limit, offset)
}

func (s *Service) ListPendingForApprover(ctx context.Context, approverID string) ([]PendingApproval, error) {
	return s.store.ListPendingForApprover(ctx, approverID)
}

func (s *Service) Chain(ctx context.Context, appraisalID string) ([]ApprovalLevel, error) {
	return s.store.ListLevels(ctx, appraisalID)
}

// PreviewChain computes the chain an employee would get on submission
// without persisting anything.
func (s *Service) PreviewChain(ctx context.Context, employeeID string) ([]ApprovalLevel, error) {
	employeeType, err := s.dir.EmployeeType(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return ComputeChain(ctx, s.dir, employeeID, ChainDepth(employeeType))
}

// BuildChain computes and persists the approval chain for an appraisal.
// An existing chain without a rejected level makes this a conflict
// (ErrChainAlreadyBuilt); a chain carrying a rejection is torn down and
// rebuilt, which is the resubmission path. Persistence is all-or-nothing.
func (s *Service) BuildChain(ctx context.Context, appraisalID, employeeID string) ([]ApprovalLevel, error) {
	existing, err := s.store.ListLevels(ctx, appraisalID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !hasRejectedLevel(existing) {
		return existing, ErrChainAlreadyBuilt
	}

	levels, err := s.PreviewChain(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	for i := range levels {
		levels[i].AppraisalID = appraisalID
	}
	if err := s.store.ReplaceChain(ctx, appraisalID, levels); err != nil {
		return nil, err
	}
	return levels, nil
}

type SubmitResult struct {
	AppraisalID    string
	Levels         []ApprovalLevel
	Level1Approver string
}

// Submit moves a draft appraisal to submitted and ensures its approval chain
// exists. The chain is built while the appraisal is still a draft, so a
// failed build (no supervisor, directory outage) leaves it editable and
// resubmittable. Resubmission after a rejection rebuilds the chain; a
// concurrent double submit loses the conditional status update and surfaces
// as ErrPersistenceConflict.
func (s *Service) Submit(ctx context.Context, appraisalID, actorID string) (SubmitResult, error) {
	appr, err := s.store.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return SubmitResult{}, err
	}
	if appr.EmployeeID != actorID {
		return SubmitResult{}, ErrNotAuthorized
	}
	if appr.Status != StatusDraft {
		return SubmitResult{}, fmt.Errorf("cannot submit appraisal in status %q: %w", appr.Status, ErrInvalidState)
	}

	levels, err := s.BuildChain(ctx, appraisalID, appr.EmployeeID)
	if err != nil && !errors.Is(err, ErrChainAlreadyBuilt) {
		return SubmitResult{}, err
	}
	if len(levels) == 0 {
		return SubmitResult{}, fmt.Errorf("appraisal %s has no approval chain: %w", appraisalID, ErrInvalidState)
	}

	if err := s.store.MarkSubmitted(ctx, appraisalID); err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{
		AppraisalID:    appraisalID,
		Levels:         levels,
		Level1Approver: levels[0].ApproverID,
	}, nil
}

// CurrentLevel returns the lowest pending level, or false when the chain is
// not built or fully decided.
func (s *Service) CurrentLevel(ctx context.Context, appraisalID string) (ApprovalLevel, bool, error) {
	return s.store.CurrentLevel(ctx, appraisalID)
}

func (s *Service) CanApprove(ctx context.Context, appraisalID, userID string) (bool, error) {
	level, ok, err := s.store.CurrentLevel(ctx, appraisalID)
	if err != nil {
		return false, err
	}
	return ok && level.ApproverID == userID, nil
}

func (s *Service) CanRate(ctx context.Context, appraisalID, userID string) (bool, error) {
	level, ok, err := s.store.CurrentLevel(ctx, appraisalID)
	if err != nil {
		return false, err
	}
	return ok && level.CanRate && level.ApproverID == userID, nil
}

type DecisionResult struct {
	AppraisalID    string
	EmployeeID     string
	Decision       string
	Level          int
	IsFinal        bool
	NextApproverID string
	Status         string
	TotalScore     float64
	Grade          string
}

// RecordDecision records an approve or reject by the current level's
// approver and drives the appraisal status accordingly. The underlying
// update is conditioned on the level still being pending, so a lost race
// with another decision surfaces as ErrPersistenceConflict rather than a
// silent overwrite.
func (s *Service) RecordDecision(ctx context.Context, appraisalID, userID, decision, comments string) (DecisionResult, error) {
	appr, err := s.store.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return DecisionResult{}, err
	}
	if appr.Status != StatusSubmitted && appr.Status != StatusInReview {
		return DecisionResult{}, fmt.Errorf("cannot decide appraisal in status %q: %w", appr.Status, ErrInvalidState)
	}

	level, ok, err := s.store.CurrentLevel(ctx, appraisalID)
	if err != nil {
		return DecisionResult{}, err
	}
	if !ok {
		return DecisionResult{}, fmt.Errorf("no pending approval level: %w", ErrInvalidState)
	}
	if level.ApproverID != userID {
		return DecisionResult{}, ErrNotAuthorized
	}

	result := DecisionResult{
		AppraisalID: appraisalID,
		EmployeeID:  appr.EmployeeID,
		Decision:    decision,
		Level:       level.Level,
		IsFinal:     level.IsFinalApprover,
	}

	switch decision {
	case DecisionApprove:
		if level.IsFinalApprover {
			samples, err := s.store.ManagerRatings(ctx, appraisalID)
			if err != nil {
				return DecisionResult{}, err
			}
			score := SuggestedScore(samples)
			grade := GradeFor(score)
			if err := s.store.ApproveLevel(ctx, appraisalID, level.Level, userID, comments, true, score, grade); err != nil {
				return DecisionResult{}, err
			}
			result.Status = StatusCompleted
			result.TotalScore = score
			result.Grade = grade
			return result, nil
		}

		if err := s.store.ApproveLevel(ctx, appraisalID, level.Level, userID, comments, false, 0, ""); err != nil {
			return DecisionResult{}, err
		}
		next, err := s.store.LevelApprover(ctx, appraisalID, level.Level+1)
		if err != nil {
			return DecisionResult{}, err
		}
		result.Status = StatusInReview
		result.NextApproverID = next
		return result, nil

	case DecisionReject:
		if err := s.store.RejectLevel(ctx, appraisalID, level.Level, userID, comments); err != nil {
			return DecisionResult{}, err
		}
		result.Status = StatusDraft
		return result, nil

	default:
		return DecisionResult{}, fmt.Errorf("unknown decision %q: %w", decision, ErrInvalidState)
	}
}

// Cancel terminates an appraisal that is not already completed or cancelled.
func (s *Service) Cancel(ctx context.Context, appraisalID string) (Appraisal, error) {
	appr, err := s.store.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return Appraisal{}, err
	}
	if appr.Status == StatusCompleted || appr.Status == StatusCancelled {
		return Appraisal{}, fmt.Errorf("cannot cancel appraisal in status %q: %w", appr.Status, ErrInvalidState)
	}
	if err := s.store.CancelAppraisal(ctx, appraisalID); err != nil {
		return Appraisal{}, err
	}
	appr.Status = StatusCancelled
	return appr, nil
}

// SaveEmployeeResponse upserts the employee's answer to one question while
// the appraisal is still a draft and owned by the actor.
func (s *Service) SaveEmployeeResponse(ctx context.Context, appraisalID, actorID, questionID string, input ResponseInput) error {
	appr, err := s.store.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return err
	}
	if appr.EmployeeID != actorID {
		return ErrNotAuthorized
	}
	if appr.Status != StatusDraft {
		return fmt.Errorf("responses are editable only in draft, status is %q: %w", appr.Status, ErrInvalidState)
	}
	return s.store.SaveEmployeeResponse(ctx, appraisalID, questionID, input)
}

// SaveManagerRating records a manager-side rating/response for one question.
// Only the current pending approver of a rating level may rate; any other
// approver gets ErrRatingNotAllowed, anyone else ErrNotAuthorized.
func (s *Service) SaveManagerRating(ctx context.Context, appraisalID, actorID, questionID string, input ResponseInput) error {
	appr, err := s.store.GetAppraisal(ctx, appraisalID)
	if err != nil {
		return err
	}
	if appr.Status != StatusSubmitted && appr.Status != StatusInReview {
		return fmt.Errorf("ratings require an appraisal under review, status is %q: %w", appr.Status, ErrInvalidState)
	}
	level, ok, err := s.store.CurrentLevel(ctx, appraisalID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no pending approval level: %w", ErrInvalidState)
	}
	if level.ApproverID != actorID {
		return ErrNotAuthorized
	}
	if !level.CanRate {
		return ErrRatingNotAllowed
	}
	return s.store.SaveManagerRating(ctx, appraisalID, questionID, input)
}

func (s *Service) SaveSectionComment(ctx context.Context, appraisalID, sectionID, comment string) error {
	return s.store.SaveSectionComment(ctx, appraisalID, sectionID, comment)
}

func (s *Service) SetOverallComments(ctx context.Context, appraisalID, comments string) error {
	return s.store.SetOverallComments(ctx, appraisalID, comments)
}

func (s *Service) Responses(ctx context.Context, appraisalID string) ([]Response, error) {
	return s.store.ListResponses(ctx, appraisalID)
}
