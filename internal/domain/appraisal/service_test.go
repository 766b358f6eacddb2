package appraisal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeStore struct {
	appraisals map[string]*Appraisal
	levels     map[string][]ApprovalLevel
	ratings    map[string][]RatingSample
	responses  map[string][]Response
	nextID     int

	markSubmittedErr error
	approveLevelErr  error
	replaceChainErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appraisals: map[string]*Appraisal{},
		levels:     map[string][]ApprovalLevel{},
		ratings:    map[string][]RatingSample{},
		responses:  map[string][]Response{},
	}
}

func (f *fakeStore) CreateAppraisal(_ context.Context, employeeID, formID string, periodFrom, periodTo time.Time) (string, error) {
	f.nextID++
	id := fmt.Sprintf("appr-%d", f.nextID)
	f.appraisals[id] = &Appraisal{
		ID: id, EmployeeID: employeeID, FormID: formID, Status: StatusDraft,
		PeriodFrom: periodFrom, PeriodTo: periodTo, CreatedAt: time.Now(),
	}
	return id, nil
}

func (f *fakeStore) GetAppraisal(_ context.Context, appraisalID string) (Appraisal, error) {
	appr, ok := f.appraisals[appraisalID]
	if !ok {
		return Appraisal{}, ErrNotFound
	}
	return *appr, nil
}

func (f *fakeStore) OpenAppraisalID(_ context.Context, employeeID string) (string, error) {
	for id, appr := range f.appraisals {
		if appr.EmployeeID != employeeID {
			continue
		}
		switch appr.Status {
		case StatusDraft, StatusSubmitted, StatusInReview:
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeStore) ListForEmployee(_ context.Context, employeeID string) ([]Appraisal, error) {
	var out []Appraisal
	for _, appr := range f.appraisals {
		if appr.EmployeeID == employeeID {
			out = append(out, *appr)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, status string, _, _ int) ([]Appraisal, error) {
	var out []Appraisal
	for _, appr := range f.appraisals {
		if status == "" || appr.Status == status {
			out = append(out, *appr)
		}
	}
	return out, nil
}

func (f *fakeStore) ListPendingForApprover(_ context.Context, approverID string) ([]PendingApproval, error) {
	var out []PendingApproval
	for id, appr := range f.appraisals {
		if appr.Status != StatusSubmitted && appr.Status != StatusInReview {
			continue
		}
		for _, lvl := range f.levels[id] {
			if lvl.Status != LevelStatusPending {
				continue
			}
			if lvl.ApproverID == approverID {
				out = append(out, PendingApproval{
					AppraisalID:  id,
					EmployeeID:   appr.EmployeeID,
					FormID:       appr.FormID,
					Status:       appr.Status,
					Level:        lvl.Level,
					ApproverRole: lvl.ApproverRole,
					CanRate:      lvl.CanRate,
				})
			}
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ListLevels(_ context.Context, appraisalID string) ([]ApprovalLevel, error) {
	return append([]ApprovalLevel(nil), f.levels[appraisalID]...), nil
}

func (f *fakeStore) CurrentLevel(_ context.Context, appraisalID string) (ApprovalLevel, bool, error) {
	for _, lvl := range f.levels[appraisalID] {
		if lvl.Status == LevelStatusPending {
			return lvl, true, nil
		}
	}
	return ApprovalLevel{}, false, nil
}

func (f *fakeStore) LevelApprover(_ context.Context, appraisalID string, level int) (string, error) {
	for _, lvl := range f.levels[appraisalID] {
		if lvl.Level == level {
			return lvl.ApproverID, nil
		}
	}
	return "", ErrNotFound
}

func (f *fakeStore) ReplaceChain(_ context.Context, appraisalID string, levels []ApprovalLevel) error {
	if f.replaceChainErr != nil {
		return f.replaceChainErr
	}
	f.levels[appraisalID] = append([]ApprovalLevel(nil), levels...)
	if appr, ok := f.appraisals[appraisalID]; ok {
		appr.CurrentApprovalLevel = 1
		appr.TotalApprovalLevels = len(levels)
	}
	return nil
}

func (f *fakeStore) MarkSubmitted(_ context.Context, appraisalID string) error {
	if f.markSubmittedErr != nil {
		return f.markSubmittedErr
	}
	appr := f.appraisals[appraisalID]
	if appr.Status != StatusDraft {
		return ErrPersistenceConflict
	}
	appr.Status = StatusSubmitted
	now := time.Now()
	appr.SubmittedAt = &now
	return nil
}

func (f *fakeStore) ApproveLevel(_ context.Context, appraisalID string, level int, approverID, comments string, final bool, score float64, grade string) error {
	if f.approveLevelErr != nil {
		return f.approveLevelErr
	}
	levels := f.levels[appraisalID]
	for i := range levels {
		if levels[i].Level != level {
			continue
		}
		if levels[i].Status != LevelStatusPending || levels[i].ApproverID != approverID {
			return ErrPersistenceConflict
		}
		levels[i].Status = LevelStatusApproved
		levels[i].Comments = comments
	}
	appr := f.appraisals[appraisalID]
	if final {
		appr.Status = StatusCompleted
		appr.TotalScore = score
		appr.Grade = grade
		appr.FinalApproverID = approverID
	} else {
		appr.Status = StatusInReview
		appr.CurrentApprovalLevel = level + 1
	}
	return nil
}

func (f *fakeStore) RejectLevel(_ context.Context, appraisalID string, level int, approverID, comments string) error {
	levels := f.levels[appraisalID]
	for i := range levels {
		if levels[i].Level != level {
			continue
		}
		if levels[i].Status != LevelStatusPending || levels[i].ApproverID != approverID {
			return ErrPersistenceConflict
		}
		levels[i].Status = LevelStatusRejected
		levels[i].Comments = comments
	}
	f.appraisals[appraisalID].Status = StatusDraft
	return nil
}

func (f *fakeStore) CancelAppraisal(_ context.Context, appraisalID string) error {
	appr := f.appraisals[appraisalID]
	if appr.Status == StatusCancelled || appr.Status == StatusCompleted {
		return ErrPersistenceConflict
	}
	appr.Status = StatusCancelled
	return nil
}

func (f *fakeStore) SetOverallComments(_ context.Context, appraisalID, comments string) error {
	f.appraisals[appraisalID].OverallComments = comments
	return nil
}

func (f *fakeStore) SaveEmployeeResponse(_ context.Context, appraisalID, questionID string, input ResponseInput) error {
	f.responses[appraisalID] = append(f.responses[appraisalID], Response{
		AppraisalID: appraisalID, QuestionID: questionID,
		EmployeeResponse: input.Response, EmployeeRating: input.Rating, EmployeeComments: input.Comments,
	})
	return nil
}

func (f *fakeStore) SaveManagerRating(_ context.Context, appraisalID, questionID string, input ResponseInput) error {
	f.responses[appraisalID] = append(f.responses[appraisalID], Response{
		AppraisalID: appraisalID, QuestionID: questionID,
		ManagerResponse: input.Response, ManagerRating: input.Rating, ManagerComments: input.Comments,
	})
	return nil
}

func (f *fakeStore) ManagerRatings(_ context.Context, appraisalID string) ([]RatingSample, error) {
	return f.ratings[appraisalID], nil
}

func (f *fakeStore) ListResponses(_ context.Context, appraisalID string) ([]Response, error) {
	return f.responses[appraisalID], nil
}

func (f *fakeStore) SaveSectionComment(_ context.Context, _, _, _ string) error {
	return nil
}

func orgDirectory() *fakeDirectory {
	return &fakeDirectory{
		superiors: map[string]string{"emp": "mgr", "mgr": "gm", "gm": "md"},
		types:     map[string]string{"emp": EmployeeTypeOfficeStaff},
		labels:    map[string]string{"gm": "general_manager"},
		top:       map[string]bool{"md": true},
	}
}

func createDraft(t *testing.T, svc *Service) string {
	t.Helper()
	id, err := svc.CreateDraft(context.Background(), "emp", "form-1",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	return id
}

func TestCreateDraftRejectsSecondOpenAppraisal(t *testing.T) {
	svc := NewService(newFakeStore(), orgDirectory())
	createDraft(t, svc)

	_, err := svc.CreateDraft(context.Background(), "emp", "form-1",
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSubmitBuildsChain(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)

	result, err := svc.Submit(context.Background(), id, "emp")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// office staff gets a two-level chain
	if len(result.Levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(result.Levels))
	}
	if result.Level1Approver != "mgr" {
		t.Fatalf("expected mgr as first approver, got %q", result.Level1Approver)
	}

	appr, _ := svc.Get(context.Background(), id)
	if appr.Status != StatusSubmitted {
		t.Fatalf("expected submitted, got %q", appr.Status)
	}
}

func TestSubmitOnlyByOwner(t *testing.T) {
	svc := NewService(newFakeStore(), orgDirectory())
	id := createDraft(t, svc)

	if _, err := svc.Submit(context.Background(), id, "intruder"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSubmitRequiresDraft(t *testing.T) {
	svc := NewService(newFakeStore(), orgDirectory())
	id := createDraft(t, svc)

	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), id, "emp"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on double submit, got %v", err)
	}
}

func TestSubmitSurfacesLostRace(t *testing.T) {
	store := newFakeStore()
	store.markSubmittedErr = ErrPersistenceConflict
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)

	if _, err := svc.Submit(context.Background(), id, "emp"); !errors.Is(err, ErrPersistenceConflict) {
		t.Fatalf("expected ErrPersistenceConflict, got %v", err)
	}
}

func TestSubmitWithoutSupervisorKeepsDraft(t *testing.T) {
	store := newFakeStore()
	orphaned := &fakeDirectory{
		superiors: map[string]string{},
		types:     map[string]string{"emp": EmployeeTypeOfficeStaff},
		labels:    map[string]string{},
		top:       map[string]bool{},
	}
	svc := NewService(store, orphaned)
	id := createDraft(t, svc)

	if _, err := svc.Submit(context.Background(), id, "emp"); !errors.Is(err, ErrNoSupervisor) {
		t.Fatalf("expected ErrNoSupervisor, got %v", err)
	}

	// the failed submit must not strand the appraisal: still a draft,
	// still editable, and submittable once the org data is fixed
	appr, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if appr.Status != StatusDraft {
		t.Fatalf("expected draft after failed submit, got %q", appr.Status)
	}
	if err := svc.SaveEmployeeResponse(context.Background(), id, "emp", "q1", ResponseInput{Response: "still here"}); err != nil {
		t.Fatalf("save response after failed submit: %v", err)
	}

	repaired := NewService(store, orgDirectory())
	if _, err := repaired.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit after supervisor assigned: %v", err)
	}
}

func TestSubmitChainPersistFailureKeepsDraft(t *testing.T) {
	store := newFakeStore()
	store.replaceChainErr = errors.New("connection reset")
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)

	if _, err := svc.Submit(context.Background(), id, "emp"); err == nil {
		t.Fatal("expected submit to fail")
	}

	appr, _ := svc.Get(context.Background(), id)
	if appr.Status != StatusDraft {
		t.Fatalf("expected draft after failed chain persist, got %q", appr.Status)
	}

	store.replaceChainErr = nil
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
}

func TestListPendingForApproverFollowsCurrentLevel(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending, err := svc.ListPendingForApprover(context.Background(), "mgr")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending for mgr, got %d", len(pending))
	}
	if pending[0].Level != 1 || !pending[0].CanRate || pending[0].EmployeeID != "emp" {
		t.Fatalf("unexpected pending entry: %+v", pending[0])
	}

	// only the current level's approver sees the appraisal
	if out, _ := svc.ListPendingForApprover(context.Background(), "gm"); len(out) != 0 {
		t.Fatalf("gm must not see level 2 before level 1 decides, got %d", len(out))
	}

	if _, err := svc.RecordDecision(context.Background(), id, "mgr", DecisionApprove, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if out, _ := svc.ListPendingForApprover(context.Background(), "mgr"); len(out) != 0 {
		t.Fatalf("mgr queue must drain after approval, got %d", len(out))
	}
	pending, _ = svc.ListPendingForApprover(context.Background(), "gm")
	if len(pending) != 1 || pending[0].Level != 2 || pending[0].CanRate {
		t.Fatalf("expected gm pending at level 2 without rating rights, got %+v", pending)
	}
}

func TestBuildChainIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)

	first, err := svc.BuildChain(context.Background(), id, "emp")
	if err != nil {
		t.Fatalf("build chain: %v", err)
	}

	second, err := svc.BuildChain(context.Background(), id, "emp")
	if !errors.Is(err, ErrChainAlreadyBuilt) {
		t.Fatalf("expected ErrChainAlreadyBuilt, got %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected existing chain back, got %d levels", len(second))
	}
}

func TestApproveAdvancesToNextLevel(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.RecordDecision(context.Background(), id, "mgr", DecisionApprove, "solid half")
	if err != nil {
		t.Fatalf("decision: %v", err)
	}
	if result.IsFinal {
		t.Fatal("level 1 of 2 must not be final")
	}
	if result.Status != StatusInReview {
		t.Fatalf("expected in_review, got %q", result.Status)
	}
	if result.NextApproverID != "gm" {
		t.Fatalf("expected gm next, got %q", result.NextApproverID)
	}
}

func TestFinalApproveCompletesWithScoreAndGrade(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	store.ratings[id] = []RatingSample{{Value: 4, Max: 5}, {Value: 9, Max: 10}}

	if _, err := svc.RecordDecision(context.Background(), id, "mgr", DecisionApprove, ""); err != nil {
		t.Fatalf("level 1: %v", err)
	}
	result, err := svc.RecordDecision(context.Background(), id, "gm", DecisionApprove, "agreed")
	if err != nil {
		t.Fatalf("level 2: %v", err)
	}

	if !result.IsFinal || result.Status != StatusCompleted {
		t.Fatalf("expected completed final decision, got %+v", result)
	}
	// 13/15 = 86.666... -> 86.7 -> A
	if result.TotalScore != 86.7 || result.Grade != "A" {
		t.Fatalf("unexpected score/grade: %v %q", result.TotalScore, result.Grade)
	}

	appr, _ := svc.Get(context.Background(), id)
	if appr.Status != StatusCompleted || appr.Grade != "A" {
		t.Fatalf("unexpected appraisal state: %+v", appr)
	}
}

func TestRejectRevertsToDraftAndAllowsResubmit(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	result, err := svc.RecordDecision(context.Background(), id, "mgr", DecisionReject, "needs detail")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if result.Status != StatusDraft {
		t.Fatalf("expected draft after reject, got %q", result.Status)
	}

	// resubmission rebuilds the chain with every level pending again
	resubmit, err := svc.Submit(context.Background(), id, "emp")
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	for _, lvl := range resubmit.Levels {
		if lvl.Status != LevelStatusPending {
			t.Fatalf("expected pending level after rebuild, got %+v", lvl)
		}
	}
}

func TestDecisionOnlyByCurrentApprover(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.RecordDecision(context.Background(), id, "gm", DecisionApprove, ""); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for out-of-turn approver, got %v", err)
	}
}

func TestDecisionSurfacesLostRace(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	store.approveLevelErr = ErrPersistenceConflict

	if _, err := svc.RecordDecision(context.Background(), id, "mgr", DecisionApprove, ""); !errors.Is(err, ErrPersistenceConflict) {
		t.Fatalf("expected ErrPersistenceConflict, got %v", err)
	}
}

func TestDecisionRejectsUnknownVerb(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.RecordDecision(context.Background(), id, "mgr", "defer", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSaveManagerRatingGuards(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)
	rating := 4

	// drafts cannot be rated
	err := svc.SaveManagerRating(context.Background(), id, "mgr", "q1", ResponseInput{Rating: &rating})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for draft, got %v", err)
	}

	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = svc.SaveManagerRating(context.Background(), id, "gm", "q1", ResponseInput{Rating: &rating})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-current approver, got %v", err)
	}

	if err := svc.SaveManagerRating(context.Background(), id, "mgr", "q1", ResponseInput{Rating: &rating}); err != nil {
		t.Fatalf("rating by level 1 approver: %v", err)
	}

	// advance past the rating level; level 2 cannot rate
	if _, err := svc.RecordDecision(context.Background(), id, "mgr", DecisionApprove, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	err = svc.SaveManagerRating(context.Background(), id, "gm", "q2", ResponseInput{Rating: &rating})
	if !errors.Is(err, ErrRatingNotAllowed) {
		t.Fatalf("expected ErrRatingNotAllowed, got %v", err)
	}
}

func TestSaveEmployeeResponseGuards(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)

	if err := svc.SaveEmployeeResponse(context.Background(), id, "intruder", "q1", ResponseInput{Response: "done"}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.SaveEmployeeResponse(context.Background(), id, "emp", "q1", ResponseInput{Response: "done"}); err != nil {
		t.Fatalf("save response: %v", err)
	}

	if _, err := svc.Submit(context.Background(), id, "emp"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.SaveEmployeeResponse(context.Background(), id, "emp", "q1", ResponseInput{Response: "late"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after submit, got %v", err)
	}
}

func TestCancelGuards(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, orgDirectory())
	id := createDraft(t, svc)

	appr, err := svc.Cancel(context.Background(), id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if appr.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %q", appr.Status)
	}

	if _, err := svc.Cancel(context.Background(), id); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for double cancel, got %v", err)
	}
}
