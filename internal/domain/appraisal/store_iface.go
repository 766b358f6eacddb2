package appraisal

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateAppraisal(ctx context.Context, employeeID, formID string, periodFrom, periodTo time.Time) (string, error)
	GetAppraisal(ctx context.Context, appraisalID string) (Appraisal, error)
	OpenAppraisalID(ctx context.Context, employeeID string) (string, error)
	ListForEmployee(ctx context.Context, employeeID string) ([]Appraisal, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]Appraisal, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]PendingApproval, error)

	ListLevels(ctx context.Context, appraisalID string) ([]ApprovalLevel, error)
	CurrentLevel(ctx context.Context, appraisalID string) (ApprovalLevel, bool, error)
	LevelApprover(ctx context.Context, appraisalID string, level int) (string, error)
	ReplaceChain(ctx context.Context, appraisalID string, levels []ApprovalLevel) error

	MarkSubmitted(ctx context.Context, appraisalID string) error
	ApproveLevel(ctx context.Context, appraisalID string, level int, approverID, comments string, final bool, score float64, grade string) error
	RejectLevel(ctx context.Context, appraisalID string, level int, approverID, comments string) error
	CancelAppraisal(ctx context.Context, appraisalID string) error
	SetOverallComments(ctx context.Context, appraisalID, comments string) error

	SaveEmployeeResponse(ctx context.Context, appraisalID, questionID string, input ResponseInput) error
	SaveManagerRating(ctx context.Context, appraisalID, questionID string, input ResponseInput) error
	ManagerRatings(ctx context.Context, appraisalID string) ([]RatingSample, error)
	ListResponses(ctx context.Context, appraisalID string) ([]Response, error)
	SaveSectionComment(ctx context.Context, appraisalID, sectionID, comment string) error
}
