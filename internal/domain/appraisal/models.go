package appraisal

import "time"

type Appraisal struct {
	ID                   string     `json:"id"`
	EmployeeID           string     `json:"employeeId"`
	FormID               string     `json:"formId"`
	Status               string     `json:"status"`
	CurrentApprovalLevel int        `json:"currentApprovalLevel"`
	TotalApprovalLevels  int        `json:"totalApprovalLevels"`
	PeriodFrom           time.Time  `json:"periodFrom"`
	PeriodTo             time.Time  `json:"periodTo"`
	TotalScore           float64    `json:"totalScore"`
	Grade                string     `json:"grade"`
	OverallComments      string     `json:"overallComments"`
	FinalApproverID      string     `json:"finalApproverId,omitempty"`
	SubmittedAt          *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt           *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

type ApprovalLevel struct {
	AppraisalID     string     `json:"appraisalId"`
	Level           int        `json:"level"`
	ApproverID      string     `json:"approverId"`
	ApproverRole    string     `json:"approverRole"`
	CanRate         bool       `json:"canRate"`
	IsFinalApprover bool       `json:"isFinalApprover"`
	Status          string     `json:"status"`
	Comments        string     `json:"comments,omitempty"`
	ActionAt        *time.Time `json:"actionAt,omitempty"`
}

// PendingApproval is the approver-facing work-queue row: the appraisal joined
// with the level the approver is expected to act on.
type PendingApproval struct {
	AppraisalID  string    `json:"appraisalId"`
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	FormID       string    `json:"formId"`
	Status       string    `json:"status"`
	Level        int       `json:"level"`
	ApproverRole string    `json:"approverRole"`
	CanRate      bool      `json:"canRate"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

type Response struct {
	AppraisalID      string `json:"appraisalId"`
	QuestionID       string `json:"questionId"`
	EmployeeResponse string `json:"employeeResponse,omitempty"`
	EmployeeRating   *int   `json:"employeeRating,omitempty"`
	EmployeeComments string `json:"employeeComments,omitempty"`
	ManagerResponse  string `json:"managerResponse,omitempty"`
	ManagerRating    *int   `json:"managerRating,omitempty"`
	ManagerComments  string `json:"managerComments,omitempty"`
}

type ResponseInput struct {
	Response string
	Rating   *int
	Comments string
}
