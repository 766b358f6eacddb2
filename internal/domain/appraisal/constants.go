package appraisal

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusInReview  = "in_review"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	LevelStatusPending  = "pending"
	LevelStatusApproved = "approved"
	LevelStatusRejected = "rejected"

	DecisionApprove = "approve"
	DecisionReject  = "reject"

	RoleDirectSupervisor = "direct_supervisor"

	EmployeeTypeOfficeStaff      = "office_staff"
	EmployeeTypeProductionWorker = "production_worker"
	EmployeeTypeSupervisor       = "supervisor"
	EmployeeTypeManager          = "manager"
	EmployeeTypeExecutive        = "executive"

	// MaxApprovalLevels caps every chain regardless of policy.
	MaxApprovalLevels = 6

	defaultChainDepth = 2
)

var chainDepthByEmployeeType = map[string]int{
	EmployeeTypeOfficeStaff:      2,
	EmployeeTypeProductionWorker: 5,
	EmployeeTypeSupervisor:       3,
	EmployeeTypeManager:          3,
	EmployeeTypeExecutive:        2,
}

// ChainDepth returns the maximum approval-chain length for an employee type.
func ChainDepth(employeeType string) int {
	depth, ok := chainDepthByEmployeeType[employeeType]
	if !ok {
		depth = defaultChainDepth
	}
	if depth > MaxApprovalLevels {
		depth = MaxApprovalLevels
	}
	return depth
}
