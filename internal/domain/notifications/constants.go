package notifications

const (
	TypeAppraisalSubmitted = "appraisal_submitted"
	TypeApprovalPending    = "approval_pending"
	TypeAppraisalCompleted = "appraisal_completed"
	TypeAppraisalRejected  = "appraisal_rejected"
	TypeAppraisalCancelled = "appraisal_cancelled"
)
