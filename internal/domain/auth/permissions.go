package auth

const (
	PermDirectoryRead     = "directory.read"
	PermFormsRead         = "forms.read"
	PermFormsWrite        = "forms.write"
	PermAppraisalsRead    = "appraisals.read"
	PermAppraisalsWrite   = "appraisals.write"
	PermAppraisalsApprove = "appraisals.approve"
	PermAppraisalsManage  = "appraisals.manage"
	PermAuditRead         = "audit.read"
	PermSettingsWrite     = "settings.write"
	PermSystemAdmin       = "admin.system"
)

var DefaultPermissions = []string{
	PermDirectoryRead,
	PermFormsRead,
	PermFormsWrite,
	PermAppraisalsRead,
	PermAppraisalsWrite,
	PermAppraisalsApprove,
	PermAppraisalsManage,
	PermAuditRead,
	PermSettingsWrite,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermDirectoryRead,
		PermFormsRead,
		PermAppraisalsRead,
		PermAppraisalsWrite,
	},
	RoleManager: {
		PermDirectoryRead,
		PermFormsRead,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermAppraisalsApprove,
	},
	RoleHR: {
		PermDirectoryRead,
		PermFormsRead,
		PermFormsWrite,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermAppraisalsApprove,
		PermAppraisalsManage,
		PermAuditRead,
		PermSettingsWrite,
	},
	RoleAdmin: {
		PermDirectoryRead,
		PermFormsRead,
		PermFormsWrite,
		PermAppraisalsRead,
		PermAppraisalsWrite,
		PermAppraisalsApprove,
		PermAppraisalsManage,
		PermAuditRead,
		PermSettingsWrite,
		PermSystemAdmin,
	},
}
