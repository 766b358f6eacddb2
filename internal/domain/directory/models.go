package directory

import "time"

type Employee struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	EmpNumber       string     `json:"empNumber"`
	Email           string     `json:"email"`
	EmployeeType    string     `json:"employeeType"`
	Department      string     `json:"department"`
	Company         string     `json:"company"`
	Position        string     `json:"position"`
	DirectSuperior  string     `json:"directSuperiorId,omitempty"`
	IsTopManagement bool       `json:"isTopManagement"`
	IsConfirmed     bool       `json:"isConfirmed"`
	Status          string     `json:"status"`
	JoinedAt        *time.Time `json:"joinedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
