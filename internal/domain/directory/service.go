package directory

import "context"

// StoreAPI is the persistence surface the directory service depends on.
type StoreAPI interface {
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	ListEmployees(ctx context.Context, employeeType string) ([]Employee, error)
	DirectReports(ctx context.Context, managerID string) ([]Employee, error)
	IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error)
}

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) List(ctx context.Context, employeeType string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, employeeType)
}

func (s *Service) DirectReports(ctx context.Context, managerID string) ([]Employee, error) {
	return s.store.DirectReports(ctx, managerID)
}

func (s *Service) IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error) {
	return s.store.IsManagerOf(ctx, managerID, employeeID)
}

// The methods below satisfy the appraisal chain's directory dependency.

func (s *Service) Supervisor(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return emp.DirectSuperior, nil
}

func (s *Service) EmployeeType(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return emp.EmployeeType, nil
}

func (s *Service) RoleLabel(ctx context.Context, employeeID string) (string, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return "", err
	}
	return emp.Position, nil
}

func (s *Service) IsTopManagement(ctx context.Context, employeeID string) (bool, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return emp.IsTopManagement, nil
}
