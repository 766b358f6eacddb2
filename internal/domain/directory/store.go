package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
    id, name, COALESCE(emp_number, ''), email,
    COALESCE(employee_type, ''), COALESCE(department, ''), COALESCE(company, ''),
    COALESCE(position, ''), COALESCE(direct_superior::text, ''),
    is_top_management, is_confirmed, status, joined_at, created_at`

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	row := s.DB.QueryRow(ctx, "SELECT"+employeeColumns+" FROM employees WHERE id = $1", employeeID)
	emp, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) ListEmployees(ctx context.Context, employeeType string) ([]Employee, error) {
	query := "SELECT" + employeeColumns + " FROM employees WHERE status = 'active'"
	args := []any{}
	if employeeType != "" {
		query += " AND employee_type = $1"
		args = append(args, employeeType)
	}
	query += " ORDER BY name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmployees(rows)
}

func (s *Store) DirectReports(ctx context.Context, managerID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, "SELECT"+employeeColumns+`
    FROM employees
    WHERE direct_superior = $1 AND status = 'active'
    ORDER BY name
  `, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEmployees(rows)
}

func (s *Store) IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees
    WHERE id = $1 AND direct_superior = $2
  `, employeeID, managerID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	err := row.Scan(&emp.ID, &emp.Name, &emp.EmpNumber, &emp.Email,
		&emp.EmployeeType, &emp.Department, &emp.Company,
		&emp.Position, &emp.DirectSuperior,
		&emp.IsTopManagement, &emp.IsConfirmed, &emp.Status, &emp.JoinedAt, &emp.CreatedAt)
	return emp, err
}

func collectEmployees(rows pgx.Rows) ([]Employee, error) {
	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}
