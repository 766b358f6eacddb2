package appraisal

import (
	"context"
	"fmt"
)

// Directory is the organizational lookup the chain builder walks. The
// supervisor relation is a weak reference: Supervisor returns the empty
// string at the top of the hierarchy, never an error for a missing link.
type Directory interface {
	Supervisor(ctx context.Context, employeeID string) (string, error)
	EmployeeType(ctx context.Context, employeeID string) (string, error)
	RoleLabel(ctx context.Context, employeeID string) (string, error)
	IsTopManagement(ctx context.Context, employeeID string) (bool, error)
}

// ComputeChain walks the supervisor hierarchy upward from the subject and
// returns the ordered approval levels. Level 1 is always the direct superior
// and is the only rating level. The walk stops at maxDepth, at the top of the
// hierarchy, after a top-management approver, or when an approver repeats
// (cyclic or flat org data degrades to a shorter chain rather than failing).
// The last level produced is marked as the final approver.
func ComputeChain(ctx context.Context, dir Directory, employeeID string, maxDepth int) ([]ApprovalLevel, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > MaxApprovalLevels {
		maxDepth = MaxApprovalLevels
	}

	supervisor, err := dir.Supervisor(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("resolve direct superior: %w", err)
	}
	if supervisor == "" || supervisor == employeeID {
		return nil, ErrNoSupervisor
	}

	seen := map[string]bool{employeeID: true}
	levels := make([]ApprovalLevel, 0, maxDepth)
	approver := supervisor

	for level := 1; level <= maxDepth; level++ {
		if seen[approver] {
			break
		}
		seen[approver] = true

		role := RoleDirectSupervisor
		if level > 1 {
			label, err := dir.RoleLabel(ctx, approver)
			if err != nil {
				return nil, fmt.Errorf("resolve role label for %s: %w", approver, err)
			}
			role = label
			if role == "" {
				role = fmt.Sprintf("level_%d_approver", level)
			}
		}

		levels = append(levels, ApprovalLevel{
			Level:        level,
			ApproverID:   approver,
			ApproverRole: role,
			CanRate:      level == 1,
			Status:       LevelStatusPending,
		})

		top, err := dir.IsTopManagement(ctx, approver)
		if err != nil {
			return nil, fmt.Errorf("resolve top management flag for %s: %w", approver, err)
		}
		if top {
			break
		}

		next, err := dir.Supervisor(ctx, approver)
		if err != nil {
			return nil, fmt.Errorf("resolve superior of %s: %w", approver, err)
		}
		if next == "" {
			break
		}
		approver = next
	}

	if len(levels) == 0 {
		return nil, ErrNoSupervisor
	}
	levels[len(levels)-1].IsFinalApprover = true
	return levels, nil
}

func hasRejectedLevel(levels []ApprovalLevel) bool {
	for _, lvl := range levels {
		if lvl.Status == LevelStatusRejected {
			return true
		}
	}
	return false
}
