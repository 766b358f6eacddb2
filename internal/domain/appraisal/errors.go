package appraisal

import "errors"

var (
	ErrNotFound            = errors.New("appraisal not found")
	ErrNoSupervisor        = errors.New("employee has no direct superior")
	ErrChainAlreadyBuilt   = errors.New("approval chain already built")
	ErrNotAuthorized       = errors.New("not authorized for this approval level")
	ErrInvalidState        = errors.New("appraisal is not in a valid state for this action")
	ErrRatingNotAllowed    = errors.New("ratings are not allowed at this approval level")
	ErrPersistenceConflict = errors.New("approval level was already decided")
)
