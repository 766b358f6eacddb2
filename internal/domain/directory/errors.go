package directory

import "errors"

var ErrNotFound = errors.New("employee not found")
