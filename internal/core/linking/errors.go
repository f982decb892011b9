package linking

import "errors"

var (
	ErrInvalidEmployeeID = errors.New("linking: employeeId is required")
	ErrInvalidUserID     = errors.New("linking: userId is required")
	// ErrRunInProgress は他の自動紐付けが実行中の場合に返却されます。
	ErrRunInProgress = errors.New("linking: auto-link run already in progress")
)
