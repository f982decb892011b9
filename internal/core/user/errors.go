package user

import "errors"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserNotEligible はユーザーの役割が employee ではない場合に返却されます。
	ErrUserNotEligible = errors.New("user: not found or role is not employee")
	// ErrInvalidID はIDが不正な場合に返却されます。
	ErrInvalidID = errors.New("user: invalid id")
)
