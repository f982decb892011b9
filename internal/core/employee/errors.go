package employee

import "errors"

var (
	ErrInvalidID            = errors.New("employee: invalid id")
	ErrRequiredFieldMissing = errors.New("employee: nom, prenom and departement are required")
	ErrEmptyPatch           = errors.New("employee: no field to update")
	ErrInvalidStatut        = errors.New("employee: invalid statut")
	ErrEmployeeNotFound     = errors.New("employee: not found")
	// ErrAlreadyLinked は社員がすでにユーザーに紐付いている場合に返却されます。
	ErrAlreadyLinked = errors.New("employee: already linked to a user")
	// ErrUserAlreadyLinked はユーザーが別の社員に紐付いている場合に返却されます。
	ErrUserAlreadyLinked = errors.New("employee: user already linked to another employee")
)
