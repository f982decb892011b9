package handler

import (
	"errors"
	"net/http"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/linking"
	"github.com/ogurasousui/employee-link-api/internal/core/user"
)

// toHTTPStatus はドメインエラーを HTTP ステータスコードに変換します。
// 紐付けの競合はクライアントエラーとして 400 を返し、実行中の自動紐付けとの衝突のみ 409 を返します。
func toHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrRequiredFieldMissing),
		errors.Is(err, employee.ErrEmptyPatch),
		errors.Is(err, employee.ErrInvalidStatut),
		errors.Is(err, user.ErrInvalidID),
		errors.Is(err, linking.ErrInvalidEmployeeID),
		errors.Is(err, linking.ErrInvalidUserID):
		return http.StatusBadRequest
	case errors.Is(err, employee.ErrAlreadyLinked), errors.Is(err, employee.ErrUserAlreadyLinked):
		return http.StatusBadRequest
	case errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrUserNotEligible):
		return http.StatusNotFound
	case errors.Is(err, linking.ErrRunInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
