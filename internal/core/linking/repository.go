package linking

import (
	"context"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
)

// Store は紐付け処理が利用する永続化の抽象です。すべての操作はパラメータ化されたクエリで実装されます。
type Store interface {
	// FindUnlinkedEmployees は user_id が NULL の社員を id 昇順で返します。
	FindUnlinkedEmployees(ctx context.Context) ([]UnlinkedEmployee, error)
	// FindAvailableUsers は紐付け可能なユーザーを id 昇順で返します。
	FindAvailableUsers(ctx context.Context) ([]AvailableUser, error)
	// CountUnlinked は未紐付けの社員数と紐付け可能なユーザー数を返します。
	CountUnlinked(ctx context.Context) (employees int, users int, err error)
	// LinkRanked は順位結合による一括紐付けを単一の文で実行し、計画したペア数と実際に更新されたペアを返します。
	LinkRanked(ctx context.Context) (planned int, linked []Pair, err error)
	// SetEmployeeUser は社員が未紐付けで、かつユーザーが未使用の場合に限り紐付けます。
	// 条件を満たさず更新されなかった場合は false を返します。
	SetEmployeeUser(ctx context.Context, employeeID, userID int64) (bool, error)
	// ClearEmployeeUser は社員の user_id を NULL にし、解除前の値を返します。
	// 社員が存在しない場合は employee.ErrEmployeeNotFound を返します。
	ClearEmployeeUser(ctx context.Context, employeeID int64) (*int64, error)
}

// EmployeeFinder は手動紐付けの事前条件確認に使う社員参照です。
type EmployeeFinder interface {
	FindByID(ctx context.Context, id int64) (*employee.Employee, error)
	FindByUserID(ctx context.Context, userID int64) (*employee.Employee, error)
}
