package postgres

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/linking"
	"github.com/ogurasousui/employee-link-api/internal/core/user"
	pgdb "github.com/ogurasousui/employee-link-api/internal/platform/db/postgres"
)

const availableUserCondition = `u.role = $1
           AND NOT EXISTS (SELECT 1 FROM employes held WHERE held.user_id = u.id)`

// LinkRepository は社員とユーザーの紐付けを PostgreSQL 上で行う linking.Store の実装です。
type LinkRepository struct {
	pool pgdb.Queryer
}

// NewLinkRepository は LinkRepository を生成します。
func NewLinkRepository(pool pgdb.Queryer) *LinkRepository {
	return &LinkRepository{pool: pool}
}

// FindUnlinkedEmployees は user_id が NULL の社員を id 昇順で取得します。
func (r *LinkRepository) FindUnlinkedEmployees(ctx context.Context) ([]linking.UnlinkedEmployee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, nom, prenom, departement, statut, date_embauche
          FROM employes
         WHERE user_id IS NULL
         ORDER BY id ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]linking.UnlinkedEmployee, 0)
	for rows.Next() {
		var (
			e            linking.UnlinkedEmployee
			dateEmbauche time.Time
		)
		if err := rows.Scan(&e.ID, &e.Nom, &e.Prenom, &e.Departement, &e.Statut, &dateEmbauche); err != nil {
			return nil, err
		}
		e.DateEmbauche = dateOnly(dateEmbauche)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindAvailableUsers は役割が employee で未使用のユーザーを id 昇順で取得します。
func (r *LinkRepository) FindAvailableUsers(ctx context.Context) ([]linking.AvailableUser, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT u.id, u.name, u.email
          FROM users u
         WHERE `+availableUserCondition+`
         ORDER BY u.id ASC
    `, string(user.RoleEmployee))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]linking.AvailableUser, 0)
	for rows.Next() {
		var u linking.AvailableUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountUnlinked は未紐付けの社員数と紐付け可能なユーザー数を取得します。
func (r *LinkRepository) CountUnlinked(ctx context.Context) (int, int, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var employees, users int64
	if err := exec.QueryRow(ctx, `
        SELECT (SELECT COUNT(*) FROM employes WHERE user_id IS NULL),
               (SELECT COUNT(*) FROM users u WHERE `+availableUserCondition+`)
    `, string(user.RoleEmployee)).Scan(&employees, &users); err != nil {
		return 0, 0, err
	}
	return int(employees), int(users), nil
}

// LinkRanked は未紐付けの社員と紐付け可能なユーザーを id 昇順の順位で結合し、単一の UPDATE で紐付けます。
// 計画したペア数と実際に更新されたペアを返します。文の実行中に他の更新で紐付けられた社員は
// user_id IS NULL の再評価で除外されるため、更新数が計画数を下回ることがあります。
// 一括処理のため、一意制約違反を含むストアエラーは変換せずそのまま返します。
func (r *LinkRepository) LinkRanked(ctx context.Context) (int, []linking.Pair, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        WITH emp AS (
            SELECT id, ROW_NUMBER() OVER (ORDER BY id ASC) AS rn
              FROM employes
             WHERE user_id IS NULL
        ),
        usr AS (
            SELECT u.id, ROW_NUMBER() OVER (ORDER BY u.id ASC) AS rn
              FROM users u
             WHERE `+availableUserCondition+`
        ),
        ranked AS (
            SELECT emp.id AS employee_id, usr.id AS user_id
              FROM emp
              JOIN usr ON usr.rn = emp.rn
        ),
        linked AS (
            UPDATE employes e
               SET user_id = ranked.user_id
              FROM ranked
             WHERE e.id = ranked.employee_id
               AND e.user_id IS NULL
            RETURNING e.id, e.user_id
        )
        SELECT planned.total, linked.id, linked.user_id
          FROM (SELECT COUNT(*) AS total FROM ranked) planned
          LEFT JOIN linked ON TRUE
    `, string(user.RoleEmployee))
	if err != nil {
		return 0, nil, fmt.Errorf("link ranked: %w", err)
	}
	defer rows.Close()

	var planned int64
	pairs := make([]linking.Pair, 0)
	for rows.Next() {
		var employeeID, userID sql.NullInt64
		if err := rows.Scan(&planned, &employeeID, &userID); err != nil {
			return 0, nil, err
		}
		if employeeID.Valid && userID.Valid {
			pairs = append(pairs, linking.Pair{EmployeeID: employeeID.Int64, UserID: userID.Int64})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("link ranked: %w", err)
	}

	slices.SortFunc(pairs, func(a, b linking.Pair) int {
		return cmp.Compare(a.EmployeeID, b.EmployeeID)
	})
	return int(planned), pairs, nil
}

// SetEmployeeUser は社員が未紐付けで、ユーザーが employee 役割かつ未使用の場合に限り紐付けます。
// 条件を満たさない場合や並行更新で一意制約に抵触した場合は false を返します。
func (r *LinkRepository) SetEmployeeUser(ctx context.Context, employeeID, userID int64) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE employes
           SET user_id = $1
         WHERE id = $2
           AND user_id IS NULL
           AND EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = $3)
           AND NOT EXISTS (SELECT 1 FROM employes held WHERE held.user_id = $1)
    `, userID, employeeID, string(user.RoleEmployee))
	if err != nil {
		if isLinkConflict(err) {
			return false, nil
		}
		return false, translateLinkPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClearEmployeeUser は社員の user_id を NULL にし、解除前の値を返します。
func (r *LinkRepository) ClearEmployeeUser(ctx context.Context, employeeID int64) (*int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var previous sql.NullInt64
	err := exec.QueryRow(ctx, `
        UPDATE employes e
           SET user_id = NULL
          FROM (SELECT id, user_id FROM employes WHERE id = $1 FOR UPDATE) old
         WHERE e.id = old.id
        RETURNING old.user_id
    `, employeeID).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, translateLinkPgError(err)
	}
	if !previous.Valid {
		return nil, nil
	}
	v := previous.Int64
	return &v, nil
}

func isLinkConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		return pgErr.ConstraintName == employeeUserIDUniqueConstraint
	case foreignKeyViolationCode:
		return pgErr.ConstraintName == employeeUserIDForeignKey
	}
	return false
}

func translateLinkPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == employeeUserIDUniqueConstraint {
		return employee.ErrUserAlreadyLinked
	}
	return err
}
