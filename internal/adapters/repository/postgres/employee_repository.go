package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/user"
	pgdb "github.com/ogurasousui/employee-link-api/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	notNullViolationCode    = "23502"

	employeeUserIDUniqueConstraint = "employes_user_id_key"
	employeeUserIDForeignKey       = "employes_user_id_fkey"
)

const employeeColumns = `
        SELECT e.id,
               e.nom,
               e.prenom,
               e.telephone,
               e.adresse,
               e.departement,
               e.statut,
               e.date_embauche,
               e.user_id,
               u.name,
               u.email,
               u.role`

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は社員を新規作成し、ユーザー情報を結合した結果を返します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH e AS (
            INSERT INTO employes (nom, prenom, telephone, adresse, departement, statut, date_embauche, user_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING id, nom, prenom, telephone, adresse, departement, statut, date_embauche, user_id
        )`+employeeColumns+`
          FROM e
          LEFT JOIN users u ON u.id = e.user_id
    `,
		e.Nom,
		e.Prenom,
		e.Telephone,
		e.Adresse,
		e.Departement,
		e.Statut,
		dateOnly(e.DateEmbauche),
		e.UserID,
	)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は date_embauche を除く属性を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH e AS (
            UPDATE employes
               SET nom = $1,
                   prenom = $2,
                   telephone = $3,
                   adresse = $4,
                   departement = $5,
                   statut = $6,
                   user_id = $7
             WHERE id = $8
            RETURNING id, nom, prenom, telephone, adresse, departement, statut, date_embauche, user_id
        )`+employeeColumns+`
          FROM e
          LEFT JOIN users u ON u.id = e.user_id
    `,
		e.Nom,
		e.Prenom,
		e.Telephone,
		e.Adresse,
		e.Departement,
		e.Statut,
		e.UserID,
		e.ID,
	)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employes WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, employeeColumns+`
          FROM employes e
          LEFT JOIN users u ON u.id = e.user_id
         WHERE e.id = $1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// FindByUserID はユーザー ID に紐付いた社員を取得します。
func (r *EmployeeRepository) FindByUserID(ctx context.Context, userID int64) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, employeeColumns+`
          FROM employes e
          LEFT JOIN users u ON u.id = e.user_id
         WHERE e.user_id = $1
         LIMIT 1
    `, userID)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は社員の一覧を id 昇順で取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, error) {
	args := make([]any, 0, 2)
	conditions := make([]string, 0, 3)

	if filter.Departement != nil {
		args = append(args, *filter.Departement)
		conditions = append(conditions, "e.departement = $"+strconv.Itoa(len(args)))
	}
	if filter.Statut != nil {
		args = append(args, *filter.Statut)
		conditions = append(conditions, "e.statut = $"+strconv.Itoa(len(args)))
	}
	if filter.Linked != nil {
		if *filter.Linked {
			conditions = append(conditions, "e.user_id IS NOT NULL")
		} else {
			conditions = append(conditions, "e.user_id IS NULL")
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "\n         WHERE " + strings.Join(conditions, " AND ")
	}

	query := employeeColumns + `
          FROM employes e
          LEFT JOIN users u ON u.id = e.user_id` + whereClause + `
         ORDER BY e.id ASC
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return employees, nil
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		id           int64
		nom          string
		prenom       string
		telephone    sql.NullString
		adresse      sql.NullString
		departement  string
		statut       string
		dateEmbauche time.Time
		userID       sql.NullInt64
		userName     sql.NullString
		userEmail    sql.NullString
		userRole     sql.NullString
	)

	if err := row.Scan(
		&id,
		&nom,
		&prenom,
		&telephone,
		&adresse,
		&departement,
		&statut,
		&dateEmbauche,
		&userID,
		&userName,
		&userEmail,
		&userRole,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	emp := &employee.Employee{
		ID:           id,
		Nom:          nom,
		Prenom:       prenom,
		Telephone:    nullableString(telephone),
		Adresse:      nullableString(adresse),
		Departement:  departement,
		Statut:       statut,
		DateEmbauche: dateOnly(dateEmbauche),
	}

	if userID.Valid {
		uid := userID.Int64
		emp.UserID = &uid
		if userName.Valid {
			emp.User = &employee.UserSnapshot{
				Name:  userName.String,
				Email: userEmail.String,
				Role:  userRole.String,
			}
		}
	}

	return emp, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			if pgErr.ConstraintName == employeeUserIDUniqueConstraint {
				return employee.ErrUserAlreadyLinked
			}
		case foreignKeyViolationCode:
			if pgErr.ConstraintName == employeeUserIDForeignKey {
				return user.ErrUserNotFound
			}
		case notNullViolationCode:
			return employee.ErrRequiredFieldMissing
		}
	}

	return err
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
