package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/employee-link-api/internal/core/user"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Service は社員に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	users user.Repository
	clock Clock
	tx    TransactionManager
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	GetEmployeeByUserID(ctx context.Context, in GetEmployeeByUserIDInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) ([]*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, users user.Repository, clock Clock, tx TransactionManager) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Service{repo: repo, users: users, clock: clock, tx: tx}
}

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	Nom         string
	Prenom      string
	Telephone   *string
	Adresse     *string
	Departement string
	Statut      *string
	UserID      *int64
}

// UpdateEmployeeInput は社員更新時の入力です。
type UpdateEmployeeInput struct {
	ID    int64
	Patch Patch
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID int64
}

// GetEmployeeByUserIDInput はユーザー ID による社員取得時の入力です。
type GetEmployeeByUserIDInput struct {
	UserID int64
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID int64
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	Departement *string
	Statut      *string
	Linked      *bool
}

// CreateEmployee は新しい社員を作成します。date_embauche は作成日で固定されます。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	nom, err := requireText(in.Nom)
	if err != nil {
		return nil, err
	}
	prenom, err := requireText(in.Prenom)
	if err != nil {
		return nil, err
	}
	departement, err := requireText(in.Departement)
	if err != nil {
		return nil, err
	}

	// 空の statut は未指定と同じく既定値になります。
	statut := StatutActif
	if in.Statut != nil && strings.TrimSpace(*in.Statut) != "" {
		statut = strings.TrimSpace(*in.Statut)
	}

	if in.UserID != nil && *in.UserID <= 0 {
		return nil, fmt.Errorf("user_id: %w", ErrInvalidID)
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if in.UserID != nil {
			if err := s.ensureUserLinkable(txCtx, *in.UserID, 0); err != nil {
				return err
			}
		}

		emp := &Employee{
			Nom:          nom,
			Prenom:       prenom,
			Telephone:    normalizeOptional(in.Telephone),
			Adresse:      normalizeOptional(in.Adresse),
			Departement:  departement,
			Statut:       statut,
			DateEmbauche: truncateToDate(s.clock.Now()),
			UserID:       cloneID(in.UserID),
		}

		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateEmployee は指定された属性のみを更新し、更新後の社員を返します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if in.Patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	patch, err := in.Patch.normalize()
	if err != nil {
		return nil, err
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		patch.applyTo(existing)

		if next, ok := patch.UserID.Get(); ok {
			if next != nil && !sameID(existing.UserID, next) {
				if err := s.ensureUserLinkable(txCtx, *next, existing.ID); err != nil {
					return err
				}
			}
			existing.UserID = cloneID(next)
		}

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を削除します。紐付いたユーザーには影響しません。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if in.ID <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, in.ID)
	})
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// GetEmployeeByUserID はユーザー ID に紐付いた社員を取得します。
func (s *Service) GetEmployeeByUserID(ctx context.Context, in GetEmployeeByUserIDInput) (*Employee, error) {
	if in.UserID <= 0 {
		return nil, fmt.Errorf("user_id: %w", ErrInvalidID)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByUserID(txCtx, in.UserID)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を id 昇順で取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) ([]*Employee, error) {
	filter := ListEmployeesFilter{Linked: in.Linked}

	if in.Departement != nil {
		departement, err := requireText(*in.Departement)
		if err != nil {
			return nil, err
		}
		filter.Departement = &departement
	}

	if in.Statut != nil {
		statut, err := normalizeStatut(*in.Statut)
		if err != nil {
			return nil, err
		}
		filter.Statut = &statut
	}

	var employees []*Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		employees = result
		return nil
	}); err != nil {
		return nil, err
	}

	return employees, nil
}

// ensureUserLinkable はユーザーが紐付け可能で、かつ selfID 以外の社員に紐付いていないことを確認します。
func (s *Service) ensureUserLinkable(ctx context.Context, userID, selfID int64) error {
	if _, err := user.FindLinkable(ctx, s.users, userID); err != nil {
		return err
	}

	holder, err := s.repo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if holder != nil && holder.ID != selfID {
		return ErrUserAlreadyLinked
	}
	return nil
}

func requireText(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrRequiredFieldMissing
	}
	return trimmed, nil
}

func normalizeStatut(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidStatut
	}
	return trimmed, nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
