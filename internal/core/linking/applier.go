package linking

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/user"
)

const defaultConcurrency = 8

// Applier は紐付け計画をストアへ適用します。
type Applier struct {
	store       Store
	employees   EmployeeFinder
	users       user.Repository
	concurrency int
}

// NewApplier は Applier を生成します。concurrency が 0 以下の場合は既定値を使用します。
func NewApplier(store Store, employees EmployeeFinder, users user.Repository, concurrency int) *Applier {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Applier{store: store, employees: employees, users: users, concurrency: concurrency}
}

// ApplySetBased は順位結合による一括紐付けを単一の文で実行します。
// Requested は文が計画したペア数、Affected は実際に更新された行数です。
func (a *Applier) ApplySetBased(ctx context.Context) (*ApplyResult, error) {
	planned, linked, err := a.store.LinkRanked(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]PairOutcome, len(linked))
	for i, p := range linked {
		outcomes[i] = PairOutcome{Pair: p, Outcome: OutcomeLinked}
	}

	return &ApplyResult{
		Strategy:  StrategySetBased,
		Requested: planned,
		Affected:  len(linked),
		Linked:    linked,
		Outcomes:  outcomes,
	}, nil
}

// ApplyPlan は計画の各ペアを条件付き UPDATE で並行に適用し、すべての完了を待ちます。
// スナップショット取得後に状態が変わったペアは skipped、ストアエラーは failed として個別に報告します。
// 1 件も更新されずに失敗したペアがある場合はエラーも返します。
func (a *Applier) ApplyPlan(ctx context.Context, plan Plan) (*ApplyResult, error) {
	result := &ApplyResult{
		Strategy:           StrategyPerPair,
		Requested:          len(plan.Pairs),
		Outcomes:           make([]PairOutcome, len(plan.Pairs)),
		RemainingEmployees: plan.RemainingEmployees,
		RemainingUsers:     plan.RemainingUsers,
	}
	if plan.Empty() {
		return result, nil
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, pair := range plan.Pairs {
		g.Go(func() error {
			ok, err := a.store.SetEmployeeUser(ctx, pair.EmployeeID, pair.UserID)
			switch {
			case err != nil:
				result.Outcomes[i] = PairOutcome{Pair: pair, Outcome: OutcomeFailed, Err: err}
			case ok:
				result.Outcomes[i] = PairOutcome{Pair: pair, Outcome: OutcomeLinked}
			default:
				result.Outcomes[i] = PairOutcome{Pair: pair, Outcome: OutcomeSkipped}
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range result.Outcomes {
		switch o.Outcome {
		case OutcomeLinked:
			result.Affected++
			result.Linked = append(result.Linked, o.Pair)
		case OutcomeFailed:
			errs = append(errs, fmt.Errorf("employee %d -> user %d: %w", o.EmployeeID, o.UserID, o.Err))
		}
	}

	if result.Affected == 0 && len(errs) > 0 {
		return result, errors.Join(errs...)
	}
	return result, nil
}

// LinkOne は事前条件を確認した上で社員とユーザーを 1 件紐付けます。
// 確認後に他の処理が先に紐付けた場合も、部分的な更新は行わず ErrAlreadyLinked を返します。
func (a *Applier) LinkOne(ctx context.Context, employeeID, userID int64) (*LinkResult, error) {
	if employeeID <= 0 {
		return nil, ErrInvalidEmployeeID
	}
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	if _, err := user.FindLinkable(ctx, a.users, userID); err != nil {
		return nil, err
	}

	emp, err := a.employees.FindByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp.IsLinked() {
		return nil, employee.ErrAlreadyLinked
	}

	holder, err := a.employees.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, employee.ErrEmployeeNotFound) {
		return nil, err
	}
	if holder != nil {
		return nil, employee.ErrUserAlreadyLinked
	}

	ok, err := a.store.SetEmployeeUser(ctx, employeeID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, employee.ErrAlreadyLinked
	}

	return &LinkResult{EmployeeID: employeeID, UserID: userID}, nil
}

// Unlink は社員の紐付けを解除します。未紐付けの社員に対しては何もしません。
func (a *Applier) Unlink(ctx context.Context, employeeID int64) (*UnlinkResult, error) {
	if employeeID <= 0 {
		return nil, ErrInvalidEmployeeID
	}

	previous, err := a.store.ClearEmployeeUser(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return &UnlinkResult{EmployeeID: employeeID, PreviousUserID: previous}, nil
}
