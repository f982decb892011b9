package linking

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunLockKey は自動紐付けの排他制御に使用するキーです。
const RunLockKey = "employee-link:auto-link"

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
	WithinSnapshot(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinSnapshot(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// RunGuard は自動紐付けの同時実行を防ぐ排他制御です。
// 取得できなかった場合は false を返し、取得できた場合は解放関数を返します。
type RunGuard interface {
	TryAcquire(ctx context.Context, key string) (func(context.Context) error, bool, error)
}

type noopRunGuard struct{}

func (noopRunGuard) TryAcquire(context.Context, string) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// Recorder は自動紐付けの実行件数を記録します。
type Recorder interface {
	ObserveAutoLink(strategy string, requested, affected int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAutoLink(string, int, int) {}

// Service は社員とユーザーの紐付けに関するユースケースをまとめます。
type Service struct {
	applier  *Applier
	store    Store
	tx       TransactionManager
	guard    RunGuard
	recorder Recorder
	logger   *zap.Logger

	// runTimeout は自動紐付け 1 回の上限時間です。0 の場合は制限しません。
	runTimeout time.Duration
}

// UseCase は紐付けユースケースの公開インターフェースです。
type UseCase interface {
	Overview(ctx context.Context) (*Overview, error)
	PreviewPlan(ctx context.Context) (*Plan, error)
	AutoLink(ctx context.Context) (*ApplyResult, error)
	AutoLinkPerPair(ctx context.Context) (*ApplyResult, error)
	ManualLink(ctx context.Context, employeeID, userID int64) (*LinkResult, error)
	Unlink(ctx context.Context, employeeID int64) (*UnlinkResult, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithTransactionManager はトランザクション制御を設定します。
func WithTransactionManager(tx TransactionManager) Option {
	return func(s *Service) {
		if tx != nil {
			s.tx = tx
		}
	}
}

// WithRunGuard は自動紐付けの排他制御を設定します。
func WithRunGuard(guard RunGuard) Option {
	return func(s *Service) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithRecorder は実行件数の記録先を設定します。
func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunTimeout は自動紐付け 1 回の上限時間を設定します。
// 排他ロックの TTL と同じ値を渡すと、ロックが失効した後も処理が続くことはありません。
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// NewService は Service を生成します。
func NewService(applier *Applier, store Store, opts ...Option) *Service {
	s := &Service{
		applier:  applier,
		store:    store,
		tx:       noopTransactionManager{},
		guard:    noopRunGuard{},
		recorder: noopRecorder{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overview は未紐付けの社員と紐付け可能なユーザーを同一スナップショットから取得します。
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var overview Overview
	if err := s.tx.WithinSnapshot(ctx, func(txCtx context.Context) error {
		employees, err := s.store.FindUnlinkedEmployees(txCtx)
		if err != nil {
			return err
		}
		users, err := s.store.FindAvailableUsers(txCtx)
		if err != nil {
			return err
		}
		overview.UnlinkedEmployees = employees
		overview.AvailableUsers = users
		return nil
	}); err != nil {
		return nil, err
	}
	return &overview, nil
}

// PreviewPlan は現在の状態から紐付け計画を作成します。適用は行いません。
func (s *Service) PreviewPlan(ctx context.Context) (*Plan, error) {
	overview, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}
	plan := Match(overview.UnlinkedEmployees, overview.AvailableUsers)
	return &plan, nil
}

// AutoLink は順位結合の単一 UPDATE で自動紐付けを行います。
func (s *Service) AutoLink(ctx context.Context) (*ApplyResult, error) {
	return s.guarded(ctx, StrategySetBased, func(ctx context.Context) (*ApplyResult, error) {
		var result *ApplyResult
		if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
			applied, err := s.applier.ApplySetBased(txCtx)
			if err != nil {
				return err
			}
			employees, users, err := s.store.CountUnlinked(txCtx)
			if err != nil {
				return err
			}
			applied.RemainingEmployees = employees
			applied.RemainingUsers = users
			result = applied
			return nil
		}); err != nil {
			return nil, err
		}
		return result, nil
	})
}

// AutoLinkPerPair はスナップショットから計画を作成し、ペアごとの条件付き UPDATE で適用します。
// 読み取りと書き込みの間に他の更新が入った場合、そのペアは skipped として報告されます。
func (s *Service) AutoLinkPerPair(ctx context.Context) (*ApplyResult, error) {
	return s.guarded(ctx, StrategyPerPair, func(ctx context.Context) (*ApplyResult, error) {
		plan, err := s.PreviewPlan(ctx)
		if err != nil {
			return nil, err
		}
		return s.applier.ApplyPlan(ctx, *plan)
	})
}

// ManualLink は指定された社員とユーザーを紐付けます。
func (s *Service) ManualLink(ctx context.Context, employeeID, userID int64) (*LinkResult, error) {
	var result *LinkResult
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		linked, err := s.applier.LinkOne(txCtx, employeeID, userID)
		if err != nil {
			return err
		}
		result = linked
		return nil
	}); err != nil {
		return nil, err
	}

	s.logger.Info("employee linked",
		zap.Int64("employee_id", result.EmployeeID),
		zap.Int64("user_id", result.UserID),
	)
	return result, nil
}

// Unlink は社員の紐付けを解除します。
func (s *Service) Unlink(ctx context.Context, employeeID int64) (*UnlinkResult, error) {
	var result *UnlinkResult
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		unlinked, err := s.applier.Unlink(txCtx, employeeID)
		if err != nil {
			return err
		}
		result = unlinked
		return nil
	}); err != nil {
		return nil, err
	}

	if result.Changed() {
		s.logger.Info("employee unlinked",
			zap.Int64("employee_id", result.EmployeeID),
			zap.Int64("previous_user_id", *result.PreviousUserID),
		)
	}
	return result, nil
}

func (s *Service) guarded(ctx context.Context, strategy Strategy, run func(context.Context) (*ApplyResult, error)) (*ApplyResult, error) {
	release, ok, err := s.guard.TryAcquire(ctx, RunLockKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release auto-link run lock", zap.Error(err))
		}
	}()

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	result, err := run(runCtx)
	if result != nil {
		s.recorder.ObserveAutoLink(string(strategy), result.Requested, result.Affected)
		s.logger.Info("auto-link completed",
			zap.String("strategy", string(strategy)),
			zap.Int("requested", result.Requested),
			zap.Int("affected", result.Affected),
			zap.Int("skipped", result.Count(OutcomeSkipped)),
			zap.Int("failed", result.Count(OutcomeFailed)),
			zap.Int("remaining_employees", result.RemainingEmployees),
			zap.Int("remaining_users", result.RemainingUsers),
		)
	}
	if err != nil {
		s.logger.Error("auto-link failed", zap.String("strategy", string(strategy)), zap.Error(err))
		return result, err
	}
	return result, nil
}
