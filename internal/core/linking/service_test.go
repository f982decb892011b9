package linking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/user"
)

type busyGuard struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (g *busyGuard) TryAcquire(context.Context, string) (func(context.Context) error, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return nil, false, nil
	}
	g.held = true
	return func(context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.held = false
		g.released++
		return nil
	}, true, nil
}

type recordedRun struct {
	strategy  string
	requested int
	affected  int
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []recordedRun
}

func (r *fakeRecorder) ObserveAutoLink(strategy string, requested, affected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedRun{strategy: strategy, requested: requested, affected: affected})
}

type countingTx struct {
	noopTransactionManager
	snapshots int
	writes    int
}

func (c *countingTx) WithinSnapshot(ctx context.Context, fn func(context.Context) error) error {
	c.snapshots++
	return fn(ctx)
}

func (c *countingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	c.writes++
	return fn(ctx)
}

// deadlineTx は書き込みトランザクションに渡されたコンテキストの期限を記録します。
type deadlineTx struct {
	noopTransactionManager
	deadline    time.Time
	hasDeadline bool
}

func (d *deadlineTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	d.deadline, d.hasDeadline = ctx.Deadline()
	return fn(ctx)
}

func newTestService(t *testing.T, store *memStore, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewService(newTestApplier(store, 4), store, opts...)
}

func TestService_AutoLink_EndToEnd(t *testing.T) {
	t.Parallel()

	store := seedStore([]int64{1, 2}, []int64{10, 11})
	recorder := &fakeRecorder{}
	tx := &countingTx{}
	svc := newTestService(t, store, WithRecorder(recorder), WithTransactionManager(tx))

	result, err := svc.AutoLink(context.Background())
	if err != nil {
		t.Fatalf("AutoLink returned error: %v", err)
	}

	if result.Affected != 2 {
		t.Fatalf("expected affectedRows 2, got %d", result.Affected)
	}
	if got := store.userOf(1); got == nil || *got != 10 {
		t.Fatalf("expected employee 1 -> user 10, got %v", got)
	}
	if got := store.userOf(2); got == nil || *got != 11 {
		t.Fatalf("expected employee 2 -> user 11, got %v", got)
	}
	if result.RemainingEmployees != 0 || result.RemainingUsers != 0 {
		t.Fatalf("expected nothing remaining, got %+v", result)
	}
	if tx.writes != 1 {
		t.Fatalf("expected a single read-write transaction, got %d", tx.writes)
	}
	if len(recorder.runs) != 1 || recorder.runs[0] != (recordedRun{strategy: string(StrategySetBased), requested: 2, affected: 2}) {
		t.Fatalf("unexpected recorded runs: %+v", recorder.runs)
	}
}

func TestService_AutoLinkPerPair_EndToEnd(t *testing.T) {
	t.Parallel()

	store := seedStore([]int64{1, 2, 3}, []int64{10, 11})
	tx := &countingTx{}
	svc := newTestService(t, store, WithTransactionManager(tx))

	result, err := svc.AutoLinkPerPair(context.Background())
	if err != nil {
		t.Fatalf("AutoLinkPerPair returned error: %v", err)
	}

	if result.Strategy != StrategyPerPair || result.Requested != 2 || result.Affected != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RemainingEmployees != 1 || result.RemainingUsers != 0 {
		t.Fatalf("unexpected remaining counts: %+v", result)
	}
	if tx.snapshots != 1 {
		t.Fatalf("expected the read phase to use one snapshot, got %d", tx.snapshots)
	}
	if got := store.userOf(3); got != nil {
		t.Fatalf("employee 3 must stay unlinked, got %d", *got)
	}
}

func TestService_AutoLink_NothingToLink(t *testing.T) {
	t.Parallel()

	store := seedStore([]int64{1}, nil)
	svc := newTestService(t, store)

	for _, run := range []func(context.Context) (*ApplyResult, error){svc.AutoLink, svc.AutoLinkPerPair} {
		result, err := run(context.Background())
		if err != nil {
			t.Fatalf("auto-link returned error: %v", err)
		}
		if !result.NothingToLink() || result.Affected != 0 {
			t.Fatalf("expected nothing to link, got %+v", result)
		}
	}
}

func TestService_AutoLink_RunInProgress(t *testing.T) {
	t.Parallel()

	store := seedStore([]int64{1}, []int64{10})
	guard := &busyGuard{held: true}
	svc := newTestService(t, store, WithRunGuard(guard))

	if _, err := svc.AutoLink(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if _, err := svc.AutoLinkPerPair(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if got := store.userOf(1); got != nil {
		t.Fatalf("no link expected while another run holds the guard, got %d", *got)
	}

	guard.held = false
	if _, err := svc.AutoLink(context.Background()); err != nil {
		t.Fatalf("AutoLink returned error: %v", err)
	}
	if guard.released != 1 || guard.held {
		t.Fatalf("expected guard to be released once, got %+v", guard)
	}
}

func TestService_OverviewAndPreview(t *testing.T) {
	t.Parallel()

	store := seedStore([]int64{2, 1}, []int64{11, 10, 12})
	store.addUser(13, user.RoleAdmin)
	svc := newTestService(t, store)

	overview, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	if len(overview.UnlinkedEmployees) != 2 || len(overview.AvailableUsers) != 3 || !overview.CanAutoLink() {
		t.Fatalf("unexpected overview: %+v", overview)
	}

	plan, err := svc.PreviewPlan(context.Background())
	if err != nil {
		t.Fatalf("PreviewPlan returned error: %v", err)
	}
	want := []Pair{{EmployeeID: 1, UserID: 10}, {EmployeeID: 2, UserID: 11}}
	if len(plan.Pairs) != 2 || plan.Pairs[0] != want[0] || plan.Pairs[1] != want[1] || plan.RemainingUsers != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if got := store.userOf(1); got != nil {
		t.Fatalf("preview must not apply the plan, employee 1 -> %d", *got)
	}
}

func TestService_ManualLink_AlreadyLinkedLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addEmployee(5, int64Ptr(7))
	store.addUser(7, user.RoleEmployee)
	store.addUser(20, user.RoleEmployee)
	svc := newTestService(t, store)

	if _, err := svc.ManualLink(context.Background(), 5, 20); !errors.Is(err, employee.ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked, got %v", err)
	}
	if got := store.userOf(5); got == nil || *got != 7 {
		t.Fatalf("employee 5 must keep user 7, got %v", got)
	}
}

func TestService_UnlinkThenGet(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.addEmployee(3, int64Ptr(30))
	store.addUser(30, user.RoleEmployee)
	svc := newTestService(t, store)
	ctx := context.Background()

	if _, err := svc.Unlink(ctx, 3); err != nil {
		t.Fatalf("Unlink returned error: %v", err)
	}
	emp, err := store.FindByID(ctx, 3)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if emp.UserID != nil {
		t.Fatalf("expected user_id to be null, got %d", *emp.UserID)
	}

	again, err := svc.Unlink(ctx, 3)
	if err != nil {
		t.Fatalf("second Unlink returned error: %v", err)
	}
	if again.Changed() {
		t.Fatalf("second Unlink must be a no-op, got %+v", again)
	}

	linked, err := svc.ManualLink(ctx, 3, 30)
	if err != nil {
		t.Fatalf("ManualLink after unlink returned error: %v", err)
	}
	if linked.UserID != 30 {
		t.Fatalf("unexpected link result: %+v", linked)
	}
}

func TestService_AutoLink_RunBoundedByTimeout(t *testing.T) {
	t.Parallel()

	store := seedStore([]int64{1}, []int64{10})
	tx := &deadlineTx{}
	svc := newTestService(t, store, WithTransactionManager(tx), WithRunTimeout(30*time.Second))

	start := time.Now()
	if _, err := svc.AutoLink(context.Background()); err != nil {
		t.Fatalf("AutoLink returned error: %v", err)
	}
	if !tx.hasDeadline {
		t.Fatal("expected the run to carry a deadline")
	}
	if limit := start.Add(30 * time.Second); tx.deadline.After(limit.Add(time.Second)) {
		t.Fatalf("expected deadline within the run timeout, got %v (limit %v)", tx.deadline, limit)
	}

	unbounded := &deadlineTx{}
	svc = newTestService(t, seedStore([]int64{2}, []int64{20}), WithTransactionManager(unbounded))
	if _, err := svc.AutoLink(context.Background()); err != nil {
		t.Fatalf("AutoLink returned error: %v", err)
	}
	if unbounded.hasDeadline {
		t.Fatal("expected no deadline without a run timeout")
	}
}
