package linking

import "time"

// Strategy は自動紐付けの適用方式です。
type Strategy string

const (
	// StrategySetBased はストア側の単一 UPDATE で順位結合を適用します。
	StrategySetBased Strategy = "set_based"
	// StrategyPerPair はスナップショットから計画を作り、ペアごとに条件付き UPDATE を並行発行します。
	StrategyPerPair Strategy = "per_pair"
)

// UnlinkedEmployee は user_id が未設定の社員です。
type UnlinkedEmployee struct {
	ID           int64
	Nom          string
	Prenom       string
	Departement  string
	Statut       string
	DateEmbauche time.Time
}

// AvailableUser は役割が employee で、どの社員にも紐付いていないユーザーです。
type AvailableUser struct {
	ID    int64
	Name  string
	Email string
}

// Overview は未紐付けの社員と紐付け可能なユーザーの一覧です。
type Overview struct {
	UnlinkedEmployees []UnlinkedEmployee
	AvailableUsers    []AvailableUser
}

// CanAutoLink は自動紐付けで 1 件以上のペアが作れるかを返します。
func (o Overview) CanAutoLink() bool {
	return len(o.UnlinkedEmployees) > 0 && len(o.AvailableUsers) > 0
}

// Pair は紐付け対象の社員 ID とユーザー ID の組です。
type Pair struct {
	EmployeeID int64
	UserID     int64
}

// Plan は未適用の紐付け計画です。
type Plan struct {
	Pairs              []Pair
	RemainingEmployees int
	RemainingUsers     int
}

// Empty は紐付けるペアが存在しないかを返します。失敗ではなく「対象なし」を表します。
func (p Plan) Empty() bool {
	return len(p.Pairs) == 0
}

// Outcome はペア単位の適用結果です。
type Outcome string

const (
	OutcomeLinked  Outcome = "linked"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// PairOutcome は 1 ペア分の適用結果です。Err は OutcomeFailed の場合のみ設定されます。
type PairOutcome struct {
	Pair
	Outcome Outcome
	Err     error
}

// ApplyResult は自動紐付けの実行結果です。
type ApplyResult struct {
	Strategy           Strategy
	Requested          int
	Affected           int
	Linked             []Pair
	Outcomes           []PairOutcome
	RemainingEmployees int
	RemainingUsers     int
}

// Partial は計画より少ない件数しか更新されなかったかを返します。
func (r ApplyResult) Partial() bool {
	return r.Affected < r.Requested
}

// NothingToLink は対象ペアが存在しなかったかを返します。
func (r ApplyResult) NothingToLink() bool {
	return r.Requested == 0
}

// Count は指定した結果のペア数を返します。
func (r ApplyResult) Count(outcome Outcome) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome == outcome {
			n++
		}
	}
	return n
}

// LinkResult は手動紐付けの結果です。
type LinkResult struct {
	EmployeeID int64
	UserID     int64
}

// UnlinkResult は紐付け解除の結果です。PreviousUserID は解除前に紐付いていたユーザーで、未紐付けだった場合は nil です。
type UnlinkResult struct {
	EmployeeID     int64
	PreviousUserID *int64
}

// Changed は解除によって状態が変化したかを返します。
func (r UnlinkResult) Changed() bool {
	return r.PreviousUserID != nil
}
