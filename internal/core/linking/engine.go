package linking

import (
	"slices"
)

// Match は未紐付けの社員と紐付け可能なユーザーを id 昇順の順位で 1 対 1 に組み合わせます。
// 入力スライスは変更しません。
func Match(employees []UnlinkedEmployee, users []AvailableUser) Plan {
	empIDs := make([]int64, len(employees))
	for i, e := range employees {
		empIDs[i] = e.ID
	}
	userIDs := make([]int64, len(users))
	for i, u := range users {
		userIDs[i] = u.ID
	}
	return MatchIDs(empIDs, userIDs)
}

// MatchIDs は ID のみを受け取る Match です。
func MatchIDs(employeeIDs, userIDs []int64) Plan {
	emps := slices.Clone(employeeIDs)
	usrs := slices.Clone(userIDs)
	slices.Sort(emps)
	slices.Sort(usrs)

	n := min(len(emps), len(usrs))
	pairs := make([]Pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = Pair{EmployeeID: emps[i], UserID: usrs[i]}
	}

	return Plan{
		Pairs:              pairs,
		RemainingEmployees: len(emps) - n,
		RemainingUsers:     len(usrs) - n,
	}
}
