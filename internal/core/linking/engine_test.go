package linking

import (
	"math/rand"
	"slices"
	"testing"
)

func employeesWithIDs(ids ...int64) []UnlinkedEmployee {
	out := make([]UnlinkedEmployee, len(ids))
	for i, id := range ids {
		out[i] = UnlinkedEmployee{ID: id}
	}
	return out
}

func usersWithIDs(ids ...int64) []AvailableUser {
	out := make([]AvailableUser, len(ids))
	for i, id := range ids {
		out[i] = AvailableUser{ID: id}
	}
	return out
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		employees     []UnlinkedEmployee
		users         []AvailableUser
		want          []Pair
		wantEmployees int
		wantUsers     int
	}{
		{
			name:      "equal length",
			employees: employeesWithIDs(1, 2),
			users:     usersWithIDs(10, 11),
			want:      []Pair{{EmployeeID: 1, UserID: 10}, {EmployeeID: 2, UserID: 11}},
		},
		{
			name:          "more employees",
			employees:     employeesWithIDs(3, 5, 8),
			users:         usersWithIDs(40),
			want:          []Pair{{EmployeeID: 3, UserID: 40}},
			wantEmployees: 2,
		},
		{
			name:      "more users",
			employees: employeesWithIDs(7),
			users:     usersWithIDs(21, 20, 22),
			want:      []Pair{{EmployeeID: 7, UserID: 20}},
			wantUsers: 2,
		},
		{
			name:      "unsorted input is ranked by id",
			employees: employeesWithIDs(9, 2, 4),
			users:     usersWithIDs(30, 10, 20),
			want: []Pair{
				{EmployeeID: 2, UserID: 10},
				{EmployeeID: 4, UserID: 20},
				{EmployeeID: 9, UserID: 30},
			},
		},
		{
			name:      "no employees",
			users:     usersWithIDs(1, 2, 3),
			want:      []Pair{},
			wantUsers: 3,
		},
		{
			name:          "no users",
			employees:     employeesWithIDs(1, 2),
			want:          []Pair{},
			wantEmployees: 2,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan := Match(tt.employees, tt.users)
			if !slices.Equal(plan.Pairs, tt.want) {
				t.Fatalf("unexpected pairs: want %+v got %+v", tt.want, plan.Pairs)
			}
			if plan.RemainingEmployees != tt.wantEmployees || plan.RemainingUsers != tt.wantUsers {
				t.Fatalf("unexpected remaining counts: %+v", plan)
			}
			if plan.Empty() != (len(tt.want) == 0) {
				t.Fatalf("Empty() = %v for %d pairs", plan.Empty(), len(tt.want))
			}
		})
	}
}

func TestMatch_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	employees := employeesWithIDs(3, 1, 2)
	users := usersWithIDs(30, 10, 20)

	_ = Match(employees, users)

	if employees[0].ID != 3 || users[0].ID != 30 {
		t.Fatalf("input slices were reordered: %+v %+v", employees, users)
	}
}

func TestMatch_RankProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		empIDs := distinctIDs(rng, rng.Intn(20))
		userIDs := distinctIDs(rng, rng.Intn(20))

		plan := MatchIDs(empIDs, userIDs)

		sortedEmp := slices.Sorted(slices.Values(empIDs))
		sortedUsr := slices.Sorted(slices.Values(userIDs))
		n := min(len(empIDs), len(userIDs))

		if len(plan.Pairs) != n {
			t.Fatalf("iteration %d: expected %d pairs, got %d", iter, n, len(plan.Pairs))
		}
		seenUsers := make(map[int64]bool, n)
		for i, p := range plan.Pairs {
			if p.EmployeeID != sortedEmp[i] || p.UserID != sortedUsr[i] {
				t.Fatalf("iteration %d: pair %d = %+v, want (%d,%d)", iter, i, p, sortedEmp[i], sortedUsr[i])
			}
			if seenUsers[p.UserID] {
				t.Fatalf("iteration %d: user %d assigned twice", iter, p.UserID)
			}
			seenUsers[p.UserID] = true
		}
		if plan.RemainingEmployees+n != len(empIDs) || plan.RemainingUsers+n != len(userIDs) {
			t.Fatalf("iteration %d: remaining counts do not add up: %+v", iter, plan)
		}
	}
}

func distinctIDs(rng *rand.Rand, n int) []int64 {
	seen := make(map[int64]bool, n)
	out := make([]int64, 0, n)
	for len(out) < n {
		id := rng.Int63n(1000) + 1
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
