package linking

import (
	"context"
	"sort"
	"sync"

	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/user"
)

// memStore は Store / EmployeeFinder / user.Repository を満たすインメモリ実装です。
type memStore struct {
	mu        sync.Mutex
	links     map[int64]*int64
	users     map[int64]user.User
	failFor   map[int64]error
	beforeSet func(employeeID, userID int64)

	// takenDuringRank は一括紐付けの計画後、書き込み前に他の処理が紐付けた社員とユーザーです。
	takenDuringRank map[int64]int64
}

func newMemStore() *memStore {
	return &memStore{
		links:   make(map[int64]*int64),
		users:   make(map[int64]user.User),
		failFor: make(map[int64]error),
	}
}

func (s *memStore) addEmployee(id int64, userID *int64) {
	s.links[id] = userID
}

func (s *memStore) addUser(id int64, role user.Role) {
	s.users[id] = user.User{ID: id, Name: "user", Email: "user@example.com", Role: role}
}

func (s *memStore) userOf(employeeID int64) *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[employeeID]
}

func (s *memStore) FindUnlinkedEmployees(context.Context) ([]UnlinkedEmployee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlockedUnlinkedEmployees(), nil
}

func (s *memStore) unlockedUnlinkedEmployees() []UnlinkedEmployee {
	var out []UnlinkedEmployee
	for id, uid := range s.links {
		if uid == nil {
			out = append(out, UnlinkedEmployee{ID: id, Nom: "nom", Prenom: "prenom", Departement: "IT", Statut: employee.StatutActif})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) FindAvailableUsers(context.Context) ([]AvailableUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlockedAvailableUsers(), nil
}

func (s *memStore) unlockedAvailableUsers() []AvailableUser {
	used := make(map[int64]bool)
	for _, uid := range s.links {
		if uid != nil {
			used[*uid] = true
		}
	}
	var out []AvailableUser
	for id, u := range s.users {
		if u.Role == user.RoleEmployee && !used[id] {
			out = append(out, AvailableUser{ID: id, Name: u.Name, Email: u.Email})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) CountUnlinked(context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unlockedUnlinkedEmployees()), len(s.unlockedAvailableUsers()), nil
}

func (s *memStore) LinkRanked(context.Context) (int, []Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := Match(s.unlockedUnlinkedEmployees(), s.unlockedAvailableUsers())
	for employeeID, userID := range s.takenDuringRank {
		uid := userID
		s.links[employeeID] = &uid
	}

	linked := make([]Pair, 0, len(plan.Pairs))
	for _, p := range plan.Pairs {
		if s.links[p.EmployeeID] != nil {
			continue
		}
		uid := p.UserID
		s.links[p.EmployeeID] = &uid
		linked = append(linked, p)
	}
	return len(plan.Pairs), linked, nil
}

func (s *memStore) SetEmployeeUser(_ context.Context, employeeID, userID int64) (bool, error) {
	if s.beforeSet != nil {
		s.beforeSet(employeeID, userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failFor[employeeID]; ok {
		return false, err
	}
	current, ok := s.links[employeeID]
	if !ok || current != nil {
		return false, nil
	}
	for _, uid := range s.links {
		if uid != nil && *uid == userID {
			return false, nil
		}
	}
	uid := userID
	s.links[employeeID] = &uid
	return true, nil
}

func (s *memStore) ClearEmployeeUser(_ context.Context, employeeID int64) (*int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.links[employeeID]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	s.links[employeeID] = nil
	return previous, nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (*employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.links[id]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	return &employee.Employee{ID: id, UserID: uid}, nil
}

func (s *memStore) FindByUserID(_ context.Context, userID int64) (*employee.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, uid := range s.links {
		if uid != nil && *uid == userID {
			v := *uid
			return &employee.Employee{ID: id, UserID: &v}, nil
		}
	}
	return nil, employee.ErrEmployeeNotFound
}

// userDirectory は memStore のユーザー参照を user.Repository として公開します。
type userDirectory struct {
	store *memStore
}

func (d userDirectory) FindByID(_ context.Context, id int64) (*user.User, error) {
	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	u, ok := d.store.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func newTestApplier(store *memStore, concurrency int) *Applier {
	return NewApplier(store, store, userDirectory{store: store}, concurrency)
}

func int64Ptr(v int64) *int64 {
	return &v
}
