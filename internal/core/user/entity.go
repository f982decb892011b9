package user

import "time"

// Role はユーザーの役割を表します。
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// User はユーザーエンティティです。本サービスからは参照のみ行います。
type User struct {
	ID        int64
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// IsLinkable は社員への紐付け対象となる役割かどうかを返します。
func (u *User) IsLinkable() bool {
	return u != nil && u.Role == RoleEmployee
}
