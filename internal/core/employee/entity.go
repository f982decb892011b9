package employee

import "time"

// StatutActif は statut 未指定時に設定される既定値です。
const StatutActif = "actif"

// Employee は社員エンティティです。
type Employee struct {
	ID           int64
	Nom          string
	Prenom       string
	Telephone    *string
	Adresse      *string
	Departement  string
	Statut       string
	DateEmbauche time.Time
	UserID       *int64
	User         *UserSnapshot
}

// UserSnapshot は社員に紐づくユーザー情報のスナップショットです。未紐付けの場合は nil です。
type UserSnapshot struct {
	Name  string
	Email string
	Role  string
}

// IsLinked はユーザーに紐付いているかを返します。
func (e *Employee) IsLinked() bool {
	return e != nil && e.UserID != nil
}
