package user

import "context"

// Repository はユーザーエンティティの参照を行うインターフェースです。
type Repository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
}

// FindLinkable は紐付け可能なユーザーを取得します。
// 存在しない場合は ErrUserNotFound、役割が employee でない場合は ErrUserNotEligible を返します。
func FindLinkable(ctx context.Context, repo Repository, id int64) (*User, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	u, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsLinkable() {
		return nil, ErrUserNotEligible
	}
	return u, nil
}
