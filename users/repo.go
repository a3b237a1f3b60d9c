package users

import "context"

type Repo interface {
	Insert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id string, fn func(u *User) error) (*User, error)
	Delete(ctx context.Context, id string) error
}
