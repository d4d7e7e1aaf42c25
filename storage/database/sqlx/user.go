package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/user"
)

var (
	userColumns  = []string{"id", "name", "email", "role", "password_hash", "recovery_word_hash", "created_at", "updated_at", "last_login"}
	userOrdering = []string{"name", "email", "role", "created_at", "last_login"}
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	b := psql.Insert("users").
		Columns("name", "email", "role", "password_hash", "recovery_word_hash", "created_at", "updated_at", "last_login").
		Values(usr.Name, usr.Email, usr.Role, usr.PasswordHash, usr.RecoveryWordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin).
		Suffix("RETURNING id")
	if err := getContext(ctx, repo.db, &usr.ID, b, nil, "inserting user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	b := psql.Select(userColumns...).From("users")
	if filter.Role != "" {
		b = b.Where(sq.Eq{"role": filter.Role})
	}
	// users with Name or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		b = b.Where(sq.Or{sq.ILike{"name": val}, sq.ILike{"email": val}})
	}
	b = b.OrderBy(orderBy(ordering, userOrdering)...)

	users := make([]user.User, 0)
	if err := selectContext(ctx, repo.db, &users, b, nil, "querying users"); err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := psql.Select(userColumns...).From("users").Limit(1)
	switch {
	case filter.ID != 0:
		b = b.Where(sq.Eq{"id": filter.ID})
		if filter.Email != "" {
			b = b.Where(sq.Eq{"email": filter.Email})
		}
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := getContext(ctx, repo.db, &usr, b, user.ErrNotFound, "getting user"); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	b := psql.Update("users").
		SetMap(map[string]interface{}{
			"name":               usr.Name,
			"email":              usr.Email,
			"role":               usr.Role,
			"password_hash":      usr.PasswordHash,
			"recovery_word_hash": usr.RecoveryWordHash,
			"updated_at":         usr.UpdatedAt.UTC(),
			"last_login":         usr.LastLogin,
		}).
		Where(sq.Eq{"id": usr.ID}).
		Suffix("RETURNING " + joinColumns(userColumns))

	var updated user.User
	if err := getContext(ctx, repo.db, &updated, b, user.ErrNotFound, "updating user"); err != nil {
		return user.User{}, err
	}
	return updated, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	return execContext(ctx, repo.db, psql.Delete("users").Where(sq.Eq{"id": id}), user.ErrNotFound, "deleting user")
}
