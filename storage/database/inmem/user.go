package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

// emailTaken must be called with the lock held.
func (repo *userRepository) emailTaken(email string, exclID int) bool {
	for _, u := range repo.db.users {
		if u.Email == email && u.ID != exclID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.emailTaken(usr.Email, 0) {
		return user.User{}, core.NewConflictError(user.ErrEmailExists.Error())
	}
	usr.ID = repo.db.nextID("users")
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		users = append(users, u)
	}

	orderRows(users, ordering, map[string]cmpFunc{
		"name":       func(i, j int) int { return cmpString(users[i].Name, users[j].Name) },
		"email":      func(i, j int) int { return cmpString(users[i].Email, users[j].Email) },
		"role":       func(i, j int) int { return cmpString(string(users[i].Role), string(users[j].Role)) },
		"created_at": func(i, j int) int { return cmpTime(users[i].CreatedAt, users[j].CreatedAt) },
	}, func(i, j int) int { return cmpInt(users[i].ID, users[j].ID) })
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != 0 {
		if usr, ok := repo.db.users[filter.ID]; ok && (filter.Email == "" || usr.Email == filter.Email) {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.users {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, core.NewConflictError(user.ErrEmailExists.Error())
	}
	usr.CreatedAt = orig.CreatedAt
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}
	for _, grd := range repo.db.grades {
		if grd.TaughtBy(id) {
			return core.NewConflictError("user still teaches grade " + grd.Name)
		}
	}

	delete(repo.db.users, id)
	for token, entry := range repo.db.tokens {
		if entry.userID == id {
			delete(repo.db.tokens, token)
		}
	}
	for rid, rep := range repo.db.reports {
		if rep.AuthorID != nil && *rep.AuthorID == id {
			rep.AuthorID = nil
			repo.db.reports[rid] = rep
		}
	}
	return nil
}
