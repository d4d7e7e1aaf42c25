package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/asistencia/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	// bcrypt cost; lowered by tests
	hashCost = bcrypt.DefaultCost
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID               int        `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Email            string     `json:"email" db:"email"`
	Role             Role       `json:"role" db:"role"`
	PasswordHash     []byte     `json:"-" db:"password_hash"`
	RecoveryWordHash []byte     `json:"-" db:"recovery_word_hash"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"` // UTC
	LastLogin        *time.Time `json:"lastLogin" db:"last_login"` // UTC
}

func hash(secret string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(secret), hashCost)
}

func (u *User) SetPassword(pwd string) error {
	h, err := hash(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = h
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// SetRecoveryWord stores the hash of the (case-insensitive) recovery word.
func (u *User) SetRecoveryWord(word string) error {
	word = core.CleanString(word, true /* lower */)
	if word == "" {
		u.RecoveryWordHash = nil
		return nil
	}
	h, err := hash(word)
	if err != nil {
		return err
	}
	u.RecoveryWordHash = h
	return nil
}

func (u *User) CheckRecoveryWord(word string) error {
	if len(u.RecoveryWordHash) == 0 {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword(u.RecoveryWordHash, []byte(core.CleanString(word, true /* lower */)))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            Role   `json:"role" validate:"required,roles"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	RecoveryWord    string `json:"recoveryWord" validate:"omitempty,min=3"`
}

func (nu *NewUser) clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = Role(core.CleanString(string(nu.Role), true /* lower */))
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name         string `json:"name"`
	Email        string `json:"email" validate:"omitempty,email"`
	Role         Role   `json:"role" validate:"omitempty,roles"`
	RecoveryWord string `json:"recoveryWord" validate:"omitempty,min=3"`
}

func (uu *UpdateUser) clean(orig User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if role := Role(core.CleanString(string(uu.Role), true /* lower */)); role != "" {
		uu.Role = role
	} else {
		uu.Role = orig.Role
	}
}

type ChangePassword struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type RecoverPassword struct {
	Email        string `json:"email" validate:"required,email"`
	RecoveryWord string `json:"recoveryWord" validate:"required"`
}

type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search string
	Role   Role
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Role = Role(core.CleanString(string(qf.Role), true /* lower */))
}

// GetFilter selects a single user by ID or by Email.
type GetFilter struct {
	ID    int
	Email string
}
