package user

import (
	"context"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRecovery    = errors.New("invalid email or recovery word")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAdminSignup        = errors.New("admins cannot sign up")
	ErrWrongPassword      = errors.New("wrong password")

	nowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser fails with a core.ConflictError while the user teaches a grade.
		DeleteUser(ctx context.Context, id int) error
	}

	// TokenStore keeps single-use password recovery tokens until they expire.
	TokenStore interface {
		SaveToken(ctx context.Context, token string, userID int, expiresAt time.Time) error
		// ConsumeToken deletes the token and returns its user ID.
		// It fails with ErrInvalidToken if the token is unknown or expired.
		ConsumeToken(ctx context.Context, token string, now time.Time) (int, error)
		PurgeExpiredTokens(ctx context.Context, now time.Time) (int, error)
	}

	Service struct {
		repo         Repository
		tokens       TokenStore
		mailSvc      core.EmailService
		validate     *validator.Validate
		translator   ut.Translator
		resetTimeout time.Duration
	}
)

func NewService(
	repo Repository,
	tokens TokenStore,
	mailSvc core.EmailService,
	validate *validator.Validate,
	translator ut.Translator,
	resetTimeout time.Duration,
) *Service {
	InitValidators(validate, translator)
	return &Service{
		repo:         repo,
		tokens:       tokens,
		mailSvc:      mailSvc,
		validate:     validate,
		translator:   translator,
		resetTimeout: resetTimeout,
	}
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string, exclID int) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	switch {
	case core.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case usr.ID != exclID:
		return emailExistsError()
	}
	return nil
}

func emailExistsError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

// trapConflict turns a store conflict (concurrent insert of the same email) into a validation error.
func trapConflict(err error) error {
	if core.IsConflict(err) {
		return emailExistsError()
	}
	return err
}

// Create creates a user of any role. Used by admins & the admin CLI.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, nu.Email, 0); err != nil {
		return User{}, err
	}

	now := nowFunc()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	if err := usr.SetRecoveryWord(nu.RecoveryWord); err != nil {
		return User{}, errors.Wrap(err, "hashing recovery word")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, trapConflict(err)
}

// Signup is the public registration: admins can only be created by other admins.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (User, error) {
	if Role(core.CleanString(string(nu.Role), true /* lower */)) == RoleAdmin {
		return User{}, core.NewValidationError(ErrAdminSignup, core.FieldError{Field: "role", Error: ErrAdminSignup.Error()})
	}
	return svc.Create(ctx, nu)
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := nowFunc()
	usr.LastLogin = &now
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	uu.clean(usr)
	if err := svc.validateStruct(uu); err != nil {
		return User{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, uu.Email, usr.ID); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.UpdatedAt = nowFunc()
	if uu.RecoveryWord != "" {
		if err := usr.SetRecoveryWord(uu.RecoveryWord); err != nil {
			return User{}, errors.Wrap(err, "hashing recovery word")
		}
	}
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, trapConflict(err)
}

// ChangePassword sets a new password after checking the current one.
func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) (User, error) {
	if err := svc.validateStruct(cp); err != nil {
		return User{}, err
	}
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return User{}, core.NewValidationError(ErrWrongPassword, core.FieldError{Field: "oldPassword", Error: ErrWrongPassword.Error()})
	}
	if err := checkPassword(cp.Password, usr.Name, usr.Email); err != nil {
		return User{}, err
	}
	return svc.setPassword(ctx, usr, cp.Password)
}

func (svc *Service) setPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = nowFunc()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Password changed",
			TemplateName: "password_changed",
			TemplateData: map[string]interface{}{"Email": usr.Email},
		})
	}
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

// RequestRecovery exchanges an email and its recovery word for a single-use reset token, also emailed to the user.
func (svc *Service) RequestRecovery(ctx context.Context, rp RecoverPassword) (string, time.Time, error) {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	if err := svc.validateStruct(rp); err != nil {
		return "", time.Time{}, err
	}

	usr, err := svc.GetByEmail(ctx, rp.Email)
	if err != nil {
		if core.IsNotFound(err) {
			return "", time.Time{}, core.NewValidationError(ErrInvalidRecovery)
		}
		return "", time.Time{}, err
	}
	if err := usr.CheckRecoveryWord(rp.RecoveryWord); err != nil {
		return "", time.Time{}, core.NewValidationError(ErrInvalidRecovery)
	}

	token := uuid.NewString()
	expiresAt := nowFunc().Add(svc.resetTimeout)
	if err := svc.tokens.SaveToken(ctx, token, usr.ID, expiresAt); err != nil {
		return "", time.Time{}, errors.Wrap(err, "saving recovery token")
	}

	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "Password reset",
			TemplateName: "password_reset",
			TemplateData: map[string]interface{}{"Name": usr.Name, "Token": token, "ExpiresAt": expiresAt},
		})
	}
	return token, expiresAt, nil
}

// ResetPassword consumes a recovery token and sets the new password.
// The similarity rule of the password policy is not applied since the token owner is unknown before consumption.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	rp.Token = core.CleanString(rp.Token)
	if err := svc.validateStruct(rp); err != nil {
		return User{}, err
	}
	if err := checkPassword(rp.Password); err != nil {
		return User{}, err
	}

	uid, err := svc.tokens.ConsumeToken(ctx, rp.Token, nowFunc())
	if err != nil {
		if errors.Cause(err) == ErrInvalidToken {
			return User{}, core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})
		}
		return User{}, err
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if core.IsNotFound(err) { // user deleted after the token was issued
			return User{}, core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})
		}
		return User{}, err
	}
	return svc.setPassword(ctx, usr, rp.Password)
}

// PurgeExpiredTokens deletes the expired recovery tokens and returns how many were deleted.
func (svc *Service) PurgeExpiredTokens(ctx context.Context) (int, error) {
	return svc.tokens.PurgeExpiredTokens(ctx, nowFunc())
}
