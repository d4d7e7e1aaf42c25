package setting

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/asistencia/core"
)

// Known keys
const (
	KeyAttendanceStart = "attendance_start"
	KeyAttendanceEnd   = "attendance_end"
)

var ErrNotFound = core.NewNotFoundError("setting not found")

type Setting struct {
	Key   string `json:"key" db:"key"`
	Value string `json:"value" db:"value"`
}

type UpdateSetting struct {
	Value string `json:"value" validate:"required,max=255"`
}

// hhmmSettings are the keys whose value must be a time of day.
var hhmmSettings = map[string]bool{
	KeyAttendanceStart: true,
	KeyAttendanceEnd:   true,
}

// Window is the time-of-day range in which attendance is expected to be taken.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Open  bool   `json:"open"`
}

type (
	Repository interface {
		QuerySettings(ctx context.Context) ([]Setting, error)
		GetSetting(ctx context.Context, key string) (Setting, error)
		// SaveSetting inserts or replaces the value of the setting.
		SaveSetting(ctx context.Context, s Setting) (Setting, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

func (svc *Service) All(ctx context.Context) ([]Setting, error) {
	return svc.repo.QuerySettings(ctx)
}

func (svc *Service) Get(ctx context.Context, key string) (Setting, error) {
	return svc.repo.GetSetting(ctx, core.CleanString(key, true /* lower */))
}

func (svc *Service) Set(ctx context.Context, key string, us UpdateSetting) (Setting, error) {
	key = core.CleanString(key, true /* lower */)
	us.Value = core.CleanString(us.Value)

	if err := svc.validate.Var(key, "required,max=64,alphanum_"); err != nil {
		return Setting{}, core.NewValidationError(nil, core.FieldError{Field: "key", Error: "invalid key"})
	}
	if err := svc.validate.Struct(us); err != nil {
		return Setting{}, core.TranslateValidationErrors(err, svc.translator)
	}
	if hhmmSettings[key] {
		if err := svc.validate.Var(us.Value, "hhmm"); err != nil {
			return Setting{}, core.NewValidationError(nil, core.FieldError{Field: "value", Error: "value must be a time of day formatted as HH:MM"})
		}
	}
	return svc.repo.SaveSetting(ctx, Setting{Key: key, Value: us.Value})
}

// AttendanceWindow reports the attendance window and whether now falls inside it.
// The window is open when either bound is unset.
func (svc *Service) AttendanceWindow(ctx context.Context, now time.Time) (Window, error) {
	var w Window
	for key, dst := range map[string]*string{KeyAttendanceStart: &w.Start, KeyAttendanceEnd: &w.End} {
		s, err := svc.repo.GetSetting(ctx, key)
		if err != nil && !core.IsNotFound(err) {
			return Window{}, err
		}
		*dst = s.Value
	}
	if w.Start == "" || w.End == "" {
		w.Open = true
		return w, nil
	}

	// "HH:MM" strings compare chronologically
	hhmm := now.Format("15:04")
	if w.Start <= w.End {
		w.Open = w.Start <= hhmm && hhmm <= w.End
	} else { // overnight window
		w.Open = hhmm >= w.Start || hhmm <= w.End
	}
	return w, nil
}
