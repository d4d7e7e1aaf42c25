package report

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
)

type Type string

const (
	TypeUniform    Type = "uniform"
	TypeGeneral    Type = "general"
	TypeAttendance Type = "attendance"
	TypeBehavior   Type = "behavior"
)

var AllTypes = []Type{TypeUniform, TypeGeneral, TypeAttendance, TypeBehavior}

func (t Type) Valid() bool {
	switch t {
	case TypeUniform, TypeGeneral, TypeAttendance, TypeBehavior:
		return true
	}
	return false
}

var (
	errSubjectRequired = errors.New("subject is required")
	errBodyRequired    = errors.New("body is required")
	errNoAudience      = errors.New("a report needs either a student or a whole grade as audience")
	errInvalidType     = errors.New("type must be one of uniform, general, attendance or behavior")
	errMultilineSubj   = errors.New("subject must fit on a single line")
)

// Report is a message sent to a student, or broadcast to a whole grade when StudentID is nil.
type Report struct {
	ID        int       `json:"id" db:"id"`
	StudentID *int      `json:"studentId" db:"student_id"`
	GradeID   int       `json:"gradeId" db:"grade_id"`
	Type      Type      `json:"type" db:"type"`
	Text      string    `json:"-" db:"report_text"`
	Subject   string    `json:"subject" db:"-"`
	Body      string    `json:"body" db:"-"`
	SentAt    time.Time `json:"sentAt" db:"sent_at"` // UTC
	AuthorID  *int      `json:"authorId" db:"author_id"`
}

// IsBroadcast reports whether the report addresses every student of its grade.
func (r Report) IsBroadcast() bool { return r.StudentID == nil }

// Expand fills Subject & Body from the stored Text.
func (r *Report) Expand() {
	r.Subject, r.Body = Decode(r.Text)
}

// Encode joins subject & body as stored: subject + "\n" + body.
func Encode(subject, body string) string {
	return subject + "\n" + body
}

// Decode splits a stored text on its first line break.
// A body starting with a blank line cannot be told apart from a subject spanning several lines.
func Decode(text string) (subject, body string) {
	idx := strings.IndexByte(text, '\n')
	if idx < 0 {
		return text, ""
	}
	return text[:idx], text[idx+1:]
}

// Audience is either a single student or all the students of a grade.
type Audience struct {
	StudentID   *int `json:"studentId"`
	GradeID     *int `json:"gradeId"`
	AllStudents bool `json:"allStudents"`
}

// NewReport contains information needed to send a Report.
type NewReport struct {
	Audience
	Type    Type   `json:"type"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type QueryFilter struct {
	StudentID int
	GradeID   int
	GradeIDs  []int
	// Audience restricts to the rows addressed to StudentID or broadcast to GradeID.
	Audience bool
}

// Compose checks & builds a report. Subject and body are stored as given so that Decode returns them unchanged.
// The audience grade of a single-student report is resolved by the caller.
func Compose(authorID int, aud Audience, subject, body string, typ Type, now time.Time) (Report, error) {
	var flds []core.FieldError
	switch {
	case strings.TrimSpace(subject) == "":
		flds = append(flds, core.FieldError{Field: "subject", Error: errSubjectRequired.Error()})
	case strings.ContainsAny(subject, "\r\n"):
		flds = append(flds, core.FieldError{Field: "subject", Error: errMultilineSubj.Error()})
	}
	if strings.TrimSpace(body) == "" {
		flds = append(flds, core.FieldError{Field: "body", Error: errBodyRequired.Error()})
	}
	if !typ.Valid() {
		flds = append(flds, core.FieldError{Field: "type", Error: errInvalidType.Error()})
	}

	rep := Report{Type: typ, SentAt: now.UTC()}
	if authorID > 0 {
		rep.AuthorID = core.IntPtr(authorID)
	}
	switch {
	case aud.StudentID != nil && *aud.StudentID > 0:
		rep.StudentID = core.IntPtr(*aud.StudentID)
		if aud.GradeID != nil {
			rep.GradeID = *aud.GradeID
		}
	case aud.AllStudents && aud.GradeID != nil && *aud.GradeID > 0:
		rep.GradeID = *aud.GradeID
	default:
		flds = append(flds, core.FieldError{Field: "audience", Error: errNoAudience.Error()})
	}

	if len(flds) > 0 {
		return Report{}, core.NewValidationError(nil, flds...)
	}
	rep.Subject = subject
	rep.Body = body
	rep.Text = Encode(subject, body)
	return rep, nil
}
