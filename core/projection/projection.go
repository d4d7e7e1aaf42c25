package projection

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/school"
)

// Tally counts attendance rows per status.
type Tally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

func (t *Tally) Add(s attendance.Status) {
	switch s {
	case attendance.StatusPresent:
		t.Present++
	case attendance.StatusAbsent:
		t.Absent++
	case attendance.StatusLate:
		t.Late++
	}
}

func (t Tally) Total() int { return t.Present + t.Absent + t.Late }

// Bucket is the tally of a time bucket, e.g. "Mar" or "Week 2".
type Bucket struct {
	Label string `json:"label"`
	key   int
	Tally
}

// Series is the bucketed tally of one dimension (level, grade...).
type Series struct {
	DimensionID int      `json:"id"`
	Name        string   `json:"name"`
	Buckets     []Bucket `json:"buckets"`
}

// AveragePoint is the mean tally of a bucket label across several series.
type AveragePoint struct {
	Label   string  `json:"label"`
	Present float64 `json:"present"`
	Absent  float64 `json:"absent"`
	Late    float64 `json:"late"`
}

type Slice struct {
	Status  attendance.Status `json:"status"`
	Count   int               `json:"count"`
	Percent int               `json:"percent"`
}

type CompliancePoint struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
}

type ItemCompliance struct {
	Item         attendance.Item `json:"item"`
	Compliant    int             `json:"compliant"`
	NonCompliant int             `json:"nonCompliant"`
	Percent      int             `json:"percent"`
}

type StudentSummary struct {
	StudentID    int                 `json:"studentId"`
	Name         string              `json:"name"`
	Totals       Tally               `json:"totals"`
	Distribution []Slice             `json:"distribution"`
	History      []attendance.Record `json:"history"`
}

// Window bounds the rows by date, inclusive. Zero bounds are open.
type Window struct {
	From core.Date
	To   core.Date
}

func (w Window) Contains(d core.Date) bool {
	if !w.From.IsZero() && d.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && d.After(w.To) {
		return false
	}
	return true
}

// Filter returns the records inside the window.
func (w Window) Filter(records []attendance.Record) []attendance.Record {
	if w.From.IsZero() && w.To.IsZero() {
		return records
	}
	res := make([]attendance.Record, 0, len(records))
	for _, rec := range records {
		if w.Contains(rec.Date) {
			res = append(res, rec)
		}
	}
	return res
}

// Directory resolves the student & grade of a row.
type Directory struct {
	students map[int]school.Student
	grades   map[int]school.Grade
}

func NewDirectory(students []school.Student, grades []school.Grade) Directory {
	dir := Directory{
		students: make(map[int]school.Student, len(students)),
		grades:   make(map[int]school.Grade, len(grades)),
	}
	for _, s := range students {
		dir.students[s.ID] = s
	}
	for _, g := range grades {
		dir.grades[g.ID] = g
	}
	return dir
}

// lookup returns the student & grade of a row; ok is false on orphans.
func (dir Directory) lookup(studentID int) (school.Student, school.Grade, bool) {
	std, ok := dir.students[studentID]
	if !ok {
		return school.Student{}, school.Grade{}, false
	}
	grd, ok := dir.grades[std.GradeID]
	return std, grd, ok
}

// MonthLabel returns the short month name of d, with the month number as ordering key.
func MonthLabel(d core.Date) (string, int) {
	return d.Format("Jan"), int(d.Month())
}

// WeekLabel returns "Week N" with N = ceil(day of month / 7).
func WeekLabel(d core.Date) (string, int) {
	n := weekOfMonth(d.Day())
	return fmt.Sprintf("Week %d", n), n
}

func weekOfMonth(day int) int { return (day + 6) / 7 }

type labelFunc func(core.Date) (string, int)

// bucketer accumulates tallies per dimension & label.
type bucketer struct {
	label   labelFunc
	buckets map[int]map[int]*Bucket // {dimension: {key: bucket}}
}

func newBucketer(label labelFunc) *bucketer {
	return &bucketer{label: label, buckets: make(map[int]map[int]*Bucket)}
}

func (b *bucketer) add(dimension int, rec attendance.Record) {
	lbl, key := b.label(rec.Date)
	dim, ok := b.buckets[dimension]
	if !ok {
		dim = make(map[int]*Bucket)
		b.buckets[dimension] = dim
	}
	bkt, ok := dim[key]
	if !ok {
		bkt = &Bucket{Label: lbl, key: key}
		dim[key] = bkt
	}
	bkt.Add(rec.Status)
}

func (b *bucketer) series(dimension int, name string) Series {
	dim := b.buckets[dimension]
	s := Series{DimensionID: dimension, Name: name, Buckets: make([]Bucket, 0, len(dim))}
	for _, bkt := range dim {
		s.Buckets = append(s.Buckets, *bkt)
	}
	sort.Slice(s.Buckets, func(i, j int) bool { return s.Buckets[i].key < s.Buckets[j].key })
	return s
}

// ByLevel tallies the records per level & month. Every level gets a series, even without rows.
func ByLevel(records []attendance.Record, dir Directory, levels []school.Level) []Series {
	b := newBucketer(MonthLabel)
	for _, rec := range records {
		_, grd, ok := dir.lookup(rec.StudentID)
		if !ok {
			continue
		}
		b.add(grd.LevelID, rec)
	}

	res := make([]Series, 0, len(levels))
	for _, lvl := range levels {
		res = append(res, b.series(lvl.ID, lvl.Name))
	}
	return res
}

// ByGrade tallies the records per grade & week of the month. Every grade gets a series, even without rows.
func ByGrade(records []attendance.Record, dir Directory, grades []school.Grade) []Series {
	b := newBucketer(WeekLabel)
	for _, rec := range records {
		_, grd, ok := dir.lookup(rec.StudentID)
		if !ok {
			continue
		}
		b.add(grd.ID, rec)
	}

	res := make([]Series, 0, len(grades))
	for _, grd := range grades {
		res = append(res, b.series(grd.ID, grd.Name))
	}
	return res
}

// ByStudent summarizes the records of one student, history in ascending date order.
func ByStudent(records []attendance.Record, dir Directory, studentID int) StudentSummary {
	sum := StudentSummary{StudentID: studentID, History: make([]attendance.Record, 0)}
	if std, ok := dir.students[studentID]; ok {
		sum.Name = std.Name
	}
	for _, rec := range records {
		if rec.StudentID != studentID {
			continue
		}
		sum.Totals.Add(rec.Status)
		sum.History = append(sum.History, rec)
	}
	sort.SliceStable(sum.History, func(i, j int) bool { return sum.History[i].Date.Before(sum.History[j].Date) })
	sum.Distribution = Distribution(sum.Totals)
	return sum
}

// AverageAcross returns, per bucket label, the unweighted mean of the series carrying that label.
// A dimension with few students weighs as much as a crowded one.
func AverageAcross(series []Series) []AveragePoint {
	type acc struct {
		label               string
		present, absent, lt float64
		n                   int
	}
	accs := make(map[int]*acc)
	for _, s := range series {
		for _, bkt := range s.Buckets {
			a, ok := accs[bkt.key]
			if !ok {
				a = &acc{label: bkt.Label}
				accs[bkt.key] = a
			}
			a.present += float64(bkt.Present)
			a.absent += float64(bkt.Absent)
			a.lt += float64(bkt.Late)
			a.n++
		}
	}

	keys := make([]int, 0, len(accs))
	for k := range accs {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	res := make([]AveragePoint, 0, len(keys))
	for _, k := range keys {
		a := accs[k]
		n := float64(a.n)
		res = append(res, AveragePoint{Label: a.label, Present: a.present / n, Absent: a.absent / n, Late: a.lt / n})
	}
	return res
}

// Distribution returns the share of every status, rounded to the closest integer percent.
// Empty if the tally is empty.
func Distribution(t Tally) []Slice {
	total := t.Total()
	if total == 0 {
		return []Slice{}
	}
	pct := func(count int) int {
		return int(math.Round(float64(count) * 100 / float64(total)))
	}
	return []Slice{
		{Status: attendance.StatusPresent, Count: t.Present, Percent: pct(t.Present)},
		{Status: attendance.StatusAbsent, Count: t.Absent, Percent: pct(t.Absent)},
		{Status: attendance.StatusLate, Count: t.Late, Percent: pct(t.Late)},
	}
}

// TallyOf counts the records per status.
func TallyOf(records []attendance.Record) Tally {
	var t Tally
	for _, rec := range records {
		t.Add(rec.Status)
	}
	return t
}

// SeriesTally sums the buckets of every series, so orphan rows left out of the series are left out here too.
func SeriesTally(series []Series) Tally {
	var t Tally
	for _, s := range series {
		for _, b := range s.Buckets {
			t.Present += b.Present
			t.Absent += b.Absent
			t.Late += b.Late
		}
	}
	return t
}

// TeacherCompliance scores every week of the month: 100 if any grade of the teacher has at least one
// attendance row that week, 0 otherwise.
func TeacherCompliance(records []attendance.Record, dir Directory, teacherID, year int, month time.Month) []CompliancePoint {
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	weeks := weekOfMonth(daysInMonth)

	taken := make(map[int]bool, weeks)
	for _, rec := range records {
		if rec.Date.Year() != year || rec.Date.Month() != month {
			continue
		}
		_, grd, ok := dir.lookup(rec.StudentID)
		if !ok || !grd.TaughtBy(teacherID) {
			continue
		}
		taken[weekOfMonth(rec.Date.Day())] = true
	}

	res := make([]CompliancePoint, 0, weeks)
	for w := 1; w <= weeks; w++ {
		p := CompliancePoint{Label: fmt.Sprintf("Week %d", w)}
		if taken[w] {
			p.Percent = 100
		}
		res = append(res, p)
	}
	return res
}

// UniformByGrade counts the compliant & non-compliant checks per item for the students of a grade.
func UniformByGrade(records []attendance.UniformRecord, dir Directory, gradeID int) []ItemCompliance {
	counts := make(map[attendance.Item]*ItemCompliance, len(attendance.AllItems))
	for _, rec := range records {
		_, grd, ok := dir.lookup(rec.StudentID)
		if !ok || grd.ID != gradeID {
			continue
		}
		ic, ok := counts[rec.Item]
		if !ok {
			ic = &ItemCompliance{Item: rec.Item}
			counts[rec.Item] = ic
		}
		if rec.Compliant {
			ic.Compliant++
		} else {
			ic.NonCompliant++
		}
	}

	res := make([]ItemCompliance, 0, len(attendance.AllItems))
	for _, item := range attendance.AllItems {
		ic := ItemCompliance{Item: item}
		if c, ok := counts[item]; ok {
			ic = *c
		}
		if total := ic.Compliant + ic.NonCompliant; total > 0 {
			ic.Percent = int(math.Round(float64(ic.Compliant) * 100 / float64(total)))
		}
		res = append(res, ic)
	}
	return res
}
