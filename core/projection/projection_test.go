package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/school"
)

func date(t *testing.T, s string) core.Date {
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func rec(t *testing.T, studentID int, d string, s attendance.Status) attendance.Record {
	return attendance.Record{StudentID: studentID, Date: date(t, d), Status: s}
}

// two levels, three grades, four students:
// level 1 > grade 10 (teacher 5) > students 1 & 2
// level 1 > grade 11 (teacher 6) > student 3
// level 2 > grade 20 (no teacher) > student 4
func fixtures() ([]school.Level, []school.Grade, Directory) {
	levels := []school.Level{{ID: 1, Name: "Primary"}, {ID: 2, Name: "Secondary"}}
	grades := []school.Grade{
		{ID: 10, Name: "Grade 10", LevelID: 1, TeacherID: core.IntPtr(5)},
		{ID: 11, Name: "Grade 11", LevelID: 1, TeacherID: core.IntPtr(6)},
		{ID: 20, Name: "Grade 20", LevelID: 2},
	}
	students := []school.Student{
		{ID: 1, Name: "Ana", GradeID: 10},
		{ID: 2, Name: "Ben", GradeID: 10},
		{ID: 3, Name: "Cleo", GradeID: 11},
		{ID: 4, Name: "Dan", GradeID: 20},
	}
	return levels, grades, NewDirectory(students, grades)
}

func sumBuckets(series []Series) int {
	var n int
	for _, s := range series {
		for _, b := range s.Buckets {
			n += b.Total()
		}
	}
	return n
}

func TestDistribution(t *testing.T) {
	tests := []struct {
		name  string
		tally Tally
		want  []int // present, absent, late
	}{
		{name: "empty", tally: Tally{}},
		{name: "thirds", tally: Tally{Present: 1, Absent: 1, Late: 1}, want: []int{33, 33, 33}},
		{name: "all present", tally: Tally{Present: 7}, want: []int{100, 0, 0}},
		{name: "rounding up", tally: Tally{Present: 2, Absent: 1}, want: []int{67, 33, 0}},
		{name: "sixths", tally: Tally{Present: 1, Absent: 1, Late: 4}, want: []int{17, 17, 67}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slices := Distribution(tt.tally)
			if tt.want == nil {
				assert.Empty(t, slices)
				return
			}
			require.Len(t, slices, 3)
			var total int
			for i, s := range slices {
				assert.Equal(t, tt.want[i], s.Percent, s.Status)
				total += s.Percent
			}
			assert.InDelta(t, 100, total, 1)
		})
	}
}

func TestByLevel(t *testing.T) {
	levels, _, dir := fixtures()
	records := []attendance.Record{
		rec(t, 1, "2025-03-03", attendance.StatusPresent),
		rec(t, 2, "2025-03-03", attendance.StatusAbsent),
		rec(t, 3, "2025-03-04", attendance.StatusLate),
		rec(t, 1, "2025-04-01", attendance.StatusPresent),
		rec(t, 4, "2025-02-28", attendance.StatusPresent),
		rec(t, 99, "2025-03-03", attendance.StatusPresent), // orphan
	}

	series := ByLevel(records, dir, levels)
	require.Len(t, series, 2)
	assert.Equal(t, 5, sumBuckets(series))

	primary := series[0]
	assert.Equal(t, "Primary", primary.Name)
	require.Len(t, primary.Buckets, 2)
	assert.Equal(t, "Mar", primary.Buckets[0].Label)
	assert.Equal(t, Tally{Present: 1, Absent: 1, Late: 1}, primary.Buckets[0].Tally)
	assert.Equal(t, "Apr", primary.Buckets[1].Label)

	secondary := series[1]
	require.Len(t, secondary.Buckets, 1)
	assert.Equal(t, "Feb", secondary.Buckets[0].Label)
}

func TestByLevel_noRows(t *testing.T) {
	levels, _, dir := fixtures()
	series := ByLevel(nil, dir, levels)
	require.Len(t, series, 2)
	for _, s := range series {
		assert.Empty(t, s.Buckets)
	}
	assert.Empty(t, AverageAcross(series))
}

func TestByGrade(t *testing.T) {
	_, grades, dir := fixtures()
	records := []attendance.Record{
		rec(t, 1, "2025-03-01", attendance.StatusPresent), // week 1
		rec(t, 2, "2025-03-07", attendance.StatusLate),    // week 1
		rec(t, 1, "2025-03-08", attendance.StatusAbsent),  // week 2
		rec(t, 3, "2025-03-29", attendance.StatusPresent), // week 5
	}

	series := ByGrade(records, dir, grades)
	require.Len(t, series, 3)
	assert.Equal(t, len(records), sumBuckets(series))

	g10 := series[0]
	require.Len(t, g10.Buckets, 2)
	assert.Equal(t, "Week 1", g10.Buckets[0].Label)
	assert.Equal(t, Tally{Present: 1, Late: 1}, g10.Buckets[0].Tally)
	assert.Equal(t, "Week 2", g10.Buckets[1].Label)

	g11 := series[1]
	require.Len(t, g11.Buckets, 1)
	assert.Equal(t, "Week 5", g11.Buckets[0].Label)
	assert.Empty(t, series[2].Buckets)
}

func TestAverageAcross(t *testing.T) {
	series := []Series{
		{Buckets: []Bucket{{Label: "Week 1", key: 1, Tally: Tally{Present: 4}}, {Label: "Week 2", key: 2, Tally: Tally{Absent: 2}}}},
		{Buckets: []Bucket{{Label: "Week 1", key: 1, Tally: Tally{Present: 2, Late: 1}}}},
	}
	avg := AverageAcross(series)
	require.Len(t, avg, 2)
	assert.Equal(t, AveragePoint{Label: "Week 1", Present: 3, Late: 0.5}, avg[0])
	assert.Equal(t, AveragePoint{Label: "Week 2", Absent: 2}, avg[1])
}

func TestByStudent(t *testing.T) {
	_, _, dir := fixtures()
	records := []attendance.Record{
		rec(t, 1, "2025-03-05", attendance.StatusAbsent),
		rec(t, 2, "2025-03-04", attendance.StatusPresent),
		rec(t, 1, "2025-03-03", attendance.StatusPresent),
	}
	sum := ByStudent(records, dir, 1)
	assert.Equal(t, "Ana", sum.Name)
	assert.Equal(t, Tally{Present: 1, Absent: 1}, sum.Totals)
	require.Len(t, sum.History, 2)
	assert.True(t, sum.History[0].Date.Before(sum.History[1].Date))
	require.Len(t, sum.Distribution, 3)
	assert.Equal(t, 50, sum.Distribution[0].Percent)

	empty := ByStudent(nil, dir, 4)
	assert.Empty(t, empty.History)
	assert.Empty(t, empty.Distribution)
}

func TestTeacherCompliance(t *testing.T) {
	_, _, dir := fixtures()
	records := []attendance.Record{
		rec(t, 1, "2025-03-03", attendance.StatusPresent), // teacher 5, week 1
		rec(t, 2, "2025-03-17", attendance.StatusAbsent),  // teacher 5, week 3
		rec(t, 3, "2025-03-10", attendance.StatusPresent), // teacher 6, week 2
		rec(t, 1, "2025-04-09", attendance.StatusPresent), // other month
	}

	points := TeacherCompliance(records, dir, 5, 2025, time.March)
	require.Len(t, points, 5) // 31 days
	want := []int{100, 0, 100, 0, 0}
	for i, p := range points {
		assert.Equal(t, want[i], p.Percent, p.Label)
	}

	feb := TeacherCompliance(records, dir, 5, 2025, time.February)
	assert.Len(t, feb, 4) // 28 days
	for _, p := range feb {
		assert.Zero(t, p.Percent)
	}
}

func TestUniformByGrade(t *testing.T) {
	_, _, dir := fixtures()
	day := date(t, "2025-03-03")
	records := []attendance.UniformRecord{
		{StudentID: 1, Date: day, Item: attendance.ItemShoes, Compliant: true},
		{StudentID: 2, Date: day, Item: attendance.ItemShoes, Compliant: false},
		{StudentID: 2, Date: day, Item: attendance.ItemShirt, Compliant: true},
		{StudentID: 3, Date: day, Item: attendance.ItemShoes, Compliant: false}, // other grade
	}
	items := UniformByGrade(records, dir, 10)
	require.Len(t, items, len(attendance.AllItems))
	assert.Equal(t, ItemCompliance{Item: attendance.ItemShoes, Compliant: 1, NonCompliant: 1, Percent: 50}, items[0])
	assert.Equal(t, ItemCompliance{Item: attendance.ItemShirt, Compliant: 1, Percent: 100}, items[1])
	assert.Equal(t, ItemCompliance{Item: attendance.ItemPants}, items[2])
}

func TestWindow(t *testing.T) {
	records := []attendance.Record{
		rec(t, 1, "2025-03-01", attendance.StatusPresent),
		rec(t, 1, "2025-03-10", attendance.StatusPresent),
		rec(t, 1, "2025-03-20", attendance.StatusPresent),
	}
	tests := []struct {
		name string
		w    Window
		want int
	}{
		{name: "open", w: Window{}, want: 3},
		{name: "from", w: Window{From: date(t, "2025-03-10")}, want: 2},
		{name: "to", w: Window{To: date(t, "2025-03-10")}, want: 2},
		{name: "inclusive bounds", w: Window{From: date(t, "2025-03-10"), To: date(t, "2025-03-10")}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.w.Filter(records), tt.want)
		})
	}
}
