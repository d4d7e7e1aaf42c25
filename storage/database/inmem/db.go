package inmemdb

import (
	"sort"
	"sync"
	"time"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/user"
)

type tokenEntry struct {
	userID    int
	expiresAt time.Time
}

// DB is an in-memory record store with the referential rules of the SQL schema.
// A single lock guards every table so that multi-table rules (cascades, in-use checks) are atomic.
type DB struct {
	mu sync.RWMutex
	pk map[string]int

	users      map[int]user.User
	levels     map[int]school.Level
	grades     map[int]school.Grade
	students   map[int]school.Student
	attendance map[int]attendance.Record
	uniforms   map[int]attendance.UniformRecord
	reports    map[int]report.Report
	settings   map[string]string
	tokens     map[string]tokenEntry
}

func Open() *DB {
	return &DB{
		pk:         make(map[string]int),
		users:      make(map[int]user.User),
		levels:     make(map[int]school.Level),
		grades:     make(map[int]school.Grade),
		students:   make(map[int]school.Student),
		attendance: make(map[int]attendance.Record),
		uniforms:   make(map[int]attendance.UniformRecord),
		reports:    make(map[int]report.Report),
		settings:   make(map[string]string),
		tokens:     make(map[string]tokenEntry),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.pk[table]++
	return db.pk[table]
}

// comparison of two rows on a field: <0, 0 or >0
type cmpFunc func(i, j int) int

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// orderRows sorts the rows slice per ordering, then by ID ascending.
// fields maps the sortable field names to their comparison.
func orderRows(rows interface{}, ordering []core.DBOrdering, fields map[string]cmpFunc, byID cmpFunc) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(i, j); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return byID(i, j) < 0
	})
}

func containsInt(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
