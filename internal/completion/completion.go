package completion

import (
	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
)

// Log answers how many repetitions of one habit were completed on a day.
// An empty log is valid and reports zero for every day.
type Log interface {
	Count(day calendar.Day) int
}

// Index is an in-memory Log built from completion records.
type Index struct {
	counts map[calendar.Day]int
	total  int
}

// NewIndex builds an index from the given records. Deleted records and
// records not marked completed are ignored.
func NewIndex(records []models.Completion) *Index {
	idx := &Index{counts: make(map[calendar.Day]int, len(records))}
	for _, r := range records {
		idx.Add(r)
	}
	return idx
}

// Add records one completion.
func (idx *Index) Add(r models.Completion) {
	if r.DeletedAt != nil || !r.Completed {
		return
	}
	if idx.counts == nil {
		idx.counts = make(map[calendar.Day]int)
	}
	idx.counts[r.Day]++
	idx.total++
}

func (idx *Index) Count(day calendar.Day) int {
	if idx == nil {
		return 0
	}
	return idx.counts[day]
}

// Total returns the number of completed repetitions in the index.
func (idx *Index) Total() int {
	if idx == nil {
		return 0
	}
	return idx.total
}

// Days returns the number of distinct days with at least one completion.
func (idx *Index) Days() int {
	if idx == nil {
		return 0
	}
	return len(idx.counts)
}

// Empty is a Log with no completions.
var Empty Log = emptyLog{}

type emptyLog struct{}

func (emptyLog) Count(calendar.Day) int { return 0 }

// Success reports whether an active day counts toward a streak: enough
// completions for a habit to build, none at all for a habit to avoid.
func Success(h models.Habit, required, count int) bool {
	if h.IsBadHabit {
		return count == 0
	}
	return count >= required
}
