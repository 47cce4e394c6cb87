// Package report aggregates one owner's tasks over a rolling calendar window.
//
// Aggregation is a pure function of the task set and the clock. Every output
// list has a fixed order that does not depend on the order of the input.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"productivityTracker/internal/models/task"
)

type Window string

const (
	Weekly     Window = "WEEKLY"
	Monthly    Window = "MONTHLY"
	Quarterly  Window = "QUARTERLY"
	HalfYearly Window = "HALF_YEARLY"
	Yearly     Window = "YEARLY"
)

func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToUpper(strings.TrimSpace(s))); w {
	case Weekly, Monthly, Quarterly, HalfYearly, Yearly:
		return w, nil
	case "":
		return Monthly, nil
	}
	return "", fmt.Errorf("unknown report window %q", s)
}

// Start is the inclusive lower bound of the window ending at now.
func (w Window) Start(now time.Time) time.Time {
	now = now.UTC()
	switch w {
	case Weekly:
		return now.Add(-7 * 24 * time.Hour)
	case Quarterly:
		return addMonths(now, -3)
	case HalfYearly:
		return addMonths(now, -6)
	case Yearly:
		return addMonths(now, -12)
	default:
		return addMonths(now, -1)
	}
}

// BucketStart is the first day of the trend period that contains t.
func (w Window) BucketStart(t time.Time) time.Time {
	d := task.DateOf(t)
	y, m, _ := d.Date()
	switch w {
	case Weekly:
		// Weeks start on Monday.
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case Quarterly:
		first := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, first, 1, 0, 0, 0, 0, time.UTC)
	case HalfYearly:
		first := time.January
		if m > time.June {
			first = time.July
		}
		return time.Date(y, first, 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}
}

// addMonths shifts by calendar months, clamping the day to the target month's
// length (Mar 31 minus one month is Feb 28/29, not Mar 2).
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

type SortField string

const (
	SortCompletionDate SortField = "COMPLETION_DATE"
	SortComplexity     SortField = "COMPLEXITY"
)

func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToUpper(strings.TrimSpace(s))); f {
	case SortCompletionDate, SortComplexity:
		return f, nil
	case "":
		return SortCompletionDate, nil
	}
	return "", fmt.Errorf("unknown report sort field %q", s)
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case Asc, Desc:
		return d, nil
	case "":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

type Request struct {
	Window        Window
	Application   string
	Complexity    task.Complexity
	SortField     SortField
	SortDirection Direction
}

// Filter is the owner-scoped store selection for the request.
func (r Request) Filter(owner string) task.Filter {
	return task.Filter{
		UserID:      owner,
		Application: strings.TrimSpace(r.Application),
		Complexity:  r.Complexity,
	}
}

type ApplicationSummary struct {
	Application    string `json:"application" yaml:"application"`
	CompletedCount int64  `json:"completedCount" yaml:"completedCount"`
}

type ComplexityBreakdown struct {
	Application    string          `json:"application" yaml:"application"`
	Complexity     task.Complexity `json:"complexity" yaml:"complexity"`
	CompletedCount int64           `json:"completedCount" yaml:"completedCount"`
}

type StatusSummary struct {
	Status string `json:"status" yaml:"status"`
	Count  int64  `json:"count" yaml:"count"`
}

type TrendPoint struct {
	PeriodStart    time.Time
	CompletedCount int64
}

type trendPointView struct {
	PeriodStart    string `json:"periodStart" yaml:"periodStart"`
	CompletedCount int64  `json:"completedCount" yaml:"completedCount"`
}

// MarshalJSON renders the period start as a calendar date.
func (p TrendPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(trendPointView{PeriodStart: task.FormatDate(p.PeriodStart), CompletedCount: p.CompletedCount})
}

func (p TrendPoint) MarshalYAML() (any, error) {
	return trendPointView{PeriodStart: task.FormatDate(p.PeriodStart), CompletedCount: p.CompletedCount}, nil
}

type Report struct {
	ApplicationSummaries   []ApplicationSummary  `json:"applicationSummaries" yaml:"applicationSummaries"`
	ComplexityDistribution []ComplexityBreakdown `json:"complexityDistribution" yaml:"complexityDistribution"`
	ProductivityTrend      []TrendPoint          `json:"productivityTrend" yaml:"productivityTrend"`
	StatusDistribution     []StatusSummary       `json:"statusDistribution" yaml:"statusDistribution"`
}

// EffectiveTime picks closedAt, then archivedAt, then createdAt.
func EffectiveTime(t *task.Task) (time.Time, bool) {
	switch {
	case t.ClosedAt != nil:
		return *t.ClosedAt, true
	case t.ArchivedAt != nil:
		return *t.ArchivedAt, true
	case !t.CreatedAt.IsZero():
		return t.CreatedAt, true
	}
	return time.Time{}, false
}

// Generate filters tasks by the request, keeps those in the window ending at
// now and computes the four groupings.
func Generate(owner string, tasks []*task.Task, req Request, now time.Time) *Report {
	filter := req.Filter(owner)
	records := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Match(t) {
			records = append(records, t)
		}
	}
	SortRecords(records, req.SortField, req.SortDirection)

	return Aggregate(records, req.Window, now)
}

// Aggregate computes the groupings over the tasks whose effective time falls
// in [window start, now].
func Aggregate(tasks []*task.Task, window Window, now time.Time) *Report {
	now = now.UTC()
	start := window.Start(now)

	inWindow := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		at, ok := EffectiveTime(t)
		if !ok || at.Before(start) || at.After(now) {
			continue
		}
		inWindow = append(inWindow, t)
	}

	return &Report{
		ApplicationSummaries:   applicationSummaries(inWindow),
		ComplexityDistribution: complexityDistribution(inWindow),
		ProductivityTrend:      productivityTrend(inWindow, window),
		StatusDistribution:     statusDistribution(inWindow),
	}
}

func applicationSummaries(tasks []*task.Task) []ApplicationSummary {
	counts := map[string]int64{}
	for _, t := range tasks {
		counts[t.Application]++
	}
	out := make([]ApplicationSummary, 0, len(counts))
	for app, n := range counts {
		out = append(out, ApplicationSummary{Application: app, CompletedCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Application < out[j].Application
	})
	return out
}

func complexityDistribution(tasks []*task.Task) []ComplexityBreakdown {
	type key struct {
		app string
		c   task.Complexity
	}
	counts := map[key]int64{}
	for _, t := range tasks {
		counts[key{t.Application, t.Complexity}]++
	}
	out := make([]ComplexityBreakdown, 0, len(counts))
	for k, n := range counts {
		out = append(out, ComplexityBreakdown{Application: k.app, Complexity: k.c, CompletedCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Application != out[j].Application {
			return out[i].Application < out[j].Application
		}
		si, sj := out[i].Complexity.Severity(), out[j].Complexity.Severity()
		if si != sj {
			return si < sj
		}
		return out[i].Complexity < out[j].Complexity
	})
	return out
}

func statusDistribution(tasks []*task.Task) []StatusSummary {
	counts := map[string]int64{}
	for _, t := range tasks {
		counts[string(t.Status)]++
	}
	out := make([]StatusSummary, 0, len(counts))
	for s, n := range counts {
		out = append(out, StatusSummary{Status: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Status < out[j].Status
	})
	return out
}

func productivityTrend(tasks []*task.Task, window Window) []TrendPoint {
	counts := map[time.Time]int64{}
	for _, t := range tasks {
		if t.ClosedAt == nil {
			continue
		}
		counts[window.BucketStart(*t.ClosedAt)]++
	}
	out := make([]TrendPoint, 0, len(counts))
	for start, n := range counts {
		out = append(out, TrendPoint{PeriodStart: start, CompletedCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out
}

// SortRecords orders the fetched records. It has no effect on the grouped
// outputs, which carry their own ordering. Records without a completion date
// go last regardless of direction.
func SortRecords(tasks []*task.Task, field SortField, dir Direction) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		var c int
		if field == SortComplexity {
			c = a.Complexity.Severity() - b.Complexity.Severity()
		} else {
			switch {
			case a.ClosedAt == nil && b.ClosedAt == nil:
				return false
			case a.ClosedAt == nil:
				return false
			case b.ClosedAt == nil:
				return true
			}
			c = a.ClosedAt.Compare(*b.ClosedAt)
		}
		if dir == Asc {
			return c < 0
		}
		return c > 0
	})
}
