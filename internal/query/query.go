// Package query lists one owner's tasks: archive-view filtering, whitelisted
// sorting and page slicing.
package query

import (
	"sort"
	"strings"

	"productivityTracker/internal/models/task"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortField string

const (
	SortDueDate    SortField = "due"
	SortComplexity SortField = "complexity"
	SortCreated    SortField = "created"
)

var sortAliases = map[string]SortField{
	"due":          SortDueDate,
	"due-date":     SortDueDate,
	"due_date":     SortDueDate,
	"deadline":     SortDueDate,
	"deadlinedate": SortDueDate,
	"complexity":   SortComplexity,
	"created":      SortCreated,
	"created-date": SortCreated,
	"created_at":   SortCreated,
	"createdat":    SortCreated,
}

// ParseSortField maps a client value onto the whitelist; anything else sorts by due date.
func ParseSortField(s string) SortField {
	if f, ok := sortAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f
	}
	return SortDueDate
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Params is a raw listing request.
type Params struct {
	IncludeArchived bool
	Page            int
	Size            int
	SortField       string
	SortDirection   string
}

// Normalized is Params after clamping and whitelisting.
type Normalized struct {
	IncludeArchived bool
	Page            int
	Size            int
	SortField       SortField
	Direction       Direction
}

func (p Params) Normalize() Normalized {
	page := p.Page
	if page < 1 {
		page = 1
	}
	size := p.Size
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Normalized{
		IncludeArchived: p.IncludeArchived,
		Page:            page,
		Size:            size,
		SortField:       ParseSortField(p.SortField),
		Direction:       ParseDirection(p.SortDirection),
	}
}

// Filter is the store-side selection. includeArchived toggles between the
// closed view and the active view; the two never overlap.
func (n Normalized) Filter(owner string) task.Filter {
	archived := n.IncludeArchived
	return task.Filter{UserID: owner, Archived: &archived}
}

func (n Normalized) Offset() int {
	return (n.Page - 1) * n.Size
}

type Page struct {
	Content         []*task.Task `json:"content"`
	Page            int          `json:"page"`
	Size            int          `json:"size"`
	TotalElements   int64        `json:"totalElements"`
	TotalPages      int          `json:"totalPages"`
	IncludeArchived bool         `json:"includeArchived"`
}

// TotalPages is ceil(total/size), never below 1.
func TotalPages(total int64, size int) int {
	if size < 1 || total <= 0 {
		return 1
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate sorts the matching tasks and cuts out the requested page. Tasks
// that do not belong to the requested view are dropped first.
func Paginate(owner string, tasks []*task.Task, n Normalized) *Page {
	filter := n.Filter(owner)
	matched := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Match(t) {
			matched = append(matched, t)
		}
	}

	Sort(matched, n.SortField, n.Direction)

	total := int64(len(matched))
	start := n.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + n.Size
	if end > len(matched) {
		end = len(matched)
	}

	content := make([]*task.Task, end-start)
	copy(content, matched[start:end])

	return &Page{
		Content:         content,
		Page:            n.Page,
		Size:            n.Size,
		TotalElements:   total,
		TotalPages:      TotalPages(total, n.Size),
		IncludeArchived: n.IncludeArchived,
	}
}

// Sort orders tasks in place by field and direction. Ties fall back to
// creation time and id, always ascending, so pages are stable.
func Sort(tasks []*task.Task, field SortField, dir Direction) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		c := compare(a, b, field)
		if c != 0 {
			if dir == Desc {
				return c > 0
			}
			return c < 0
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func compare(a, b *task.Task, field SortField) int {
	switch field {
	case SortComplexity:
		return a.Complexity.Severity() - b.Complexity.Severity()
	case SortCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.DeadlineDate.Compare(b.DeadlineDate)
	}
}
