package task

// Filter selects one owner's tasks. Zero values mean "not applied".
type Filter struct {
	UserID      string
	Archived    *bool
	Application string
	Complexity  Complexity
}

func (f Filter) Match(t *Task) bool {
	if t.UserID != f.UserID {
		return false
	}
	if f.Archived != nil && t.IsArchived() != *f.Archived {
		return false
	}
	if f.Application != "" && t.Application != f.Application {
		return false
	}
	if f.Complexity != "" && t.Complexity != f.Complexity {
		return false
	}
	return true
}
