// Package grouping partitions entity lists into titled, ordered groups for
// presentation. It never mutates its input.
package grouping

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// SortField names the field items are ordered by.
type SortField string

const (
	SortTitle        SortField = "title"
	SortDateCreated  SortField = "dateCreated"
	SortDateEdited   SortField = "dateEdited"
	SortDateDeleted  SortField = "dateDeleted"
	SortDateModified SortField = "dateModified"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// GroupBy selects the bucketing rule.
type GroupBy string

const (
	GroupDefault GroupBy = "default"
	GroupABC     GroupBy = "abc"
	GroupYear    GroupBy = "year"
	GroupMonth   GroupBy = "month"
	GroupWeek    GroupBy = "week"
)

// Bucket titles that are not derived from item data.
const (
	PinnedTitle   = "Pinned"
	RecentTitle   = "Recent"
	LastWeekTitle = "Last week"
	OlderTitle    = "Older"
	OtherTitle    = "#"
)

// Options configures one grouping pass.
type Options struct {
	SortBy        SortField `json:"sortBy" yaml:"sort_by"`
	SortDirection Direction `json:"sortDirection" yaml:"sort_direction"`
	GroupBy       GroupBy   `json:"groupBy" yaml:"group_by"`
	// Override replaces the date field for special views, e.g. dateDeleted
	// for trash. It has no effect when GroupBy is abc.
	Override SortField `json:"-" yaml:"-"`
}

// Normalize returns opts with the implied sort field and defaults applied.
func (o Options) Normalize() Options {
	if o.GroupBy == "" {
		o.GroupBy = GroupDefault
	}
	switch {
	case o.GroupBy == GroupABC:
		o.SortBy = SortTitle
	case o.Override != "":
		o.SortBy = o.Override
	case o.SortBy == "" || o.SortBy == SortTitle:
		o.SortBy = SortDateEdited
	}
	if o.SortDirection != Asc && o.SortDirection != Desc {
		if o.SortBy == SortTitle {
			o.SortDirection = Asc
		} else {
			o.SortDirection = Desc
		}
	}
	return o
}

// Groupable is implemented by every entity the engine can arrange.
type Groupable interface {
	SortTitle() string
	IsPinned() bool
	Date(field string) time.Time
}

// Bucket is one titled group of items.
type Bucket[T Groupable] struct {
	Title string `json:"title"`
	Items []T    `json:"items"`
}

// Engine carries the clock and time zone used for date buckets.
type Engine struct {
	Now      func() time.Time
	Location *time.Location
}

// Group arranges items with the local clock and time zone.
func Group[T Groupable](items []T, opts Options) []Bucket[T] {
	return Apply(Engine{}, items, opts)
}

// Sort returns a sorted copy of items.
func Sort[T Groupable](items []T, opts Options) []T {
	opts = opts.Normalize()
	out := slices.Clone(items)
	slices.SortStableFunc(out, compareBy[T](opts))
	return out
}

// Apply arranges items using e's clock and location.
func Apply[T Groupable](e Engine, items []T, opts Options) []Bucket[T] {
	opts = opts.Normalize()
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	sorted := Sort(items, opts)

	var buckets []Bucket[T]
	if opts.GroupBy == GroupDefault {
		var pinned []T
		rest := sorted[:0:0]
		for _, item := range sorted {
			if item.IsPinned() {
				pinned = append(pinned, item)
			} else {
				rest = append(rest, item)
			}
		}
		if len(pinned) > 0 {
			buckets = append(buckets, Bucket[T]{Title: PinnedTitle, Items: pinned})
		}
		sorted = rest
	}

	at := now().In(loc)
	index := make(map[string]int)
	for _, item := range sorted {
		title := label(item, opts, at, loc)
		i, ok := index[title]
		if !ok {
			i = len(buckets)
			index[title] = i
			buckets = append(buckets, Bucket[T]{Title: title})
		}
		buckets[i].Items = append(buckets[i].Items, item)
	}

	if opts.GroupBy != GroupDefault {
		for i := range buckets {
			buckets[i].Items = pinnedFirst(buckets[i].Items)
		}
	}
	return buckets
}

func compareBy[T Groupable](opts Options) func(a, b T) int {
	return func(a, b T) int {
		var c int
		if opts.SortBy == SortTitle {
			c = cmp.Compare(strings.ToLower(a.SortTitle()), strings.ToLower(b.SortTitle()))
		} else {
			c = a.Date(string(opts.SortBy)).Compare(b.Date(string(opts.SortBy)))
		}
		if opts.SortDirection == Desc {
			c = -c
		}
		return c
	}
}

func pinnedFirst[T Groupable](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.IsPinned() {
			out = append(out, item)
		}
	}
	for _, item := range items {
		if !item.IsPinned() {
			out = append(out, item)
		}
	}
	return out
}

func label[T Groupable](item T, opts Options, now time.Time, loc *time.Location) string {
	if opts.GroupBy == GroupABC {
		return letter(item.SortTitle())
	}
	t := item.Date(string(opts.SortBy)).In(loc)
	switch opts.GroupBy {
	case GroupYear:
		return t.Format("2006")
	case GroupMonth:
		return t.Format("January 2006")
	case GroupWeek:
		start := weekStart(t)
		end := start.AddDate(0, 0, 6)
		return start.Format("02 Jan") + " - " + end.Format("02 Jan, 2006")
	default:
		switch age := now.Sub(t); {
		case age < 7*24*time.Hour:
			return RecentTitle
		case age < 14*24*time.Hour:
			return LastWeekTitle
		default:
			return OlderTitle
		}
	}
}

// letter returns the upper-cased first letter of title, or OtherTitle.
func letter(title string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(title))
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return OtherTitle
	}
	return string(unicode.ToUpper(r))
}

// weekStart returns midnight of the Monday starting t's week.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}
