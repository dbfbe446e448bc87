package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 10

	// MaxPageSize is the largest page size ever served. Bigger requests are clamped.
	MaxPageSize = 50
)

var (
	// MinTime stands for -infinity in time ranges.
	MinTime = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

	// MaxTime stands for +infinity in time ranges.
	MaxTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999000, time.UTC)
)

// TimeRange is the half-open interval [From, To). Open bounds are MinTime and MaxTime.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// OpenRange returns the range covering every instant.
func OpenRange() TimeRange {
	return TimeRange{From: MinTime, To: MaxTime}
}

// Contains reports whether t lies within the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// Intersect returns the overlap of both ranges. The result may be empty.
func (r TimeRange) Intersect(o TimeRange) TimeRange {
	out := r
	if o.From.After(out.From) {
		out.From = o.From
	}
	if o.To.Before(out.To) {
		out.To = o.To
	}
	return out
}

// Empty reports whether no instant lies within the range.
func (r TimeRange) Empty() bool {
	return !r.From.Before(r.To)
}

// ParseTimeRange parses the optional bounds of a creation range. Blank bounds are open.
// It returns nil when both bounds are blank.
func ParseTimeRange(from, to string) (*TimeRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	r := OpenRange()
	if from != "" {
		t, err := ParseTimeBound(from)
		if err != nil {
			return nil, Invalid("published_from: %s", err.Error())
		}
		r.From = t
	}
	if to != "" {
		t, err := ParseTimeBound(to)
		if err != nil {
			return nil, Invalid("published_to: %s", err.Error())
		}
		r.To = t
	}
	return &r, nil
}

var timeBoundLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimeBound parses an ISO-8601 date-time. Values without an offset are taken as UTC.
func ParseTimeBound(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeBoundLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO-8601 date-time: %w", s, lastErr)
}

// AuthorSet restricts a query to a set of authors. The zero value means no restriction,
// while OnlyAuthors() without ids is an explicit empty set that matches nothing.
type AuthorSet struct {
	ids        []uuid.UUID
	restricted bool
}

// AnyAuthor returns the unrestricted author set.
func AnyAuthor() AuthorSet {
	return AuthorSet{}
}

// OnlyAuthors returns a set restricted to ids. Duplicates are removed.
func OnlyAuthors(ids ...uuid.UUID) AuthorSet {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return AuthorSet{ids: unique, restricted: true}
}

// Restricted reports whether the set filters authors at all.
func (a AuthorSet) Restricted() bool {
	return a.restricted
}

// MatchesNothing reports whether the set is an explicit empty set.
func (a AuthorSet) MatchesNothing() bool {
	return a.restricted && len(a.ids) == 0
}

// IDs returns a copy of the author ids.
func (a AuthorSet) IDs() []uuid.UUID {
	out := make([]uuid.UUID, len(a.ids))
	copy(out, a.ids)
	return out
}

// Contains reports whether the set admits the author.
func (a AuthorSet) Contains(id uuid.UUID) bool {
	if !a.restricted {
		return true
	}
	for _, candidate := range a.ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// RecipeFilter gathers the filtering dimensions of a recipe query. Dimensions compose with AND,
// the keyword sub-conditions with OR.
type RecipeFilter struct {
	// Status is always applied.
	Status RecipeStatus

	// Keyword is matched case-insensitively as a substring of the title, the summary, any
	// ingredient or any step. Blank means no keyword filter.
	Keyword string

	// Authors restricts the recipe authors.
	Authors AuthorSet

	// Created restricts the creation time. Nil means no restriction.
	Created *TimeRange
}

// NormalizedKeyword returns the lower-cased, trimmed keyword.
func (f RecipeFilter) NormalizedKeyword() string {
	return strings.ToLower(strings.TrimSpace(f.Keyword))
}

// Matches evaluates the filter against a single recipe.
func (f RecipeFilter) Matches(r Recipe) bool {
	if r.Status != f.Status {
		return false
	}
	if !f.Authors.Contains(r.AuthorID) {
		return false
	}
	if f.Created != nil && !f.Created.Contains(r.CreatedAt) {
		return false
	}
	kw := f.NormalizedKeyword()
	if kw == "" {
		return true
	}
	if containsFold(r.Title, kw) || containsFold(r.Summary, kw) {
		return true
	}
	for _, ingredient := range r.Ingredients {
		if containsFold(ingredient, kw) {
			return true
		}
	}
	for _, step := range r.Steps {
		if containsFold(step, kw) {
			return true
		}
	}
	return false
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}

// SortRecipes orders recipes newest first, ties broken by descending id.
func SortRecipes(recipes []Recipe) {
	sort.SliceStable(recipes, func(i, j int) bool {
		return RecipeLess(recipes[i], recipes[j])
	})
}

// RecipeLess tells whether a comes before b in query results.
func RecipeLess(a, b Recipe) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// PageRequest is a 0-based page index and a page size.
type PageRequest struct {
	Page int
	Size int
}

// Normalize validates the request and clamps the size to MaxPageSize.
func (p PageRequest) Normalize() (PageRequest, error) {
	if p.Page < 0 {
		return p, Invalid("page must not be negative")
	}
	if p.Size < 1 {
		return p, Invalid("page_size must be at least 1")
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Page > math.MaxInt/p.Size {
		return p, Invalid("page %d is out of range", p.Page)
	}
	return p, nil
}

// Offset is the number of elements preceding the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// RecipeQuery is a filter plus the page to return.
type RecipeQuery struct {
	Filter RecipeFilter
	Page   PageRequest
}

// RecipePage is the page envelope returned by recipe queries.
type RecipePage struct {
	Content       []Recipe `json:"content"`
	Page          int      `json:"page"`
	Size          int      `json:"size"`
	TotalElements int64    `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
}

// NewRecipePage builds the envelope of a page given the total amount of matching recipes.
func NewRecipePage(content []Recipe, req PageRequest, total int64) *RecipePage {
	if content == nil {
		content = []Recipe{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return &RecipePage{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// EmptyRecipePage is the envelope of a query that cannot match anything.
func EmptyRecipePage(req PageRequest) *RecipePage {
	return NewRecipePage(nil, req, 0)
}
