package model

import (
	"time"

	"github.com/google/uuid"
)

// RecipeStatus is the publication status of a recipe.
type RecipeStatus string

const (
	// RecipeStatusDraft is the status of a recipe only visible to its author.
	RecipeStatusDraft RecipeStatus = "DRAFT"

	// RecipeStatusPublished is the status of a recipe visible to everyone.
	RecipeStatusPublished RecipeStatus = "PUBLISHED"
)

// Valid reports whether s is a known status.
func (s RecipeStatus) Valid() bool {
	return s == RecipeStatusDraft || s == RecipeStatusPublished
}

// Chef represents a platform user who authors and/or follows recipes.
type Chef struct {
	// ID unique identifier of the chef. It is the principal id issued by the authentication layer.
	ID uuid.UUID `json:"id"`

	// Handle is the unique public handle of the chef.
	Handle string `json:"handle"`

	// Email is the unique email of the chef.
	Email string `json:"email"`

	// Name is the display name.
	Name string `json:"name"`

	// Verified tells whether the chef identity was verified.
	Verified bool `json:"verified"`

	// CreatedAt is the time at which the chef was created in the system.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time at which the chef was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Recipe represents a recipe authored by a chef.
type Recipe struct {
	// ID unique identifier of the recipe.
	ID uuid.UUID `json:"id"`

	// Title is the recipe title. Never blank.
	Title string `json:"title"`

	// Summary is an optional short description.
	Summary string `json:"summary,omitempty"`

	// Ingredients is the ordered list of ingredients.
	Ingredients []string `json:"ingredients"`

	// Steps is the ordered list of preparation steps.
	Steps []string `json:"steps"`

	// Labels are free-text labels.
	Labels []string `json:"labels"`

	// ImageURLs are the urls of the recipe pictures.
	ImageURLs []string `json:"image_urls"`

	// Status is the publication status.
	Status RecipeStatus `json:"status"`

	// PublishedAt is the time of the first publication. Zero-valued while the recipe is a draft.
	PublishedAt time.Time `json:"published_at"`

	// AuthorID is the id of the owning chef. It never changes after creation.
	AuthorID uuid.UUID `json:"author_id"`

	// Version starts at 1 and is incremented by every committed mutation.
	Version int64 `json:"version"`

	// CreatedAt is the time at which the recipe was created in the system.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time at which the recipe was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPublished reports whether the recipe is visible to everyone.
func (r *Recipe) IsPublished() bool {
	return r.Status == RecipeStatusPublished
}

// EventKind is the kind of a recipe lifecycle event. The value doubles as the broker topic name.
type EventKind string

const (
	EventKindCreated   EventKind = "recipe.created"
	EventKindUpdated   EventKind = "recipe.updated"
	EventKindPublished EventKind = "recipe.published"
	EventKindDeleted   EventKind = "recipe.deleted"
)

// EventKinds lists every lifecycle event kind.
var EventKinds = []EventKind{EventKindCreated, EventKindUpdated, EventKindPublished, EventKindDeleted}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventKindCreated, EventKindUpdated, EventKindPublished, EventKindDeleted:
		return true
	}
	return false
}

// CarriesSnapshot reports whether events of this kind carry the recipe body.
func (k EventKind) CarriesSnapshot() bool {
	return k.Valid() && k != EventKindDeleted
}

// LifecycleEvent signals a recipe creation, update, publication or deletion.
type LifecycleEvent struct {
	// ID is the event id.
	ID string

	// Kind is the lifecycle transition.
	Kind EventKind

	// RecipeID is the id of the recipe the event refers to.
	RecipeID uuid.UUID

	// Recipe is the post-mutation snapshot. It is nil for deletions.
	Recipe *Recipe

	// OccurredAt is the time at which the event was produced.
	OccurredAt time.Time
}
