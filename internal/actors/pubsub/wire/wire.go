// Package wire encodes recipe lifecycle events into pubsub messages and back.
//
// Created, updated and published events carry the JSON recipe snapshot; deleted events carry the
// bare recipe id as text. Event metadata travels in the message attributes.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
)

// Message attribute keys.
const (
	AttrEventID    = "event_id"
	AttrKind       = "kind"
	AttrRecipeID   = "recipe_id"
	AttrOccurredAt = "occurred_at"
)

// Encode builds the pubsub message of an event.
func Encode(event model.LifecycleEvent) (*pubsub.Message, error) {
	if !event.Kind.Valid() {
		return nil, model.Invalid("unknown event kind [%s]", event.Kind)
	}

	var data []byte
	if event.Kind.CarriesSnapshot() {
		if event.Recipe == nil {
			return nil, model.Invalid("event [%s] of kind [%s] has no recipe snapshot", event.ID, event.Kind)
		}
		var err error
		data, err = json.Marshal(toPayload(event.Recipe))
		if err != nil {
			return nil, model.Invalid("error marshaling recipe snapshot: %v", err)
		}
	} else {
		data = []byte(event.RecipeID.String())
	}

	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrEventID:    event.ID,
			AttrKind:       string(event.Kind),
			AttrRecipeID:   event.RecipeID.String(),
			AttrOccurredAt: event.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// Decode rebuilds the event carried by msg. fallbackKind is used when the message has no kind
// attribute, which is the case for messages published by hand on a kind-specific topic.
// Malformed messages yield a model.ErrValidation error.
func Decode(msg *pubsub.Message, fallbackKind model.EventKind) (*model.LifecycleEvent, error) {
	if msg == nil {
		return nil, model.Invalid("cannot decode nil pubsub msg")
	}

	event := &model.LifecycleEvent{
		ID:   msg.Attributes[AttrEventID],
		Kind: model.EventKind(msg.Attributes[AttrKind]),
	}
	if event.ID == "" {
		event.ID = msg.ID
	}
	if event.Kind == "" {
		event.Kind = fallbackKind
	}
	if raw := msg.Attributes[AttrOccurredAt]; raw != "" {
		occurredAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, model.Invalid("malformed %s attribute: %v", AttrOccurredAt, err)
		}
		event.OccurredAt = occurredAt
	} else {
		event.OccurredAt = msg.PublishTime.UTC()
	}

	if !event.Kind.CarriesSnapshot() {
		id, err := uuid.Parse(strings.TrimSpace(string(msg.Data)))
		if err != nil {
			return nil, model.Invalid("malformed recipe id payload: %v", err)
		}
		event.RecipeID = id
		return event, nil
	}

	p := new(recipePayload)
	if err := json.Unmarshal(msg.Data, p); err != nil {
		return nil, model.Invalid("json unmarshal error: %v", err)
	}
	recipe, err := p.toModel()
	if err != nil {
		return nil, err
	}
	event.Recipe = recipe
	event.RecipeID = recipe.ID
	if raw := msg.Attributes[AttrRecipeID]; raw != "" && raw != recipe.ID.String() {
		return nil, model.Invalid("%s attribute [%s] does not match snapshot [%s]", AttrRecipeID, raw, recipe.ID)
	}
	return event, nil
}

type recipePayload struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Ingredients []string   `json:"ingredients"`
	Steps       []string   `json:"steps"`
	Labels      []string   `json:"labels"`
	ImageURLs   []string   `json:"image_urls"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	AuthorID    string     `json:"author_id"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toPayload(r *model.Recipe) recipePayload {
	p := recipePayload{
		ID:          r.ID.String(),
		Title:       r.Title,
		Summary:     r.Summary,
		Ingredients: r.Ingredients,
		Steps:       r.Steps,
		Labels:      r.Labels,
		ImageURLs:   r.ImageURLs,
		Status:      string(r.Status),
		AuthorID:    r.AuthorID.String(),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if !r.PublishedAt.IsZero() {
		publishedAt := r.PublishedAt.UTC()
		p.PublishedAt = &publishedAt
	}
	return p
}

func (p *recipePayload) toModel() (*model.Recipe, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, model.Invalid("malformed recipe id: %v", err)
	}
	authorID, err := uuid.Parse(p.AuthorID)
	if err != nil {
		return nil, model.Invalid("malformed author id: %v", err)
	}
	status := model.RecipeStatus(p.Status)
	if !status.Valid() {
		return nil, model.Invalid("unknown recipe status [%s]", p.Status)
	}
	if p.Version < 1 {
		return nil, fmt.Errorf("%w: recipe version must be positive, got %d", model.ErrValidation, p.Version)
	}

	r := &model.Recipe{
		ID:          id,
		Title:       p.Title,
		Summary:     p.Summary,
		Ingredients: p.Ingredients,
		Steps:       p.Steps,
		Labels:      p.Labels,
		ImageURLs:   p.ImageURLs,
		Status:      status,
		AuthorID:    authorID,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.PublishedAt != nil {
		r.PublishedAt = *p.PublishedAt
	}
	return r, nil
}
