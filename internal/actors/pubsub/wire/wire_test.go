package wire

import (
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestEncode(t *testing.T) {
	recipe := &model.Recipe{
		ID:          uuid.New(),
		Title:       "Soup",
		Ingredients: []string{"water"},
		Steps:       []string{"boil"},
		Labels:      []string{},
		ImageURLs:   []string{},
		Status:      model.RecipeStatusPublished,
		PublishedAt: dummyTime,
		AuthorID:    uuid.New(),
		Version:     2,
		CreatedAt:   dummyTime.Add(-time.Hour),
		UpdatedAt:   dummyTime,
	}

	tests := []struct {
		name        string
		event       model.LifecycleEvent
		expectedErr assert.ErrorAssertionFunc
		assertion   func(t *testing.T, msg *pubsub.Message)
	}{
		{
			name:  "published carries the snapshot",
			event: model.LifecycleEvent{ID: "e1", Kind: model.EventKindPublished, RecipeID: recipe.ID, Recipe: recipe, OccurredAt: dummyTime},
			assertion: func(t *testing.T, msg *pubsub.Message) {
				assert.Equal(t, map[string]string{
					AttrEventID:    "e1",
					AttrKind:       "recipe.published",
					AttrRecipeID:   recipe.ID.String(),
					AttrOccurredAt: "2024-03-10T12:00:00Z",
				}, msg.Attributes)
				assert.Contains(t, string(msg.Data), `"title":"Soup"`)
				assert.Contains(t, string(msg.Data), `"status":"PUBLISHED"`)
			},
		},
		{
			name:  "deleted carries the id",
			event: model.LifecycleEvent{ID: "e2", Kind: model.EventKindDeleted, RecipeID: recipe.ID, OccurredAt: dummyTime},
			assertion: func(t *testing.T, msg *pubsub.Message) {
				assert.Equal(t, recipe.ID.String(), string(msg.Data))
			},
		},
		{
			name:  "snapshot missing",
			event: model.LifecycleEvent{ID: "e3", Kind: model.EventKindCreated, RecipeID: recipe.ID},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
		{
			name:  "unknown kind",
			event: model.LifecycleEvent{ID: "e4", Kind: "recipe.archived", RecipeID: recipe.ID},
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			msg, err := Encode(test.event)
			if test.expectedErr != nil {
				test.expectedErr(t, err)
				return
			}
			require.NoError(t, err)
			test.assertion(t, msg)

			decoded, err := Decode(msg, "")
			require.NoError(t, err)
			assert.Equal(t, test.event, *decoded)
		})
	}
}

func TestDecode(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name         string
		msg          *pubsub.Message
		fallbackKind model.EventKind
		expectedErr  assert.ErrorAssertionFunc
		assertion    func(t *testing.T, event *model.LifecycleEvent)
	}{
		{
			name:         "hand-published deletion",
			msg:          &pubsub.Message{ID: "m1", Data: []byte(" " + id.String() + "\n"), PublishTime: dummyTime},
			fallbackKind: model.EventKindDeleted,
			assertion: func(t *testing.T, event *model.LifecycleEvent) {
				assert.Equal(t, "m1", event.ID)
				assert.Equal(t, model.EventKindDeleted, event.Kind)
				assert.Equal(t, id, event.RecipeID)
				assert.Equal(t, dummyTime, event.OccurredAt)
			},
		},
		{
			name:         "malformed json",
			msg:          &pubsub.Message{ID: "m2", Data: []byte("{")},
			fallbackKind: model.EventKindCreated,
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
		{
			name:         "snapshot without version",
			msg:          &pubsub.Message{ID: "m3", Data: []byte(`{"id":"` + id.String() + `","author_id":"` + id.String() + `","status":"DRAFT"}`)},
			fallbackKind: model.EventKindCreated,
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
		{
			name: "recipe id attribute mismatch",
			msg: &pubsub.Message{
				ID:         "m4",
				Data:       []byte(`{"id":"` + id.String() + `","author_id":"` + id.String() + `","status":"DRAFT","version":1}`),
				Attributes: map[string]string{AttrRecipeID: uuid.NewString()},
			},
			fallbackKind: model.EventKindCreated,
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
		{
			name:         "malformed deletion",
			msg:          &pubsub.Message{ID: "m5", Data: []byte("not-an-id")},
			fallbackKind: model.EventKindDeleted,
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrValidation)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event, err := Decode(test.msg, test.fallbackKind)
			if test.expectedErr != nil {
				test.expectedErr(t, err)
				return
			}
			require.NoError(t, err)
			test.assertion(t, event)
		})
	}
}
