package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ ports.Store = (*MongoDB)(nil)

const (
	chefsCollection   = "chefs"
	recipesCollection = "recipes"
	followsCollection = "follows"

	defaultMaxConflictRetries = 5
)

// MongoDB is a mongo adapter for persistence.
type MongoDB struct {
	chefs              *mongo.Collection
	recipes            *mongo.Collection
	follows            *mongo.Collection
	maxConflictRetries int
	nowFunc            func() time.Time
}

// MongoDBArgs are the mandatory arguments for the creation of a MongoDB
type MongoDBArgs struct {
	// Database holds the chefs, recipes and follows collections.
	Database *mongo.Database
}

// MongoDBOptArgs are the optional arguments for building a MongoDB
type MongoDBOptArgs = func(*MongoDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) MongoDBOptArgs {
	return func(p *MongoDB) {
		p.nowFunc = nowFunc
	}
}

// WithMaxConflictRetries bounds how many times a mutation is replayed after a concurrent write.
func WithMaxConflictRetries(n int) MongoDBOptArgs {
	return func(p *MongoDB) {
		if n > 0 {
			p.maxConflictRetries = n
		}
	}
}

// NewMongoDB creates a new MongoDB.
func NewMongoDB(args MongoDBArgs, optArgs ...MongoDBOptArgs) (*MongoDB, error) {
	if args.Database == nil {
		return nil, errors.New("nil mongo database")
	}
	m := &MongoDB{
		chefs:              args.Database.Collection(chefsCollection),
		recipes:            args.Database.Collection(recipesCollection),
		follows:            args.Database.Collection(followsCollection),
		maxConflictRetries: defaultMaxConflictRetries,
		nowFunc:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range optArgs {
		opt(m)
	}
	return m, nil
}

// EnsureIndexes creates the unique and query indexes. It is idempotent.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{
			collection: m.chefs,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "handle", Value: 1}}, Options: unique},
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			},
		},
		{
			collection: m.recipes,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
				{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			},
		},
		{
			collection: m.follows,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "follower_id", Value: 1}}},
				{Keys: bson.D{{Key: "followee_id", Value: 1}}},
			},
		},
	}
	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateMany(ctx, idx.models); err != nil {
			return model.Infrastructure(fmt.Errorf("error creating indexes on [%s]: %w", idx.collection.Name(), err))
		}
	}
	return nil
}

// SaveChef will save the chef in the database.
func (m *MongoDB) SaveChef(ctx context.Context, chef *model.Chef) error {
	if chef == nil {
		return errors.New("nil chef passed to save method")
	}
	if chef.ID == uuid.Nil {
		chef.ID = uuid.New()
	}
	now := m.nowFunc().Truncate(time.Millisecond)
	if chef.CreatedAt.IsZero() {
		chef.CreatedAt = now
	}
	chef.CreatedAt = chef.CreatedAt.Truncate(time.Millisecond)
	chef.UpdatedAt = now

	if _, err := m.chefs.InsertOne(ctx, toChefDB(chef)); err != nil {
		return translateError(err)
	}
	return nil
}

// GetChef returns the chef or model.ErrNotFound.
func (m *MongoDB) GetChef(ctx context.Context, id uuid.UUID) (*model.Chef, error) {
	return m.findChef(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

// GetChefByHandle returns the chef or model.ErrNotFound.
func (m *MongoDB) GetChefByHandle(ctx context.Context, handle string) (*model.Chef, error) {
	return m.findChef(ctx, bson.D{{Key: "handle", Value: handle}})
}

func (m *MongoDB) findChef(ctx context.Context, filter bson.D) (*model.Chef, error) {
	row := new(chefDB)
	if err := m.chefs.FindOne(ctx, filter).Decode(row); err != nil {
		return nil, translateError(err)
	}
	chef, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &chef, nil
}

// SaveRecipe will save the recipe in the database at version 1.
func (m *MongoDB) SaveRecipe(ctx context.Context, recipe *model.Recipe) error {
	if recipe == nil {
		return errors.New("nil recipe passed to save method")
	}
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	now := m.nowFunc().Truncate(time.Millisecond)
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.CreatedAt = recipe.CreatedAt.Truncate(time.Millisecond)
	recipe.PublishedAt = recipe.PublishedAt.Truncate(time.Millisecond)
	recipe.UpdatedAt = now
	recipe.Version = 1

	if _, err := m.recipes.InsertOne(ctx, toRecipeDB(recipe)); err != nil {
		return translateError(err)
	}
	return nil
}

// GetRecipe returns the recipe or model.ErrNotFound.
func (m *MongoDB) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	row := new(recipeDB)
	if err := m.recipes.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(row); err != nil {
		return nil, translateError(err)
	}
	recipe, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// MutateRecipe applies mutation with an optimistic version guard. A concurrent write replays the
// mutation against the fresh state, up to the configured amount of retries.
func (m *MongoDB) MutateRecipe(ctx context.Context, id uuid.UUID, mutation ports.RecipeMutation) (*model.Recipe, error) {
	for attempt := 0; attempt <= m.maxConflictRetries; attempt++ {
		current, err := m.GetRecipe(ctx, id)
		if err != nil {
			return nil, err
		}
		next := *current
		next.Ingredients = cloneStrings(current.Ingredients)
		next.Steps = cloneStrings(current.Steps)
		next.Labels = cloneStrings(current.Labels)
		next.ImageURLs = cloneStrings(current.ImageURLs)

		changed, err := mutation(&next)
		if err != nil {
			return nil, err
		}
		if !changed {
			return current, nil
		}

		next.ID = current.ID
		next.AuthorID = current.AuthorID
		next.CreatedAt = current.CreatedAt
		next.PublishedAt = next.PublishedAt.Truncate(time.Millisecond)
		next.Version = current.Version + 1
		next.UpdatedAt = m.nowFunc().Truncate(time.Millisecond)

		res, err := m.recipes.ReplaceOne(ctx, versionFilter(current), toRecipeDB(&next))
		if err != nil {
			return nil, translateError(err)
		}
		if res.MatchedCount == 1 {
			return &next, nil
		}
		log.WithField("recipe_id", id).WithField("attempt", attempt).Debug("concurrent recipe write, replaying mutation")
	}
	return nil, fmt.Errorf("%w: recipe [%s] kept changing concurrently", model.ErrConflict, id)
}

// DeleteRecipe removes the recipe once guard accepted it, guarded by the version it inspected.
func (m *MongoDB) DeleteRecipe(ctx context.Context, id uuid.UUID, guard ports.RecipeGuard) error {
	for attempt := 0; attempt <= m.maxConflictRetries; attempt++ {
		current, err := m.GetRecipe(ctx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}
		res, err := m.recipes.DeleteOne(ctx, versionFilter(current))
		if err != nil {
			return translateError(err)
		}
		if res.DeletedCount == 1 {
			return nil
		}
	}
	return fmt.Errorf("%w: recipe [%s] kept changing concurrently", model.ErrConflict, id)
}

// ListRecipes translates the filter into a single bson document and counts the matches.
func (m *MongoDB) ListRecipes(ctx context.Context, query ports.ListRecipesQuery) (*ports.ListRecipesResult, error) {
	filter := recipeFilter(query.Filter)

	total, err := m.recipes.CountDocuments(ctx, filter)
	if err != nil {
		return nil, translateError(err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}
	if query.Offset > 0 {
		opts.SetSkip(int64(query.Offset))
	}
	cursor, err := m.recipes.Find(ctx, filter, opts)
	if err != nil {
		return nil, translateError(err)
	}
	var rows []recipeDB
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translateError(err)
	}

	recipes := make([]model.Recipe, 0, len(rows))
	for i := range rows {
		recipe, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return &ports.ListRecipesResult{Recipes: recipes, Total: total}, nil
}

func recipeFilter(f model.RecipeFilter) bson.M {
	filter := bson.M{"status": string(f.Status)}
	if f.Authors.Restricted() {
		filter["author_id"] = bson.M{"$in": uuidStrings(f.Authors.IDs())}
	}
	if f.Created != nil {
		filter["created_at"] = bson.M{"$gte": f.Created.From, "$lt": f.Created.To}
	}
	if kw := f.NormalizedKeyword(); kw != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(kw), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"summary": pattern},
			bson.M{"ingredients": pattern},
			bson.M{"steps": pattern},
		}
	}
	return filter
}

func versionFilter(recipe *model.Recipe) bson.D {
	return bson.D{{Key: "_id", Value: recipe.ID.String()}, {Key: "version", Value: recipe.Version}}
}

// Follow inserts the follower -> followee edge.
func (m *MongoDB) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return model.ErrSelfFollow
	}
	if err := m.requireChefs(ctx, followerID, followeeID); err != nil {
		return err
	}
	_, err := m.follows.InsertOne(ctx, followDB{
		ID:         edgeID(followerID, followeeID),
		FollowerID: followerID.String(),
		FolloweeID: followeeID.String(),
		CreatedAt:  m.nowFunc(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return model.ErrAlreadyFollowing
	}
	return translateError(err)
}

// Unfollow removes the follower -> followee edge.
func (m *MongoDB) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if err := m.requireChefs(ctx, followerID, followeeID); err != nil {
		return err
	}
	res, err := m.follows.DeleteOne(ctx, bson.D{{Key: "_id", Value: edgeID(followerID, followeeID)}})
	if err != nil {
		return translateError(err)
	}
	if res.DeletedCount == 0 {
		return model.ErrNotFollowing
	}
	return nil
}

// ListFollowing returns the chefs followed by chefID ordered by handle.
func (m *MongoDB) ListFollowing(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	ids, err := m.FollowingIDs(ctx, chefID)
	if err != nil {
		return nil, err
	}
	return m.chefsByID(ctx, ids)
}

// ListFollowers returns the chefs following chefID ordered by handle.
func (m *MongoDB) ListFollowers(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	ids, err := m.FollowerIDs(ctx, chefID)
	if err != nil {
		return nil, err
	}
	return m.chefsByID(ctx, ids)
}

// FollowingIDs returns the ids of the chefs followed by chefID.
func (m *MongoDB) FollowingIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error) {
	return m.edgeIDs(ctx, "follower_id", chefID, func(f followDB) string { return f.FolloweeID })
}

// FollowerIDs returns the ids of the chefs following chefID.
func (m *MongoDB) FollowerIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error) {
	return m.edgeIDs(ctx, "followee_id", chefID, func(f followDB) string { return f.FollowerID })
}

func (m *MongoDB) edgeIDs(ctx context.Context, field string, chefID uuid.UUID, other func(followDB) string) ([]uuid.UUID, error) {
	cursor, err := m.follows.Find(ctx, bson.D{{Key: field, Value: chefID.String()}})
	if err != nil {
		return nil, translateError(err)
	}
	var rows []followDB
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translateError(err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(other(row))
		if err != nil {
			return nil, fmt.Errorf("error parsing follow edge [%s]: %w", row.ID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MongoDB) chefsByID(ctx context.Context, ids []uuid.UUID) ([]model.Chef, error) {
	if len(ids) == 0 {
		return []model.Chef{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "handle", Value: 1}})
	cursor, err := m.chefs.Find(ctx, bson.M{"_id": bson.M{"$in": uuidStrings(ids)}}, opts)
	if err != nil {
		return nil, translateError(err)
	}
	var rows []chefDB
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translateError(err)
	}
	chefs := make([]model.Chef, 0, len(rows))
	for i := range rows {
		chef, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		chefs = append(chefs, chef)
	}
	return chefs, nil
}

func (m *MongoDB) requireChefs(ctx context.Context, ids ...uuid.UUID) error {
	count, err := m.chefs.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": uuidStrings(ids)}})
	if err != nil {
		return translateError(err)
	}
	if int(count) != len(ids) {
		return fmt.Errorf("%w: chef does not exist", model.ErrNotFound)
	}
	return nil
}

// translateError maps driver errors onto the model sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", model.ErrConflict, err)
	}
	return model.Infrastructure(err)
}

func edgeID(followerID, followeeID uuid.UUID) string {
	return followerID.String() + ":" + followeeID.String()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func toChefDB(chef *model.Chef) *chefDB {
	return &chefDB{
		ID:        chef.ID.String(),
		Handle:    chef.Handle,
		Email:     chef.Email,
		Name:      chef.Name,
		Verified:  chef.Verified,
		CreatedAt: chef.CreatedAt,
		UpdatedAt: chef.UpdatedAt,
	}
}

func (c *chefDB) toModel() (model.Chef, error) {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return model.Chef{}, fmt.Errorf("error parsing chef id [%s]: %w", c.ID, err)
	}
	return model.Chef{
		ID:        id,
		Handle:    c.Handle,
		Email:     c.Email,
		Name:      c.Name,
		Verified:  c.Verified,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}, nil
}

func toRecipeDB(recipe *model.Recipe) *recipeDB {
	row := &recipeDB{
		ID:          recipe.ID.String(),
		Title:       recipe.Title,
		Summary:     recipe.Summary,
		Ingredients: nonNil(recipe.Ingredients),
		Steps:       nonNil(recipe.Steps),
		Labels:      nonNil(recipe.Labels),
		ImageURLs:   nonNil(recipe.ImageURLs),
		Status:      string(recipe.Status),
		AuthorID:    recipe.AuthorID.String(),
		Version:     recipe.Version,
		CreatedAt:   recipe.CreatedAt,
		UpdatedAt:   recipe.UpdatedAt,
	}
	if !recipe.PublishedAt.IsZero() {
		publishedAt := recipe.PublishedAt
		row.PublishedAt = &publishedAt
	}
	return row
}

func (r *recipeDB) toModel() (model.Recipe, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.Recipe{}, fmt.Errorf("error parsing recipe id [%s]: %w", r.ID, err)
	}
	authorID, err := uuid.Parse(r.AuthorID)
	if err != nil {
		return model.Recipe{}, fmt.Errorf("error parsing author id of recipe [%s]: %w", r.ID, err)
	}
	recipe := model.Recipe{
		ID:          id,
		Title:       r.Title,
		Summary:     r.Summary,
		Ingredients: nonNil(r.Ingredients),
		Steps:       nonNil(r.Steps),
		Labels:      nonNil(r.Labels),
		ImageURLs:   nonNil(r.ImageURLs),
		Status:      model.RecipeStatus(r.Status),
		AuthorID:    authorID,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.PublishedAt != nil {
		recipe.PublishedAt = r.PublishedAt.UTC()
	}
	return recipe, nil
}

type chefDB struct {
	// ID is the chef uuid in its canonical text form.
	ID string `bson:"_id"`

	// Handle is the unique public handle.
	Handle string `bson:"handle"`

	// Email is the unique email.
	Email string `bson:"email"`

	// Name is the display name.
	Name string `bson:"name"`

	// Verified tells whether the identity was verified.
	Verified bool `bson:"verified"`

	// CreatedAt is the time at which the chef was created in the system.
	CreatedAt time.Time `bson:"created_at"`

	// UpdatedAt is the time at which the chef was last updated
	UpdatedAt time.Time `bson:"updated_at"`
}

type recipeDB struct {
	// ID is the recipe uuid in its canonical text form.
	ID string `bson:"_id"`

	Title       string   `bson:"title"`
	Summary     string   `bson:"summary"`
	Ingredients []string `bson:"ingredients"`
	Steps       []string `bson:"steps"`
	Labels      []string `bson:"labels"`
	ImageURLs   []string `bson:"image_urls"`
	Status      string   `bson:"status"`

	// PublishedAt is absent while the recipe is a draft.
	PublishedAt *time.Time `bson:"published_at,omitempty"`

	AuthorID string `bson:"author_id"`

	// Version guards concurrent writes.
	Version int64 `bson:"version"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type followDB struct {
	// ID is "<follower>:<followee>" so that an edge exists at most once.
	ID         string    `bson:"_id"`
	FollowerID string    `bson:"follower_id"`
	FolloweeID string    `bson:"followee_id"`
	CreatedAt  time.Time `bson:"created_at"`
}
