package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

var _ ports.Store = (*PostgresDB)(nil)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
	pgStringTooLong       = "22001"
)

// PostgresDB is a postgres adapter for persistence.
type PostgresDB struct {
	db      *pg.DB
	nowFunc func() time.Time
}

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// PostgresDBOptArgs are the optional arguments for building a PostgresDB
type PostgresDBOptArgs = func(*PostgresDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) PostgresDBOptArgs {
	return func(p *PostgresDB) {
		p.nowFunc = nowFunc
	}
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs, optArgs ...PostgresDBOptArgs) (*PostgresDB, error) {
	if args.DB == nil {
		return nil, errors.New("nil postgres handle")
	}
	p := &PostgresDB{db: args.DB, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(p)
	}
	return p, nil
}

// Connect opens a pooled connection to url and pings it.
func Connect(ctx context.Context, url string) (*pg.DB, error) {
	opts, err := pg.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing postgres url: %w", err)
	}
	db := pg.Connect(opts)
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, model.Infrastructure(fmt.Errorf("error pinging postgres: %w", err))
	}
	return db, nil
}

// SaveChef will save the chef in the database.
func (p *PostgresDB) SaveChef(ctx context.Context, chef *model.Chef) error {
	if chef == nil {
		return errors.New("nil chef passed to save method")
	}
	if chef.ID == uuid.Nil {
		chef.ID = uuid.New()
	}
	now := p.nowFunc()
	if chef.CreatedAt.IsZero() {
		chef.CreatedAt = now
	}
	chef.UpdatedAt = now

	row := toChefDB(chef)
	if _, err := p.db.ModelContext(ctx, row).Insert(); err != nil {
		return translateError(err)
	}
	return nil
}

// GetChef returns the chef or model.ErrNotFound.
func (p *PostgresDB) GetChef(ctx context.Context, id uuid.UUID) (*model.Chef, error) {
	row := new(chefDB)
	if err := p.db.ModelContext(ctx, row).Where("chef.id = ?", id).Select(); err != nil {
		return nil, translateError(err)
	}
	chef := row.toModel()
	return &chef, nil
}

// GetChefByHandle returns the chef or model.ErrNotFound.
func (p *PostgresDB) GetChefByHandle(ctx context.Context, handle string) (*model.Chef, error) {
	row := new(chefDB)
	if err := p.db.ModelContext(ctx, row).Where("chef.handle = ?", handle).Select(); err != nil {
		return nil, translateError(err)
	}
	chef := row.toModel()
	return &chef, nil
}

// SaveRecipe will save the recipe in the database at version 1.
func (p *PostgresDB) SaveRecipe(ctx context.Context, recipe *model.Recipe) error {
	if recipe == nil {
		return errors.New("nil recipe passed to save method")
	}
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	now := p.nowFunc()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now
	recipe.Version = 1

	row := toRecipeDB(recipe)
	if _, err := p.db.ModelContext(ctx, row).Insert(); err != nil {
		return translateError(err)
	}
	return nil
}

// GetRecipe returns the recipe or model.ErrNotFound.
func (p *PostgresDB) GetRecipe(ctx context.Context, id uuid.UUID) (*model.Recipe, error) {
	row := new(recipeDB)
	if err := p.db.ModelContext(ctx, row).Where("recipe.id = ?", id).Select(); err != nil {
		return nil, translateError(err)
	}
	recipe := row.toModel()
	return &recipe, nil
}

// MutateRecipe locks the recipe row, applies mutation and writes the result back in one transaction.
func (p *PostgresDB) MutateRecipe(ctx context.Context, id uuid.UUID, mutation ports.RecipeMutation) (*model.Recipe, error) {
	var result model.Recipe
	err := p.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		row := new(recipeDB)
		if err := tx.ModelContext(ctx, row).Where("recipe.id = ?", id).For("UPDATE").Select(); err != nil {
			return translateError(err)
		}
		current := row.toModel()
		next := current
		next.Ingredients = cloneStrings(current.Ingredients)
		next.Steps = cloneStrings(current.Steps)
		next.Labels = cloneStrings(current.Labels)
		next.ImageURLs = cloneStrings(current.ImageURLs)

		changed, err := mutation(&next)
		if err != nil {
			return err
		}
		if !changed {
			result = current
			return nil
		}

		next.ID = current.ID
		next.AuthorID = current.AuthorID
		next.CreatedAt = current.CreatedAt
		next.Version = current.Version + 1
		next.UpdatedAt = p.nowFunc()
		if _, err := tx.ModelContext(ctx, toRecipeDB(&next)).WherePK().Update(); err != nil {
			return translateError(err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteRecipe locks the recipe row and removes it once guard accepted it.
func (p *PostgresDB) DeleteRecipe(ctx context.Context, id uuid.UUID, guard ports.RecipeGuard) error {
	return p.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		row := new(recipeDB)
		if err := tx.ModelContext(ctx, row).Where("recipe.id = ?", id).For("UPDATE").Select(); err != nil {
			return translateError(err)
		}
		if guard != nil {
			recipe := row.toModel()
			if err := guard(&recipe); err != nil {
				return err
			}
		}
		if _, err := tx.ModelContext(ctx, row).WherePK().Delete(); err != nil {
			return translateError(err)
		}
		return nil
	})
}

// ListRecipes translates the filter into a single statement and counts the matches.
func (p *PostgresDB) ListRecipes(ctx context.Context, query ports.ListRecipesQuery) (*ports.ListRecipesResult, error) {
	var rows []recipeDB
	q := p.db.ModelContext(ctx, &rows).
		Where("recipe.status = ?", string(query.Filter.Status)).
		Order("recipe.created_at DESC", "recipe.id DESC")

	if query.Filter.Authors.Restricted() {
		q = q.WhereIn("recipe.author_id IN (?)", uuidStrings(query.Filter.Authors.IDs()))
	}
	if r := query.Filter.Created; r != nil {
		q = q.Where("recipe.created_at >= ?", r.From).Where("recipe.created_at < ?", r.To)
	}
	if kw := query.Filter.NormalizedKeyword(); kw != "" {
		pattern := likePattern(kw)
		q = q.WhereGroup(func(q *orm.Query) (*orm.Query, error) {
			q = q.WhereOr("lower(recipe.title) LIKE ?", pattern).
				WhereOr("lower(recipe.summary) LIKE ?", pattern).
				WhereOr("EXISTS (SELECT 1 FROM unnest(recipe.ingredients) AS ingredient WHERE lower(ingredient) LIKE ?)", pattern).
				WhereOr("EXISTS (SELECT 1 FROM unnest(recipe.steps) AS step WHERE lower(step) LIKE ?)", pattern)
			return q, nil
		})
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if query.Offset > 0 {
		q = q.Offset(query.Offset)
	}

	total, err := q.SelectAndCount()
	if err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, translateError(err)
	}

	recipes := make([]model.Recipe, len(rows))
	for i := range rows {
		recipes[i] = rows[i].toModel()
	}
	return &ports.ListRecipesResult{Recipes: recipes, Total: int64(total)}, nil
}

// Follow inserts the follower -> followee edge.
func (p *PostgresDB) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return model.ErrSelfFollow
	}
	return p.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		if err := requireChefs(ctx, tx, followerID, followeeID); err != nil {
			return err
		}
		res, err := tx.ModelContext(ctx, &followDB{
			FollowerID: followerID,
			FolloweeID: followeeID,
			CreatedAt:  p.nowFunc(),
		}).OnConflict("DO NOTHING").Insert()
		if err != nil {
			return translateError(err)
		}
		if res.RowsAffected() == 0 {
			return model.ErrAlreadyFollowing
		}
		return nil
	})
}

// Unfollow removes the follower -> followee edge.
func (p *PostgresDB) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return p.db.RunInTransaction(ctx, func(tx *pg.Tx) error {
		if err := requireChefs(ctx, tx, followerID, followeeID); err != nil {
			return err
		}
		res, err := tx.ModelContext(ctx, (*followDB)(nil)).
			Where("follower_id = ?", followerID).
			Where("followee_id = ?", followeeID).
			Delete()
		if err != nil {
			return translateError(err)
		}
		if res.RowsAffected() == 0 {
			return model.ErrNotFollowing
		}
		return nil
	})
}

// ListFollowing returns the chefs followed by chefID ordered by handle.
func (p *PostgresDB) ListFollowing(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	return p.listChefs(ctx, "JOIN cookbook.chef_follows AS f ON f.followee_id = chef.id", "f.follower_id = ?", chefID)
}

// ListFollowers returns the chefs following chefID ordered by handle.
func (p *PostgresDB) ListFollowers(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	return p.listChefs(ctx, "JOIN cookbook.chef_follows AS f ON f.follower_id = chef.id", "f.followee_id = ?", chefID)
}

// FollowingIDs returns the ids of the chefs followed by chefID.
func (p *PostgresDB) FollowingIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error) {
	return p.edgeIDs(ctx, "followee_id", "follower_id = ?", chefID)
}

// FollowerIDs returns the ids of the chefs following chefID.
func (p *PostgresDB) FollowerIDs(ctx context.Context, chefID uuid.UUID) ([]uuid.UUID, error) {
	return p.edgeIDs(ctx, "follower_id", "followee_id = ?", chefID)
}

func (p *PostgresDB) listChefs(ctx context.Context, join, where string, chefID uuid.UUID) ([]model.Chef, error) {
	var rows []chefDB
	err := p.db.ModelContext(ctx, &rows).
		Join(join).
		Where(where, chefID).
		Order("chef.handle ASC").
		Select()
	if err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, translateError(err)
	}
	chefs := make([]model.Chef, len(rows))
	for i := range rows {
		chefs[i] = rows[i].toModel()
	}
	return chefs, nil
}

func (p *PostgresDB) edgeIDs(ctx context.Context, column, where string, chefID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.ModelContext(ctx, (*followDB)(nil)).
		Column(column).
		Where(where, chefID).
		Order(column).
		Select(&ids)
	if err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, translateError(err)
	}
	return ids, nil
}

func requireChefs(ctx context.Context, tx *pg.Tx, ids ...uuid.UUID) error {
	count, err := tx.ModelContext(ctx, (*chefDB)(nil)).
		WhereIn("chef.id IN (?)", uuidStrings(ids)).
		Count()
	if err != nil {
		return translateError(err)
	}
	if count != len(ids) {
		return fmt.Errorf("%w: chef does not exist", model.ErrNotFound)
	}
	return nil
}

// translateError maps driver errors onto the model sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pg.ErrNoRows) {
		return model.ErrNotFound
	}
	var pgErr pg.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", model.ErrConflict, pgErr.Field('M'))
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", model.ErrNotFound, pgErr.Field('M'))
		case pgCheckViolation, pgNotNullViolation, pgStringTooLong:
			return model.Invalid("%s", pgErr.Field('M'))
		}
	}
	return model.Infrastructure(err)
}

// likePattern escapes the LIKE wildcards of a keyword and wraps it for a substring match.
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(keyword) + "%"
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
		ID:        chef.ID,
		Handle:    chef.Handle,
		Email:     chef.Email,
		Name:      chef.Name,
		Verified:  chef.Verified,
		CreatedAt: chef.CreatedAt,
		UpdatedAt: chef.UpdatedAt,
	}
}

func (c *chefDB) toModel() model.Chef {
	return model.Chef{
		ID:        c.ID,
		Handle:    c.Handle,
		Email:     c.Email,
		Name:      c.Name,
		Verified:  c.Verified,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func toRecipeDB(recipe *model.Recipe) *recipeDB {
	row := &recipeDB{
		ID:          recipe.ID,
		Title:       recipe.Title,
		Summary:     recipe.Summary,
		Ingredients: nonNil(recipe.Ingredients),
		Steps:       nonNil(recipe.Steps),
		Labels:      nonNil(recipe.Labels),
		ImageURLs:   nonNil(recipe.ImageURLs),
		Status:      string(recipe.Status),
		AuthorID:    recipe.AuthorID,
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

func (r *recipeDB) toModel() model.Recipe {
	recipe := model.Recipe{
		ID:          r.ID,
		Title:       r.Title,
		Summary:     r.Summary,
		Ingredients: nonNil(r.Ingredients),
		Steps:       nonNil(r.Steps),
		Labels:      nonNil(r.Labels),
		ImageURLs:   nonNil(r.ImageURLs),
		Status:      model.RecipeStatus(r.Status),
		AuthorID:    r.AuthorID,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.PublishedAt != nil {
		recipe.PublishedAt = r.PublishedAt.UTC()
	}
	return recipe
}

type chefDB struct {
	tableName struct{} `pg:"cookbook.chefs,alias:chef"`

	// ID unique identifier of the chef.
	ID uuid.UUID `pg:"id,pk,type:uuid"`

	// Handle is the unique public handle.
	Handle string `pg:"handle"`

	// Email is the unique email.
	Email string `pg:"email"`

	// Name is the display name.
	Name string `pg:"name,use_zero"`

	// Verified tells whether the identity was verified.
	Verified bool `pg:"verified,use_zero"`

	// CreatedAt is the time at which the chef was created in the system.
	CreatedAt time.Time `pg:"created_at"`

	// UpdatedAt is the time at which the chef was last updated
	UpdatedAt time.Time `pg:"updated_at"`
}

type recipeDB struct {
	tableName struct{} `pg:"cookbook.recipes,alias:recipe"`

	// ID unique identifier of the recipe.
	ID uuid.UUID `pg:"id,pk,type:uuid"`

	// Title is the recipe title.
	Title string `pg:"title"`

	// Summary is the optional short description, empty when absent.
	Summary string `pg:"summary,use_zero"`

	// Ingredients are stored as text[] in order.
	Ingredients []string `pg:"ingredients,array"`

	// Steps are stored as text[] in order.
	Steps []string `pg:"steps,array"`

	// Labels are stored as text[].
	Labels []string `pg:"labels,array,use_zero"`

	// ImageURLs are stored as text[].
	ImageURLs []string `pg:"image_urls,array,use_zero"`

	// Status is DRAFT or PUBLISHED.
	Status string `pg:"status"`

	// PublishedAt is null while the recipe is a draft.
	PublishedAt *time.Time `pg:"published_at"`

	// AuthorID references the owning chef.
	AuthorID uuid.UUID `pg:"author_id,type:uuid"`

	// Version is bumped by every committed mutation.
	Version int64 `pg:"version"`

	// CreatedAt is the time at which the recipe was created in the system.
	CreatedAt time.Time `pg:"created_at"`

	// UpdatedAt is the time at which the recipe was last mutated.
	UpdatedAt time.Time `pg:"updated_at"`
}

type followDB struct {
	tableName struct{} `pg:"cookbook.chef_follows,alias:follow"`

	FollowerID uuid.UUID `pg:"follower_id,pk,type:uuid"`
	FolloweeID uuid.UUID `pg:"followee_id,pk,type:uuid"`
	CreatedAt  time.Time `pg:"created_at"`
}
