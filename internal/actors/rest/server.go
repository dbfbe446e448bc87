// Package rest exposes the recipe use cases over HTTP with gin.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	log "github.com/sirupsen/logrus"
)

type recipeUsecase interface {
	CreateRecipe(ctx context.Context, args model.CreateRecipeArgs) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, args model.UpdateRecipeArgs) (*model.Recipe, error)
	PublishRecipe(ctx context.Context, args model.PublishRecipeArgs) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, args model.DeleteRecipeArgs) error
	GetRecipe(ctx context.Context, args model.GetRecipeArgs) (*model.Recipe, error)
}

type queryUsecase interface {
	PublicRecipes(ctx context.Context, args model.PublicRecipesArgs) (*model.RecipePage, error)
	AuthorRecipes(ctx context.Context, args model.AuthorRecipesArgs) (*model.RecipePage, error)
}

type feedUsecase interface {
	FollowedFeed(ctx context.Context, args model.FollowedFeedArgs) (*model.RecipePage, error)
}

type chefUsecase interface {
	RegisterChef(ctx context.Context, args model.RegisterChefArgs) (*model.Chef, error)
	GetChef(ctx context.Context, id uuid.UUID) (*model.Chef, error)
}

type socialUsecase interface {
	Follow(ctx context.Context, args model.FollowArgs) error
	Unfollow(ctx context.Context, args model.FollowArgs) error
	ListFollowing(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error)
	ListFollowers(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error)
}

// ServerArgs are the mandatory args to instantiate the Server.
type ServerArgs struct {
	// Recipes serves the recipe write path and single reads.
	Recipes recipeUsecase

	// Queries serves the recipe listings.
	Queries queryUsecase

	// Feed serves the followed feed.
	Feed feedUsecase

	// Chefs serves the chef registry.
	Chefs chefUsecase

	// Social serves the follow relationship.
	Social socialUsecase
}

// ServerOptArgs are the optional arguments for building a Server.
type ServerOptArgs = func(*Server)

// WithHealthCheck sets the probe run by /healthz.
func WithHealthCheck(check func(ctx context.Context) error) ServerOptArgs {
	return func(s *Server) {
		s.healthCheck = check
	}
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) ServerOptArgs {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a new Server and registers its routes.
func NewServer(args ServerArgs, optArgs ...ServerOptArgs) *Server {
	s := &Server{
		recipes:     args.Recipes,
		queries:     args.Queries,
		feed:        args.Feed,
		chefs:       args.Chefs,
		social:      args.Social,
		healthCheck: func(context.Context) error { return nil },
	}
	for _, opt := range optArgs {
		opt(s)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger())
	s.registerRoutes()
	return s
}

// Server implements the recipe HTTP API.
type Server struct {
	recipes     recipeUsecase
	queries     queryUsecase
	feed        feedUsecase
	chefs       chefUsecase
	social      socialUsecase
	healthCheck func(ctx context.Context) error
	metrics     http.Handler
	router      *gin.Engine
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.Healthz)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := s.router.Group("/api")
	api.GET("/public/recipes", s.PublicRecipes)
	api.GET("/followed-recipes", requirePrincipal(), s.FollowedRecipes)

	recipes := api.Group("/recipes")
	{
		recipes.GET("/mine", requirePrincipal(), s.MyRecipes)
		recipes.POST("", requirePrincipal(), s.CreateRecipe)
		recipes.GET("/:id", optionalPrincipal(), s.GetRecipe)
		recipes.PUT("/:id", requirePrincipal(), s.UpdateRecipe)
		recipes.DELETE("/:id", requirePrincipal(), s.DeleteRecipe)
		recipes.PUT("/:id/publish", requirePrincipal(), s.PublishRecipe)
	}

	chefs := api.Group("/chefs")
	{
		chefs.POST("", optionalPrincipal(), s.RegisterChef)
		chefs.GET("/following", requirePrincipal(), s.ListFollowing)
		chefs.GET("/followers", requirePrincipal(), s.ListFollowers)
		chefs.GET("/:id", s.GetChef)
		chefs.POST("/:id/follow", requirePrincipal(), s.Follow)
		chefs.DELETE("/:id/follow", requirePrincipal(), s.Unfollow)
	}
}

// Healthz is the health endpoint for the server
func (s *Server) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.healthCheck(ctx); err != nil {
		log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "Unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Ok"})
}
