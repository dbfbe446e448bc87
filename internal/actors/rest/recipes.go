package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbroggi/cookbook/internal/core/model"
)

type recipeRequest struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Labels      []string `json:"labels"`
	ImageURLs   []string `json:"image_urls"`
}

// PublicRecipes lists published recipes for anyone.
func (s *Server) PublicRecipes(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		writeError(c, "PublicRecipes", err)
		return
	}
	chefID, err := uuidQuery(c, "chef_id")
	if err != nil {
		writeError(c, "PublicRecipes", err)
		return
	}

	page, err := s.queries.PublicRecipes(c.Request.Context(), model.PublicRecipesArgs{
		Keyword:    params.keyword,
		Created:    params.created,
		ChefID:     chefID,
		ChefHandle: c.Query("chef_handle"),
		Page:       params.page,
		PageSize:   params.pageSize,
	})
	if err != nil {
		writeError(c, "PublicRecipes", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// FollowedRecipes lists the published recipes of the chefs the principal follows.
func (s *Server) FollowedRecipes(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		writeError(c, "FollowedFeed", err)
		return
	}

	page, err := s.feed.FollowedFeed(c.Request.Context(), model.FollowedFeedArgs{
		ChefID:   principal(c),
		Keyword:  params.keyword,
		Created:  params.created,
		Page:     params.page,
		PageSize: params.pageSize,
	})
	if err != nil {
		writeError(c, "FollowedFeed", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// MyRecipes lists the recipes of the principal in the requested status, drafts by default.
func (s *Server) MyRecipes(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		writeError(c, "AuthorRecipes", err)
		return
	}
	status, err := statusQuery(c)
	if err != nil {
		writeError(c, "AuthorRecipes", err)
		return
	}

	page, err := s.queries.AuthorRecipes(c.Request.Context(), model.AuthorRecipesArgs{
		PrincipalID: principal(c),
		Status:      status,
		Keyword:     params.keyword,
		Created:     params.created,
		Page:        params.page,
		PageSize:    params.pageSize,
	})
	if err != nil {
		writeError(c, "AuthorRecipes", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateRecipe creates a draft owned by the principal.
func (s *Server) CreateRecipe(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "CreateRecipe", model.Invalid("malformed body: %v", err))
		return
	}

	recipe, err := s.recipes.CreateRecipe(c.Request.Context(), model.CreateRecipeArgs{
		AuthorID:    principal(c),
		Title:       req.Title,
		Summary:     req.Summary,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		Labels:      req.Labels,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		writeError(c, "CreateRecipe", err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// GetRecipe returns a recipe. Drafts are only served to their author.
func (s *Server) GetRecipe(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "GetRecipe", err)
		return
	}

	recipe, err := s.recipes.GetRecipe(c.Request.Context(), model.GetRecipeArgs{PrincipalID: principal(c), ID: id})
	if err != nil {
		writeError(c, "GetRecipe", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// UpdateRecipe replaces the content of a recipe owned by the principal.
func (s *Server) UpdateRecipe(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "UpdateRecipe", err)
		return
	}
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "UpdateRecipe", model.Invalid("malformed body: %v", err))
		return
	}

	recipe, err := s.recipes.UpdateRecipe(c.Request.Context(), model.UpdateRecipeArgs{
		PrincipalID: principal(c),
		ID:          id,
		Title:       req.Title,
		Summary:     req.Summary,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		Labels:      req.Labels,
		ImageURLs:   req.ImageURLs,
	})
	if err != nil {
		writeError(c, "UpdateRecipe", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// PublishRecipe publishes a recipe owned by the principal.
func (s *Server) PublishRecipe(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "PublishRecipe", err)
		return
	}

	recipe, err := s.recipes.PublishRecipe(c.Request.Context(), model.PublishRecipeArgs{PrincipalID: principal(c), ID: id})
	if err != nil {
		writeError(c, "PublishRecipe", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe deletes a recipe owned by the principal.
func (s *Server) DeleteRecipe(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "DeleteRecipe", err)
		return
	}

	if err := s.recipes.DeleteRecipe(c.Request.Context(), model.DeleteRecipeArgs{PrincipalID: principal(c), ID: id}); err != nil {
		writeError(c, "DeleteRecipe", err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "recipe deleted"})
}
