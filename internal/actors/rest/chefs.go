package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbroggi/cookbook/internal/core/model"
)

type registerChefRequest struct {
	Handle string `json:"handle"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// RegisterChef records a chef. The principal, when present, becomes the chef id.
func (s *Server) RegisterChef(c *gin.Context) {
	var req registerChefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, "RegisterChef", model.Invalid("malformed body: %v", err))
		return
	}

	chef, err := s.chefs.RegisterChef(c.Request.Context(), model.RegisterChefArgs{
		ID:     principal(c),
		Handle: req.Handle,
		Email:  req.Email,
		Name:   req.Name,
	})
	if err != nil {
		writeError(c, "RegisterChef", err)
		return
	}
	c.JSON(http.StatusCreated, chef)
}

// GetChef returns a chef.
func (s *Server) GetChef(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "GetChef", err)
		return
	}
	chef, err := s.chefs.GetChef(c.Request.Context(), id)
	if err != nil {
		writeError(c, "GetChef", err)
		return
	}
	c.JSON(http.StatusOK, chef)
}

// Follow makes the principal follow the chef in the path.
func (s *Server) Follow(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "Follow", err)
		return
	}
	if err := s.social.Follow(c.Request.Context(), model.FollowArgs{FollowerID: principal(c), FolloweeID: id}); err != nil {
		writeError(c, "Follow", err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "chef followed"})
}

// Unfollow makes the principal stop following the chef in the path.
func (s *Server) Unfollow(c *gin.Context) {
	id, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, "Unfollow", err)
		return
	}
	if err := s.social.Unfollow(c.Request.Context(), model.FollowArgs{FollowerID: principal(c), FolloweeID: id}); err != nil {
		writeError(c, "Unfollow", err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "chef unfollowed"})
}

// ListFollowing returns the chefs the principal follows.
func (s *Server) ListFollowing(c *gin.Context) {
	chefs, err := s.social.ListFollowing(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, "ListFollowing", err)
		return
	}
	if chefs == nil {
		chefs = []model.Chef{}
	}
	c.JSON(http.StatusOK, chefs)
}

// ListFollowers returns the chefs following the principal.
func (s *Server) ListFollowers(c *gin.Context) {
	chefs, err := s.social.ListFollowers(c.Request.Context(), principal(c))
	if err != nil {
		writeError(c, "ListFollowers", err)
		return
	}
	if chefs == nil {
		chefs = []model.Chef{}
	}
	c.JSON(http.StatusOK, chefs)
}
