package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rbroggi/cookbook/internal/core/model"
	"github.com/rbroggi/cookbook/internal/core/ports"
)

// ChefServiceArgs contains the mandatory arguments for the ChefService.
type ChefServiceArgs struct {
	// Chefs is the repository for chef persistence operations.
	Chefs ports.ChefRepository
}

// NewChefService creates a new ChefService.
func NewChefService(args ChefServiceArgs) *ChefService {
	return &ChefService{chefs: args.Chefs}
}

// ChefService gathers the chef registry operations.
type ChefService struct {
	chefs ports.ChefRepository
}

// RegisterChef records a chef known to the identity provider.
func (s *ChefService) RegisterChef(ctx context.Context, args model.RegisterChefArgs) (*model.Chef, error) {
	args.Handle = strings.TrimSpace(args.Handle)
	args.Email = strings.ToLower(strings.TrimSpace(args.Email))
	args.Name = strings.TrimSpace(args.Name)
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if strings.ContainsAny(args.Handle, " \t\r\n") {
		return nil, model.Invalid("handle must not contain whitespace")
	}

	chef := &model.Chef{
		ID:     args.ID,
		Handle: args.Handle,
		Email:  args.Email,
		Name:   args.Name,
	}
	if err := s.chefs.SaveChef(ctx, chef); err != nil {
		return nil, fmt.Errorf("error saving chef in repository: %w", err)
	}
	return chef, nil
}

// GetChef returns the chef. It returns model.ErrNotFound if the id does not correspond to a chef.
func (s *ChefService) GetChef(ctx context.Context, id uuid.UUID) (*model.Chef, error) {
	chef, err := s.chefs.GetChef(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading chef [%s]: %w", id, err)
	}
	return chef, nil
}

// GetChefByHandle returns the chef owning the handle.
func (s *ChefService) GetChefByHandle(ctx context.Context, handle string) (*model.Chef, error) {
	chef, err := s.chefs.GetChefByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		return nil, fmt.Errorf("error loading chef with handle [%s]: %w", handle, err)
	}
	return chef, nil
}

// SocialServiceArgs contains the mandatory arguments for the SocialService.
type SocialServiceArgs struct {
	// Chefs is used to resolve chefs.
	Chefs ports.ChefRepository

	// Follows holds the follower -> followee edges.
	Follows ports.FollowRepository
}

// NewSocialService creates a new SocialService.
func NewSocialService(args SocialServiceArgs) *SocialService {
	return &SocialService{chefs: args.Chefs, follows: args.Follows}
}

// SocialService maintains the follow relationship between chefs.
type SocialService struct {
	chefs   ports.ChefRepository
	follows ports.FollowRepository
}

// Follow makes args.FollowerID follow args.FolloweeID.
func (s *SocialService) Follow(ctx context.Context, args model.FollowArgs) error {
	if args.FollowerID == args.FolloweeID {
		return model.ErrSelfFollow
	}
	if err := s.follows.Follow(ctx, args.FollowerID, args.FolloweeID); err != nil {
		return fmt.Errorf("error following chef [%s]: %w", args.FolloweeID, err)
	}
	return nil
}

// Unfollow removes the follow relationship from args.FollowerID to args.FolloweeID.
func (s *SocialService) Unfollow(ctx context.Context, args model.FollowArgs) error {
	if err := s.follows.Unfollow(ctx, args.FollowerID, args.FolloweeID); err != nil {
		return fmt.Errorf("error unfollowing chef [%s]: %w", args.FolloweeID, err)
	}
	return nil
}

// ListFollowing returns the chefs followed by chefID.
func (s *SocialService) ListFollowing(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	if _, err := s.chefs.GetChef(ctx, chefID); err != nil {
		return nil, fmt.Errorf("error loading chef [%s]: %w", chefID, err)
	}
	chefs, err := s.follows.ListFollowing(ctx, chefID)
	if err != nil {
		return nil, fmt.Errorf("error listing chefs followed by [%s]: %w", chefID, err)
	}
	return chefs, nil
}

// ListFollowers returns the chefs following chefID.
func (s *SocialService) ListFollowers(ctx context.Context, chefID uuid.UUID) ([]model.Chef, error) {
	if _, err := s.chefs.GetChef(ctx, chefID); err != nil {
		return nil, fmt.Errorf("error loading chef [%s]: %w", chefID, err)
	}
	chefs, err := s.follows.ListFollowers(ctx, chefID)
	if err != nil {
		return nil, fmt.Errorf("error listing followers of [%s]: %w", chefID, err)
	}
	return chefs, nil
}
