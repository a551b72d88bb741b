package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfeed/backend/internal/models"
)

// FollowService handles author subscriptions.
type FollowService struct {
	db *gorm.DB
}

// NewFollowService creates a new FollowService instance.
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// Subscription is a followed author together with their recipe count and a
// capped list of their recipes.
type Subscription struct {
	User         models.User
	Recipes      []models.Recipe
	RecipesCount int64
}

// Follow subscribes userID to authorID. Self-follows and duplicates are
// validation failures; the unique pair index backstops concurrent requests.
func (s *FollowService) Follow(ctx context.Context, userID, authorID uuid.UUID) (*Subscription, error) {
	if userID == authorID {
		return nil, invalidf("you cannot follow yourself")
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, invalidf("you are already following this user")
	}

	follow := models.Follow{FollowerID: userID, FollowedID: authorID}
	if err := s.db.WithContext(ctx).Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalidf("you are already following this user")
		}
		return nil, err
	}

	return s.subscriptionFor(ctx, author, 0)
}

// Unfollow removes the subscription; removing one that does not exist is a
// validation failure.
func (s *FollowService) Unfollow(ctx context.Context, userID, authorID uuid.UUID) error {
	var author models.User
	if err := s.db.WithContext(ctx).First(&author, "id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	result := s.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return invalidf("you are not following this user")
	}
	return nil
}

// IsFollowing reports whether userID follows authorID.
func (s *FollowService) IsFollowing(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}

// Subscriptions lists the authors userID follows, oldest subscription first.
// recipesLimit caps the recipe list per author; zero means no cap.
func (s *FollowService) Subscriptions(ctx context.Context, userID uuid.UUID, recipesLimit int) ([]Subscription, error) {
	var authors []models.User
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at").
		Find(&authors).Error
	if err != nil {
		return nil, err
	}

	subscriptions := make([]Subscription, 0, len(authors))
	for _, author := range authors {
		sub, err := s.subscriptionFor(ctx, author, recipesLimit)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, *sub)
	}
	return subscriptions, nil
}

func (s *FollowService) subscriptionFor(ctx context.Context, author models.User, recipesLimit int) (*Subscription, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", author.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Where("author_id = ?", author.ID).
		Order("created_at DESC")
	if recipesLimit > 0 {
		query = query.Limit(recipesLimit)
	}
	var recipes []models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, err
	}

	return &Subscription{
		User:         author,
		Recipes:      recipes,
		RecipesCount: count,
	}, nil
}
