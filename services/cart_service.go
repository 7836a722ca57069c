package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/repository"
)

// CartService defines the interface for a user's cart.
type CartService interface {
	ListItems(ctx context.Context, principal models.Principal, email string) ([]models.CartItem, *ServiceError)
	AddItem(ctx context.Context, principal models.Principal, item *models.CartItem) (string, *ServiceError)
	RemoveItem(ctx context.Context, principal models.Principal, id string) (*models.DeleteResult, *ServiceError)
}

type cartServiceImpl struct {
	carts   repository.CartRepository
	classes repository.ClassRepository
	logger  *zap.Logger
}

func NewCartService(carts repository.CartRepository, classes repository.ClassRepository, logger *zap.Logger) CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cartServiceImpl{carts: carts, classes: classes, logger: logger}
}

// ListItems returns the cart of email. An empty email yields an empty cart.
func (s *cartServiceImpl) ListItems(ctx context.Context, principal models.Principal, email string) ([]models.CartItem, *ServiceError) {
	if strings.TrimSpace(email) == "" {
		return []models.CartItem{}, nil
	}
	if !principal.Owns(email) {
		return nil, forbiddenError("forbidden access")
	}
	items, err := s.carts.FindByEmail(ctx, email)
	if err != nil {
		s.logger.Error("Failed to load cart", zap.String("email", email), zap.Error(err))
		return nil, storeError("Failed to load cart", err)
	}
	return items, nil
}

// AddItem puts a class in the principal's cart, filling display fields from the class.
func (s *cartServiceImpl) AddItem(ctx context.Context, principal models.Principal, item *models.CartItem) (string, *ServiceError) {
	class, err := s.classes.FindByID(ctx, item.ClassID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", notFoundError("Class not found")
		}
		return "", mapStoreError("Failed to add item", err)
	}

	item.ID = primitive.NilObjectID
	item.Email = principal.Email
	if item.Name == "" {
		item.Name = class.Name
	}
	if item.Image == "" {
		item.Image = class.Image
	}
	if item.Price == 0 {
		item.Price = class.Price
	}
	if item.InstructorName == "" {
		item.InstructorName = class.InstructorName
	}
	if item.InstructorEmail == "" {
		item.InstructorEmail = class.InstructorEmail
	}

	id, err := s.carts.Insert(ctx, item)
	if err != nil {
		s.logger.Error("Failed to add cart item", zap.String("email", principal.Email), zap.Error(err))
		return "", storeError("Failed to add item", err)
	}
	return id, nil
}

// RemoveItem deletes one of the principal's items. A missing item deletes nothing.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, principal models.Principal, id string) (*models.DeleteResult, *ServiceError) {
	item, err := s.carts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.DeleteResult{}, nil
	}
	if err != nil {
		return nil, mapStoreError("Failed to remove item", err)
	}
	if !principal.Owns(item.Email) && !principal.IsAdmin() {
		return nil, forbiddenError("forbidden access")
	}

	n, err := s.carts.DeleteByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("Failed to remove item", err)
	}
	return &models.DeleteResult{DeletedCount: n}, nil
}
