package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/repository"
)

// ClassService defines the interface for class catalogue and approval workflow.
type ClassService interface {
	ListClasses(ctx context.Context) ([]models.Class, *ServiceError)
	ListApproved(ctx context.Context) ([]models.Class, *ServiceError)
	ListByInstructor(ctx context.Context, email string) ([]models.Class, *ServiceError)
	SubmitClass(ctx context.Context, principal models.Principal, class *models.Class) (string, *ServiceError)
	SetStatus(ctx context.Context, id string, status models.ClassStatus) (*models.UpdateResult, *ServiceError)
	SetFeedback(ctx context.Context, id, feedback string) (*models.UpdateResult, *ServiceError)
	ListReviews(ctx context.Context) ([]models.Review, *ServiceError)
}

type classServiceImpl struct {
	classes repository.ClassRepository
	reviews repository.ReviewRepository
	logger  *zap.Logger
}

func NewClassService(classes repository.ClassRepository, reviews repository.ReviewRepository, logger *zap.Logger) ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &classServiceImpl{classes: classes, reviews: reviews, logger: logger}
}

func (s *classServiceImpl) ListClasses(ctx context.Context) ([]models.Class, *ServiceError) {
	classes, err := s.classes.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list classes", zap.Error(err))
		return nil, storeError("Failed to list classes", err)
	}
	return classes, nil
}

func (s *classServiceImpl) ListApproved(ctx context.Context) ([]models.Class, *ServiceError) {
	classes, err := s.classes.FindByStatus(ctx, models.ClassApproved)
	if err != nil {
		s.logger.Error("Failed to list approved classes", zap.Error(err))
		return nil, storeError("Failed to list classes", err)
	}
	return classes, nil
}

func (s *classServiceImpl) ListByInstructor(ctx context.Context, email string) ([]models.Class, *ServiceError) {
	classes, err := s.classes.FindByInstructor(ctx, email)
	if err != nil {
		s.logger.Error("Failed to list instructor classes", zap.String("instructor", email), zap.Error(err))
		return nil, storeError("Internal server error", err)
	}
	return classes, nil
}

// SubmitClass stores a new class as pending with no enrollments. Instructors always submit under their own email.
func (s *classServiceImpl) SubmitClass(ctx context.Context, principal models.Principal, class *models.Class) (string, *ServiceError) {
	class.Name = strings.TrimSpace(class.Name)
	if class.Name == "" {
		return "", validationError("name is required", nil)
	}
	if class.AvailableSeats < 0 {
		return "", validationError("availableSeats must not be negative", nil)
	}
	if class.Price < 0 {
		return "", validationError("price must not be negative", nil)
	}

	class.ID = primitive.NilObjectID
	class.Status = models.ClassPending
	class.Enrolled = 0
	class.Feedback = ""
	if !principal.IsAdmin() || class.InstructorEmail == "" {
		class.InstructorEmail = principal.Email
	}

	id, err := s.classes.Insert(ctx, class)
	if err != nil {
		s.logger.Error("Failed to submit class", zap.String("instructor", class.InstructorEmail), zap.Error(err))
		return "", storeError("Failed to submit class", err)
	}
	s.logger.Info("Class submitted", zap.String("class_id", id), zap.String("instructor", class.InstructorEmail))
	return id, nil
}

func (s *classServiceImpl) SetStatus(ctx context.Context, id string, status models.ClassStatus) (*models.UpdateResult, *ServiceError) {
	switch status {
	case models.ClassApproved, models.ClassDenied, models.ClassPending:
	default:
		return nil, validationError("unknown class status", nil)
	}
	res, err := s.classes.UpdateFields(ctx, id, map[string]interface{}{"status": string(status)})
	if err != nil {
		return nil, mapStoreError("Failed to update class", err)
	}
	s.logger.Info("Class status changed", zap.String("class_id", id), zap.String("status", string(status)))
	return res, nil
}

func (s *classServiceImpl) SetFeedback(ctx context.Context, id, feedback string) (*models.UpdateResult, *ServiceError) {
	res, err := s.classes.UpdateFields(ctx, id, map[string]interface{}{"feedback": feedback})
	if err != nil {
		return nil, mapStoreError("Failed to update class", err)
	}
	return res, nil
}

func (s *classServiceImpl) ListReviews(ctx context.Context) ([]models.Review, *ServiceError) {
	reviews, err := s.reviews.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list reviews", zap.Error(err))
		return nil, storeError("Failed to list reviews", err)
	}
	return reviews, nil
}
