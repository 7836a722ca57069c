package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hassan-nahid/school-of-music-server/models"
)

type memReviewRepo struct {
	reviews []models.Review
}

func (r *memReviewRepo) FindAll(context.Context) ([]models.Review, error) {
	return r.reviews, nil
}

var instructor = models.Principal{Email: "instructor@music.io", Role: models.RoleInstructor}

func TestClassService_SubmitClass(t *testing.T) {
	repo := newMemClassRepo()
	svc := NewClassService(repo, &memReviewRepo{}, nil)

	in := &models.Class{
		Name:            "Guitar basics",
		AvailableSeats:  12,
		Enrolled:        7,
		Price:           99,
		Status:          models.ClassApproved,
		InstructorEmail: "someone@music.io",
	}
	id, svcErr := svc.SubmitClass(context.Background(), instructor, in)
	require.Nil(t, svcErr)

	stored := repo.get(id)
	assert.Equal(t, models.ClassPending, stored.Status)
	assert.Equal(t, 0, stored.Enrolled)
	assert.Equal(t, 12, stored.AvailableSeats)
	assert.Equal(t, instructor.Email, stored.InstructorEmail)
}

func TestClassService_SubmitClass_AdminMayNameInstructor(t *testing.T) {
	repo := newMemClassRepo()
	svc := NewClassService(repo, &memReviewRepo{}, nil)
	admin := models.Principal{Email: "admin@music.io", Role: models.RoleAdmin}

	id, svcErr := svc.SubmitClass(context.Background(), admin, &models.Class{Name: "Piano", InstructorEmail: instructor.Email})
	require.Nil(t, svcErr)
	assert.Equal(t, instructor.Email, repo.get(id).InstructorEmail)
}

func TestClassService_SubmitClass_Validation(t *testing.T) {
	svc := NewClassService(newMemClassRepo(), &memReviewRepo{}, nil)

	for _, c := range []*models.Class{
		{Name: " "},
		{Name: "Drums", AvailableSeats: -1},
		{Name: "Drums", Price: -10},
	} {
		_, svcErr := svc.SubmitClass(context.Background(), instructor, c)
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	}
}

func TestClassService_Listings(t *testing.T) {
	approved := models.Class{ID: primitive.NewObjectID(), Name: "a", Status: models.ClassApproved, InstructorEmail: instructor.Email}
	pending := models.Class{ID: primitive.NewObjectID(), Name: "b", Status: models.ClassPending, InstructorEmail: instructor.Email}
	other := models.Class{ID: primitive.NewObjectID(), Name: "c", Status: models.ClassApproved, InstructorEmail: "x@music.io"}
	svc := NewClassService(newMemClassRepo(approved, pending, other), &memReviewRepo{}, nil)
	ctx := context.Background()

	all, _ := svc.ListClasses(ctx)
	assert.Len(t, all, 3)

	live, _ := svc.ListApproved(ctx)
	assert.Len(t, live, 2)

	mine, _ := svc.ListByInstructor(ctx, instructor.Email)
	assert.Len(t, mine, 2)
}

func TestClassService_SetStatusAndFeedback(t *testing.T) {
	c := models.Class{ID: primitive.NewObjectID(), Name: "a", Status: models.ClassPending}
	repo := newMemClassRepo(c)
	svc := NewClassService(repo, &memReviewRepo{}, nil)
	ctx := context.Background()

	res, svcErr := svc.SetStatus(ctx, c.ID.Hex(), models.ClassApproved)
	require.Nil(t, svcErr)
	assert.Equal(t, int64(1), res.ModifiedCount)
	assert.Equal(t, models.ClassApproved, repo.get(c.ID.Hex()).Status)

	_, svcErr = svc.SetStatus(ctx, c.ID.Hex(), "archived")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	_, svcErr = svc.SetFeedback(ctx, c.ID.Hex(), "add a syllabus")
	require.Nil(t, svcErr)
	assert.Equal(t, "add a syllabus", repo.get(c.ID.Hex()).Feedback)

	res, svcErr = svc.SetFeedback(ctx, primitive.NewObjectID().Hex(), "x")
	require.Nil(t, svcErr)
	assert.Equal(t, int64(0), res.MatchedCount)

	_, svcErr = svc.SetFeedback(ctx, "bad", "x")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestClassService_ListReviews(t *testing.T) {
	svc := NewClassService(newMemClassRepo(), &memReviewRepo{reviews: []models.Review{{Name: "Lia", Rating: 5}}}, nil)

	reviews, svcErr := svc.ListReviews(context.Background())
	require.Nil(t, svcErr)
	assert.Len(t, reviews, 1)
}
