package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hassan-nahid/school-of-music-server/models"
	"github.com/hassan-nahid/school-of-music-server/services"
)

// UserController handles HTTP requests for accounts and roles.
type UserController struct {
	users services.UserService
}

func NewUserController(users services.UserService) *UserController {
	return &UserController{users: users}
}

// ListUsers handles GET /users (admin only).
func (uc *UserController) ListUsers(ctx *gin.Context) {
	users, svcErr := uc.users.ListUsers(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, users)
}

// ListInstructors handles GET /instructor.
func (uc *UserController) ListInstructors(ctx *gin.Context) {
	users, svcErr := uc.users.ListInstructors(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, users)
}

// IsAdmin handles GET /users/admin/:email.
func (uc *UserController) IsAdmin(ctx *gin.Context) {
	uc.hasRole(ctx, models.RoleAdmin, "admin")
}

// IsInstructor handles GET /users/instructor/:email.
func (uc *UserController) IsInstructor(ctx *gin.Context) {
	uc.hasRole(ctx, models.RoleInstructor, "instructor")
}

func (uc *UserController) hasRole(ctx *gin.Context, role models.Role, field string) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	has, svcErr := uc.users.HasRole(ctx.Request.Context(), p, ctx.Param("email"), role)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{field: has})
}

// CreateUser handles POST /users. An existing email is not an error.
func (uc *UserController) CreateUser(ctx *gin.Context) {
	var user models.User
	if err := ctx.ShouldBindJSON(&user); err != nil {
		badRequest(ctx, err)
		return
	}

	id, existed, svcErr := uc.users.CreateUser(ctx.Request.Context(), &user)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	if existed {
		ctx.JSON(http.StatusOK, gin.H{"message": "user already exists"})
		return
	}
	ctx.JSON(http.StatusOK, models.InsertResult{InsertedID: id})
}

// MakeAdmin handles PATCH /users/admin/:id (admin only).
func (uc *UserController) MakeAdmin(ctx *gin.Context) {
	uc.setRole(ctx, models.RoleAdmin)
}

// MakeInstructor handles PATCH /users/instructor/:id (admin only).
func (uc *UserController) MakeInstructor(ctx *gin.Context) {
	uc.setRole(ctx, models.RoleInstructor)
}

func (uc *UserController) setRole(ctx *gin.Context, role models.Role) {
	res, svcErr := uc.users.SetRole(ctx.Request.Context(), ctx.Param("id"), role)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// DeleteUser handles DELETE /users/:id (admin only).
func (uc *UserController) DeleteUser(ctx *gin.Context) {
	res, svcErr := uc.users.DeleteUser(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
