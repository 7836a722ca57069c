package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID       primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Email    string             `json:"email" bson:"email" binding:"required,email"`
	PhotoURL string             `json:"photoURL,omitempty" bson:"photoURL,omitempty"`
	Role     Role               `json:"role,omitempty" bson:"role,omitempty"`
}

// EffectiveRole treats a missing role as student.
func (u *User) EffectiveRole() Role {
	if u == nil || u.Role == "" {
		return RoleStudent
	}
	return u.Role
}

// Principal is the authenticated caller resolved by the auth middleware.
type Principal struct {
	Email string
	Role  Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owns reports whether email refers to the principal. Emails compare case-insensitively.
func (p Principal) Owns(email string) bool {
	return strings.EqualFold(strings.TrimSpace(email), p.Email)
}
