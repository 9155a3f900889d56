package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole represents the available roles for route capabilities.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// NormalizeEmail returns the canonical form of an email address. Every
// stored email and every owner comparison uses it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is a document in the users collection. Email is the unique key.
type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email string             `bson:"email" json:"email"`
	Name  string             `bson:"name,omitempty" json:"name,omitempty"`
	Photo string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role  UserRole           `bson:"role" json:"role"`
}

// SetUserRequest is the sign-in payload that registers a user on first visit.
type SetUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=120"`
	Photo string `json:"photo" validate:"omitempty,url"`
}

// UpdateRoleRequest changes a user's role.
type UpdateRoleRequest struct {
	Role UserRole `json:"role" validate:"required,oneof=student instructor admin"`
}

// RoleResponse answers a role lookup.
type RoleResponse struct {
	Role UserRole `json:"role"`
}

// SetUserResult reports whether a sign-in created a new user.
type SetUserResult struct {
	Created    bool   `json:"created"`
	UpsertedID string `json:"upsertedId,omitempty"`
}
