package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justmusic/justmusic-api/internal/models"
	appErrors "github.com/justmusic/justmusic-api/pkg/errors"
	"github.com/justmusic/justmusic-api/pkg/response"
)

// ContextRoleKey is the gin context key storing the caller's stored role.
const ContextRoleKey = "currentRole"

type bindingSource int

const (
	bindNone bindingSource = iota
	bindQuery
	bindParam
)

// Access is the capability a route requires.
type Access struct {
	public  bool
	roles   []models.UserRole
	source  bindingSource
	binding string
}

// Public routes need no token.
func Public() Access {
	return Access{public: true}
}

// Authenticated routes need a valid token and nothing else.
func Authenticated() Access {
	return Access{}
}

// Roles routes need a token whose user holds one of roles.
func Roles(roles ...models.UserRole) Access {
	return Access{roles: roles}
}

// SelfQuery additionally requires the named query value to equal the token
// email. Admins are exempt.
func (a Access) SelfQuery(name string) Access {
	a.source = bindQuery
	a.binding = name
	return a
}

// SelfParam is SelfQuery for a path parameter.
func (a Access) SelfParam(name string) Access {
	a.source = bindParam
	a.binding = name
	return a
}

// IsPublic reports whether the route skips the identity gate.
func (a Access) IsPublic() bool {
	return a.public
}

// AllowedRoles lists the roles a route accepts; empty means any user.
func (a Access) AllowedRoles() []models.UserRole {
	return a.roles
}

// String renders the policy for route listings.
func (a Access) String() string {
	if a.public {
		return "public"
	}
	parts := []string{"authenticated"}
	if len(a.roles) > 0 {
		names := make([]string, len(a.roles))
		for i, role := range a.roles {
			names[i] = string(role)
		}
		parts = []string{strings.Join(names, "|")}
	}
	switch a.source {
	case bindQuery:
		parts = append(parts, "self(query:"+a.binding+")")
	case bindParam:
		parts = append(parts, "self(param:"+a.binding+")")
	}
	return strings.Join(parts, " ")
}

func (a Access) needsRole() bool {
	return len(a.roles) > 0 || a.source != bindNone
}

// RoleResolver looks up the stored role for an email.
type RoleResolver interface {
	CheckRole(ctx context.Context, email string) (*models.RoleResponse, error)
}

// Authorize enforces access after JWT has run. The caller's role is read from
// the user store on every request so role changes apply immediately.
func Authorize(access Access, resolver RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if access.public {
			c.Next()
			return
		}

		claims := Claims(c)
		if claims == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if !access.needsRole() {
			c.Next()
			return
		}

		resolved, err := resolver.CheckRole(c.Request.Context(), claims.Email)
		if err != nil {
			if errors.Is(err, appErrors.ErrNotFound) {
				response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "user is not registered"))
				return
			}
			response.Abort(c, err)
			return
		}
		role := resolved.Role
		c.Set(ContextRoleKey, role)

		if len(access.roles) > 0 && !hasRole(access.roles, role) {
			response.Abort(c, appErrors.ErrForbidden)
			return
		}

		if access.source != bindNone && role != models.RoleAdmin {
			var value string
			if access.source == bindQuery {
				value = c.Query(access.binding)
			} else {
				value = c.Param(access.binding)
			}
			if strings.TrimSpace(value) == "" {
				response.Abort(c, appErrors.Clone(appErrors.ErrValidation, access.binding+" is required"))
				return
			}
			if models.NormalizeEmail(value) != models.NormalizeEmail(claims.Email) {
				response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "forbidden access to another user's data"))
				return
			}
		}

		c.Next()
	}
}

// Role returns the role resolved by Authorize, if any.
func Role(c *gin.Context) (models.UserRole, bool) {
	value, exists := c.Get(ContextRoleKey)
	if !exists {
		return "", false
	}
	role, ok := value.(models.UserRole)
	return role, ok
}

func hasRole(allowed []models.UserRole, role models.UserRole) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
