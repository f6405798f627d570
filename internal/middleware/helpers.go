// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetPrincipalID gets the principal ID from context
func GetPrincipalID(c *gin.Context) (string, bool) {
	v, exists := c.Get("principal_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// MustGetPrincipalID gets the principal ID from context or panics
func MustGetPrincipalID(c *gin.Context) string {
	id, exists := GetPrincipalID(c)
	if !exists {
		panic("principal_id not found in context")
	}
	return id
}

// GetRoles gets the principal's roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get("roles")
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}
	return rolesList
}

// HasRole checks if the authenticated principal carries a role
func HasRole(c *gin.Context, role string) bool {
	for _, r := range GetRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("principal_id")
	return exists
}
