package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// ContextKeyClaims is the gin context key for extracted claims.
const ContextKeyClaims = "claims"

// Claims are the caller identity forwarded by the gateway in headers.
type Claims struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the caller has role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ExtractClaims reads the subject header and the comma-separated roles header.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	claims := &Claims{Subject: strings.TrimSpace(c.GetHeader(cfg.SubjectHeader))}

	if roles := c.GetHeader(cfg.RolesHeader); roles != "" {
		claims.Roles = parseCommaSeparated(roles)
	}

	return claims
}

// GetClaims returns the claims stored by RequireAuth, or nil.
func GetClaims(c *gin.Context) *Claims {
	if v, ok := c.Get(ContextKeyClaims); ok {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}

	return nil
}

// RequireAuth rejects requests without a subject with 401.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ExtractClaims(c, cfg)
		if claims.Subject == "" {
			dto.AbortWithCode(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireRole rejects callers without role with 403.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			claims = ExtractClaims(c, cfg)
			c.Set(ContextKeyClaims, claims)
		}

		if !claims.HasRole(role) {
			dto.AbortWithCode(c, dto.ErrorCodeForbidden, "insufficient permissions: role "+role+" required")
			return
		}

		c.Next()
	}
}

// RequireEditor guards routes that replace or pull in quotes in bulk.
// It returns no handlers when auth is disabled.
func RequireEditor(cfg *config.AuthConfig) []gin.HandlerFunc {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	return []gin.HandlerFunc{RequireAuth(cfg), RequireRole(cfg, cfg.EditorRole)}
}

func parseCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")

	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
