package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-gateway/internal/domain"
	apperrors "github.com/spec-kit/crm-gateway/pkg/util"
)

var (
	adminRoles     = []domain.Role{domain.RoleAdmin}
	managerRoles   = []domain.Role{domain.RoleAdmin, domain.RoleManager}
	salesTeamRoles = []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleSalesperson}
)

// RequireRoles ensures the authenticated principal holds one of the allowed
// roles. It must be mounted after AuthMiddleware.Handle. Labels are compared
// verbatim, so a principal with a label outside the known set only passes a
// guard that lists that exact label. An empty label never matches.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	required := make([]string, 0, len(allowed))
	for _, role := range allowed {
		if role == "" {
			continue
		}
		if _, dup := allowedSet[role]; dup {
			continue
		}
		allowedSet[role] = struct{}{}
		required = append(required, role.String())
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("", "Authentication required")
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden(apperrors.ReasonRoleNotAllowed, "Insufficient permissions", map[string]any{
				"required_roles": required,
				"user_role":      identity.Role.String(),
			})
		}
		return c.Next()
	}
}

// AdminOnly allows admins.
func AdminOnly() fiber.Handler {
	return RequireRoles(adminRoles...)
}

// ManagerOrAdmin allows managers and admins.
func ManagerOrAdmin() fiber.Handler {
	return RequireRoles(managerRoles...)
}

// SalesTeam allows salespeople, managers and admins.
func SalesTeam() fiber.Handler {
	return RequireRoles(salesTeamRoles...)
}
