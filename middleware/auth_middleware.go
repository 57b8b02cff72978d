// middleware/auth_middleware.go
package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/punguzo/mlm_backend/models"
)

// MemberLookup is the slice of the member directory the auth checks need.
type MemberLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
}

// RequireActiveMember rejects tokens whose member was deleted or blocked after issue.
func RequireActiveMember(members MemberLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := MemberIDFromContext(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication failed: member not found in token",
				})
			}

			member, err := members.FindByID(c.Request().Context(), id)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Member account not found",
				})
			}
			if member.AccountStatus == models.AccountBlocked {
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Message: "Member account is blocked",
				})
			}
			return next(c)
		}
	}
}
