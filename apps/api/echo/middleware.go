package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// portal tells whether the claims give access to a group of endpoints.
type portal func(Claims) bool

var (
	studentPortal  portal = func(c Claims) bool { return c.IsStudent }
	lecturerPortal portal = func(c Claims) bool { return c.IsLecturer }
	chairPortal    portal = func(c Claims) bool { return c.IsChair || c.IsAdmin }
	staffPortal    portal = func(c Claims) bool { return c.IsStaff || c.IsAdmin }
	// graduation is confirmed by the faculty office or the program chair
	graduationPortal portal = func(c Claims) bool { return c.IsStaff || c.IsChair || c.IsAdmin }
)

func adminMiddleware(auth *authenticator, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := auth.contextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && auth.contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// portalMiddleware lets the request through if any of the portals accepts the claims.
func portalMiddleware(auth *authenticator, portals ...portal) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := auth.contextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, p := range portals {
				if p(claims) {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
