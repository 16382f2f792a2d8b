package api

import (
	"github.com/labstack/echo/v4"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/ougirez/databaker/internal/pkg/utils"
)

// AuthMiddleware resolves the session cookie to a user id or rejects the request.
func (svc *APIService) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(constants.CookieKeyAuthToken)
		if err != nil {
			return constants.ErrMissingAuthCookie
		}

		token, err := utils.ParseAuthToken(cookie.Value)
		if err != nil {
			return err
		}
		if token.UserID == 0 {
			return constants.ErrUnauthorized
		}

		ctx.Set(constants.CtxKeyUserID, token.UserID)

		return next(ctx)
	}
}
