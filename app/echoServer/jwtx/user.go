// app/echoServer/jwtx/user.go
package jwtx

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// IsAdmin reports whether the authenticated user carries the admin claim.
func IsAdmin(c echo.Context) bool {
	admin, _ := c.Get("is_admin").(bool)
	return admin
}

// JTI returns the token id used for logout blacklisting.
func JTI(c echo.Context) (string, error) {
	jti, ok := c.Get("jti").(string)
	if !ok || jti == "" {
		return "", errors.New("no jti in context")
	}
	return jti, nil
}
