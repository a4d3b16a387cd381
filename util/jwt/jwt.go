package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issue signs an HS256 token for the user. The jti claim identifies the
// token so logout can blacklist it until expiry.
func Issue(secret string, userID int64, admin bool, ttlHours int) (token string, jti string, err error) {
	jti = uuid.NewString()
	claims := jwt.MapClaims{
		"sub":   userID,
		"admin": admin,
		"jti":   jti,
		"exp":   time.Now().Add(time.Duration(ttlHours) * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString([]byte(secret))
	return token, jti, err
}
