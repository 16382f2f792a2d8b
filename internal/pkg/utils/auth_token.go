package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/ougirez/databaker/internal/pkg/constants"
	"github.com/spf13/viper"
)

const authTokenTTL = 7 * 24 * time.Hour

type AuthTokenWrapper struct {
	UserID int64 `json:"user_id"`
	jwt.StandardClaims
}

func secretKey() ([]byte, error) {
	secret := viper.GetString(constants.ViperSecretKey)
	if secret == "" {
		return nil, fmt.Errorf("%s is not configured", constants.ViperSecretKey)
	}
	return []byte(secret), nil
}

// GenerateAuthToken signs the session token stored in the sessionid cookie.
func GenerateAuthToken(w *AuthTokenWrapper) (string, error) {
	key, err := secretKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	if w.IssuedAt == 0 {
		w.IssuedAt = now.Unix()
	}
	if w.ExpiresAt == 0 {
		w.ExpiresAt = now.Add(authTokenTTL).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, w).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("jwt.SignedString: %w", err)
	}
	return signed, nil
}

func ParseAuthToken(token string) (*AuthTokenWrapper, error) {
	key, err := secretKey()
	if err != nil {
		return nil, err
	}

	claims := new(AuthTokenWrapper)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", constants.ErrUnauthorized, err)
	}
	return claims, nil
}
