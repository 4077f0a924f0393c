package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/auth"
)

// HeaderAPIKey carries administrator API keys.
const HeaderAPIKey = "X-API-Key"

// Security authenticates customers by bearer token and administrators by API
// key or admin-role token.
type Security struct {
	tokens  *auth.Tokens
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurity creates a Security with the given token verifier, API key
// repository and HMAC pepper.
func NewSecurity(tokens *auth.Tokens, apikeys auth.Repository, pepper []byte) *Security {
	return &Security{tokens: tokens, apikeys: apikeys, pepper: pepper}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func withIdentity(c echo.Context, id auth.Identity) {
	ctx := auth.WithIdentity(c.Request().Context(), id)
	ctx = zctx.With(ctx, zap.String("user_id", id.UserID))
	c.SetRequest(c.Request().WithContext(ctx))
}

// RequireUser accepts requests with a valid customer bearer token.
func (s *Security) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request())
		if !ok {
			return fail(http.StatusUnauthorized, "authorization token required")
		}
		id, err := s.tokens.Parse(token)
		if err != nil {
			return fail(http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		}
		withIdentity(c, id)
		return next(c)
	}
}

// RequireAdmin accepts requests carrying an API key with the admin scope or
// a bearer token with the admin role.
func (s *Security) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if key := c.Request().Header.Get(HeaderAPIKey); key != "" {
			info, err := s.verifyAPIKey(c, key)
			if err != nil {
				return err
			}
			if !info.HasScope(auth.ScopeAdmin) {
				return fail(http.StatusForbidden, "admin access required")
			}
			withIdentity(c, auth.Identity{UserID: info.Name, Role: auth.RoleAdmin, APIKeyID: info.ID})
			return next(c)
		}

		token, ok := bearerToken(c.Request())
		if !ok {
			return fail(http.StatusUnauthorized, "authorization required")
		}
		id, err := s.tokens.Parse(token)
		if err != nil {
			return fail(http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		}
		if !id.IsAdmin() {
			return fail(http.StatusForbidden, "admin access required")
		}
		withIdentity(c, id)
		return next(c)
	}
}

func (s *Security) verifyAPIKey(c echo.Context, key string) (*auth.APIKeyInfo, error) {
	hexHash := auth.HashAPIKey(s.pepper, key)

	info, err := s.apikeys.FindByHash(c.Request().Context(), hexHash)
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			return nil, fail(http.StatusUnauthorized, "invalid api key")
		}
		return nil, errors.Wrap(err, "find api key")
	}

	// The stored hash is compared again in constant time.
	computed, _ := hex.DecodeString(hexHash)
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
		return nil, fail(http.StatusUnauthorized, "invalid api key")
	}
	return info, nil
}

// identity returns the authenticated identity; the auth middlewares
// guarantee it is present on protected routes.
func identity(c echo.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c.Request().Context())
	return id
}
