package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"post-webhook/internal/api"
	"post-webhook/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store     *store.Store
	jwtSecret string
}

func NewAuthHandler(s *store.Store, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: s, jwtSecret: jwtSecret}
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type account struct {
	id           string
	passwordHash string
	roles        []string
	active       bool
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body loginBody
	if err := api.BindJSON(c, &body); err != nil {
		return err
	}

	ctx := c.Context()
	acct, err := h.findByEmail(ctx, body.Email)
	if errors.Is(err, store.ErrNotFound) {
		return api.UnauthorizedError("Invalid email or password")
	}
	if err != nil {
		return err
	}
	if !acct.active {
		return api.UnauthorizedError("Account is disabled")
	}
	if !CheckPassword(body.Password, acct.passwordHash) {
		return api.UnauthorizedError("Invalid email or password")
	}

	pair, err := h.issue(ctx, acct.id, acct.roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh. The used token is rotated out.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body refreshBody
	if err := api.BindJSON(c, &body); err != nil {
		return err
	}

	ctx := c.Context()
	pb := h.store.Dialect.NewParamBuilder()
	var (
		tokenID, userID string
		expiresAt       int64
		rawRoles        any
		active          bool
	)
	err := h.store.DB.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT rt.id, rt.user_id, rt.expires_at, u.roles, u.active
		 FROM _refresh_tokens rt
		 JOIN _users u ON u.id = rt.user_id
		 WHERE rt.token = %s`, pb.Add(body.RefreshToken)),
		pb.Params()...).Scan(&tokenID, &userID, &expiresAt, &rawRoles, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return api.UnauthorizedError("Invalid refresh token")
	}
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}

	// Only the request that removes the row may rotate it.
	n, err := h.deleteToken(ctx, "id", tokenID)
	if err != nil {
		return fmt.Errorf("consume refresh token: %w", err)
	}
	if n != 1 {
		return api.UnauthorizedError("Invalid refresh token")
	}

	if time.Now().Unix() > expiresAt {
		return api.UnauthorizedError("Refresh token expired")
	}
	if !active {
		return api.UnauthorizedError("Account is disabled")
	}

	roles, err := h.store.Dialect.ScanArray(rawRoles)
	if err != nil {
		return fmt.Errorf("scan roles: %w", err)
	}
	pair, err := h.issue(ctx, userID, roles)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var body refreshBody
	if err := api.BindJSON(c, &body); err != nil {
		return err
	}
	if _, err := h.deleteToken(c.Context(), "token", body.RefreshToken); err != nil {
		log.Printf("WARN: delete refresh token: %v", err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func RegisterAuthRoutes(app *fiber.App, h *AuthHandler) {
	auth := app.Group("/api/auth")
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.Refresh)
	auth.Post("/logout", h.Logout)
}

func (h *AuthHandler) findByEmail(ctx context.Context, email string) (*account, error) {
	pb := h.store.Dialect.NewParamBuilder()
	var acct account
	var rawRoles any
	err := h.store.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, password_hash, roles, active FROM _users WHERE email = %s", pb.Add(email)),
		pb.Params()...).Scan(&acct.id, &acct.passwordHash, &rawRoles, &acct.active)
	if err != nil {
		return nil, store.MapError(h.store.Dialect, err)
	}
	if acct.roles, err = h.store.Dialect.ScanArray(rawRoles); err != nil {
		return nil, fmt.Errorf("scan roles: %w", err)
	}
	return &acct, nil
}

func (h *AuthHandler) issue(ctx context.Context, userID string, roles []string) (*TokenPair, error) {
	accessToken, err := GenerateAccessToken(userID, roles, h.jwtSecret)
	if err != nil {
		return nil, api.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	refreshToken := GenerateRefreshToken()
	pb := h.store.Dialect.NewParamBuilder()
	_, err = store.Exec(ctx, h.store.DB,
		fmt.Sprintf(`INSERT INTO _refresh_tokens (id, user_id, token, expires_at) VALUES (%s, %s, %s, %s)`,
			pb.Add(uuid.New().String()), pb.Add(userID), pb.Add(refreshToken),
			pb.Add(time.Now().Add(RefreshTokenTTL).Unix())),
		pb.Params()...)
	if err != nil {
		log.Printf("ERROR: store refresh token for %s: %v", userID, err)
		return nil, api.NewAppError("INTERNAL_ERROR", 500, "Failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(AccessTokenTTL.Seconds()),
	}, nil
}

// deleteToken removes refresh tokens matching column and reports how many went.
func (h *AuthHandler) deleteToken(ctx context.Context, column, value string) (int64, error) {
	pb := h.store.Dialect.NewParamBuilder()
	return store.Exec(ctx, h.store.DB,
		fmt.Sprintf("DELETE FROM _refresh_tokens WHERE %s = %s", column, pb.Add(value)),
		pb.Params()...)
}
