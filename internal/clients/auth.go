package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apierrors "github.com/pribylovaa/go-market-search/internal/errors"
	"github.com/pribylovaa/go-market-search/internal/models"
)

// Login — OAuth2 password flow (POST /api/token, form-urlencoded).
func (c *Client) Login(ctx context.Context, username, password string) (models.Token, error) {
	const op = "internal/clients/auth/Login"

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	resp, err := c.do(ctx, c.timeout, http.MethodPost, c.endpoint("/api/token", nil),
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	var tok models.Token
	if err := json.Unmarshal(resp.body, &tok); err != nil || tok.AccessToken == "" {
		return models.Token{}, fmt.Errorf("%s: %w", op, apierrors.ErrMalformed)
	}

	return tok, nil
}

// Register — регистрация (POST /api/register).
func (c *Client) Register(ctx context.Context, username, password string) (models.Registration, error) {
	const op = "internal/clients/auth/Register"

	resp, err := c.postJSON(ctx, "/api/register", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return models.Registration{}, fmt.Errorf("%s: %w", op, err)
	}

	var reg models.Registration
	if err := json.Unmarshal(resp.body, &reg); err != nil {
		return models.Registration{}, fmt.Errorf("%s: %w: %v", op, apierrors.ErrMalformed, err)
	}

	return reg, nil
}

// Me — текущий пользователь (GET /api/me).
func (c *Client) Me(ctx context.Context) (models.User, error) {
	const op = "internal/clients/auth/Me"

	var u models.User
	if err := c.getJSON(ctx, c.timeout, "/api/me", nil, &u); err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// CheckAdmin — признак администратора (GET /api/check-admin).
func (c *Client) CheckAdmin(ctx context.Context) (bool, error) {
	const op = "internal/clients/auth/CheckAdmin"

	var st models.AdminStatus
	if err := c.getJSON(ctx, c.timeout, "/api/check-admin", nil, &st); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return st.IsAdmin, nil
}
