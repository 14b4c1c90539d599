package models

// Token — ответ /api/token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username,omitempty"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
}

// User — текущий пользователь (/api/me).
type User struct {
	ID       FlexString `json:"user_id"`
	Username string     `json:"username"`
	IsAdmin  bool       `json:"is_admin"`
}

// Registration — ответ /api/register.
type Registration struct {
	Message string     `json:"message"`
	UserID  FlexString `json:"user_id"`
}

// AdminStatus — ответ /api/check-admin.
type AdminStatus struct {
	IsAdmin bool `json:"is_admin"`
}
