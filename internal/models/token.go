package models

// LoginRequest is the payload of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	TenantID string `json:"tenantId" form:"tenantId"`
}

// TokenResponse is returned by login and refresh.
type TokenResponse struct {
	Token     string   `json:"token"`
	Type      string   `json:"type"`
	Username  string   `json:"username"`
	TenantID  string   `json:"tenantId"`
	Roles     []string `json:"roles"`
	ExpiresIn int64    `json:"expiresIn"` // seconds
}
