package domain

// ============================================================
// Auth: Request / Response types (matches frontend API contract)
// ============================================================

// ActionLogin is the POST /api/users action that signs a user in.
const ActionLogin = "login"

// LoginRequest is the body for POST /api/users with action=login.
// Identifier matches username, email or SIP talk id.
type LoginRequest struct {
	Action     string `json:"action"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse is the 200 body for a successful sign-in: the public user
// plus a short-lived access token.
type LoginResponse struct {
	User
	Token     string `json:"token,omitempty"`
	ExpiresIn int    `json:"expiresIn,omitempty"`
}

// DeleteRequest is the body for DELETE on every entity route.
type DeleteRequest struct {
	ID int64 `json:"id"`
}
