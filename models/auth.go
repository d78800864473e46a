package models

import "time"

// Authority represents an authority account allowed to triage reports.
type Authority struct {
	ID               int       `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	AssignedPincodes []string  `json:"assigned_pincodes"`
	CreatedAt        time.Time `json:"created_at"`
}

// LoginRequest is the authority login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest creates a new authority account.
type RegisterRequest struct {
	Email            string   `json:"email" binding:"required,email"`
	Password         string   `json:"password" binding:"required,min=8"`
	Name             string   `json:"name" binding:"required,max=256"`
	Role             string   `json:"role"`
	AssignedPincodes []string `json:"assigned_pincodes"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresIn int        `json:"expires_in"`
	Authority *Authority `json:"authority"`
}
