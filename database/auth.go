package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"civiceye/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials means the email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthorityExists means an authority with that email already exists.
	ErrAuthorityExists = errors.New("authority already exists")
)

// AuthService handles authority accounts and JWT issuance
type AuthService struct {
	db          *sql.DB
	jwtSecret   []byte
	tokenExpiry time.Duration
}

// NewAuthService creates a new authentication service instance
func NewAuthService(d *Database, jwtSecret string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		db:          d.db,
		jwtSecret:   []byte(jwtSecret),
		tokenExpiry: tokenExpiry,
	}
}

// CreateAuthority creates a new authority account with a bcrypt password hash.
func (s *AuthService) CreateAuthority(ctx context.Context, req *models.RegisterRequest) (*models.Authority, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = "moderator"
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO authorities (email, password_hash, name, role, assigned_pincodes)
		VALUES (?, ?, ?, ?, ?)`,
		req.Email, string(passwordHash), req.Name, role, strings.Join(req.AssignedPincodes, ","))
	if err != nil {
		if strings.Contains(err.Error(), "Duplicate entry") {
			return nil, ErrAuthorityExists
		}
		return nil, fmt.Errorf("failed to insert authority: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get authority id: %w", err)
	}

	return s.GetAuthority(ctx, int(id))
}

// GetAuthority fetches an authority account by id.
func (s *AuthService) GetAuthority(ctx context.Context, id int) (*models.Authority, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, assigned_pincodes, created_at
		FROM authorities WHERE id = ?`, id)
	return scanAuthority(row)
}

// GetAuthorityByEmail fetches an authority account by email.
func (s *AuthService) GetAuthorityByEmail(ctx context.Context, email string) (*models.Authority, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, role, assigned_pincodes, created_at
		FROM authorities WHERE email = ?`, email)
	return scanAuthority(row)
}

// Login verifies the credentials and returns a signed token response.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	var (
		id           int
		passwordHash string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM authorities WHERE email = ?", req.Email).
		Scan(&id, &passwordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up authority: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	authority, err := s.GetAuthority(ctx, id)
	if err != nil {
		return nil, err
	}

	token, err := s.generateToken(authority)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(s.tokenExpiry.Seconds()),
		Authority: authority,
	}, nil
}

// ValidateToken validates a JWT token and returns the authority email.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}

	email, ok := claims["sub"].(string)
	if !ok || email == "" {
		return "", errors.New("token missing subject")
	}

	return email, nil
}

func (s *AuthService) generateToken(authority *models.Authority) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  authority.Email,
		"name": authority.Name,
		"role": authority.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.tokenExpiry).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func scanAuthority(row rowScanner) (*models.Authority, error) {
	var (
		a        models.Authority
		pincodes string
	)
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &pincodes, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan authority: %w", err)
	}

	if pincodes != "" {
		a.AssignedPincodes = strings.Split(pincodes, ",")
	} else {
		a.AssignedPincodes = []string{}
	}

	return &a, nil
}
