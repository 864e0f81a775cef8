package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/db"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles user authentication
type AuthService struct {
	DB     *db.DB
	secret []byte
}

// Identity is the resolved caller identity carried through a request.
type Identity struct {
	UserID   int64
	Username string
	Role     models.Role
}

// NewAuthService creates a new auth service
func NewAuthService(database *db.DB, secret string) *AuthService {
	return &AuthService{DB: database, secret: []byte(secret)}
}

// RegisterParams are the inputs for creating an account
type RegisterParams struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	City      string
}

// Register creates a new user with a hashed password
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	if p.Username == "" || p.Email == "" || p.Password == "" {
		return nil, apperrors.InvalidArgument("username, email and password are required")
	}
	if len(p.Username) > 50 {
		return nil, apperrors.InvalidArgument("username too long (max 50 characters)")
	}
	if len(p.Password) < 6 || len(p.Password) > 100 {
		return nil, apperrors.InvalidArgument("password must be 6 to 100 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.DB.CreateUser(ctx, &models.User{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		City:         p.City,
		Role:         models.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and generates a JWT
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.DB.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", err
	}

	return s.GenerateToken(user)
}

// GenerateToken signs a 24h JWT for the user
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetIdentityFromToken extracts the caller identity from a JWT
func (s *AuthService) GetIdentityFromToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	username, ok := claims["username"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	role, _ := claims["role"].(string)

	return &Identity{
		UserID:   int64(userID),
		Username: username,
		Role:     models.Role(role),
	}, nil
}
