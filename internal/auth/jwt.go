package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/examflow/editorial/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries everything the workflow needs to build an Actor without a DB round trip.
type Claims struct {
	UserID           int64       `json:"user_id"`
	Email            string      `json:"email"`
	Role             models.Role `json:"role"`
	FieldReviewer    bool        `json:"field_reviewer,omitempty"`
	LanguageReviewer bool        `json:"language_reviewer,omitempty"`
	SubjectIDs       []int64     `json:"subject_ids,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity used by services.
func (c *Claims) Actor() models.Actor {
	return models.Actor{
		ID:               c.UserID,
		Role:             c.Role,
		FieldReviewer:    c.FieldReviewer,
		LanguageReviewer: c.LanguageReviewer,
		SubjectIDs:       c.SubjectIDs,
	}
}

// JWTService handles token generation and validation.
type JWTService struct {
	secret      []byte
	expireHours int
}

// NewJWTService creates a JWT service.
func NewJWTService(secret string, expireHours int) *JWTService {
	return &JWTService{
		secret:      []byte(secret),
		expireHours: expireHours,
	}
}

// Generate creates a new JWT for the user.
func (s *JWTService) Generate(u *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:           u.ID,
		Email:            u.Email,
		Role:             u.Role,
		FieldReviewer:    u.FieldReviewer,
		LanguageReviewer: u.LanguageReviewer,
		SubjectIDs:       u.SubjectIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT, returning claims or error.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
