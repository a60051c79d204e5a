package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/bancoatlas/backoffice/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService issues the principal tokens the back office consumes. The
// engines themselves never look at tokens; they take a resolved Principal as
// an explicit parameter.
type AuthService struct {
	directory Directory
}

func NewAuthService(directory Directory) *AuthService {
	viper.SetDefault("jwt.expiry_hours", 12)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	return &AuthService{directory: directory}
}

// Login verifies the client's password and returns a signed token carrying
// the client guid.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	client, err := s.directory.ResolveClientByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if client == nil || !verifyPassword(req.Password, client.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	token, err := generateJWT(client.GUID, client.Email, expiry)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, ExpiresIn: int64(expiry.Seconds())}, nil
}

func generateJWT(clientGUID, email string, expiry time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_guid": clientGUID,
		"email":       email,
		"exp":         time.Now().Add(expiry).Unix(),
	})
	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

// HashPassword produces the salt$hash encoding stored in clientes.
func HashPassword(password string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return subtle.ConstantTimeCompare(hash, computedHash) == 1
}
