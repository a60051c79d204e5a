package services

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bancoatlas/backoffice/internal/models"
)

func TestHashPassword(t *testing.T) {
	NewAuthService(nil)

	hash, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.Contains(t, hash, "$")

	assert.True(t, verifyPassword("correct horse battery staple", hash))
	assert.False(t, verifyPassword("wrong password", hash))
	assert.False(t, verifyPassword("correct horse battery staple", "not-a-valid-encoding"))

	// Each hash carries its own salt.
	other, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.NotEqual(t, hash, other)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	viper.Set("jwt.secret_key", "test-secret")

	directory := new(MockDirectory)
	service := NewAuthService(directory)

	hash, err := HashPassword("s3cret-password")
	assert.NoError(t, err)
	client := &models.Client{
		ID:           1,
		GUID:         "client-1",
		Name:         "Marta",
		Email:        "marta@bancoatlas.es",
		PasswordHash: hash,
	}

	t.Run("valid credentials produce a token", func(t *testing.T) {
		directory.On("ResolveClientByEmail", mock.Anything, "marta@bancoatlas.es").Return(client, nil)

		resp, err := service.Login(ctx, models.LoginRequest{Email: "marta@bancoatlas.es", Password: "s3cret-password"})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, int64(12*3600), resp.ExpiresIn)
	})

	t.Run("wrong password", func(t *testing.T) {
		directory.On("ResolveClientByEmail", mock.Anything, "marta@bancoatlas.es").Return(client, nil)

		_, err := service.Login(ctx, models.LoginRequest{Email: "marta@bancoatlas.es", Password: "guess"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		directory.On("ResolveClientByEmail", mock.Anything, "nadie@bancoatlas.es").Return(nil, nil)

		_, err := service.Login(ctx, models.LoginRequest{Email: "nadie@bancoatlas.es", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
