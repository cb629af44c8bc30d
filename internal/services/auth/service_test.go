package auth

import (
	"testing"

	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeOperators struct {
	items map[uint]*models.Operator
}

func (f *fakeOperators) Create(o *models.Operator) error {
	f.items[o.ID] = o
	return nil
}

func (f *fakeOperators) GetByID(id uint) (*models.Operator, error) {
	o, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrOperatorNotFound
	}
	return o, nil
}

func (f *fakeOperators) GetByEmail(email string) (*models.Operator, error) {
	for _, o := range f.items {
		if o.Email == email {
			return o, nil
		}
	}
	return nil, repositories.ErrOperatorNotFound
}

func (f *fakeOperators) Update(o *models.Operator) error {
	f.items[o.ID] = o
	return nil
}

func (f *fakeOperators) IncrementTokenVersion(operatorID uint) error {
	o, err := f.GetByID(operatorID)
	if err != nil {
		return err
	}
	o.TokenVersion++
	return nil
}

func seedOperator(t *testing.T, password string) *fakeOperators {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &fakeOperators{items: map[uint]*models.Operator{
		1: {
			Model:        gorm.Model{ID: 1},
			Email:        "ops@example.com",
			Password:     string(hash),
			Role:         "operator",
			TokenVersion: 1,
		},
	}}
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		repo := seedOperator(t, "hunter2!")
		svc := NewService(repo)

		operator, access, refresh, err := svc.Login("ops@example.com", "hunter2!")
		require.NoError(t, err)
		assert.Equal(t, uint(1), operator.ID)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.False(t, operator.LastLoginAt.IsZero())

		_, claims, err := utils.ParseToken(access)
		require.NoError(t, err)
		assert.Equal(t, uint(1), claims.OperatorID)
		assert.Equal(t, "operator", claims.Role)
		assert.Equal(t, 1, claims.TokenVersion)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc := NewService(seedOperator(t, "hunter2!"))

		_, _, _, err := svc.Login("ops@example.com", "wrong")
		assert.EqualError(t, err, "invalid credentials")
	})

	t.Run("unknown email gets the same error as a wrong password", func(t *testing.T) {
		svc := NewService(seedOperator(t, "hunter2!"))

		_, _, _, err := svc.Login("nobody@example.com", "hunter2!")
		assert.EqualError(t, err, "invalid credentials")
	})
}

func TestRefreshTokens(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("a live refresh token rotates the pair", func(t *testing.T) {
		repo := seedOperator(t, "hunter2!")
		svc := NewService(repo)

		_, _, refresh, err := svc.Login("ops@example.com", "hunter2!")
		require.NoError(t, err)

		access, newRefresh, err := svc.RefreshTokens(refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, newRefresh)
	})

	t.Run("logout invalidates outstanding refresh tokens", func(t *testing.T) {
		repo := seedOperator(t, "hunter2!")
		svc := NewService(repo)

		_, _, refresh, err := svc.Login("ops@example.com", "hunter2!")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(1))

		_, _, err = svc.RefreshTokens(refresh)
		assert.EqualError(t, err, "token version mismatch")
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := NewService(seedOperator(t, "hunter2!"))

		_, _, err := svc.RefreshTokens("not-a-jwt")
		assert.EqualError(t, err, "invalid refresh token")
	})
}

func TestChangePassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Run("rotates the hash and bumps the token version", func(t *testing.T) {
		repo := seedOperator(t, "hunter2!")
		svc := NewService(repo)

		require.NoError(t, svc.ChangePassword(1, "hunter2!", "n3w-Passw0rd!"))

		operator := repo.items[1]
		assert.Equal(t, 2, operator.TokenVersion)
		assert.NoError(t, bcrypt.CompareHashAndPassword(
			[]byte(operator.Password), []byte("n3w-Passw0rd!")))
	})

	t.Run("wrong old password", func(t *testing.T) {
		svc := NewService(seedOperator(t, "hunter2!"))
		err := svc.ChangePassword(1, "wrong", "n3w-Passw0rd!")
		assert.EqualError(t, err, "invalid old password")
	})

	t.Run("weak passwords are rejected", func(t *testing.T) {
		svc := NewService(seedOperator(t, "hunter2!"))

		assert.Error(t, svc.ChangePassword(1, "hunter2!", "short!"))
		assert.Error(t, svc.ChangePassword(1, "hunter2!", "nospecialchars"))
	})
}
