package auth

import (
	"errors"
	"log"
	"strings"
	"time"

	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Login(email, password string) (*models.Operator, string, string, error)
	RefreshTokens(refreshToken string) (string, string, error)
	Logout(operatorID uint) error
	ChangePassword(operatorID uint, oldPassword, newPassword string) error
}

type service struct {
	operatorRepo repositories.OperatorRepository
}

func NewService(operatorRepo repositories.OperatorRepository) Service {
	return &service{
		operatorRepo: operatorRepo,
	}
}

func (s *service) Login(email, password string) (*models.Operator, string, string, error) {
	operator, err := s.operatorRepo.GetByEmail(email)
	if err != nil {
		log.Printf("Login failed: operator not found for email: %s", email)
		return nil, "", "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.Password), []byte(password)); err != nil {
		log.Printf("Login failed: incorrect password for operator ID: %d", operator.ID)
		return nil, "", "", errors.New("invalid credentials")
	}

	accessToken, refreshToken, err := utils.GenerateTokens(&models.OperatorClaims{
		OperatorID:   operator.ID,
		Email:        operator.Email,
		Role:         operator.Role,
		TokenVersion: operator.TokenVersion,
	})
	if err != nil {
		log.Println("Error generating tokens:", err)
		return nil, "", "", errors.New("error generating tokens")
	}

	operator.LastLoginAt = time.Now()
	if err := s.operatorRepo.Update(operator); err != nil {
		log.Printf("Failed to record login time for operator %d: %v", operator.ID, err)
	}

	return operator, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	operator, err := s.operatorRepo.GetByID(claims.OperatorID)
	if err != nil {
		return "", "", errors.New("operator not found")
	}

	if operator.TokenVersion != claims.TokenVersion {
		return "", "", errors.New("token version mismatch")
	}

	return utils.GenerateTokens(&models.OperatorClaims{
		OperatorID:   operator.ID,
		Email:        operator.Email,
		Role:         operator.Role,
		TokenVersion: operator.TokenVersion,
	})
}

func (s *service) Logout(operatorID uint) error {
	return s.operatorRepo.IncrementTokenVersion(operatorID)
}

func (s *service) ChangePassword(operatorID uint, oldPassword, newPassword string) error {
	operator, err := s.operatorRepo.GetByID(operatorID)
	if err != nil {
		return errors.New("failed to get operator")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.Password), []byte(oldPassword)); err != nil {
		return errors.New("invalid old password")
	}

	if len(newPassword) < 8 || !hasSpecialChar(newPassword) {
		return errors.New("password must be at least 8 characters and contain special characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to hash password")
	}

	operator.Password = string(hashedPassword)
	operator.TokenVersion++ // Invalidate existing tokens

	if err := s.operatorRepo.Update(operator); err != nil {
		return errors.New("failed to update password")
	}

	return nil
}

func hasSpecialChar(s string) bool {
	return strings.ContainsAny(s, "!@#$%^&*()_+-=[]{}|;:,.<>?")
}
