package services

import (
	"fmt"

	"parley/auth"
	"parley/errors"
	"parley/repositories"
)

type IAuthService interface {
	Register(username, password string) (Token, error)
	Login(username, password string) (Token, error)
	ExistsByUsername(username string) (bool, error)
}

type Token string

type AuthService struct {
	userRepository repositories.IUserRepository
	issuer         auth.TokenIssuer
}

func NewAuthService(repo repositories.IUserRepository, issuer auth.TokenIssuer) IAuthService {
	return &AuthService{userRepository: repo, issuer: issuer}
}

func (s *AuthService) Register(username, password string) (Token, error) {
	// 1. Validate business rules before any expensive cryptographic work
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Username: username,
		Password: password,
	}); err != nil {
		return "", err
	}

	// 2. Hash the password in the service layer to keep the repository
	// unaware of plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist; propagates ErrUserAlreadyExists when the name is taken
	userID, err := s.userRepository.CreateUser(username, hashedPassword)
	if err != nil {
		return "", err
	}

	token, err := s.issuer.Generate(userID, username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(username, password string) (Token, error) {
	// Generic error on every failure path to prevent user enumeration
	user, err := s.userRepository.GetByUsername(username)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.issuer.Generate(user.ID, user.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) ExistsByUsername(username string) (bool, error) {
	return s.userRepository.ExistsByUsername(username)
}
