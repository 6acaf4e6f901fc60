package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrEmailTaken      = errors.New("email already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrBadCredentials  = errors.New("incorrect credentials")
	ErrUnknownRole     = errors.New("unknown role")
)

// AccountStore is the identity persistence the service needs.
type AccountStore interface {
	FindByEmail(ctx context.Context, role Role, email string) (*Account, error)
	Create(ctx context.Context, role Role, acc *Account) error
}

type Service struct {
	repo   AccountStore
	tokens *TokenIssuer
	log    *zap.Logger
}

func NewService(repo *AccountRepository, tokens *TokenIssuer, log *zap.Logger) *Service {
	return newService(repo, tokens, log)
}

func newService(repo AccountStore, tokens *TokenIssuer, log *zap.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, log: log}
}

// Register creates an account after checking the email is free for role.
func (s *Service) Register(ctx context.Context, role Role, req SignupRequest) (*Account, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	email := strings.TrimSpace(req.Email)

	existing, err := s.repo.FindByEmail(ctx, role, email)
	if err != nil {
		return nil, fmt.Errorf("lookup %s by email: %w", role, err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &Account{
		ID:             primitive.NewObjectID(),
		Email:          email,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		DepartmentName: req.DepartmentName,
	}
	if err := s.repo.Create(ctx, role, acc); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create %s: %w", role, err)
	}

	s.log.Info("account registered", zap.String("role", string(role)), zap.String("id", acc.ID.Hex()), zap.String("department", acc.DepartmentName))
	return acc, nil
}

// Login checks the password and issues a token bound to the account id.
func (s *Service) Login(ctx context.Context, role Role, req SigninRequest) (string, error) {
	if !role.Valid() {
		return "", ErrUnknownRole
	}
	acc, err := s.repo.FindByEmail(ctx, role, strings.TrimSpace(req.Email))
	if err != nil {
		return "", fmt.Errorf("lookup %s by email: %w", role, err)
	}
	if acc == nil {
		return "", ErrAccountNotFound
	}
	if !CheckPasswordHash(req.Password, acc.PasswordHash) {
		return "", ErrBadCredentials
	}

	token, err := s.tokens.Issue(acc.ID, role)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
