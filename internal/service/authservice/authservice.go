package authservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/auth"
	"github.com/GlebRadaev/spinearn/pkg/validate"
)

const codeAttempts = 3

var ErrInvalidCredentials = errors.New("invalid credentials")

type Repo interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}

type Service struct {
	userRepo    Repo
	hashService auth.HashServiceInterface
	jwtService  auth.JWTServiceInterface
	tokenTTL    time.Duration
	newCode     func() string
}

func New(repo Repo, hashService auth.HashServiceInterface, jwtService auth.JWTServiceInterface, tokenTTL time.Duration) *Service {
	return &Service{
		userRepo:    repo,
		hashService: hashService,
		jwtService:  jwtService,
		tokenTTL:    tokenTTL,
		newCode:     validate.NewReferralCode,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (*domain.User, error) {
	existingUser, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		zap.L().Error("can't find user", zap.Error(err))
		return nil, err
	}
	if existingUser != nil {
		zap.L().Info("user already exists", zap.String("email", email))
		return nil, fmt.Errorf("%w: email already registered", domain.ErrDuplicate)
	}
	hashedPassword, err := s.hashService.HashPassword(password)
	if err != nil {
		zap.L().Error("can't hash password", zap.Error(err))
		return nil, err
	}

	// A duplicate here is either a referral code collision or a concurrent
	// registration of the same email.
	for attempt := 1; ; attempt++ {
		user := &domain.User{
			Email:        email,
			PasswordHash: hashedPassword,
			Role:         domain.RoleUser,
			ReferralCode: s.newCode(),
		}
		newUser, err := s.userRepo.Create(ctx, user)
		if err == nil {
			zap.L().Info("user successfully registered", zap.String("email", email))
			return newUser, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) || attempt == codeAttempts {
			zap.L().Error("can't create user", zap.Error(err))
			return nil, err
		}
		taken, findErr := s.userRepo.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, findErr
		}
		if taken != nil {
			return nil, err
		}
	}
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil || user == nil {
		zap.L().Info("invalid credentials", zap.String("email", email), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if ok := s.hashService.ComparePassword(user.PasswordHash, password); !ok {
		zap.L().Info("invalid credentials", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}
	zap.L().Info("user successfully authenticated", zap.String("email", email))
	return user, nil
}

func (s *Service) GenerateToken(user *domain.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenTTL)

	token, err := s.jwtService.GenerateJWT(user.ID, string(user.Role), expirationTime)
	if err != nil {
		zap.L().Error("can't generate token", zap.Error(err))
		return "", err
	}
	return token, nil
}
