package authservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/GlebRadaev/spinearn/internal/domain"
	"github.com/GlebRadaev/spinearn/pkg/auth"
)

func NewMock(t *testing.T) (*Service, *MockRepo, *auth.MockHashServiceInterface, *auth.MockJWTServiceInterface) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	hashService := auth.NewMockHashServiceInterface(ctrl)
	jwtService := auth.NewMockJWTServiceInterface(ctrl)

	service := New(repo, hashService, jwtService, 15*time.Minute)
	codes := []string{"1111111116", "2222222224"}
	service.newCode = func() string {
		code := codes[0]
		codes = append(codes[1:], code)
		return code
	}
	return service, repo, hashService, jwtService
}

func TestRegister(t *testing.T) {
	service, userRepo, passwordHasher, _ := NewMock(t)

	tests := []struct {
		name          string
		email         string
		password      string
		prepareMock   func()
		expectedUser  *domain.User
		expectedError error
	}{
		{
			name:     "Successful registration",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).DoAndReturn(func(ctx context.Context, user *domain.User) (*domain.User, error) {
					user.ID = 1
					return user, nil
				})
			},
			expectedUser: &domain.User{
				ID:           1,
				Email:        "user@example.com",
				PasswordHash: "hashedpassword",
				Role:         domain.RoleUser,
				ReferralCode: "1111111116",
			},
		},
		{
			name:     "Referral code collision retries with a new code",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).Return(nil, domain.ErrDuplicate)
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).DoAndReturn(func(ctx context.Context, user *domain.User) (*domain.User, error) {
					user.ID = 2
					return user, nil
				})
			},
			expectedUser: &domain.User{
				ID:           2,
				Email:        "user@example.com",
				PasswordHash: "hashedpassword",
				Role:         domain.RoleUser,
				ReferralCode: "1111111116",
			},
		},
		{
			name:     "User already exists",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(&domain.User{Email: "user@example.com"}, nil)
			},
			expectedError: domain.ErrDuplicate,
		},
		{
			name:     "Concurrent registration of the same email",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).Return(nil, domain.ErrDuplicate)
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(&domain.User{ID: 9}, nil)
			},
			expectedError: domain.ErrDuplicate,
		},
		{
			name:     "Error finding user",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, errors.New("database error"))
			},
			expectedError: errors.New("database error"),
		},
		{
			name:     "Error hashing password",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("", errors.New("hashing error"))
			},
			expectedError: errors.New("hashing error"),
		},
		{
			name:     "Error creating user",
			email:    "user@example.com",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).Return(nil, errors.New("creation failed"))
			},
			expectedError: errors.New("creation failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			user, err := service.Register(context.Background(), tt.email, tt.password)
			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, domain.ErrDuplicate) {
					assert.ErrorIs(t, err, domain.ErrDuplicate)
				} else {
					assert.Equal(t, tt.expectedError.Error(), err.Error())
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedUser, user)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	service, userRepo, passwordHasher, _ := NewMock(t)
	stored := &domain.User{ID: 1, Email: "user@example.com", PasswordHash: "hashedpassword", Role: domain.RoleUser}

	tests := []struct {
		name          string
		password      string
		prepareMock   func()
		expectedUser  *domain.User
		expectedError error
	}{
		{
			name:     "Successful authentication",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(stored, nil)
				passwordHasher.EXPECT().ComparePassword("hashedpassword", "testpassword").Return(true)
			},
			expectedUser: stored,
		},
		{
			name:     "Invalid credentials - user not found",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(nil, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name:     "Invalid credentials - incorrect password",
			password: "wrongpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByEmail(context.Background(), "user@example.com").Return(stored, nil)
				passwordHasher.EXPECT().ComparePassword("hashedpassword", "wrongpassword").Return(false)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			user, err := service.Authenticate(context.Background(), "user@example.com", tt.password)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedUser, user)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	service, _, _, jwtService := NewMock(t)
	user := &domain.User{ID: 1, Role: domain.RoleAdmin}

	tests := []struct {
		name          string
		prepareMock   func()
		expectedToken string
		expectedError error
	}{
		{
			name: "Successful token generation",
			prepareMock: func() {
				jwtService.EXPECT().GenerateJWT(int64(1), "admin", gomock.Any()).
					DoAndReturn(func(userID int64, role string, exp time.Time) (string, error) {
						assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, time.Minute)
						return "generated-token", nil
					})
			},
			expectedToken: "generated-token",
		},
		{
			name: "Error generating token",
			prepareMock: func() {
				jwtService.EXPECT().GenerateJWT(int64(1), "admin", gomock.Any()).Return("", errors.New("can't generate token"))
			},
			expectedError: errors.New("can't generate token"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			token, err := service.GenerateToken(user)
			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedToken, token)
			}
		})
	}
}
