package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/petite-maison/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) (uuid.UUID, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd user.ProfileUpdate) (*user.User, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestUserService_CreateUser_Success(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	expectedID := uuid.Must(uuid.NewV4())

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Email == "anne@example.com" &&
			u.DisplayName != nil && *u.DisplayName == "anne" &&
			len(u.Roles) == 1 && u.Roles[0] == user.RoleBuyer
	})).Return(expectedID, nil).Once()

	created, err := userService.CreateUser(context.Background(), "  Anne@Example.com ", "password123", nil)
	require.NoError(t, err)
	require.Equal(t, expectedID, created.ID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("password123")))
	require.NotEqual(t, "password123", created.PasswordHash, "Password should be hashed, not raw")

	mockRepo.AssertExpectations(t)
}

func TestUserService_CreateUser_EmailExists(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*user.User")).
		Return(uuid.Nil, user.ErrEmailExists).
		Once()

	created, err := userService.CreateUser(context.Background(), "dup@example.com", "password123", nil)
	require.ErrorIs(t, err, user.ErrEmailExists)
	require.Nil(t, created)
	mockRepo.AssertExpectations(t)
}

func TestUserService_CreateUser_EmptyPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	userService := user.NewService(mockRepo)

	_, err := userService.CreateUser(context.Background(), "a@example.com", "", nil)
	require.Error(t, err)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_VerifyCredentials(t *testing.T) {
	active := &user.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "anne@example.com",
		PasswordHash: hashed(t, "password123"),
		IsActive:     true,
		Roles:        []user.Role{user.RoleBuyer},
	}
	disabled := &user.User{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "off@example.com",
		PasswordHash: hashed(t, "password123"),
		IsActive:     false,
	}

	tests := []struct {
		name     string
		email    string
		password string
		repoUser *user.User
		repoErr  error
		wantErr  error
	}{
		{name: "success", email: "ANNE@example.com", password: "password123", repoUser: active},
		{name: "wrong_password", email: "anne@example.com", password: "nope", repoUser: active, wantErr: user.ErrInvalidCredentials},
		{name: "unknown_email", email: "ghost@example.com", password: "password123", repoErr: user.ErrNotFound, wantErr: user.ErrInvalidCredentials},
		{name: "inactive", email: "off@example.com", password: "password123", repoUser: disabled, wantErr: user.ErrInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			svc := user.NewService(mockRepo)

			if tt.repoUser != nil {
				mockRepo.On("GetByEmail", mock.Anything, mock.AnythingOfType("string")).Return(tt.repoUser, nil).Once()
			} else {
				mockRepo.On("GetByEmail", mock.Anything, mock.AnythingOfType("string")).Return(nil, tt.repoErr).Once()
			}

			got, err := svc.VerifyCredentials(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.repoUser.ID, got.ID)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestUserService_GetUserByID_RepositoryFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := user.NewService(mockRepo)
	id := uuid.Must(uuid.NewV4())

	mockRepo.On("GetByID", mock.Anything, id).Return(nil, errors.New("connection reset")).Once()

	_, err := svc.GetUserByID(context.Background(), id)
	require.Error(t, err)
	require.NotErrorIs(t, err, user.ErrNotFound)
}

func TestUserService_UpdateProfile_NotFound(t *testing.T) {
	mockRepo := new(MockUserRepository)
	svc := user.NewService(mockRepo)
	id := uuid.Must(uuid.NewV4())
	name := "New"

	mockRepo.On("UpdateProfile", mock.Anything, id, user.ProfileUpdate{DisplayName: &name}).Return(nil, user.ErrNotFound).Once()

	_, err := svc.UpdateProfile(context.Background(), id, user.ProfileUpdate{DisplayName: &name})
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUser_HasRole(t *testing.T) {
	u := &user.User{Roles: []user.Role{user.RoleBuyer}}
	require.True(t, u.HasRole(user.RoleBuyer, user.RoleAdmin))
	require.False(t, u.HasRole(user.RoleAdmin))
}
