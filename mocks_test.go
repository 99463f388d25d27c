package account_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-account"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockConfig implements account.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string    { return m.Called().String(0) }
func (m *MockConfig) GetSigningMethod() string { return m.Called().String(0) }
func (m *MockConfig) GetTokenExpiration() int  { return m.Called().Int(0) }
func (m *MockConfig) GetIssuer() string        { return m.Called().String(0) }
func (m *MockConfig) GetAuthScheme() string    { return m.Called().String(0) }
func (m *MockConfig) GetContextKey() string    { return m.Called().String(0) }
func (m *MockConfig) GetTokenLookup() string   { return m.Called().String(0) }

func newMockConfig() *MockConfig {
	mockConfig := new(MockConfig)
	mockConfig.On("GetSigningKey").Return("test-signing-key").Maybe()
	mockConfig.On("GetSigningMethod").Return("HS256").Maybe()
	mockConfig.On("GetTokenExpiration").Return(3600).Maybe()
	mockConfig.On("GetIssuer").Return("test-issuer").Maybe()
	mockConfig.On("GetAuthScheme").Return("Bearer").Maybe()
	mockConfig.On("GetContextKey").Return("user").Maybe()
	mockConfig.On("GetTokenLookup").Return("header:Authorization").Maybe()
	return mockConfig
}

// MockUsers implements account.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*account.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *account.User) (*account.User, error) {
	args := m.Called(ctx, user)
	out, _ := args.Get(0).(*account.User)
	return out, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *account.User) (*account.User, error) {
	args := m.Called(ctx, tx, user)
	out, _ := args.Get(0).(*account.User)
	return out, args.Error(1)
}

func (m *MockUsers) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockHasher implements account.PasswordHasher
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) ComparePasswordAndHash(password, hash string) error {
	return m.Called(password, hash).Error(0)
}

// MockTokenService implements account.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) NewClaims(user *account.User) *account.JWTClaims {
	args := m.Called(user)
	claims, _ := args.Get(0).(*account.JWTClaims)
	return claims
}

func (m *MockTokenService) SignClaims(claims *account.JWTClaims) (string, error) {
	args := m.Called(claims)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) Validate(raw string) (account.AuthClaims, error) {
	args := m.Called(raw)
	claims, _ := args.Get(0).(account.AuthClaims)
	return claims, args.Error(1)
}

// MockLimiter implements account.LoginLimiter
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockLimiter) RecordFailure(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockLimiter) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockRepositoryManager implements account.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users account.Users
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() account.Users { return m.users }
