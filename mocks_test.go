package authkit_test

import (
	"context"
	"database/sql"
	"time"

	authkit "github.com/go-authkit/authkit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements authkit.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	UsersRepo         *MockUsers
	RefreshTokensRepo *MockRefreshTokens
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		UsersRepo:         new(MockUsers),
		RefreshTokensRepo: new(MockRefreshTokens),
	}
}

func (m *MockRepositoryManager) Users() authkit.Users {
	return m.UsersRepo
}

func (m *MockRepositoryManager) RefreshTokens() authkit.RefreshTokens {
	return m.RefreshTokensRepo
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, fn)
	return args.Error(0)
}

// MockUsers implements authkit.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*authkit.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*authkit.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*authkit.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*authkit.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) List(ctx context.Context, criteria authkit.UserListCriteria) ([]*authkit.User, int, error) {
	args := m.Called(ctx, criteria)
	users, _ := args.Get(0).([]*authkit.User)
	return users, args.Int(1), args.Error(2)
}

func (m *MockUsers) ListTx(ctx context.Context, tx bun.IDB, criteria authkit.UserListCriteria) ([]*authkit.User, int, error) {
	args := m.Called(ctx, tx, criteria)
	users, _ := args.Get(0).([]*authkit.User)
	return users, args.Int(1), args.Error(2)
}

func (m *MockUsers) Create(ctx context.Context, record *authkit.User) (*authkit.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *authkit.User) (*authkit.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *authkit.User) (*authkit.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *authkit.User) (*authkit.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*authkit.User)
	return user, args.Error(1)
}

func (m *MockUsers) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) DeleteTx(ctx context.Context, tx bun.IDB, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockRefreshTokens implements authkit.RefreshTokens
type MockRefreshTokens struct {
	mock.Mock
}

func (m *MockRefreshTokens) Create(ctx context.Context, userID int64, token string, meta authkit.RequestMetadata, expiresAt time.Time) (*authkit.RefreshToken, error) {
	args := m.Called(ctx, userID, token, meta, expiresAt)
	record, _ := args.Get(0).(*authkit.RefreshToken)
	return record, args.Error(1)
}

func (m *MockRefreshTokens) CreateTx(ctx context.Context, tx bun.IDB, userID int64, token string, meta authkit.RequestMetadata, expiresAt time.Time) (*authkit.RefreshToken, error) {
	args := m.Called(ctx, tx, userID, token, meta, expiresAt)
	record, _ := args.Get(0).(*authkit.RefreshToken)
	return record, args.Error(1)
}

func (m *MockRefreshTokens) FindActive(ctx context.Context, userID int64, token string) (*authkit.RefreshToken, error) {
	args := m.Called(ctx, userID, token)
	record, _ := args.Get(0).(*authkit.RefreshToken)
	return record, args.Error(1)
}

func (m *MockRefreshTokens) FindActiveTx(ctx context.Context, tx bun.IDB, userID int64, token string) (*authkit.RefreshToken, error) {
	args := m.Called(ctx, tx, userID, token)
	record, _ := args.Get(0).(*authkit.RefreshToken)
	return record, args.Error(1)
}

func (m *MockRefreshTokens) Revoke(ctx context.Context, userID int64, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockRefreshTokens) RevokeTx(ctx context.Context, tx bun.IDB, userID int64, token string) error {
	args := m.Called(ctx, tx, userID, token)
	return args.Error(0)
}

func (m *MockRefreshTokens) RevokeByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRefreshTokens) Consume(ctx context.Context, userID int64, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockRefreshTokens) ConsumeTx(ctx context.Context, tx bun.IDB, userID int64, token string) error {
	args := m.Called(ctx, tx, userID, token)
	return args.Error(0)
}

// MockTokenService implements authkit.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueAccessToken(user *authkit.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) IssueRefreshToken(user *authkit.User) (string, time.Time, error) {
	args := m.Called(user)
	expiresAt, _ := args.Get(1).(time.Time)
	return args.String(0), expiresAt, args.Error(2)
}

func (m *MockTokenService) ValidateAccessToken(tokenString string) (*authkit.TokenClaims, error) {
	args := m.Called(tokenString)
	claims, _ := args.Get(0).(*authkit.TokenClaims)
	return claims, args.Error(1)
}

func (m *MockTokenService) ValidateRefreshToken(tokenString string) (*authkit.TokenClaims, error) {
	args := m.Called(tokenString)
	claims, _ := args.Get(0).(*authkit.TokenClaims)
	return claims, args.Error(1)
}

// MockAuthenticator implements authkit.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string, meta authkit.RequestMetadata) (*authkit.TokenPair, error) {
	args := m.Called(ctx, email, password, meta)
	pair, _ := args.Get(0).(*authkit.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthenticator) Register(ctx context.Context, email, password string) (*authkit.UserSummary, error) {
	args := m.Called(ctx, email, password)
	summary, _ := args.Get(0).(*authkit.UserSummary)
	return summary, args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, userID int64, token string, meta authkit.RequestMetadata) (*authkit.TokenPair, error) {
	args := m.Called(ctx, userID, token, meta)
	pair, _ := args.Get(0).(*authkit.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, userID int64, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func testConfig() authkit.SimpleConfig {
	return authkit.SimpleConfig{
		AccessSigningKey:  "test-access-signing-key",
		RefreshSigningKey: "test-refresh-signing-key",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   24 * time.Hour,
		Issuer:            "test-issuer",
		Audience:          []string{"test:audience"},
	}
}

// fastHasher keeps Argon2 cheap in tests while exercising the real codec.
func fastHasher() authkit.PasswordHasher {
	return authkit.PasswordHasher{Params: authkit.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}}
}
