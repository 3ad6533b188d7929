package registration_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-registration"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements registration.RepositoryManager.
// RunInTx executes the given function with a zero transaction unless an
// error return was stubbed, so command handlers exercise their real
// transactional flow.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}

	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Users() registration.Users {
	args := m.Called()
	return args.Get(0).(registration.Users)
}

func (m *MockRepositoryManager) RegistrationProfiles() registration.RegistrationProfiles {
	args := m.Called()
	return args.Get(0).(registration.RegistrationProfiles)
}

// MockUsers implements registration.Users. The embedded repository
// interface covers methods the handlers never touch; calling one of those
// unmocked panics, which is the failure we want in tests.
type MockUsers struct {
	mock.Mock
	repository.Repository[*registration.User]
}

func (m *MockUsers) Create(ctx context.Context, record *registration.User, criteria ...repository.InsertCriteria) (*registration.User, error) {
	args := m.Called(ctx, record)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *registration.User, criteria ...repository.InsertCriteria) (*registration.User, error) {
	args := m.Called(ctx, tx, record)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*registration.User, error) {
	args := m.Called(ctx, identifier)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*registration.User, error) {
	args := m.Called(ctx, tx, identifier)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) Activate(ctx context.Context, id uuid.UUID) (*registration.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*registration.User, error) {
	args := m.Called(ctx, tx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func userArg(v any) *registration.User {
	if v == nil {
		return nil
	}
	return v.(*registration.User)
}

// MockRegistrationProfiles implements registration.RegistrationProfiles.
type MockRegistrationProfiles struct {
	mock.Mock
	repository.Repository[*registration.RegistrationProfile]
}

func (m *MockRegistrationProfiles) Create(ctx context.Context, record *registration.RegistrationProfile, criteria ...repository.InsertCriteria) (*registration.RegistrationProfile, error) {
	args := m.Called(ctx, record)
	return profileArg(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationProfiles) CreateTx(ctx context.Context, tx bun.IDB, record *registration.RegistrationProfile, criteria ...repository.InsertCriteria) (*registration.RegistrationProfile, error) {
	args := m.Called(ctx, tx, record)
	return profileArg(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationProfiles) GetByActivationKey(ctx context.Context, key string, criteria ...repository.SelectCriteria) (*registration.RegistrationProfile, error) {
	args := m.Called(ctx, key)
	return profileArg(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationProfiles) GetByActivationKeyTx(ctx context.Context, tx bun.IDB, key string, criteria ...repository.SelectCriteria) (*registration.RegistrationProfile, error) {
	args := m.Called(ctx, tx, key)
	return profileArg(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationProfiles) MarkActivated(ctx context.Context, profile *registration.RegistrationProfile) (*registration.RegistrationProfile, error) {
	args := m.Called(ctx, profile)
	return profileArg(args.Get(0)), args.Error(1)
}

func (m *MockRegistrationProfiles) MarkActivatedTx(ctx context.Context, tx bun.IDB, profile *registration.RegistrationProfile) (*registration.RegistrationProfile, error) {
	args := m.Called(ctx, tx, profile)
	return profileArg(args.Get(0)), args.Error(1)
}

func profileArg(v any) *registration.RegistrationProfile {
	if v == nil {
		return nil
	}
	return v.(*registration.RegistrationProfile)
}

// MockNotifier implements registration.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendActivationEmail(ctx context.Context, user *registration.User, profile *registration.RegistrationProfile, site registration.Site) error {
	args := m.Called(ctx, user, profile, site)
	return args.Error(0)
}

// MockSender implements registration.Sender and records the last message.
type MockSender struct {
	mock.Mock
	LastEmail registration.Email
}

func (m *MockSender) Send(ctx context.Context, msg registration.Email) error {
	m.LastEmail = msg
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
