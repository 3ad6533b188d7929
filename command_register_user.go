package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "registration.register" }

// Validate will run validation rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Length(0, 200)),
		validation.Field(&e.LastName, validation.Length(0, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Phone, validation.By(ValidPhoneNumber)),
		validation.Field(&e.Password, validation.Required, validation.Length(10, 100)),
	)
}

// RegisterUserResponse reports the outcome of a registration. The account
// and profile are durably persisted before notification dispatch runs, so a
// failed dispatch still counts as a successful registration.
type RegisterUserResponse struct {
	User             *User
	Profile          *RegistrationProfile
	ActivationDays   int
	NotificationSent bool
	NotificationErr  error
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	settings *Settings
	notifier Notifier
	keygen   KeyGenerator
	logger   Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, settings *Settings) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		settings: settings,
		keygen:   GenerateActivationKey,
		logger:   defLogger{},
	}
}

// WithNotifier sets the notification dispatcher.
func (h *RegisterUserHandler) WithNotifier(notifier Notifier) *RegisterUserHandler {
	if notifier != nil {
		h.notifier = notifier
	}
	return h
}

// WithKeyGenerator overrides how activation keys are produced.
func (h *RegisterUserHandler) WithKeyGenerator(gen KeyGenerator) *RegisterUserHandler {
	if gen != nil {
		h.keygen = gen
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// validation happens before anything touches the store
	if err := event.Validate(); err != nil {
		return NewValidationError(err)
	}

	days, err := h.settings.ActivationDays()
	if err != nil {
		return err
	}

	user := &User{}
	profile := &RegistrationProfile{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = getUsername(event.Username, event.Email)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			if isUniqueViolation(err) {
				return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		profile, err = h.createProfileTx(ctx, tx, user)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	resp := &RegisterUserResponse{
		User:           user.PublicProjection(),
		Profile:        profile,
		ActivationDays: days,
	}

	h.dispatchNotification(ctx, user, profile, resp)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// createProfileTx generates an activation key and persists the profile. A
// key collision on the unique index gets one regenerate-and-retry before
// the conflict is surfaced.
func (h *RegisterUserHandler) createProfileTx(ctx context.Context, tx bun.Tx, user *User) (*RegistrationProfile, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		key, err := h.keygen(user.Username)
		if err != nil {
			return nil, err
		}

		if !IsActivationKey(key) {
			return nil, goerrors.New("generated activation key is malformed", goerrors.CategoryInternal)
		}

		profile := &RegistrationProfile{
			UserID:        &user.ID,
			ActivationKey: key,
		}

		created, err := h.repo.RegistrationProfiles().CreateTx(ctx, tx, profile)
		if err == nil {
			return created, nil
		}

		// only a duplicate-key conflict earns the regenerate; anything else
		// (outage, bad schema) surfaces immediately
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) || richErr.TextCode != textCodeProfileExists {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

// dispatchNotification runs after the transaction committed. Failures are
// reported on the response and logged, never propagated: the account and
// profile are already durable.
func (h *RegisterUserHandler) dispatchNotification(ctx context.Context, user *User, profile *RegistrationProfile, resp *RegisterUserResponse) {
	if h.notifier == nil {
		return
	}

	site, err := h.settings.Site()
	if err != nil {
		resp.NotificationErr = err
		h.logger.Error("activation email skipped: %s", err)
		return
	}

	if err := h.notifier.SendActivationEmail(ctx, user, profile, site); err != nil {
		resp.NotificationErr = err
		h.logger.Error("activation email dispatch failed for %s: %s", user.Email, err)
		return
	}

	resp.NotificationSent = true
}

// ValidPhoneNumber accepts blank values and otherwise requires a parseable,
// valid phone number.
func ValidPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return errors.New("must be a valid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
