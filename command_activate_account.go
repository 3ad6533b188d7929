package registration

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RejectionReason explains internally why an activation was refused. The
// HTTP layer collapses every reason into one opaque failure so callers
// cannot probe which tokens exist.
type RejectionReason = string

const (
	// RejectedMalformedKey means the token failed the format check. No
	// store lookup happens for these.
	RejectedMalformedKey RejectionReason = "malformed-key"
	// RejectedKeyNotFound means no profile holds the token.
	RejectedKeyNotFound RejectionReason = "key-not-found"
	// RejectedAlreadyActivated means the key was spent earlier;
	// re-activation is permanently blocked.
	RejectedAlreadyActivated RejectionReason = "already-activated"
	// RejectedKeyExpired means the activation window elapsed.
	RejectedKeyExpired RejectionReason = "key-expired"
)

type ActivateAccountMessage struct {
	Key        string `json:"activation_key" example:"a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0" doc:"Activation key from the email"`
	OnResponse func(resp *ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "registration.activate" }

type ActivateAccountResponse struct {
	Activated bool            `json:"activated"`
	User      *User           `json:"user,omitempty"`
	Reason    RejectionReason `json:"-"`
}

type ActivateAccountHandler struct {
	repo     RepositoryManager
	settings *Settings
	logger   Logger
}

// NewActivateAccountHandler creates a handler with sane defaults.
func NewActivateAccountHandler(repo RepositoryManager, settings *Settings) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:     repo,
		settings: settings,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account activation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	resp := &ActivateAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !IsActivationKey(event.Key) {
		resp.Reason = RejectedMalformedKey
		return h.respond(event, resp)
	}

	days, err := h.settings.ActivationDays()
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		profile, err := h.repo.RegistrationProfiles().GetByActivationKeyTx(ctx, tx, event.Key)
		if err != nil {
			// an unknown key is part of the expected flow, not an application error
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				resp.Reason = RejectedKeyNotFound
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve registration profile")
		}

		if profile.Activated() {
			resp.Reason = RejectedAlreadyActivated
			return nil
		}

		if profile.UserID == nil {
			return goerrors.New("registration profile is missing its account reference", goerrors.CategoryInternal)
		}

		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, profile.UserID.String())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for activation")
		}

		if user.CreatedAt == nil {
			return goerrors.New("account record is missing creation date", goerrors.CategoryInternal)
		}

		if profile.KeyExpired(*user.CreatedAt, days) {
			resp.Reason = RejectedKeyExpired
			return nil
		}

		// The conditional key update is the activation guard: a concurrent
		// activation of the same token makes this lose and no account write
		// happens on this path.
		if _, err := h.repo.RegistrationProfiles().MarkActivatedTx(ctx, tx, profile); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) && richErr.TextCode == textCodeKeyAlreadyUsed {
				resp.Reason = RejectedAlreadyActivated
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark profile activated")
		}

		activated, err := h.repo.Users().ActivateTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}

		resp.Activated = true
		resp.User = activated.PublicProjection()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to execute account activation")
	}

	if !resp.Activated {
		h.logger.Debug("activation rejected: %s", resp.Reason)
	}

	return h.respond(event, resp)
}

func (h *ActivateAccountHandler) respond(event ActivateAccountMessage, resp *ActivateAccountResponse) error {
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
	return nil
}
