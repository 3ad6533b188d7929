package registration

import (
	"context"
	"strings"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
)

// Email is the rendered message handed to the transport.
type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender is the mail transport collaborator. Implementations own their own
// timeouts; the dispatcher does not retry.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Notifier dispatches the activation email for a freshly registered account.
type Notifier interface {
	SendActivationEmail(ctx context.Context, user *User, profile *RegistrationProfile, site Site) error
}

// EmailNotifier renders the activation subject and body from django-syntax
// templates and hands the result to a Sender. Template context:
// activation_key, expiration_days, site.
type EmailNotifier struct {
	sender         Sender
	from           string
	expirationDays int
	subject        *pongo2.Template
	body           *pongo2.Template
	logger         Logger
}

// EmailNotifierOption customizes the notifier.
type EmailNotifierOption func(*EmailNotifier)

// WithSender sets the mail transport.
func WithSender(sender Sender) EmailNotifierOption {
	return func(n *EmailNotifier) {
		if sender != nil {
			n.sender = sender
		}
	}
}

// WithNotifierLogger overrides the logger.
func WithNotifierLogger(logger Logger) EmailNotifierOption {
	return func(n *EmailNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithTemplates replaces the embedded default templates.
func WithTemplates(subject, body string) EmailNotifierOption {
	return func(n *EmailNotifier) {
		if subject != "" {
			if tpl, err := pongo2.FromString(subject); err == nil {
				n.subject = tpl
			}
		}
		if body != "" {
			if tpl, err := pongo2.FromString(body); err == nil {
				n.body = tpl
			}
		}
	}
}

// NewEmailNotifier creates a notifier with the embedded default templates
// and a log-only sender. Callers provide the transport via WithSender.
func NewEmailNotifier(from string, expirationDays int, opts ...EmailNotifierOption) (*EmailNotifier, error) {
	subject, err := pongo2.FromString(defaultSubjectTemplate())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid activation subject template")
	}

	body, err := pongo2.FromString(defaultBodyTemplate())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid activation body template")
	}

	n := &EmailNotifier{
		sender:         logSender{logger: defLogger{}},
		from:           from,
		expirationDays: expirationDays,
		subject:        subject,
		body:           body,
		logger:         defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	return n, nil
}

// SendActivationEmail renders both templates and hands off to the
// transport. Transport failures are wrapped as dispatch errors; recovery is
// the caller's concern.
func (n *EmailNotifier) SendActivationEmail(ctx context.Context, user *User, profile *RegistrationProfile, site Site) error {
	tplCtx := pongo2.Context{
		"activation_key":  profile.ActivationKey,
		"expiration_days": n.expirationDays,
		"site":            site,
	}

	subject, err := n.subject.Execute(tplCtx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation email subject")
	}

	body, err := n.body.Execute(tplCtx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render activation email body")
	}

	msg := Email{
		From:    n.from,
		To:      user.Email,
		Subject: singleLine(subject),
		Body:    body,
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		return NewDispatchError(err)
	}

	return nil
}

// singleLine guarantees the subject header stays on one line even when the
// template produces several.
func singleLine(s string) string {
	fields := strings.Fields(strings.ReplaceAll(s, "\n", " "))
	return strings.Join(fields, " ")
}

// logSender is the fallback transport used when no real Sender is wired.
// It mirrors what operators see in development setups.
type logSender struct {
	logger Logger
}

func (l logSender) Send(_ context.Context, msg Email) error {
	l.logger.Info("activation email (no transport configured) to=%s subject=%q", msg.To, msg.Subject)
	l.logger.Debug("activation email body:\n%s", msg.Body)
	return nil
}
