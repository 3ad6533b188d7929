package registration

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeImproperlyConfigured = "IMPROPERLY_CONFIGURED"
	textCodeEmailDispatchFailed  = "EMAIL_DISPATCH_FAILED"
	textCodeProfileExists        = "REGISTRATION_PROFILE_EXISTS"
	textCodeKeyAlreadyUsed       = "ACTIVATION_KEY_ALREADY_USED"
)

// ErrNoEmptyString is returned when a required value is blank.
var ErrNoEmptyString = errors.New("value should not be an empty string")

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// NewConfigurationError builds the error raised when a required setting has
// neither a configured value nor a default. It is an operator error, fatal
// at first use.
func NewConfigurationError(setting string) *goerrors.Error {
	return goerrors.New("required setting is not configured", goerrors.CategoryOperation).
		WithTextCode(textCodeImproperlyConfigured).
		WithMetadata(map[string]any{
			"setting": setting,
		})
}

// IsConfigurationError reports whether err was raised by the settings
// resolver for a missing required value.
func IsConfigurationError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCodeImproperlyConfigured
}

// NewValidationError wraps field-level validation failures. The per-field
// reasons ride along as metadata so the HTTP layer can surface them as a
// structured 400 body.
func NewValidationError(err error) *goerrors.Error {
	fields := FormatValidationErrorToMap(err)

	meta := make(map[string]any, len(fields))
	for field, reason := range fields {
		meta[field] = reason
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(meta)
}

// NewDispatchError wraps a failed activation email hand-off. Dispatch
// failures are reported but never fail the registration that triggered them.
func NewDispatchError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to dispatch activation email").
		WithTextCode(textCodeEmailDispatchFailed)
}

// IsDispatchError reports whether err came from the notification dispatcher.
func IsDispatchError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCodeEmailDispatchFailed
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field -> reason map. Non-validation errors map to a single "error" entry.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
