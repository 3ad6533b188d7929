// Package registration implements a user self-registration flow: an
// inactive account is created together with a single-use activation key,
// the key is emailed to the user, and presenting it within the activation
// window flips the account active exactly once.
//
// Activation lifecycle:
//   - Accounts are always created inactive, atomically with a
//     RegistrationProfile holding a fresh 40-hex-character key. The pair is
//     written in one transaction so no account can exist without a profile.
//   - Redeeming a key is guarded by a conditional update keyed on the prior
//     non-sentinel value, so concurrent activations of the same token can
//     never both succeed. Once spent, the key is reset to ActivatedSentinel
//     and the profile is permanently re-activation-proof.
//   - Expiry is inclusive of the boundary instant: a key presented exactly
//     ACCOUNT_ACTIVATION_DAYS after signup is already expired.
//
// Notification dispatch:
//   - The activation email is rendered from django-syntax templates and
//     handed to a Sender after the registration transaction commits.
//     Dispatch runs best-effort; a transport failure is reported on the
//     response but never rolls back or fails the registration.
//
// Configuration:
//   - Settings resolves the recognized option names against a host-provided
//     lookup on every call, falling back to built-in defaults. Required
//     settings without a value fail loudly at first use.
package registration
