package registration

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivatedSentinel is the value an activation key is reset to once the
// account has been activated. A profile carrying this value can never be
// activated again.
const ActivatedSentinel = "ALREADY_ACTIVATED"

// User is the account model. Accounts are created inactive by the register
// flow and flipped active exactly once by a successful activation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName     string         `bun:"first_name" json:"first_name,omitempty"`
	LastName      string         `bun:"last_name" json:"last_name,omitempty"`
	Username      string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone         string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash  string         `bun:"password_hash" json:"-"`
	IsActive      bool           `bun:"is_active" json:"is_active"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// PublicProjection strips credentials so the record is safe to return from
// API handlers.
func (u *User) PublicProjection() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}

// RegistrationProfile stores the activation key for exactly one account.
// It is created together with its User, mutated once when activation
// succeeds, and never deleted.
type RegistrationProfile struct {
	bun.BaseModel `bun:"table:registration_profiles,alias:regp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull,unique" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	// ActivationKey uniqueness is enforced by a partial index in the schema:
	// live keys are unique, spent keys all share the sentinel.
	ActivationKey string     `bun:"activation_key,notnull" json:"activation_key,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Activated reports whether the profile's key has been spent.
func (p *RegistrationProfile) Activated() bool {
	return p != nil && p.ActivationKey == ActivatedSentinel
}

// KeyExpired determines whether the activation key can still be redeemed.
//
// A key is expired when either:
//  1. it has already been reset to ActivatedSentinel, or
//  2. the account signup date incremented by the activation window is less
//     than or equal to now. The boundary instant counts as expired.
func (p *RegistrationProfile) KeyExpired(joined time.Time, activationDays int) bool {
	if p.Activated() {
		return true
	}

	window := time.Duration(activationDays) * 24 * time.Hour
	expired, err := IsOutsideThresholdPeriod(joined, window.String())
	if err != nil {
		return true
	}
	return expired
}
