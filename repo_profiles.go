package registration

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MarkActivatedSQL spends an activation key. The update is keyed on the
// prior non-sentinel key so two concurrent activations of the same token
// cannot both succeed: the loser matches zero rows.
var MarkActivatedSQL = `UPDATE "registration_profiles" AS "regp"
SET
	"activation_key" = ?
WHERE
	"regp"."activation_key" = ?
AND (
	"regp"."activation_key" != ?
) RETURNING *;`

type RegistrationProfiles interface {
	repository.Repository[*RegistrationProfile]

	Create(ctx context.Context, record *RegistrationProfile, criteria ...repository.InsertCriteria) (*RegistrationProfile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *RegistrationProfile, criteria ...repository.InsertCriteria) (*RegistrationProfile, error)
	GetByActivationKey(ctx context.Context, key string, criteria ...repository.SelectCriteria) (*RegistrationProfile, error)
	GetByActivationKeyTx(ctx context.Context, tx bun.IDB, key string, criteria ...repository.SelectCriteria) (*RegistrationProfile, error)

	MarkActivated(ctx context.Context, profile *RegistrationProfile) (*RegistrationProfile, error)
	MarkActivatedTx(ctx context.Context, tx bun.IDB, profile *RegistrationProfile) (*RegistrationProfile, error)
}

type profiles struct {
	repository.Repository[*RegistrationProfile]
	db *bun.DB
}

var (
	_ RegistrationProfiles                        = (*profiles)(nil)
	_ repository.Repository[*RegistrationProfile] = (*profiles)(nil)
)

func NewRegistrationProfilesRepository(db *bun.DB) RegistrationProfiles {
	handlers := repository.ModelHandlers[*RegistrationProfile]{
		NewRecord: func() *RegistrationProfile {
			return &RegistrationProfile{}
		},
		GetID: func(record *RegistrationProfile) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *RegistrationProfile, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "activation_key"
		},
	}

	return &profiles{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
	}
}

func (p *profiles) Create(ctx context.Context, record *RegistrationProfile, criteria ...repository.InsertCriteria) (*RegistrationProfile, error) {
	return p.CreateTx(ctx, p.db, record, criteria...)
}

// CreateTx persists the profile. The unique index on user_id keeps at most
// one profile per account; a duplicate insert surfaces as a conflict.
func (p *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *RegistrationProfile, criteria ...repository.InsertCriteria) (*RegistrationProfile, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	created, err := p.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create registration profile").
				WithTextCode(textCodeProfileExists)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create registration profile")
	}

	return created, nil
}

// isUniqueViolation inspects low-level driver errors for constraint
// violations. This is a conservative, string-based mapping to avoid
// importing SQL driver packages: SQLite unique constraint, Postgres unique
// violation (23505), MySQL duplicate entry (1062).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	le := strings.ToLower(err.Error())
	return strings.Contains(le, "unique") ||
		strings.Contains(le, "duplicate") ||
		strings.Contains(le, "23505") ||
		strings.Contains(le, "1062")
}

func (p *profiles) GetByActivationKey(ctx context.Context, key string, criteria ...repository.SelectCriteria) (*RegistrationProfile, error) {
	return p.GetByActivationKeyTx(ctx, p.db, key, criteria...)
}

func (p *profiles) GetByActivationKeyTx(ctx context.Context, tx bun.IDB, key string, criteria ...repository.SelectCriteria) (*RegistrationProfile, error) {
	record := &RegistrationProfile{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.activation_key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"activation_key": key,
				})
		}
		return nil, err
	}

	return record, nil
}

func (p *profiles) MarkActivated(ctx context.Context, profile *RegistrationProfile) (*RegistrationProfile, error) {
	return p.MarkActivatedTx(ctx, p.db, profile)
}

// MarkActivatedTx resets the profile's key to the sentinel. Calling it on a
// profile whose key is already the sentinel is a no-op success; losing the
// conditional update to a concurrent activation is a conflict.
func (p *profiles) MarkActivatedTx(ctx context.Context, tx bun.IDB, profile *RegistrationProfile) (*RegistrationProfile, error) {
	if profile.Activated() {
		return profile, nil
	}

	res, err := p.Repository.RawTx(ctx, tx, MarkActivatedSQL,
		ActivatedSentinel,
		profile.ActivationKey,
		ActivatedSentinel,
	)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, goerrors.New("activation key has already been used", goerrors.CategoryConflict).
			WithTextCode(textCodeKeyAlreadyUsed).
			WithCode(goerrors.CodeConflict)
	}

	return res[0], nil
}
