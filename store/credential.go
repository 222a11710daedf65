package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys written by CredentialStore.
const (
	KeyToken   = "authToken"
	KeyProfile = "currentUser"
	KeyUserID  = "userId"
)

// Scope selects which lifetime a Persist call writes to.
type Scope uint8

const (
	// ScopeDurable survives restarts and holds the token and profile.
	ScopeDurable Scope = 1 << iota
	// ScopeEphemeral lives for the current run and holds the derived user ID.
	ScopeEphemeral

	// ScopeBoth writes both lifetimes.
	ScopeBoth = ScopeDurable | ScopeEphemeral
)

// Has reports whether s includes other.
func (s Scope) Has(other Scope) bool {
	return s&other == other
}

func (s Scope) String() string {
	switch s {
	case ScopeDurable:
		return "durable"
	case ScopeEphemeral:
		return "ephemeral"
	case ScopeBoth:
		return "both"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// Profile is the signed-in user's identity as returned by the authentication
// endpoint.
type Profile struct {
	ID       string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Record is everything one scope currently holds.
type Record struct {
	Token   string
	Profile *Profile
	UserID  string
}

// CredentialStore is the single source of truth for the session credential. It
// never caches: each read goes to the backing KV.
type CredentialStore struct {
	durable   KV
	ephemeral KV
}

// NewCredentialStore wires two independently constructed backends.
func NewCredentialStore(durable, ephemeral KV) (*CredentialStore, error) {
	if durable == nil || ephemeral == nil {
		return nil, ErrNilBackend
	}
	return &CredentialStore{durable: durable, ephemeral: ephemeral}, nil
}

// Persist writes token and profile to the durable scope and the profile's user ID
// to the ephemeral scope, as selected by scopes. A failed write removes whatever
// this call already stored, so a credential is never left behind without the
// rest of the session.
func (c *CredentialStore) Persist(ctx context.Context, scopes Scope, token string, profile Profile) error {
	var written []func() error
	fail := func(err error) error {
		for i := len(written) - 1; i >= 0; i-- {
			if undoErr := written[i](); undoErr != nil {
				err = errors.Join(err, fmt.Errorf("undo partial write: %w", undoErr))
			}
		}
		return err
	}

	if scopes.Has(ScopeDurable) {
		blob, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		if err := c.durable.Set(ctx, KeyToken, token); err != nil {
			return fail(fmt.Errorf("persist token: %w", err))
		}
		written = append(written, func() error { return c.durable.Delete(ctx, KeyToken) })
		if err := c.durable.Set(ctx, KeyProfile, string(blob)); err != nil {
			return fail(fmt.Errorf("persist profile: %w", err))
		}
		written = append(written, func() error { return c.durable.Delete(ctx, KeyProfile) })
	}
	if scopes.Has(ScopeEphemeral) {
		if err := c.ephemeral.Set(ctx, KeyUserID, profile.ID); err != nil {
			return fail(fmt.Errorf("persist user id: %w", err))
		}
	}
	return nil
}

// PersistProfile replaces the durable profile and ephemeral user ID without
// touching the token.
func (c *CredentialStore) PersistProfile(ctx context.Context, profile Profile) error {
	blob, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := c.durable.Set(ctx, KeyProfile, string(blob)); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	if err := c.ephemeral.Set(ctx, KeyUserID, profile.ID); err != nil {
		return fmt.Errorf("persist user id: %w", err)
	}
	return nil
}

// Token reads the credential from the durable scope. An empty stored value counts
// as absent.
func (c *CredentialStore) Token(ctx context.Context) (string, bool, error) {
	v, ok, err := c.durable.Get(ctx, KeyToken)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return v, true, nil
}

// Profile reads the durable profile. A blob that does not parse reads as absent.
func (c *CredentialStore) Profile(ctx context.Context) (*Profile, bool, error) {
	v, ok, err := c.durable.Get(ctx, KeyProfile)
	if err != nil || !ok || v == "" {
		return nil, false, err
	}
	var p Profile
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return nil, false, nil
	}
	return &p, true, nil
}

// UserID reads the derived user ID from the ephemeral scope.
func (c *CredentialStore) UserID(ctx context.Context) (string, bool, error) {
	v, ok, err := c.ephemeral.Get(ctx, KeyUserID)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	return v, true, nil
}

// Read returns what one scope currently holds.
func (c *CredentialStore) Read(ctx context.Context, scope Scope) (Record, error) {
	var rec Record
	switch scope {
	case ScopeDurable:
		token, _, err := c.Token(ctx)
		if err != nil {
			return Record{}, err
		}
		profile, _, err := c.Profile(ctx)
		if err != nil {
			return Record{}, err
		}
		rec.Token = token
		rec.Profile = profile
	case ScopeEphemeral:
		id, _, err := c.UserID(ctx)
		if err != nil {
			return Record{}, err
		}
		rec.UserID = id
	default:
		return Record{}, fmt.Errorf("store: read needs a single scope, got %s", scope)
	}
	return rec, nil
}

// Clear removes every credential key from both scopes. Both deletes are always
// attempted; their errors are joined.
func (c *CredentialStore) Clear(ctx context.Context) error {
	durableErr := c.durable.Delete(ctx, KeyToken, KeyProfile)
	ephemeralErr := c.ephemeral.Delete(ctx, KeyUserID)
	return errors.Join(durableErr, ephemeralErr)
}
