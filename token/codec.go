package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when a credential cannot be split, base64url-decoded,
// or parsed as a JSON payload.
var ErrMalformed = errors.New("malformed credential")

// roleClaimURI is the role claim name emitted by ASP.NET Core identity servers.
const roleClaimURI = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Text is a claim value that tolerates issuers encoding identifiers as numbers
// or single-element arrays instead of strings.
type Text string

// UnmarshalJSON accepts a JSON string, number, null, or array of strings (the
// first element wins).
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		if len(values) > 0 {
			*t = Text(values[0])
		} else {
			*t = ""
		}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported claim value %s", data)
		}
		*t = Text(n.String())
		return nil
	}
}

// Claims is the decoded credential payload.
type Claims struct {
	UserID   Text `json:"userId,omitempty"`
	Email    Text `json:"email,omitempty"`
	Username Text `json:"username,omitempty"`
	RoleName Text `json:"role,omitempty"`
	MSRole   Text `json:"http://schemas.microsoft.com/ws/2008/06/identity/claims/role,omitempty"`
	jwt.RegisteredClaims
}

// Role returns the role claim, falling back to the ASP.NET identity role URI.
func (c *Claims) Role() string {
	if c == nil {
		return ""
	}
	if c.RoleName != "" {
		return string(c.RoleName)
	}
	return string(c.MSRole)
}

// SubjectID returns userId, falling back to the registered sub claim.
func (c *Claims) SubjectID() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return string(c.UserID)
	}
	return c.RegisteredClaims.Subject
}

// HasExpiry reports whether the payload carried an exp claim.
func (c *Claims) HasExpiry() bool {
	return c != nil && c.ExpiresAt != nil
}

// Decode splits raw on ".", base64url-decodes the payload segment and parses it
// as a JSON object. Every failure is reported as ErrMalformed.
func Decode(raw string) (*Claims, error) {
	segments := strings.Split(raw, ".")
	if len(segments) < 2 {
		return nil, fmt.Errorf("%w: expected at least 2 segments, got %d", ErrMalformed, len(segments))
	}
	payload, err := segmentParser.DecodeSegment(segments[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload segment: %v", ErrMalformed, err)
	}

	// null, arrays and scalars unmarshal into a zero Claims without error.
	if body := bytes.TrimSpace(payload); len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformed)
	}

	var out Claims
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: payload json: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after payload", ErrMalformed)
	}

	return &out, nil
}

// Codec evaluates credentials against a clock and an expiry policy.
//
// The zero value uses the wall clock and treats a credential without an exp
// claim as non-expiring.
type Codec struct {
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
	// RequireExpiry makes credentials without an exp claim count as expired.
	RequireExpiry bool
}

func (c Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Decode forwards to the package-level Decode.
func (c Codec) Decode(raw string) (*Claims, error) {
	return Decode(raw)
}

// IsExpired is true when raw fails to decode, or when its exp claim is present and
// the current instant is at or past it (millisecond precision).
func (c Codec) IsExpired(raw string) bool {
	claims, err := Decode(raw)
	if err != nil {
		return true
	}
	if !claims.HasExpiry() {
		return c.RequireExpiry
	}
	return c.now().UnixMilli() >= claims.ExpiresAt.Time.UnixMilli()
}

// ExpiresAt returns the exp instant when raw decodes and carries one.
func (c Codec) ExpiresAt(raw string) (time.Time, bool) {
	claims, err := Decode(raw)
	if err != nil || !claims.HasExpiry() {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Remaining returns how long raw stays valid. Zero when expired or malformed; ok is
// false when the credential has no expiry.
func (c Codec) Remaining(raw string) (time.Duration, bool) {
	if c.IsExpired(raw) {
		return 0, true
	}
	exp, ok := c.ExpiresAt(raw)
	if !ok {
		return 0, false
	}
	return exp.Sub(c.now()), true
}

// IsExpired evaluates raw with the default Codec.
func IsExpired(raw string) bool {
	return Codec{}.IsExpired(raw)
}
