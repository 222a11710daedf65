package authstub

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultRole is assigned to accounts created through /auth/signup.
const DefaultRole = "User"

// Config configures a Server.
type Config struct {
	// Secret is the HS256 signing key. Required.
	Secret []byte
	// TokenTTL is the credential lifetime. Zero mints credentials without exp.
	TokenTTL time.Duration
	Issuer   string
	Hash     HashConfig
	Now      func() time.Time
	// Throttle, when set, answers 429 after too many failed logins per email.
	Throttle *ThrottleConfig
}

// User is a stored account.
type User struct {
	ID           string
	Username     string
	Email        string
	Role         string
	passwordHash string
}

// Claims is the credential payload the stub mints.
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type rejection struct {
	status int
	body   string
}

// Server is a goroutine-safe in-memory authentication service.
type Server struct {
	config   Config
	hasher   *hasher
	throttle *throttle

	mu      sync.Mutex
	byEmail map[string]*User
	byID    map[string]*User
	revoked map[string]struct{}
	next    map[string]rejection
	calls   map[string]int
}

// New validates cfg and returns an empty Server.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("authstub: secret is required")
	}
	if cfg.TokenTTL < 0 {
		return nil, errors.New("authstub: token ttl must be >= 0")
	}
	if cfg.Hash == (HashConfig{}) {
		cfg.Hash = DefaultHashConfig()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h, err := newHasher(cfg.Hash)
	if err != nil {
		return nil, fmt.Errorf("authstub: %w", err)
	}
	th, err := newThrottle(cfg.Throttle)
	if err != nil {
		return nil, fmt.Errorf("authstub: %w", err)
	}

	return &Server{
		config:   cfg,
		hasher:   h,
		throttle: th,
		byEmail:  make(map[string]*User),
		byID:     make(map[string]*User),
		revoked:  make(map[string]struct{}),
		next:     make(map[string]rejection),
		calls:    make(map[string]int),
	}, nil
}

// AddUser stores an account and returns it. Email is matched case-insensitively.
func (s *Server) AddUser(username, email, password, role string) (User, error) {
	hash, err := s.hasher.hash(password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(username, email, hash, role)
}

func (s *Server) addLocked(username, email, hash, role string) (User, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.byEmail[key]; ok {
		return User{}, errUserExists
	}
	for _, u := range s.byID {
		if strings.EqualFold(u.Username, username) {
			return User{}, errUserExists
		}
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		Role:         role,
		passwordHash: hash,
	}
	s.byEmail[key] = u
	s.byID[u.ID] = u
	return *u, nil
}

// SetRole changes a stored user's role, as an administrator would server-side.
func (s *Server) SetRole(userID, role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if ok {
		u.Role = role
	}
	return ok
}

// Revoke makes every credential minted for userID fail /auth/me with 401.
func (s *Server) Revoke(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[userID] = struct{}{}
}

// RejectNext makes the next request to path answer status with body instead of
// being served.
func (s *Server) RejectNext(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[path] = rejection{status: status, body: body}
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Mint signs a credential for u.
func (s *Server) Mint(u User) (string, error) {
	now := s.config.Now()
	claims := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  u.ID,
			Issuer:   s.config.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	if s.config.TokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.config.TokenTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
}

// Parse verifies a credential minted by this Server.
func (s *Server) Parse(raw string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.config.Now),
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	claims := &Claims{}
	tok, err := jwt.NewParser(options...).ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
