package authstub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	PathLogin  = "/auth/login"
	PathSignup = "/auth/signup"
	PathMe     = "/auth/me"
)

var errUserExists = errors.New("user already exists")

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileBody struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

type loginBody struct {
	Token string `json:"token"`
	profileBody
}

// Handler returns the routes mounted under prefix (for example "/api").
func (s *Server) Handler(prefix string) http.Handler {
	prefix = strings.TrimRight(prefix, "/")
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+prefix+PathLogin, s.intercept(PathLogin, s.handleLogin))
	mux.HandleFunc("POST "+prefix+PathSignup, s.intercept(PathSignup, s.handleSignup))
	mux.HandleFunc("GET "+prefix+PathMe, s.intercept(PathMe, s.handleMe))
	return mux
}

func (s *Server) intercept(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[path]++
		rej, ok := s.next[path]
		delete(s.next, path)
		s.mu.Unlock()

		if ok {
			if rej.body != "" {
				w.Header().Set("Content-Type", "application/json")
			}
			w.WriteHeader(rej.status)
			_, _ = w.Write([]byte(rej.body))
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body."})
		return
	}

	if s.throttle != nil {
		if err := s.throttle.check(r.Context(), req.Email); err != nil {
			if errors.Is(err, errThrottled) {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"message": MsgThrottled})
				return
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Sign-in is temporarily unavailable."})
			return
		}
	}

	s.mu.Lock()
	u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	var user User
	if ok {
		user = *u
	}
	s.mu.Unlock()

	if !ok {
		s.loginFailed(r, req.Email)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if match, err := s.hasher.verify(req.Password, user.passwordHash); err != nil || !match {
		s.loginFailed(r, req.Email)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if s.throttle != nil {
		_ = s.throttle.reset(r.Context(), req.Email)
	}

	tok, err := s.Mint(user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Unable to issue credential."})
		return
	}
	writeJSON(w, http.StatusOK, loginBody{Token: tok, profileBody: profileOf(user)})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request body."})
		return
	}

	fieldErrors := map[string][]string{}
	if strings.TrimSpace(req.Username) == "" {
		fieldErrors["Username"] = append(fieldErrors["Username"], "Username is required")
	}
	if !strings.Contains(req.Email, "@") {
		fieldErrors["Email"] = append(fieldErrors["Email"], "Email is not valid")
	}
	if len(req.Password) < 8 {
		fieldErrors["Password"] = append(fieldErrors["Password"], "Password must be at least 8 characters")
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fieldErrors})
		return
	}

	hash, err := s.hasher.hash(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Unable to store password."})
		return
	}

	s.mu.Lock()
	u, err := s.addLocked(req.Username, req.Email, hash, DefaultRole)
	s.mu.Unlock()
	if errors.Is(err, errUserExists) {
		w.WriteHeader(http.StatusConflict)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
		return
	}

	body := profileOf(u)
	body.Role = ""
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	claims, err := s.Parse(raw)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.UserID]
	u, found := s.byID[claims.UserID]
	var user User
	if found {
		user = *u
	}
	s.mu.Unlock()

	if revoked || !found {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (s *Server) loginFailed(r *http.Request, email string) {
	if s.throttle != nil {
		_ = s.throttle.fail(r.Context(), email)
	}
}

func profileOf(u User) profileBody {
	return profileBody{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
