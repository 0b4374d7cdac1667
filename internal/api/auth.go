package api

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/forestos-core/internal/auth"
)

// Auth constants.
const (
	// ticketTTL is how long a WebSocket ticket is valid.
	ticketTTL = 60 * time.Second

	// minPasswordLength applies to registration and password changes.
	minPasswordLength = 8

	msgIncorrectLogin = "Incorrect email or password"
	msgEmailTaken     = "Email already registered"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

// loginRequest is the JSON form of POST /auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleRegister creates an active, non-superuser account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	email, err := validateEmail(req.Email)
	if err != nil {
		s.metrics.registrations.WithLabelValues(resultRejected).Inc()
		writeValidationError(w, err.Error())
		return
	}
	if err := validatePassword(req.Password); err != nil {
		s.metrics.registrations.WithLabelValues(resultRejected).Inc()
		writeValidationError(w, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	user := &auth.User{
		Email:        email,
		FullName:     req.FullName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			s.metrics.registrations.WithLabelValues(resultRejected).Inc()
			writeBadRequest(w, msgEmailTaken)
			return
		}
		s.metrics.registrations.WithLabelValues(resultFailure).Inc()
		s.logger.Error("creating user", "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	s.metrics.registrations.WithLabelValues(resultSuccess).Inc()
	s.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin exchanges an email and password for an access token.
// It accepts the OAuth2 password form (username, password) or the same
// fields as JSON.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := parseLogin(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		writeValidationError(w, "username and password are required")
		return
	}

	user, err := s.authn.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch auth.KindOf(err) {
		case auth.KindInvalidCredentials:
			s.metrics.logins.WithLabelValues(resultFailure).Inc()
			writeUnauthorized(w, msgIncorrectLogin)
		case auth.KindInactiveAccount:
			s.metrics.logins.WithLabelValues(resultRejected).Inc()
			writeBadRequest(w, auth.ErrInactiveAccount.Message)
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, msgInternal)
		}
		return
	}

	token, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		s.logger.Error("issuing access token", "user_id", user.ID, "error", err)
		writeInternalError(w, msgInternal)
		return
	}

	s.metrics.logins.WithLabelValues(resultSuccess).Inc()
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	})
}

func parseLogin(r *http.Request) (loginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to form parsing
	if mediaType == "application/json" {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			return loginRequest{}, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return loginRequest{}, errors.New("invalid form body")
	}
	return loginRequest{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, nil
}

// handleTestToken returns the user the presented token belongs to.
func (s *Server) handleTestToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFromContext(r.Context()))
}

func validateEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", errors.New("a valid email address is required")
	}
	return auth.NormalizeEmail(addr.Address), nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// ticketStore holds pending WebSocket authentication tickets.
// Tickets are single-use, bound to a user and expire after ticketTTL.
type ticketStore struct {
	tickets map[string]ticketEntry
	mu      sync.Mutex
	now     func() time.Time
}

type ticketEntry struct {
	userID    int64
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{
		tickets: make(map[string]ticketEntry),
		now:     time.Now,
	}
}

// issue creates a ticket for userID.
func (t *ticketStore) issue(userID int64) string {
	ticket := uuid.NewString()
	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{userID: userID, expiresAt: t.now().Add(ticketTTL)}
	t.mu.Unlock()
	return ticket
}

// redeem consumes a ticket and returns the user it was issued to.
func (t *ticketStore) redeem(ticket string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return 0, false
	}
	delete(t.tickets, ticket)

	if !t.now().Before(entry.expiresAt) {
		return 0, false
	}
	return entry.userID, true
}

// cleanExpired removes expired tickets from the store.
func (t *ticketStore) cleanExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for ticket, entry := range t.tickets {
		if !now.Before(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

// handleWSTicket generates a single-use WebSocket authentication ticket.
// The client uses this ticket to authenticate the WebSocket connection
// without exposing the JWT in the URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     s.tickets.issue(user.ID),
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// cleanTicketsLoop runs cleanExpired periodically until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickets.cleanExpired()
		}
	}
}
