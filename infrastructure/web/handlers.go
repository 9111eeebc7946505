// Package web exposes the transport layer: JSON handlers for the request
// operations and the WebSocket endpoint for live delivery. It maps every
// domain error kind to a user-visible response and contains no business
// rules of its own.
package web

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"parley/auth"
	"parley/contract"
	"parley/domain"
	"parley/domain/event"
	"parley/errors"
	"parley/observability"
	"parley/services"

	"github.com/samber/lo"
)

const defaultSearchLimit = 20

type Server struct {
	log          *slog.Logger
	authService  services.IAuthService
	convService  services.IConversationService
	chatService  services.IChatService
	registry     contract.IRegistry
	monitor      *observability.Monitor
	issuer       auth.TokenIssuer
	sinkBuffer   int
	writeTimeout time.Duration
}

func NewServer(log *slog.Logger, authService services.IAuthService,
	convService services.IConversationService, chatService services.IChatService,
	registry contract.IRegistry, monitor *observability.Monitor,
	issuer auth.TokenIssuer, sinkBuffer int, writeTimeout time.Duration) *Server {
	return &Server{
		log:          log,
		authService:  authService,
		convService:  convService,
		chatService:  chatService,
		registry:     registry,
		monitor:      monitor,
		issuer:       issuer,
		sinkBuffer:   sinkBuffer,
		writeTimeout: writeTimeout,
	}
}

// Routes wires every endpoint onto a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /conversations", s.Authenticate(s.handleCreateConversation))
	mux.HandleFunc("GET /conversations", s.Authenticate(s.handleListConversations))
	mux.HandleFunc("POST /conversations/join", s.Authenticate(s.handleJoin))
	mux.HandleFunc("GET /conversations/{id}", s.Authenticate(s.handleDetail))
	mux.HandleFunc("POST /conversations/{id}/decide", s.Authenticate(s.handleDecide))
	mux.HandleFunc("POST /conversations/{id}/leave", s.Authenticate(s.handleLeave))
	mux.HandleFunc("POST /conversations/{id}/messages", s.Authenticate(s.handleSendMessage))
	mux.HandleFunc("GET /conversations/{id}/messages", s.Authenticate(s.handleMessages))
	mux.HandleFunc("GET /conversations/{id}/search", s.Authenticate(s.handleSearch))
	mux.HandleFunc("GET /conversations/{id}/recent", s.Authenticate(s.handleRecent))
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /ws", s.Authenticate(s.handleConnect))
	return mux
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	token, err := s.authService.Register(req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	token, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

type createConversationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	conv, err := s.convService.Create(req.Name, req.Description, claimsFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": conv.ID})
}

type headerResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	headers, err := s.convService.List(claimsFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	response := lo.Map(headers, func(h domain.Header, _ int) headerResponse {
		return headerResponse{ID: h.ID, Name: h.Name}
	})
	s.writeJSON(w, http.StatusOK, map[string]any{"conversations": response})
}

type joinRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	status, err := s.convService.RequestJoin(req.Name, claimsFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": status.String()})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.convService.Detail(r.PathValue("id"), claimsFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

type decideRequest struct {
	UserID  string `json:"user_id"`
	Approve bool   `json:"approve"`
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	conv, err := s.convService.Decide(r.PathValue("id"), claimsFrom(r).UserID, req.UserID, req.Approve)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	left, err := s.convService.Leave(r.PathValue("id"), claimsFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"left": left})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	message, err := s.chatService.SendMessage(r.Context(), r.PathValue("id"), claimsFrom(r).UserID, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toMessageResponse(message))
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := s.chatService.Messages(r.PathValue("id"), claimsFrom(r).UserID, cursor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"messages": lo.Map(messages, func(m domain.Message, _ int) messageBody {
			return toMessageBody(m)
		}),
		"cursor": next,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query().Get("q")
	if terms == "" {
		http.Error(w, "missing query", http.StatusBadRequest)
		return
	}
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.chatService.Search(r.Context(), r.PathValue("id"), claimsFrom(r).UserID, terms, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": entries})
}

// handleRecent serves the in-memory timeline: the last broadcasts of a
// conversation, in the same frame shape the WebSocket pushes.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := s.chatService.Recent(r.PathValue("id"), claimsFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"recent": lo.Map(entries, func(e event.SanitizedMessage, _ int) outboundFrame {
			return toOutboundFrame(e)
		}),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Snapshot(s.registry.Sessions()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("Response encoding failed", "error", err)
	}
}

// writeError maps each error kind of the taxonomy to its HTTP status.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case stderrors.Is(err, errors.ErrNameTaken), stderrors.Is(err, errors.ErrUserAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case stderrors.Is(err, errors.ErrUnauthorized), stderrors.Is(err, errors.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case stderrors.Is(err, errors.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case stderrors.Is(err, errors.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("Internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
