// Package httpserver exposes the engagement API over HTTP.
package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"devblog/internal/auth"
	"devblog/internal/config"
	"devblog/internal/domain"
	"devblog/internal/events"
	"devblog/internal/metrics"
)

// Server is the HTTP server fronting the auth, post, and engagement
// services.
type Server struct {
	cfg        *config.Config
	auth       *auth.Service
	posts      *domain.PostService
	engagement *domain.EngagementService
	hub        *events.Hub
	metrics    *metrics.Metrics
	logger     *slog.Logger
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates an HTTP server wiring every route to its service.
func NewServer(
	cfg *config.Config,
	authSvc *auth.Service,
	posts *domain.PostService,
	engagement *domain.EngagementService,
	hub *events.Hub,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:        cfg,
		auth:       authSvc,
		posts:      posts,
		engagement: engagement,
		hub:        hub,
		metrics:    m,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("POST /posts", s.authenticated(s.handleCreatePost))
	mux.HandleFunc("GET /posts", s.handleListPosts)
	mux.HandleFunc("GET /posts/{postID}", s.handleGetPost)
	mux.HandleFunc("PATCH /posts/{postID}", s.authenticated(s.handleUpdatePost))
	mux.HandleFunc("DELETE /posts/{postID}", s.authenticated(s.handleDeletePost))

	mux.HandleFunc("PATCH /posts/{postID}/react", s.authenticated(s.handleReact))
	mux.HandleFunc("POST /posts/{postID}/comments", s.authenticated(s.handleCreateComment))
	mux.HandleFunc("GET /posts/{postID}/comments", s.handleListComments)
	mux.HandleFunc("PATCH /posts/{postID}/comments/{commentID}/like", s.authenticated(s.handleLikeComment))

	mux.HandleFunc("GET /users/{userID}/posts", s.handleUserPosts)

	mux.Handle("GET /events", hub)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /health", s.handleHealth)

	s.mux = mux
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signupRequest struct {
	Name              string `json:"name"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	creds, err := s.auth.Signup(r.Context(), auth.SignupInput{
		Name:              req.Name,
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		ProfilePictureURL: req.ProfilePictureURL,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully!",
		"token":   creds.Token,
		"user":    creds.User,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	creds, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Logged in successfully!",
		"token":   creds.Token,
		"user":    creds.User,
	})
}

type postRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	ImageURL string   `json:"imageUrl"`
	Hashtags []string `json:"hashtags"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	var req postRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	post, err := s.posts.CreatePost(r.Context(), userID, domain.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
		Hashtags: req.Hashtags,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Post created successfully!",
		"post":    post,
	})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			s.writeError(w, fmt.Errorf("limit must be a number: %w", domain.ErrInvalidArgument))
			return
		}
		limit = parsed
	}
	posts, err := s.posts.ListPosts(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetPost(r.Context(), domain.PostID(r.PathValue("postID")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	var req postRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	post, err := s.posts.UpdatePost(r.Context(), domain.PostID(r.PathValue("postID")), userID, domain.PostInput{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
		Hashtags: req.Hashtags,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post updated successfully!",
		"post":    post,
	})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	if err := s.posts.DeletePost(r.Context(), domain.PostID(r.PathValue("postID")), userID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully."})
}

type reactRequest struct {
	ReactionType string `json:"reactionType"`
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	var req reactRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	post, err := s.engagement.ToggleReaction(
		r.Context(),
		domain.PostID(r.PathValue("postID")),
		userID,
		domain.ReactionKind(req.ReactionType),
	)
	s.metrics.ObserveEngagement("react", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Reaction toggled successfully!",
		"post":    post,
	})
}

type commentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	comment, err := s.engagement.CreateComment(
		r.Context(),
		domain.PostID(r.PathValue("postID")),
		userID,
		req.Content,
	)
	s.metrics.ObserveEngagement("comment", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Comment added successfully!",
		"comment": comment,
	})
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.engagement.ListComments(r.Context(), domain.PostID(r.PathValue("postID")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handleLikeComment(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	comment, err := s.engagement.ToggleLike(
		r.Context(),
		domain.PostID(r.PathValue("postID")),
		domain.CommentID(r.PathValue("commentID")),
		userID,
	)
	s.metrics.ObserveEngagement("like", err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Like toggled successfully!",
		"comment": comment,
	})
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListUserPosts(r.Context(), domain.UserID(r.PathValue("userID")))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if posts == nil {
		posts = []domain.PostSummary{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// authenticated resolves the bearer credential before invoking next. The
// resolved user id is passed explicitly rather than smuggled through the
// context.
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, domain.UserID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.UserFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, userID)
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Field   string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}

	body := errorBody{Message: err.Error(), Status: status}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		body.Message = "Internal server error."
	}
	var dup *domain.DuplicateError
	if errors.As(err, &dup) {
		body.Field = dup.Field
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		_, route := s.mux.Handler(r)
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrade on /events pass through the logging
// wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
