// internal/httpserver/server.go
//
// HTTP wiring for the clueword backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: /api/login, /api/get_user_stats, /api/init_game,
//     /api/check_char, /api/finish_game, /api/leaderboard.
//   - Lightweight signed login tokens (username only; no passwords).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Username resolution prefers the explicit request value and falls back
//     to a valid login token, so existing clients that replay ?username=
//     keep working.
//   - All collaborator handles (generator, history store, session store)
//     are injected; handlers carry no ambient state.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"clueword/internal/game"
	"clueword/internal/gen"
	"clueword/internal/history"
	"clueword/internal/session"
)

// PuzzleGenerator produces one fresh puzzle for a user.
// Satisfied by *gen.Generator; tests substitute fakes.
type PuzzleGenerator interface {
	Generate(ctx context.Context, username string) (gen.Puzzle, error)
}

// Config carries the server's environment-derived knobs.
type Config struct {
	ClientOrigin  string // credentialed CORS origin
	JWTSecret     string // HS256 secret for login tokens
	ConcealAnswer bool   // keep answers server-side instead of debug_answer
}

// Server bundles router, config, and injected collaborators.
type Server struct {
	r        *chi.Mux
	cfg      Config
	gen      PuzzleGenerator
	hist     *history.Store
	sessions session.Store
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config, g PuzzleGenerator, hist *history.Store, sessions session.Store) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, gen: g, hist: hist, sessions: sessions}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(60 * time.Second)) // generation may take several seconds
	s.r.Use(jsonContentType)
	s.r.Use(corsFor(cfg.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"clueword","endpoints":["/health","POST /api/login","GET /api/init_game","POST /api/check_char","POST /api/finish_game"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Get("/get_user_stats", s.handleUserStats)
		r.Get("/init_game", s.handleInitGame)
		r.Post("/check_char", s.handleCheckChar)
		r.Post("/finish_game", s.handleFinishGame)
		r.Get("/leaderboard", s.handleLeaderboard)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------- LOGIN -------------------------------------

type loginReq struct {
	Username string `json:"username"`
}

// handleLogin upserts the user and returns a greeting plus a signed token.
// There are no passwords; the token only spares clients from replaying
// ?username= on every call.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		http.Error(w, `{"error":"用户名不能为空"}`, http.StatusBadRequest)
		return
	}

	created, err := s.hist.UpsertUser(r.Context(), username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("upsert user")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	msg := "欢迎回来, " + username + "!"
	if created {
		msg = "欢迎新用户 " + username + "!"
	}

	token, err := s.signLoginToken(username)
	if err != nil {
		log.Warn().Err(err).Msg("sign login token")
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":   "success",
		"username": username,
		"message":  msg,
		"token":    token,
	})
}

// ------------------------------- STATS -------------------------------------

// handleUserStats returns total games and average attempts for a user.
func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	username := s.username(r)
	if username == "" {
		http.Error(w, `{"error":"未登录"}`, http.StatusUnauthorized)
		return
	}
	total, avg, err := s.hist.UserStats(r.Context(), username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("user stats")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_games":  total,
		"avg_attempts": math.Round(avg*10) / 10,
	})
}

// ------------------------------- GAME --------------------------------------

// handleInitGame asks the generator for a fresh puzzle. In concealed mode
// the answer stays in the session store and the client gets a game ID;
// otherwise the answer rides along as debug_answer, as the original
// client expects.
func (s *Server) handleInitGame(w http.ResponseWriter, r *http.Request) {
	username := s.username(r)
	if username == "" {
		http.Error(w, `{"error":"未登录"}`, http.StatusUnauthorized)
		return
	}

	p, err := s.gen.Generate(r.Context(), username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("puzzle generation failed")
		http.Error(w, `{"error":"AI 出题失败，请刷新重试"}`, http.StatusInternalServerError)
		return
	}
	wordLength := utf8.RuneCountInString(p.Word)

	if s.cfg.ConcealAnswer {
		g := &session.Game{ID: session.NewID(), Username: username, Word: p.Word, Clue: p.Clue}
		if err := s.sessions.Save(r.Context(), g); err != nil {
			log.Error().Err(err).Msg("save game session")
			http.Error(w, `{"error":"session_error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"game_id":     g.ID,
			"word_length": wordLength,
			"clue":        p.Clue,
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"word_length":  wordLength,
		"clue":         p.Clue,
		"debug_answer": p.Word,
	})
}

type checkCharReq struct {
	Char   string `json:"char"`
	Answer string `json:"answer"`
	Clue   string `json:"clue"`
	GameID string `json:"game_id"`
}

// handleCheckChar verifies a single character against the puzzle.
// Clients either supply answer+clue directly (debug mode) or a game_id
// referencing a concealed session.
func (s *Server) handleCheckChar(w http.ResponseWriter, r *http.Request) {
	var body checkCharReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}

	answer, clue := body.Answer, body.Clue
	if body.GameID != "" {
		g, err := s.sessions.Get(r.Context(), body.GameID)
		if err != nil {
			http.Error(w, `{"error":"对局不存在或已过期"}`, http.StatusNotFound)
			return
		}
		answer, clue = g.Word, g.Clue
	}

	res, err := game.CheckChar(body.Char, answer, clue)
	if err != nil {
		http.Error(w, `{"error":"请输入单个字符"}`, http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

type finishGameReq struct {
	Username string `json:"username"`
	Word     string `json:"word"`
	Clue     string `json:"clue"`
	Attempts int    `json:"attempts"`
	Hints    int    `json:"hints"`
	GameID   string `json:"game_id"`
}

// handleFinishGame records a finished game. With a game_id the word and
// clue come from the concealed session, which is consumed on success.
func (s *Server) handleFinishGame(w http.ResponseWriter, r *http.Request) {
	var body finishGameReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		username = s.username(r)
	}
	if username == "" {
		http.Error(w, `{"error":"未登录"}`, http.StatusUnauthorized)
		return
	}

	word, clue := body.Word, body.Clue
	if body.GameID != "" {
		g, err := s.sessions.Get(r.Context(), body.GameID)
		if err != nil {
			http.Error(w, `{"error":"对局不存在或已过期"}`, http.StatusNotFound)
			return
		}
		word, clue = g.Word, g.Clue
	}

	err := s.hist.RecordOutcome(r.Context(), history.Outcome{
		Username: username,
		Word:     word,
		Clue:     clue,
		Attempts: body.Attempts,
		Hints:    body.Hints,
	})
	if errors.Is(err, history.ErrDuplicateRecord) {
		http.Error(w, `{"status":"duplicate"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("record outcome")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if body.GameID != "" {
		_ = s.sessions.Delete(r.Context(), body.GameID)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// ---------------------------- LEADERBOARD ----------------------------------

// handleLeaderboard serves the activity and skill rankings.
// kind=active (default) ranks by games played; kind=skill by average
// attempts ascending, two-game minimum.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "active"
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	switch kind {
	case "active":
		rows, err := s.hist.MostActive(r.Context(), limit)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"kind": kind, "rows": rows})
	case "skill":
		rows, err := s.hist.TopSkill(r.Context(), limit)
		if err != nil {
			http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"kind": kind, "rows": rows})
	default:
		http.Error(w, `{"error":"unknown leaderboard kind"}`, http.StatusBadRequest)
	}
}

// --------------------------- login tokens ----------------------------------

// username resolves the caller's username: explicit query value first,
// then a valid login token.
func (s *Server) username(r *http.Request) string {
	if u := strings.TrimSpace(r.URL.Query().Get("username")); u != "" {
		return u
	}
	return s.usernameFromToken(r)
}

// signLoginToken creates an HS256 token carrying the username, valid 14 days.
func (s *Server) signLoginToken(username string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(14 * 24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	})
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// usernameFromToken extracts the username from a bearer token, or "".
func (s *Server) usernameFromToken(r *http.Request) string {
	a := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return ""
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(a[7:]), claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	username, _ := claims["username"].(string)
	return username
}
