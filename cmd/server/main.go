// cmd/server/main.go
//
// Entry point for the clueword game server. Loads .env, opens and
// migrates the SQLite database, wires the generator against the external
// text service, and serves the API.

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clueword/internal/db"
	"clueword/internal/gen"
	"clueword/internal/history"
	"clueword/internal/httpserver"
	"clueword/internal/session"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	database, err := db.Open(getEnv("DB_PATH", "game_history.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := db.Migrate(database); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	apiKey := os.Getenv("AI_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("AI_API_KEY is not set; puzzle generation will fail")
	}
	client := gen.NewChatClient(
		os.Getenv("AI_BASE_URL"),
		apiKey,
		os.Getenv("AI_MODEL"),
		time.Duration(envInt("AI_TIMEOUT_SECONDS", 30))*time.Second,
	)

	hist := history.NewStore(database)
	generator := gen.New(client, hist, envInt("HISTORY_LIMIT", gen.DefaultHistoryLimit), envInt("GEN_MAX_ATTEMPTS", gen.DefaultMaxAttempts))
	sessions := session.NewMemoryStore(time.Hour)

	srv := httpserver.New(httpserver.Config{
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:     getEnv("JWT_SECRET", "dev_secret_change_me"),
		ConcealAnswer: envBool("CONCEAL_ANSWER"),
	}, generator, hist, sessions)

	port := getEnv("PORT", "5000")
	log.Info().Str("port", port).Bool("conceal_answer", envBool("CONCEAL_ANSWER")).Msg("starting clueword server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(k string) bool {
	v := os.Getenv(k)
	return v == "1" || v == "true"
}
