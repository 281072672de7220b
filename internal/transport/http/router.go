package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"confessbot/internal/bot"
	"confessbot/internal/httputil"
	"confessbot/internal/service"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	Bot       *bot.Router
	Discovery *service.DiscoveryService
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Liveness plus aggregate counts.
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		stats, err := cfg.Discovery.Stats(req.Context(), false)
		if err != nil {
			httputil.WriteInternalError(w, "failed to collect stats")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "online",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"stats":     stats,
		})
	})

	// Telegram webhook. The update is always acknowledged with 200 so
	// Telegram does not redeliver; dispatch failures are logged inside
	// the bot router.
	r.Post("/webhook", func(w http.ResponseWriter, req *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(req.Body).Decode(&update); err != nil {
			log.Printf("[Webhook] Malformed update: %v", err)
			httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"error":        "malformed update",
				"acknowledged": true,
			})
			return
		}
		cfg.Bot.HandleUpdate(req.Context(), update)
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	return r
}
