package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xtrntr/marketplace/internal/analytics"
	"github.com/xtrntr/marketplace/internal/api"
	"github.com/xtrntr/marketplace/internal/catalog"
	"github.com/xtrntr/marketplace/internal/config"
	"github.com/xtrntr/marketplace/internal/ledger"
	"github.com/xtrntr/marketplace/internal/logger"
	"github.com/xtrntr/marketplace/internal/market"
	"github.com/xtrntr/marketplace/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*wsClient]bool)
	clientsMu sync.RWMutex
)

// broadcastFeed pushes the latest settlements to every connected client.
func broadcastFeed(txlog *market.TransactionLog, log *zap.Logger) {
	feed := struct {
		Transactions []models.Transaction `json:"transactions"`
	}{
		Transactions: txlog.Transactions(),
	}
	data, err := json.Marshal(feed)
	if err != nil {
		log.Error("failed to marshal settlement feed", zap.Error(err))
		return
	}

	clientsMu.RLock()
	stale := []*wsClient{}
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			stale = append(stale, client)
		}
	}
	clientsMu.RUnlock()

	if len(stale) > 0 {
		clientsMu.Lock()
		for _, client := range stale {
			delete(clients, client)
		}
		clientsMu.Unlock()
	}
}

func handleWebSocket(txlog *market.TransactionLog, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("failed to upgrade connection", zap.Error(err))
			return
		}

		client := &wsClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send the current feed immediately on connect
		broadcastFeed(txlog, log)

		// Keep connection alive and handle disconnection
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// seedDemo bootstraps the marketplace the way the original system did:
// one customer with an opening balance and a store.
func seedDemo(roster *market.Roster, log *zap.Logger) {
	alice, err := roster.Register("Alice", 2000)
	if err != nil {
		log.Error("failed to seed demo customer", zap.Error(err))
		return
	}
	if _, err := roster.Promote(alice.ID, "Alice's Store"); err != nil {
		log.Error("failed to seed demo store", zap.Error(err))
		return
	}
	log.Info("seeded demo customer", zap.Int("customer_id", alice.ID))
}

// Main entry point: builds the in-memory stores, the settlement engine
// and the HTTP server.
func main() {
	cfg := config.Load()

	log := logger.New(cfg.LogMode)
	defer log.Sync()

	// In-memory stores: the journal, ledger, catalogs, orders and
	// transaction log live for the life of the process.
	journal := ledger.NewJournal()
	bank := ledger.NewLedger(journal)
	catalogs := catalog.NewRegistry()
	roster := market.NewRoster(bank, catalogs)
	orders := market.NewOrderStore()
	txlog := market.NewTransactionLog()

	// Settlement engine
	engine := market.NewEngine(bank, catalogs, orders, txlog, log)

	// Analytics over the journal + transaction log
	analyticsSvc := analytics.NewService(bank, journal, txlog)
	analyticsSvc.DormancyWindow = time.Duration(cfg.DormancyWindowDays) * 24 * time.Hour

	if cfg.SeedDemo {
		seedDemo(roster, log)
	}

	// API handlers
	handler := api.NewHandler(bank, journal, catalogs, roster, orders, engine, analyticsSvc, log)
	handler.TopUsersLimit = cfg.TopActiveLimit

	// Set up HTTP router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket settlement feed
	r.Get("/ws", handleWebSocket(txlog, log))

	r.Mount("/", handler.Routes())

	// Periodic feed broadcast
	stopFeed := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.FeedInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				broadcastFeed(txlog, log)
			case <-stopFeed:
				return
			}
		}
	}()

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Info("starting server", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stopFeed)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
