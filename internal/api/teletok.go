package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/behailu412/teletok/internal/config"
	"github.com/behailu412/teletok/internal/database"
	"github.com/behailu412/teletok/internal/gateway"
	"github.com/behailu412/teletok/internal/stats"
	"github.com/gorilla/handlers"
)

type TeleTokApp struct {
	log            *log.Logger
	db             database.TeleTokRepository
	mux            *http.Server
	gw             *gateway.Gateway
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	uploadDir      string
	maxUploadBytes int64
}

func NewTeleTokApp(mux *http.ServeMux, logger *log.Logger, gw *gateway.Gateway,
	db database.TeleTokRepository, su stats.StatsProvider, cfg *config.Config) *TeleTokApp {
	s := &TeleTokApp{
		log:            logger,
		db:             db,
		gw:             gw,
		stats:          su,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		uploadDir:      cfg.UploadDir,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	mux.HandleFunc("POST /register", s.register)
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("POST /logout", s.logout)
	mux.Handle("GET /get_profile", s.authMiddleware(s.getProfile))
	mux.Handle("GET /search_users", s.authMiddleware(s.searchUsers))
	mux.Handle("POST /add_contact", s.authMiddleware(s.addContact))
	mux.Handle("GET /get_contacts", s.authMiddleware(s.getContacts))
	mux.Handle("GET /get_messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /update_profile", s.authMiddleware(s.updateProfile))
	mux.HandleFunc("POST /delete_message", s.deleteMessage)
	mux.HandleFunc("GET /uploads/{filename}", s.serveUpload)
	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *TeleTokApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *TeleTokApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
