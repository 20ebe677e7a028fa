package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/futureme-za/futureme/internal/agents"
	"github.com/futureme-za/futureme/internal/email"
	"github.com/futureme-za/futureme/internal/genai"
	"github.com/futureme-za/futureme/internal/messaging"
	"github.com/futureme-za/futureme/internal/scheduler"
	"github.com/futureme-za/futureme/internal/store"
)

// Default server settings.
const (
	DefaultAddr            = ":8080"
	DefaultNotifyCron      = "0 9 * * *" // daily 09:00 sweep
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
)

// Opts holds configuration for the API server.
type Opts struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string
	// NotifyCron is the cron expression for the idle-user notification sweep.
	// Empty disables the scheduled sweep; POST /send-notifications still works.
	NotifyCron string
}

// Option configures the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithNotifyCron sets the schedule for the idle-user notification sweep.
func WithNotifyCron(expr string) Option {
	return func(o *Opts) { o.NotifyCron = expr }
}

// Server wires the store, conversation brain, notifier, and scheduler behind
// the HTTP endpoints.
type Server struct {
	store    store.Store
	brain    *agents.Brain
	notifier *agents.Notifier
	sched    *scheduler.Scheduler
	httpSrv  *http.Server
	opts     Opts
}

// NewServer assembles a Server from its collaborators.
func NewServer(st store.Store, brain *agents.Brain, notifier *agents.Notifier, opts ...Option) *Server {
	var o Opts
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	return &Server{
		store:    st,
		brain:    brain,
		notifier: notifier,
		sched:    scheduler.NewScheduler(),
		opts:     o,
	}
}

// Handler returns the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/send-notifications", s.notificationsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Start begins serving HTTP and schedules the notification sweep. It blocks
// until the listener fails or Stop is called.
func (s *Server) Start() error {
	if s.opts.NotifyCron != "" {
		err := s.sched.AddJob(s.opts.NotifyCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			result, err := s.notifier.Run(ctx)
			if err != nil {
				slog.Error("Server.Start: scheduled notification sweep failed", "error", err)
				return
			}
			slog.Info("Server.Start: scheduled notification sweep complete", "sent", result.Sent, "failed", result.Failed)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule notification sweep: %w", err)
		}
		slog.Info("Server.Start: notification sweep scheduled", "cron", s.opts.NotifyCron)
	}

	s.httpSrv = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	slog.Info("Server.Start: FutureMe API listening", "addr", s.opts.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop shuts down the HTTP server and the scheduler.
func (s *Server) Stop(ctx context.Context) error {
	s.sched.Stop()
	if s.httpSrv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// Run builds the full application from options and serves until the listener
// stops: store (Postgres, SQLite, or in-memory), GenAI client, email sender,
// messaging service, brain, notifier, and HTTP server.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, emailOpts []email.Option, msgService messaging.Service, apiOpts ...Option) error {
	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize GenAI client: %w", err)
	}

	sender, err := email.NewResendSender(emailOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize email sender: %w", err)
	}

	brain := agents.NewBrain(st, client, sender)
	notifier := agents.NewNotifier(st, msgService)

	srv := NewServer(st, brain, notifier, apiOpts...)
	return srv.Start()
}

// buildStore selects the backing store from the supplied options, falling
// back to the in-memory store when no DSN is configured.
func buildStore(opts []store.Option) (store.Store, error) {
	var o store.Opts
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.DSN == "" {
		slog.Info("api.buildStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(o.DSN) {
	case "postgres":
		slog.Info("api.buildStore: using PostgreSQL store")
		return store.NewPostgresStore(opts...)
	default:
		slog.Info("api.buildStore: using SQLite store")
		return store.NewSQLiteStore(opts...)
	}
}
