package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/pillminder/internal/feed"
	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/instrumentation"
	"github.com/teemow/pillminder/internal/prescription"
	"github.com/teemow/pillminder/internal/store"
)

// PrescriptionStore is the saved-prescription surface the server uses.
type PrescriptionStore interface {
	Create(ctx context.Context, owner string, p prescription.Prescription) (*store.Record, error)
	Get(ctx context.Context, owner, id string) (*store.Record, error)
	List(ctx context.Context, owner string) ([]store.Record, error)
	Delete(ctx context.Context, owner, id string) error
}

// ServerContext holds the dependencies shared by the HTTP API and the MCP tools.
type ServerContext struct {
	ctx           context.Context
	cancel        context.CancelFunc
	gateway       *gateway.Gateway
	prescriptions PrescriptionStore
	feedSigner    *feed.Signer
	baseURL       string
	metrics       *instrumentation.Metrics
	auditLogger   *instrumentation.AuditLogger
	logger        *slog.Logger
	mu            sync.RWMutex
	shutdown      bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, gw *gateway.Gateway, prescriptions PrescriptionStore) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		gateway:       gw,
		prescriptions: prescriptions,
		logger:        slog.Default(),
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Gateway returns the calendar/task gateway
func (sc *ServerContext) Gateway() *gateway.Gateway {
	return sc.gateway
}

// Prescriptions returns the saved-prescription store. It may be nil.
func (sc *ServerContext) Prescriptions() PrescriptionStore {
	return sc.prescriptions
}

// SetFeedSigner enables ICS subscription feeds. baseURL is the public URL
// feed links are built on.
func (sc *ServerContext) SetFeedSigner(signer *feed.Signer, baseURL string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.feedSigner = signer
	sc.baseURL = baseURL
}

// FeedSigner returns the feed signer, or nil when feeds are disabled
func (sc *ServerContext) FeedSigner() *feed.Signer {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.feedSigner
}

// BaseURL returns the public base URL
func (sc *ServerContext) BaseURL() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.baseURL
}

// SetMetrics sets the metrics recorder
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// Metrics returns the metrics recorder. It may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger
func (sc *ServerContext) SetAuditLogger(logger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = logger
}

// AuditLogger returns the audit logger. It may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetLogger sets the logger
func (sc *ServerContext) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.logger = logger
}

// Logger returns the logger
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
