package health

import (
	"context"
	"database/sql"
	"time"

	"github.com/Megamind2600/resumerocketpro/internal/shared/storage/db"
)

const pingTimeout = 2 * time.Second

// Service reports whether the API and its record store are reachable.
type Service struct {
	db    *sql.DB
	store string
}

// NewService constructs a health service. sqlDB is nil when records are kept in memory.
func NewService(sqlDB *sql.DB) *Service {
	store := "memory"
	if sqlDB != nil {
		store = "postgres"
	}
	return &Service{db: sqlDB, store: store}
}

// Status returns the health payload and whether every dependency answered.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	out := map[string]any{"ok": true, "store": s.store}
	if s.db == nil {
		return out, true
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		out["ok"] = false
		out["database"] = "unreachable"
		return out, false
	}
	out["database"] = "ok"
	out["pool"] = db.Stats(s.db)
	return out, true
}
