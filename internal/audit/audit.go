// Package audit records security and business events into audit_logs.
// Recording is best-effort: failures are logged and never reach the caller.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Action string

const (
	ActionUserRegister          Action = "USER_REGISTER"
	ActionUserLogin             Action = "USER_LOGIN"
	ActionProfileUpdate         Action = "PROFILE_UPDATE"
	ActionOrderCreated          Action = "ORDER_CREATED"
	ActionSubscriptionCreated   Action = "SUBSCRIPTION_CREATED"
	ActionSubscriptionCancelled Action = "SUBSCRIPTION_CANCELLED"
)

type Entry struct {
	UserID     uuid.UUID
	Action     Action
	EntityType string
	EntityID   string
	Details    map[string]any
	IPAddress  string
}

type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type row struct {
	UserID     *uuid.UUID `db:"user_id"`
	Action     string     `db:"action"`
	EntityType string     `db:"entity_type"`
	EntityID   string     `db:"entity_id"`
	Details    string     `db:"details"`
	IPAddress  string     `db:"ip_address"`
	CreatedAt  time.Time  `db:"created_at"`
}

type sqlRecorder struct {
	db *sqlx.DB
}

// NewRecorder returns a Recorder writing through db. db is expected to wrap
// the application pool (stdlib.OpenDBFromPool) with the "pgx" driver name.
func NewRecorder(db *sqlx.DB) Recorder {
	return &sqlRecorder{db: db}
}

func (r *sqlRecorder) Record(ctx context.Context, e Entry) {
	details := "{}"
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			log.Warn().Err(err).Str("action", string(e.Action)).Msg("audit: failed to marshal details")
		} else {
			details = string(b)
		}
	}

	rec := row{
		Action:     string(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    details,
		IPAddress:  e.IPAddress,
		CreatedAt:  time.Now().UTC(),
	}
	if e.UserID != uuid.Nil {
		id := e.UserID
		rec.UserID = &id
	}

	// detached from request cancellation, bounded by its own timeout
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details, ip_address, created_at)
		VALUES (:user_id, :action, :entity_type, :entity_id, CAST(:details AS JSONB), :ip_address, :created_at)
	`
	if _, err := r.db.NamedExecContext(writeCtx, query, rec); err != nil {
		log.Error().Err(err).Str("action", rec.Action).Str("entity_id", rec.EntityID).Msg("audit: failed to write audit log")
	}
}

type nopRecorder struct{}

// Nop discards every entry.
func Nop() Recorder {
	return nopRecorder{}
}

func (nopRecorder) Record(context.Context, Entry) {}
