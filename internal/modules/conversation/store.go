// README: Write-only audit store backed by PostgreSQL plus a Redis hot snapshot.
package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"navmarg/internal/modules/slot"
	"navmarg/internal/types"
)

const (
	snapshotKeyPrefix = "conversation:session:%s"
	// Sessions are short-lived; a week covers any realistic resume window.
	snapshotTTL = 7 * 24 * time.Hour
)

// Store persists the session audit trail. The dialogue core never reads any
// of this back mid-conversation; every method is an idempotent upsert or an
// append.
type Store struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewStore(db *pgxpool.Pool, redisClient *redis.Client) *Store {
	return &Store{db: db, redis: redisClient}
}

type sessionSnapshot struct {
	State       State `json:"state"`
	QuestionIdx int   `json:"question_idx"`
}

// schemaStatements create the audit tables. Columns mirror the slot catalog
// and the session/message/itinerary records written below.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		current_question_idx INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS slots (
		session_id TEXT PRIMARY KEY,
		origin TEXT NOT NULL DEFAULT '',
		destination TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		travel_type TEXT NOT NULL DEFAULT '',
		adults TEXT NOT NULL DEFAULT '',
		children TEXT NOT NULL DEFAULT '',
		budget TEXT NOT NULL DEFAULT '',
		budget_tier TEXT NOT NULL DEFAULT '',
		interests TEXT NOT NULL DEFAULT '',
		pace TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		is_complete BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS itineraries (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		version INT NOT NULL,
		raw_plan TEXT NOT NULL,
		final_plan TEXT NOT NULL,
		change_request TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the audit tables when they do not exist yet. Called
// once at startup; a fresh database is usable without out-of-band migrations.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

func (s *Store) UpsertSession(ctx context.Context, id types.ID, state State, questionIdx int) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, state, current_question_idx, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			current_question_idx = EXCLUDED.current_question_idx,
			updated_at = EXCLUDED.updated_at`,
		string(id), string(state), questionIdx, now,
	)
	if err != nil {
		return err
	}

	if s.redis != nil {
		snap, _ := json.Marshal(sessionSnapshot{State: state, QuestionIdx: questionIdx})
		key := fmt.Sprintf(snapshotKeyPrefix, string(id))
		if err := s.redis.Set(ctx, key, snap, snapshotTTL).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, id types.ID, role, content string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO messages (session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4)`,
		string(id), role, content, time.Now().UTC(),
	)
	return err
}

func (s *Store) UpsertSlots(ctx context.Context, id types.ID, values slot.Values, complete bool) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO slots (
			session_id, origin, destination, start_date, end_date, travel_type,
			adults, children, budget, budget_tier, interests, pace, experience,
			is_complete, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (session_id) DO UPDATE SET
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			travel_type = EXCLUDED.travel_type,
			adults = EXCLUDED.adults,
			children = EXCLUDED.children,
			budget = EXCLUDED.budget,
			budget_tier = EXCLUDED.budget_tier,
			interests = EXCLUDED.interests,
			pace = EXCLUDED.pace,
			experience = EXCLUDED.experience,
			is_complete = EXCLUDED.is_complete,
			updated_at = EXCLUDED.updated_at`,
		string(id),
		values["origin"], values["destination"], values["start_date"], values["end_date"],
		values["travel_type"], values["adults"], values["children"], values["budget"],
		values["budget_tier"], values["interests"], values["pace"], values["experience"],
		complete, time.Now().UTC(),
	)
	return err
}

func (s *Store) AppendItinerary(ctx context.Context, id types.ID, version int, rawDraft, finalPlan, changeRequest string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO itineraries (session_id, version, raw_plan, final_plan, change_request, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(id), version, rawDraft, finalPlan, changeRequest, time.Now().UTC(),
	)
	return err
}
