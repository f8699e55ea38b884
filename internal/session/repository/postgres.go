package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	profiledomain "staff-dashboard/internal/profile/domain"
)

// PostgresStore keeps the session for one client in the client_sessions table.
type PostgresStore struct {
	db       *sql.DB
	clientID string
	nowF     func() time.Time
}

// NewPostgresStore returns a session store for clientID using db. The table comes from the
// embedded migrations (cmd/migrate).
func NewPostgresStore(db *sql.DB, clientID string) *PostgresStore {
	return &PostgresStore{db: db, clientID: clientID, nowF: func() time.Time { return time.Now().UTC() }}
}

func (s *PostgresStore) load(ctx context.Context) (*record, error) {
	var (
		rec     record
		profile []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, profile FROM client_sessions WHERE client_id = $1`, s.clientID,
	).Scan(&rec.Token, &profile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres session: %w", err)
	}
	if len(profile) > 0 {
		var p profiledomain.Profile
		if err := json.Unmarshal(profile, &p); err != nil {
			return nil, fmt.Errorf("postgres session: decode profile: %w", err)
		}
		rec.Profile = &p
	}
	return &rec, nil
}

func (s *PostgresStore) GetToken(ctx context.Context) (string, error) {
	rec, err := s.load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token, nil
}

func (s *PostgresStore) GetCachedProfile(ctx context.Context) (*profiledomain.Profile, error) {
	rec, err := s.load(ctx)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Profile, nil
}

func (s *PostgresStore) Save(ctx context.Context, token string, p *profiledomain.Profile) error {
	var profile []byte
	if p != nil {
		var err error
		if profile, err = json.Marshal(p); err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_sessions (client_id, token, profile, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id) DO UPDATE
		SET token = EXCLUDED.token, profile = EXCLUDED.profile, updated_at = EXCLUDED.updated_at`,
		s.clientID, token, nullJSON(profile), s.nowF(),
	)
	if err != nil {
		return fmt.Errorf("postgres session: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_sessions WHERE client_id = $1`, s.clientID); err != nil {
		return fmt.Errorf("postgres session: %w", err)
	}
	return nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
