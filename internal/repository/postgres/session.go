package postgres

import (
	"database/sql"
	"fmt"

	"numrent/internal/domain"
)

// SessionRepo implements repository.SessionRepository
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Get returns the session for a user, or nil when none exists
func (r *SessionRepo) Get(userID int64) (*domain.Session, error) {
	var s domain.Session
	var number sql.NullString
	query := `SELECT user_id, account_sid, auth_token, number FROM sessions WHERE user_id = $1`
	err := r.db.QueryRow(query, userID).Scan(&s.UserID, &s.AccountSID, &s.AuthToken, &number)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if number.Valid {
		s.Number = &number.String
	}

	return &s, nil
}

// Put inserts or replaces the session for a user
func (r *SessionRepo) Put(session *domain.Session) error {
	query := `
		INSERT INTO sessions (user_id, account_sid, auth_token, number, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET account_sid = $2, auth_token = $3, number = $4, updated_at = NOW()
	`
	_, err := r.db.Exec(query, session.UserID, session.AccountSID, session.AuthToken, nullableNumber(session))
	return err
}

// Delete removes the session for a user
func (r *SessionRepo) Delete(userID int64) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	_, err := r.db.Exec(query, userID)
	return err
}

// LoadAll returns every persisted session keyed by user ID
func (r *SessionRepo) LoadAll() (map[int64]*domain.Session, error) {
	query := `SELECT user_id, account_sid, auth_token, number FROM sessions`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make(map[int64]*domain.Session)
	for rows.Next() {
		var s domain.Session
		var number sql.NullString
		if err := rows.Scan(&s.UserID, &s.AccountSID, &s.AuthToken, &number); err != nil {
			return nil, err
		}
		if number.Valid {
			s.Number = &number.String
		}
		sessions[s.UserID] = &s
	}

	return sessions, rows.Err()
}

// PersistAll replaces the stored snapshot with the given mapping in one
// transaction
func (r *SessionRepo) PersistAll(sessions map[int64]*domain.Session) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	query := `
		INSERT INTO sessions (user_id, account_sid, auth_token, number, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	for _, s := range sessions {
		if _, err := tx.Exec(query, s.UserID, s.AccountSID, s.AuthToken, nullableNumber(s)); err != nil {
			return fmt.Errorf("failed to insert session for user %d: %w", s.UserID, err)
		}
	}

	return tx.Commit()
}

func nullableNumber(s *domain.Session) sql.NullString {
	if s.Number == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s.Number, Valid: true}
}
