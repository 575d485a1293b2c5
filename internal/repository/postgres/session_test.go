package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"numrent/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestSessionRepo_Get(t *testing.T) {
	number := "+15551234567"

	tests := []struct {
		name          string
		userID        int64
		mockRows      *sqlmock.Rows
		mockError     error
		expected      *domain.Session
		expectedError bool
	}{
		{
			name:   "session with number",
			userID: 123,
			mockRows: sqlmock.NewRows([]string{"user_id", "account_sid", "auth_token", "number"}).
				AddRow(123, "AC00000000000000000000000000000001", "tok", "+15551234567"),
			expected: &domain.Session{
				UserID:     123,
				AccountSID: "AC00000000000000000000000000000001",
				AuthToken:  "tok",
				Number:     &number,
			},
		},
		{
			name:   "session without number",
			userID: 456,
			mockRows: sqlmock.NewRows([]string{"user_id", "account_sid", "auth_token", "number"}).
				AddRow(456, "AC00000000000000000000000000000002", "tok2", nil),
			expected: &domain.Session{
				UserID:     456,
				AccountSID: "AC00000000000000000000000000000002",
				AuthToken:  "tok2",
			},
		},
		{
			name:      "no session",
			userID:    789,
			mockError: sql.ErrNoRows,
			expected:  nil,
		},
		{
			name:          "query error",
			userID:        999,
			mockError:     errors.New("connection lost"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			repo := NewSessionRepo(db)

			query := "SELECT user_id, account_sid, auth_token, number FROM sessions WHERE user_id = \\$1"

			if tt.mockError != nil {
				mock.ExpectQuery(query).WithArgs(tt.userID).WillReturnError(tt.mockError)
			} else {
				mock.ExpectQuery(query).WithArgs(tt.userID).WillReturnRows(tt.mockRows)
			}

			session, err := repo.Get(tt.userID)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, session)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSessionRepo_Put(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepo(db)

	number := "+15551234567"
	session := &domain.Session{
		UserID:     123,
		AccountSID: "AC00000000000000000000000000000001",
		AuthToken:  "tok",
		Number:     &number,
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(session.UserID, session.AccountSID, session.AuthToken, sql.NullString{String: number, Valid: true}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Put(session)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Put_NoNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepo(db)

	session := &domain.Session{
		UserID:     123,
		AccountSID: "AC00000000000000000000000000000001",
		AuthToken:  "tok",
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(session.UserID, session.AccountSID, session.AuthToken, sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Put(session)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepo(db)

	mock.ExpectExec("DELETE FROM sessions WHERE user_id = \\$1").
		WithArgs(int64(123)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(123)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_LoadAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepo(db)

	rows := sqlmock.NewRows([]string{"user_id", "account_sid", "auth_token", "number"}).
		AddRow(1, "AC00000000000000000000000000000001", "tok1", "+15551234567").
		AddRow(2, "AC00000000000000000000000000000002", "tok2", nil)

	mock.ExpectQuery("SELECT user_id, account_sid, auth_token, number FROM sessions").
		WillReturnRows(rows)

	sessions, err := repo.LoadAll()

	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, "+15551234567", sessions[1].ActiveNumber())
	assert.False(t, sessions[2].HasNumber())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_PersistAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepo(db)

	number := "+15551234567"
	sessions := map[int64]*domain.Session{
		1: {UserID: 1, AccountSID: "AC00000000000000000000000000000001", AuthToken: "tok1", Number: &number},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(int64(1), "AC00000000000000000000000000000001", "tok1", sql.NullString{String: number, Valid: true}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = repo.PersistAll(sessions)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_PersistAll_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewSessionRepo(db)

	sessions := map[int64]*domain.Session{
		1: {UserID: 1, AccountSID: "AC00000000000000000000000000000001", AuthToken: "tok1"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM sessions").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err = repo.PersistAll(sessions)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
