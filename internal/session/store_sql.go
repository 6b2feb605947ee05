package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) New(instrumentID, respondentID string) (Session, error) {
	sess := Session{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		RespondentID: respondentID,
		Status:       StatusInProgress,
		Answers:      map[string]any{},
		StartedAt:    time.Now().Unix(),
	}
	buf, _ := json.Marshal(sess.Answers)
	_, err := s.db.Exec(`INSERT INTO sessions (id,instrument_id,respondent_id,status,answers_json,started_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sess.ID, sess.InstrumentID, sess.RespondentID, sess.Status, string(buf), sess.StartedAt)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) Get(id string) (Session, error) {
	row := s.db.QueryRow(`SELECT id,instrument_id,respondent_id,status,answers_json,started_at,submitted_at
		FROM sessions WHERE id=$1`, id)
	return scanSession(row)
}

func (s *SQLStore) SaveAnswers(id string, answers map[string]any) (Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return Session{}, err
	}
	if sess.Status == StatusSubmitted {
		return Session{}, ErrSubmitted
	}
	if sess.Answers == nil {
		sess.Answers = map[string]any{}
	}
	for k, v := range answers {
		sess.Answers[k] = v
	}
	buf, _ := json.Marshal(sess.Answers)
	if _, err := s.db.Exec(`UPDATE sessions SET answers_json=$1 WHERE id=$2`, string(buf), id); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) Submit(id string) (Session, error) {
	sess, err := s.Get(id)
	if err != nil {
		return Session{}, err
	}
	if sess.Status == StatusSubmitted {
		return sess, nil
	}
	now := time.Now().Unix()
	if _, err := s.db.Exec(`UPDATE sessions SET status=$1, submitted_at=$2 WHERE id=$3`,
		StatusSubmitted, now, id); err != nil {
		return Session{}, err
	}
	sess.Status = StatusSubmitted
	sess.SubmittedAt = &now
	return sess, nil
}

func (s *SQLStore) ListByRespondent(respondentID string) ([]Session, error) {
	rows, err := s.db.Query(`SELECT id,instrument_id,respondent_id,status,answers_json,started_at,submitted_at
		FROM sessions WHERE respondent_id=$1 ORDER BY started_at DESC`, respondentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		sess        Session
		answersJSON string
		submittedAt sql.NullInt64
	)
	if err := r.Scan(&sess.ID, &sess.InstrumentID, &sess.RespondentID, &sess.Status,
		&answersJSON, &sess.StartedAt, &submittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(answersJSON), &sess.Answers); err != nil {
		return Session{}, err
	}
	if submittedAt.Valid {
		sess.SubmittedAt = &submittedAt.Int64
	}
	return sess, nil
}
