package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/relic-console/internal/protocol"
)

// Command results as recorded in the journal.
const (
	ResultSent         = "sent"
	ResultFailed       = "failed"
	ResultDisconnected = "disconnected"
	ResultQueueFull    = "queue_full"
)

// Session is one run of the console against a gateway endpoint. All journal
// rows belong to a session.
type Session struct {
	ID        string
	Endpoint  string
	StartedAt time.Time

	store *Store
}

// GossipRecord is an archived gossip entry.
type GossipRecord struct {
	ID         int64
	SessionID  string
	Gossip     protocol.Gossip
	ReceivedAt time.Time
}

// CommandRecord is an issued command and what happened to it.
type CommandRecord struct {
	ID        string
	SessionID string
	Kind      protocol.CommandKind
	Payload   string
	Result    string
	CreatedAt time.Time
}

// BeginSession starts a new journal session.
func (s *Store) BeginSession(endpoint string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		Endpoint:  endpoint,
		StartedAt: time.Now().UTC(),
		store:     s,
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (id, endpoint, started_at)
		VALUES (?, ?, ?)
	`, sess.ID, sess.Endpoint, sess.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	log.Debug().Str("session", sess.ID).Str("endpoint", endpoint).Msg("Journal session started")
	return sess, nil
}

// RecordGossip archives a batch of gossip entries in one transaction.
func (sess *Session) RecordGossip(entries []protocol.Gossip) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := sess.store.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO gossip (session_id, gossip_id, node, msg, sent_at, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare gossip insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, g := range entries {
		if _, err := stmt.Exec(sess.ID, g.ID.String(), g.Node, g.Msg, g.Time, now); err != nil {
			return fmt.Errorf("insert gossip: %w", err)
		}
	}

	return tx.Commit()
}

// RecordEvent archives a system event.
func (sess *Session) RecordEvent(msg string, at time.Time) error {
	_, err := sess.store.db.Exec(`
		INSERT INTO events (session_id, msg, received_at)
		VALUES (?, ?, ?)
	`, sess.ID, msg, at.UTC())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecordCommand archives an issued command with its outcome.
func (sess *Session) RecordCommand(cmd protocol.Command, result string) error {
	id := cmd.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := sess.store.db.Exec(`
		INSERT INTO commands (id, session_id, kind, payload, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET result = excluded.result
	`, id, sess.ID, cmd.Kind, cmd.PayloadText(), result, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert command: %w", err)
	}
	return nil
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchGossip finds archived gossip whose message or node name contains
// query as a literal substring, newest first. An empty query returns the
// latest entries.
func (s *Store) SearchGossip(query string, limit int) ([]*GossipRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := likeEscaper.Replace(query)

	rows, err := s.db.Query(`
		SELECT id, session_id, gossip_id, node, msg, sent_at, received_at
		FROM gossip
		WHERE msg LIKE '%' || ? || '%' ESCAPE '\'
		   OR node LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY id DESC
		LIMIT ?
	`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search gossip: %w", err)
	}
	defer rows.Close()

	var records []*GossipRecord
	for rows.Next() {
		var r GossipRecord
		var gossipID string
		if err := rows.Scan(&r.ID, &r.SessionID, &gossipID, &r.Gossip.Node, &r.Gossip.Msg, &r.Gossip.Time, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan gossip: %w", err)
		}
		r.Gossip.ID = protocol.StringID(gossipID)
		records = append(records, &r)
	}

	return records, rows.Err()
}

// RecentCommands returns the latest issued commands, newest first.
func (s *Store) RecentCommands(limit int) ([]*CommandRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, payload, result, created_at
		FROM commands
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	var records []*CommandRecord
	for rows.Next() {
		var r CommandRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Kind, &r.Payload, &r.Result, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		records = append(records, &r)
	}

	return records, rows.Err()
}

// CountEvents returns the number of archived system events for a session.
func (s *Store) CountEvents(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
