// Package persist caches mailbox snapshots and deletion history in a
// local SQLite database so repeated analysis runs do not hammer the API.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mailsift/mailsift/internal/snapshot"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoSnapshot is returned by LoadSnapshot when the cache is empty.
var ErrNoSnapshot = errors.New("persist: no cached snapshot")

var createTableSql = []string{
	// The messages table holds the flattened per-message metadata of
	// the most recent snapshot. Timestamps are stored as Unix seconds
	// in UTC; boolean flags as 0/1 integers.
	`
CREATE TABLE IF NOT EXISTS messages (
message_id TEXT NOT NULL PRIMARY KEY,
thread_id TEXT NOT NULL,
sender TEXT NOT NULL,
sender_name TEXT NOT NULL,
subject TEXT NOT NULL,
snippet TEXT NOT NULL,
date INTEGER NOT NULL,
read INTEGER NOT NULL,
starred INTEGER NOT NULL,
important INTEGER NOT NULL,
has_attachment INTEGER NOT NULL,
has_unsubscribe INTEGER NOT NULL,
replied INTEGER NOT NULL
);`,
	// message_labels maps a message to the display names of the labels
	// applied to it at snapshot time.
	`
CREATE TABLE IF NOT EXISTS message_labels (
message_id TEXT NOT NULL,
label TEXT NOT NULL,
PRIMARY KEY (message_id, label)
FOREIGN KEY (message_id) REFERENCES messages (message_id)
);`,
	// labels mirrors the mailbox label set, including system labels.
	`
CREATE TABLE IF NOT EXISTS labels (
label_id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL,
message_count INTEGER NOT NULL,
system INTEGER NOT NULL
);`,
	// sender_deletions accumulates, across runs, how many messages
	// from each sender the user has trashed through this tool. The
	// safety scorer treats a prior-deletion record as a mild signal
	// that more mail from the sender is disposable.
	`
CREATE TABLE IF NOT EXISTS sender_deletions (
sender TEXT NOT NULL PRIMARY KEY,
count INTEGER NOT NULL,
last_deleted INTEGER NOT NULL
);`,
	// snapshot_meta is a single-row table recording when the cached
	// snapshot was taken.
	`
CREATE TABLE IF NOT EXISTS snapshot_meta (
id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
taken_at INTEGER NOT NULL
);`,
}

// DB is a handle on the snapshot cache.
type DB struct {
	db *sql.DB
}

func dsnFromPath(path string) (string, error) {
	var u *url.URL
	if !strings.HasPrefix(path, "file:") {
		u = &url.URL{Scheme: "file", Path: path}
	} else {
		var err error
		u, err = url.Parse(path)
		if err != nil {
			return "", err
		}
	}
	// SQLite's default busy timeout of 5 seconds gives up too easily
	// when a fetch and an audit overlap; poll for up to a minute.
	values := u.Query()
	values.Set("_busy_timeout", fmt.Sprintf("%d", int(time.Minute/time.Millisecond)))
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// Open opens (creating if needed) the cache database at path.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn, err := dsnFromPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not form a DSN from %q", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open database at %q", dsn)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "could not initialize schema at %q", path)
	}
	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range createTableSql {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "while executing %q", stmt)
		}
	}
	return nil
}

// SaveSnapshot replaces the cached snapshot wholesale.
func (db *DB) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) (err error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM message_labels`,
		`DELETE FROM messages`,
		`DELETE FROM labels`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "clearing cache with %q", stmt)
		}
	}

	insMsg, err := tx.PrepareContext(ctx, `
INSERT INTO messages
(message_id, thread_id, sender, sender_name, subject, snippet, date,
 read, starred, important, has_attachment, has_unsubscribe, replied)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return errors.Wrap(err, "prepare message insert failed")
	}
	defer insMsg.Close()

	insLabel, err := tx.PrepareContext(ctx, `
INSERT INTO message_labels (message_id, label) VALUES ($1, $2)`)
	if err != nil {
		return errors.Wrap(err, "prepare message_labels insert failed")
	}
	defer insLabel.Close()

	for _, msg := range snap.Messages {
		_, err = insMsg.ExecContext(ctx,
			msg.ID, msg.ThreadID, msg.Sender, msg.SenderName,
			msg.Subject, msg.Snippet, msg.Date.UTC().Unix(),
			boolInt(msg.Read), boolInt(msg.Starred), boolInt(msg.Important),
			boolInt(msg.HasAttachment), boolInt(msg.HasUnsubscribe), boolInt(msg.Replied))
		if err != nil {
			return errors.Wrapf(err, "inserting message %s", msg.ID)
		}
		for _, label := range msg.Labels {
			if _, err = insLabel.ExecContext(ctx, msg.ID, label); err != nil {
				return errors.Wrapf(err, "labeling message %s", msg.ID)
			}
		}
	}

	for _, label := range snap.Labels {
		_, err = tx.ExecContext(ctx, `
INSERT INTO labels (label_id, name, message_count, system)
VALUES ($1, $2, $3, $4)`,
			label.ID, label.Name, label.MessageCount, boolInt(label.System))
		if err != nil {
			return errors.Wrapf(err, "inserting label %q", label.Name)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO snapshot_meta (id, taken_at) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET taken_at = $1`,
		snap.TakenAt.UTC().Unix())
	if err != nil {
		return errors.Wrap(err, "recording snapshot time failed")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit failed")
	}
	return nil
}

// LoadSnapshot reads the cached snapshot back. Returns ErrNoSnapshot
// when nothing has been saved yet.
func (db *DB) LoadSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	takenAt, err := db.TakenAt(ctx)
	if err != nil {
		return nil, err
	}
	snap := &snapshot.Snapshot{TakenAt: takenAt}

	rows, err := db.db.QueryContext(ctx, `
SELECT message_id, thread_id, sender, sender_name, subject, snippet, date,
       read, starred, important, has_attachment, has_unsubscribe, replied
FROM messages ORDER BY message_id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages failed")
	}
	defer rows.Close()

	byID := make(map[string]int)
	for rows.Next() {
		var msg snapshot.Message
		var date int64
		var read, starred, important, attach, unsub, replied int
		err = rows.Scan(&msg.ID, &msg.ThreadID, &msg.Sender, &msg.SenderName,
			&msg.Subject, &msg.Snippet, &date,
			&read, &starred, &important, &attach, &unsub, &replied)
		if err != nil {
			return nil, errors.Wrap(err, "scanning message failed")
		}
		msg.Date = time.Unix(date, 0).UTC()
		msg.Read = read != 0
		msg.Starred = starred != 0
		msg.Important = important != 0
		msg.HasAttachment = attach != 0
		msg.HasUnsubscribe = unsub != 0
		msg.Replied = replied != 0
		byID[msg.ID] = len(snap.Messages)
		snap.Messages = append(snap.Messages, msg)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating messages failed")
	}

	if err = db.loadMessageLabels(ctx, snap, byID); err != nil {
		return nil, err
	}
	if err = db.loadLabels(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (db *DB) loadMessageLabels(ctx context.Context, snap *snapshot.Snapshot, byID map[string]int) error {
	rows, err := db.db.QueryContext(ctx, `
SELECT message_id, label FROM message_labels ORDER BY message_id, label`)
	if err != nil {
		return errors.Wrap(err, "querying message labels failed")
	}
	defer rows.Close()

	for rows.Next() {
		var id, label string
		if err := rows.Scan(&id, &label); err != nil {
			return errors.Wrap(err, "scanning message label failed")
		}
		if i, ok := byID[id]; ok {
			snap.Messages[i].Labels = append(snap.Messages[i].Labels, label)
		}
	}
	return errors.Wrap(rows.Err(), "iterating message labels failed")
}

func (db *DB) loadLabels(ctx context.Context, snap *snapshot.Snapshot) error {
	rows, err := db.db.QueryContext(ctx, `
SELECT label_id, name, message_count, system FROM labels ORDER BY name`)
	if err != nil {
		return errors.Wrap(err, "querying labels failed")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label  snapshot.Label
			system int
		)
		if err := rows.Scan(&label.ID, &label.Name, &label.MessageCount, &system); err != nil {
			return errors.Wrap(err, "scanning label failed")
		}
		label.System = system != 0
		snap.Labels = append(snap.Labels, label)
	}
	return errors.Wrap(rows.Err(), "iterating labels failed")
}

// TakenAt reports when the cached snapshot was fetched.
func (db *DB) TakenAt(ctx context.Context) (time.Time, error) {
	row := db.db.QueryRowContext(ctx, `SELECT taken_at FROM snapshot_meta WHERE id = 1`)
	var unix int64
	if err := row.Scan(&unix); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, ErrNoSnapshot
		}
		return time.Time{}, errors.Wrap(err, "reading snapshot time failed")
	}
	return time.Unix(unix, 0).UTC(), nil
}

// Fresh reports whether the cached snapshot is younger than maxAge.
func (db *DB) Fresh(ctx context.Context, now time.Time, maxAge time.Duration) (bool, error) {
	takenAt, err := db.TakenAt(ctx)
	if err == ErrNoSnapshot {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Sub(takenAt) <= maxAge, nil
}

// RecordDeletions bumps the per-sender deletion counters after a trash
// run, so later scoring passes see the history.
func (db *DB) RecordDeletions(ctx context.Context, senders []string, when time.Time) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	upsert, err := tx.PrepareContext(ctx, `
INSERT INTO sender_deletions (sender, count, last_deleted) VALUES ($1, 1, $2)
ON CONFLICT (sender) DO UPDATE SET count = count + 1, last_deleted = $2`)
	if err != nil {
		tx.Rollback()
		return errors.Wrap(err, "prepare deletion upsert failed")
	}
	defer upsert.Close()

	unix := when.UTC().Unix()
	for _, sender := range senders {
		if _, err := upsert.ExecContext(ctx, sender, unix); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "recording deletion for %q", sender)
		}
	}
	return errors.Wrap(tx.Commit(), "commit failed")
}

// DeletionHistory returns the accumulated per-sender deletion counts.
func (db *DB) DeletionHistory(ctx context.Context) (map[string]int, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT sender, count FROM sender_deletions`)
	if err != nil {
		return nil, errors.Wrap(err, "querying deletion history failed")
	}
	defer rows.Close()

	history := make(map[string]int)
	for rows.Next() {
		var (
			sender string
			count  int
		)
		if err := rows.Scan(&sender, &count); err != nil {
			return nil, errors.Wrap(err, "scanning deletion history failed")
		}
		history[sender] = count
	}
	return history, errors.Wrap(rows.Err(), "iterating deletion history failed")
}

// RemoveMessages drops trashed messages from the cached snapshot so the
// cache does not resurface them as candidates.
func (db *DB) RemoveMessages(ctx context.Context, ids []string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM message_labels WHERE message_id = $1`, id); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "unlabeling message %s", id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE message_id = $1`, id); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "removing message %s", id)
		}
	}
	return errors.Wrap(tx.Commit(), "commit failed")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
