package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alchemmist/termreel/internal/recording"
)

const schemaVersion = 1

func openIndex(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS recordings (
		  id          TEXT PRIMARY KEY,
		  name        TEXT NOT NULL,
		  title       TEXT,
		  width       INTEGER NOT NULL,
		  height      INTEGER NOT NULL,
		  frames      INTEGER NOT NULL,
		  started_at  INTEGER NOT NULL,
		  duration_ns INTEGER NOT NULL,
		  file        TEXT NOT NULL,
		  saved_at    INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_recordings_name_saved
		ON recordings(name, saved_at DESC);

		CREATE INDEX IF NOT EXISTS idx_recordings_saved
		ON recordings(saved_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", schemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, name, title, width, height, frames, started_at, duration_ns, file, saved_at`

func insertRecord(db *sql.DB, r recording.Record) error {
	_, err := db.Exec(`INSERT INTO recordings (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, sql.NullString{String: r.Title, Valid: r.Title != ""},
		r.Width, r.Height, r.Frames,
		r.StartedAt.UnixNano(), int64(r.Duration), r.File, r.SavedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("index recording %s: %w", r.ID, err)
	}
	return nil
}

func recordByID(db *sql.DB, id string) (recording.Record, error) {
	return scanRecord(db.QueryRow(`SELECT `+recordColumns+` FROM recordings WHERE id = ?`, id))
}

func latestByName(db *sql.DB, name string) (recording.Record, error) {
	return scanRecord(db.QueryRow(`SELECT `+recordColumns+` FROM recordings WHERE name = ? ORDER BY saved_at DESC, id DESC LIMIT 1`, name))
}

func listRecords(db *sql.DB) ([]recording.Record, error) {
	rows, err := db.Query(`SELECT ` + recordColumns + ` FROM recordings ORDER BY saved_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []recording.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func deleteRecord(db *sql.DB, id string) error {
	_, err := db.Exec(`DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (recording.Record, error) {
	var (
		r                  recording.Record
		title              sql.NullString
		started, dur, save int64
	)
	if err := row.Scan(&r.ID, &r.Name, &title, &r.Width, &r.Height, &r.Frames, &started, &dur, &r.File, &save); err != nil {
		return recording.Record{}, err
	}
	r.Title = title.String
	r.StartedAt = time.Unix(0, started).UTC()
	r.Duration = time.Duration(dur)
	r.SavedAt = time.Unix(0, save).UTC()
	return r, nil
}
