// Package store persists template records and their packages in SQLite.
//
// Records are stored as JSON next to a few indexed columns. Package bytes
// are stored once per checksum, so successive versions of a template share
// one blob. The caller opens the *sql.DB with the driver of its choice
// (modernc.org/sqlite or github.com/mattn/go-sqlite3) and calls SetupSchema
// once before New.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// SetupSchema creates the tables used by the store. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaPackages = `
CREATE TABLE IF NOT EXISTS stencil_packages (
    checksum TEXT PRIMARY KEY,
    data BLOB NOT NULL
);
`
		schemaTemplates = `
CREATE TABLE IF NOT EXISTS stencil_templates (
    template_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    parent_id TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL,
    state TEXT NOT NULL,
    revision INTEGER NOT NULL DEFAULT 0,
    package_checksum TEXT NOT NULL REFERENCES stencil_packages(checksum),
    record TEXT NOT NULL
);
`
		indexTemplates = `CREATE INDEX IF NOT EXISTS stencil_templates_name ON stencil_templates (name, version);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaPackages); err != nil {
		return fmt.Errorf("could not create packages schema: %w", err)
	}
	if _, err = tx.Exec(schemaTemplates); err != nil {
		return fmt.Errorf("could not create templates schema: %w", err)
	}
	if _, err = tx.Exec(indexTemplates); err != nil {
		return fmt.Errorf("could not create templates index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// Store is a stencil.Store backed by a SQL database. It holds prepared
// statements; call Close when done. Closing the Store does not close the
// database.
type Store struct {
	db             *sql.DB
	stmtGet        *sql.Stmt
	stmtList       *sql.Stmt
	stmtState      *sql.Stmt
	stmtPutPackage *sql.Stmt
	stmtPut        *sql.Stmt
	stmtDelete     *sql.Stmt
	stmtPrune      *sql.Stmt
	logger         *slog.Logger
}

var _ stencil.Store = (*Store)(nil)

// New prepares the store's statements on db. SetupSchema must have been
// called on db.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGet, `SELECT t.record, p.data FROM stencil_templates t JOIN stencil_packages p ON p.checksum = t.package_checksum WHERE t.template_id = ?;`},
		{&s.stmtList, `SELECT record FROM stencil_templates ORDER BY name, version, template_id;`},
		{&s.stmtState, `SELECT state, revision FROM stencil_templates WHERE template_id = ?;`},
		{&s.stmtPutPackage, `INSERT OR IGNORE INTO stencil_packages (checksum, data) VALUES (?, ?);`},
		{&s.stmtPut, `INSERT INTO stencil_templates (template_id, name, category, parent_id, version, state, revision, package_checksum, record)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(template_id) DO UPDATE SET
    name = excluded.name,
    category = excluded.category,
    parent_id = excluded.parent_id,
    version = excluded.version,
    state = excluded.state,
    revision = excluded.revision,
    package_checksum = excluded.package_checksum,
    record = excluded.record;`},
		{&s.stmtDelete, `DELETE FROM stencil_templates WHERE template_id = ?;`},
		{&s.stmtPrune, `DELETE FROM stencil_packages WHERE checksum NOT IN (SELECT package_checksum FROM stencil_templates);`},
	}
	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*st.dst = stmt
	}
	return s, nil
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Close releases the prepared statements.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtGet, s.stmtList, s.stmtState, s.stmtPutPackage, s.stmtPut, s.stmtDelete, s.stmtPrune} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return nil
}

// Put stores rec and its package. A record whose ID is already stored as
// finalized is rejected with stencil.ErrTemplateFinalized, and one whose
// BaseRevision is not the stored revision with
// stencil.ErrStaleTemplateVersion. The package must match
// rec.PackageChecksum.
func (s *Store) Put(ctx context.Context, rec stencil.Record, pkg []byte) error {
	sum := sha256.Sum256(pkg)
	if hex.EncodeToString(sum[:]) != rec.PackageChecksum {
		return stencil.NewDocumentError("store", rec.ID, stencil.ErrCorruptPackage,
			errors.New("package does not match the record checksum"))
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", stencil.ErrSerializationFailure, err)
	}
	state, err := rec.State.MarshalText()
	if err != nil {
		return fmt.Errorf("%w: %v", stencil.ErrSerializationFailure, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var (
		current  string
		revision int64
	)
	err = tx.StmtContext(ctx, s.stmtState).QueryRowContext(ctx, rec.ID).Scan(&current, &revision)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("could not read template %s: %w", rec.ID, err)
	case current == stencil.StateFinalized.String():
		return fmt.Errorf("%w: %s is already stored", stencil.ErrTemplateFinalized, rec.ID)
	case uint64(revision) != rec.BaseRevision:
		return fmt.Errorf("%w: %s is stored at revision %d, record is based on %d",
			stencil.ErrStaleTemplateVersion, rec.ID, revision, rec.BaseRevision)
	}

	if _, err = tx.StmtContext(ctx, s.stmtPutPackage).ExecContext(ctx, rec.PackageChecksum, pkg); err != nil {
		return fmt.Errorf("could not store package %s: %w", rec.PackageChecksum, err)
	}
	if _, err = tx.StmtContext(ctx, s.stmtPut).ExecContext(ctx,
		rec.ID, rec.Name, rec.Category, rec.ParentID, rec.Version, string(state), int64(rec.Revision), rec.PackageChecksum, string(data)); err != nil {
		return fmt.Errorf("could not store template %s: %w", rec.ID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "template stored",
		slog.String("template", rec.ID),
		slog.String("state", string(state)),
		slog.Int("version", rec.Version),
		slog.Int("package_bytes", len(pkg)))
	return nil
}

// Get returns the record and package stored under id.
func (s *Store) Get(ctx context.Context, id string) (stencil.Record, []byte, error) {
	var (
		data string
		pkg  []byte
	)
	err := s.stmtGet.QueryRowContext(ctx, id).Scan(&data, &pkg)
	if errors.Is(err, sql.ErrNoRows) {
		return stencil.Record{}, nil, fmt.Errorf("%w: %s", stencil.ErrTemplateNotFound, id)
	}
	if err != nil {
		return stencil.Record{}, nil, fmt.Errorf("could not read template %s: %w", id, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return stencil.Record{}, nil, err
	}
	return rec, pkg, nil
}

// List returns every stored record ordered by name and version.
func (s *Store) List(ctx context.Context) ([]stencil.Record, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list templates: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var recs []stencil.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Delete removes the template stored under id, and its package when no
// other template uses it.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	res, err := tx.StmtContext(ctx, s.stmtDelete).ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("could not delete template %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", stencil.ErrTemplateNotFound, id)
	}
	pruned, err := tx.StmtContext(ctx, s.stmtPrune).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not prune packages: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	n, _ := pruned.RowsAffected()
	s.logger.InfoContext(ctx, "template deleted",
		slog.String("template", id),
		slog.Int64("packages_pruned", n))
	return nil
}

func decodeRecord(data string) (stencil.Record, error) {
	var rec stencil.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return stencil.Record{}, fmt.Errorf("%w: stored record: %v", stencil.ErrSerializationFailure, err)
	}
	return rec, nil
}
