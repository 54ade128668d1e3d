package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/SmartCGMS/core-sub001/internal/logging"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS model_versions (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	kind           TEXT NOT NULL,
	layout         TEXT NOT NULL,
	constant_scale REAL NOT NULL,
	max_depth      INTEGER NOT NULL,
	prune          INTEGER NOT NULL,
	genome         BLOB NOT NULL,
	transcript     TEXT,
	rule_count     INTEGER NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS step_log (
	id              TEXT PRIMARY KEY,
	version_id      TEXT NOT NULL,
	session_id      TEXT,
	quantities_json TEXT NOT NULL,
	outputs_json    TEXT NOT NULL,
	gate_action     TEXT NOT NULL,
	reason          TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_model (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES model_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store is the model registry kept in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already migrated database.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema on db. Tests and in-memory databases use it.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// step_log predates session ids in older databases
	if err := addColumn(db, "step_log", "session_id", "TEXT"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func addColumn(db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save-model
// SaveModel inserts a new version, assigning its id and creation time. With
// activate set the active pointer moves to it in the same transaction.
func (s *Store) SaveModel(rec ModelVersion, activate bool) (ModelVersion, error) {
	rec.VersionID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	layoutJSON, err := json.Marshal(rec.Layout)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("marshal layout: %w", err)
	}

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}
	var transcriptPtr interface{}
	if rec.Transcript != "" {
		transcriptPtr = rec.Transcript
	}

	tx, err := s.db.Begin()
	if err != nil {
		return ModelVersion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO model_versions (version_id, parent_id, kind, layout, constant_scale, max_depth, prune,
		 genome, transcript, rule_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, rec.Kind, string(layoutJSON), rec.ConstantScale, rec.MaxDepth,
		boolToInt(rec.Prune), encodeGenome(rec.Genome), transcriptPtr, rec.RuleCount,
		rec.CreatedAt.UTC().Format(logging.TimeLayout),
	)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("insert version: %w", err)
	}

	if activate {
		if err := setActive(tx, rec.VersionID); err != nil {
			return ModelVersion{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ModelVersion{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion save-model

// #region active
// GetActive reads the active model version.
func (s *Store) GetActive() (ModelVersion, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_model WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelVersion{}, fmt.Errorf("active model: %w", ErrNotFound)
	}
	if err != nil {
		return ModelVersion{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// Activate points the active model at an existing version.
func (s *Store) Activate(versionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM model_versions WHERE version_id = ?`, versionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s: %w", versionID, ErrNotFound)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := setActive(tx, versionID); err != nil {
		return err
	}
	return tx.Commit()
}

func setActive(tx *sql.Tx, versionID string) error {
	_, err := tx.Exec(
		`INSERT INTO active_model (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		versionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// #endregion active

// #region get-version
const versionColumns = `version_id, parent_id, kind, layout, constant_scale, max_depth, prune,
	genome, transcript, rule_count, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (ModelVersion, error) {
	var rec ModelVersion
	var parentID, transcript sql.NullString
	var layoutJSON, createdStr string
	var genomeBlob []byte
	var prune int

	err := row.Scan(&rec.VersionID, &parentID, &rec.Kind, &layoutJSON, &rec.ConstantScale, &rec.MaxDepth,
		&prune, &genomeBlob, &transcript, &rec.RuleCount, &createdStr)
	if err != nil {
		return ModelVersion{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if transcript.Valid {
		rec.Transcript = transcript.String
	}
	rec.Prune = prune != 0
	rec.Genome = decodeGenome(genomeBlob)
	if err := json.Unmarshal([]byte(layoutJSON), &rec.Layout); err != nil {
		return ModelVersion{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// GetVersion retrieves a specific model version by ID.
func (s *Store) GetVersion(id string) (ModelVersion, error) {
	rec, err := scanVersion(s.db.QueryRow(
		`SELECT `+versionColumns+` FROM model_versions WHERE version_id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return ModelVersion{}, fmt.Errorf("get version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ModelVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region list
// ListVersions returns the most recent model versions, newest first.
func (s *Store) ListVersions(limit int) ([]ModelVersion, error) {
	rows, err := s.db.Query(
		`SELECT `+versionColumns+` FROM model_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []ModelVersion
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListSteps returns the audited steps of a version in the order they ran.
// A limit <= 0 returns them all.
func (s *Store) ListSteps(versionID string, limit int) ([]StepRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, version_id, session_id, quantities_json, outputs_json, gate_action, reason, created_at
		 FROM step_log WHERE version_id = ? ORDER BY created_at ASC, rowid ASC LIMIT ?`, versionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var st StepRecord
		var session, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&st.ID, &st.VersionID, &session, &st.QuantitiesJSON, &st.OutputsJSON,
			&st.GateAction, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.SessionID = session.String
		if reason.Valid {
			st.Reason = reason.String
		}
		st.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// #endregion list

// #region genome-encoding
func encodeGenome(g []float64) []byte {
	buf := make([]byte, len(g)*8)
	for i, v := range g {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeGenome(b []byte) []float64 {
	g := make([]float64, len(b)/8)
	for i := range g {
		g[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return g
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion genome-encoding
