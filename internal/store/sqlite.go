package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/goramble/internal/logging"
	"github.com/me/goramble/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logging.OrDiscard(logger).With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// NewExpansion builds an expansion record for content read from source.
func NewExpansion(source string, content []byte) *model.Expansion {
	sum := sha256.Sum256(content)
	return &model.Expansion{
		ID:          "exp_" + uuid.New().String(),
		Source:      source,
		ContentHash: hex.EncodeToString(sum[:]),
		CreatedAt:   time.Now().UTC(),
	}
}

// --- Expansions ---

// SaveExpansion stores exp and its instances in one transaction.
// InstanceCount is taken from instances.
func (s *SQLiteStore) SaveExpansion(ctx context.Context, exp *model.Expansion, instances []*model.ExperimentInstance) error {
	s.logger.Debug("sql", "op", "insert", "table", "expansions", "id", exp.ID, "instances", len(instances))

	exp.InstanceCount = len(instances)
	warningsJSON, err := json.Marshal(nonNil(exp.Warnings))
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	failuresJSON, err := json.Marshal(nonNil(exp.Failures))
	if err != nil {
		return fmt.Errorf("marshal failures: %w", err)
	}
	createdAt := exp.CreatedAt.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO expansions (id, source, content_hash, instance_count, warnings, failures, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.Source, exp.ContentHash, exp.InstanceCount,
		string(warningsJSON), string(failuresJSON), createdAt,
	); err != nil {
		return fmt.Errorf("insert expansion: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO instances (expansion_id, id, idx, application, workload, experiment, name, body, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare instance insert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range instances {
		body, err := json.Marshal(inst)
		if err != nil {
			return fmt.Errorf("marshal instance %s: %w", inst.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			exp.ID, inst.ID, inst.Index, inst.Application, inst.Workload, inst.Experiment,
			inst.Name, string(body), createdAt,
		); err != nil {
			return fmt.Errorf("insert instance %s: %w", inst.ID, err)
		}
	}
	return tx.Commit()
}

const expansionColumns = `id, source, content_hash, instance_count, warnings, failures, created_at`

func (s *SQLiteStore) GetExpansion(ctx context.Context, id string) (*model.Expansion, error) {
	s.logger.Debug("sql", "op", "select", "table", "expansions", "id", id)

	exp, err := scanExpansion(s.db.QueryRowContext(ctx,
		`SELECT `+expansionColumns+` FROM expansions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return exp, err
}

func (s *SQLiteStore) ListExpansions(ctx context.Context, opts model.ListOptions) ([]*model.Expansion, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "expansions", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expansions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expansionColumns+` FROM expansions ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exps []*model.Expansion
	for rows.Next() {
		exp, err := scanExpansion(rows)
		if err != nil {
			return nil, 0, err
		}
		exps = append(exps, exp)
	}
	return exps, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpansion(row scanner) (*model.Expansion, error) {
	var exp model.Expansion
	var warningsJSON, failuresJSON, createdAt string
	if err := row.Scan(&exp.ID, &exp.Source, &exp.ContentHash, &exp.InstanceCount,
		&warningsJSON, &failuresJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(warningsJSON), &exp.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	if err := json.Unmarshal([]byte(failuresJSON), &exp.Failures); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	exp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &exp, nil
}

// --- Instances ---

// GetInstance returns the most recently saved instance with id. Instance
// IDs are derived from the document, so re-expanding a document stores the
// same IDs again under a new expansion.
func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*model.ExperimentInstance, error) {
	s.logger.Debug("sql", "op", "select", "table", "instances", "id", id)

	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM instances WHERE id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeInstance(body)
}

func (s *SQLiteStore) ListInstances(ctx context.Context, opts model.ListOptions) ([]*model.ExperimentInstance, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "instances", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var whereClauses []string
	var countArgs []any
	if opts.ExpansionID != "" {
		whereClauses = append(whereClauses, "expansion_id = ?")
		countArgs = append(countArgs, opts.ExpansionID)
	}
	if opts.Application != "" {
		whereClauses = append(whereClauses, "application = ?")
		countArgs = append(countArgs, opts.Application)
	}
	if opts.Workload != "" {
		whereClauses = append(whereClauses, "workload = ?")
		countArgs = append(countArgs, opts.Workload)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT body FROM instances` + whereSQL + ` ORDER BY rowid LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*model.ExperimentInstance
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, 0, err
		}
		inst, err := decodeInstance(body)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inst)
	}
	return out, total, rows.Err()
}

func decodeInstance(body string) (*model.ExperimentInstance, error) {
	var inst model.ExperimentInstance
	if err := json.Unmarshal([]byte(body), &inst); err != nil {
		return nil, fmt.Errorf("unmarshal instance: %w", err)
	}
	return &inst, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
