package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresConfig holds the connection parameters for PostgresAdapter.
type PostgresConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DatabaseName string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// PostgresAdapter stores the trie as a self-referencing adjacency-list
// table: one row per node, a nullable parent_id forming the edges. It
// replaces the neo4j/py2neo graph original_source/src/Database.py used,
// modeling the same labeled-node-plus-directed-edge contract over a
// relational schema instead.
type PostgresAdapter struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresAdapter opens a connection pool and ensures the trie_nodes
// schema exists.
func NewPostgresAdapter(ctx context.Context, cfg PostgresConfig, logger *logrus.Logger) (*PostgresAdapter, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DatabaseName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("persistence: ping postgres: %w", err)
	}

	adapter := &PostgresAdapter{db: db, logger: logger}
	if err := adapter.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("persistence: init schema: %w", err)
	}
	return adapter, nil
}

func (p *PostgresAdapter) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS trie_nodes (
		id SERIAL PRIMARY KEY,
		parent_id INTEGER REFERENCES trie_nodes(id) ON DELETE CASCADE,
		name VARCHAR(200) NOT NULL,
		is_root BOOLEAN NOT NULL DEFAULT FALSE,
		is_word BOOLEAN NOT NULL DEFAULT FALSE,
		count BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_trie_nodes_parent_id ON trie_nodes(parent_id);
	CREATE INDEX IF NOT EXISTS idx_trie_nodes_name ON trie_nodes(name);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_trie_nodes_root ON trie_nodes(is_root) WHERE is_root;
	`
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// ClearAll truncates the trie_nodes table, used before a full Snapshot.
func (p *PostgresAdapter) ClearAll(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "TRUNCATE TABLE trie_nodes")
	return err
}

// BeginTransaction starts a *sql.Tx and returns it boxed as a Tx.
func (p *PostgresAdapter) BeginTransaction(ctx context.Context) (Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("persistence: begin transaction: %w", err)
	}
	return tx, nil
}

// CreateNode inserts a row, marking is_root when labels includes
// RootLabel, and returns the new row's id (stringified) as its handle.
func (p *PostgresAdapter) CreateNode(ctx context.Context, tx Tx, labels []string, attrs NodeAttrs) (string, error) {
	sqlTx, ok := tx.(*sql.Tx)
	if !ok {
		return "", fmt.Errorf("persistence: unexpected tx type %T", tx)
	}
	isRoot := false
	for _, l := range labels {
		if l == RootLabel {
			isRoot = true
		}
	}
	var id int64
	err := sqlTx.QueryRowContext(ctx,
		`INSERT INTO trie_nodes (name, is_root, is_word, count) VALUES ($1, $2, $3, $4) RETURNING id`,
		attrs.Name, isRoot, attrs.IsWord, attrs.Count,
	).Scan(&id)
	if err != nil {
		p.logger.WithError(err).WithField("name", attrs.Name).Error("failed to create trie node")
		return "", fmt.Errorf("persistence: create node: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// CreateEdge sets childHandle's parent_id to parentHandle.
func (p *PostgresAdapter) CreateEdge(ctx context.Context, tx Tx, parentHandle, childHandle string) error {
	sqlTx, ok := tx.(*sql.Tx)
	if !ok {
		return fmt.Errorf("persistence: unexpected tx type %T", tx)
	}
	_, err := sqlTx.ExecContext(ctx, `UPDATE trie_nodes SET parent_id = $1 WHERE id = $2`, parentHandle, childHandle)
	if err != nil {
		return fmt.Errorf("persistence: create edge: %w", err)
	}
	return nil
}

// Commit commits the underlying *sql.Tx.
func (p *PostgresAdapter) Commit(ctx context.Context, tx Tx) error {
	sqlTx, ok := tx.(*sql.Tx)
	if !ok {
		return fmt.Errorf("persistence: unexpected tx type %T", tx)
	}
	return sqlTx.Commit()
}

// FindRoot locates the single is_root row.
func (p *PostgresAdapter) FindRoot(ctx context.Context) (string, NodeAttrs, error) {
	var id int64
	var attrs NodeAttrs
	err := p.db.QueryRowContext(ctx, `SELECT id, name, is_word, count FROM trie_nodes WHERE is_root`).
		Scan(&id, &attrs.Name, &attrs.IsWord, &attrs.Count)
	if err != nil {
		return "", NodeAttrs{}, fmt.Errorf("persistence: find root: %w", err)
	}
	return strconv.FormatInt(id, 10), attrs, nil
}

// FindByName looks up a node by its row id (the "name" parameter here
// is actually the handle, since Restore walks the stored edges by id
// rather than by prefix string).
func (p *PostgresAdapter) FindByName(ctx context.Context, handle string) (string, NodeAttrs, bool, error) {
	var attrs NodeAttrs
	err := p.db.QueryRowContext(ctx, `SELECT name, is_word, count FROM trie_nodes WHERE id = $1`, handle).
		Scan(&attrs.Name, &attrs.IsWord, &attrs.Count)
	if err == sql.ErrNoRows {
		return "", NodeAttrs{}, false, nil
	}
	if err != nil {
		return "", NodeAttrs{}, false, fmt.Errorf("persistence: find by handle: %w", err)
	}
	return handle, attrs, true, nil
}

// ChildrenOf returns the ids of every row whose parent_id is handle.
func (p *PostgresAdapter) ChildrenOf(ctx context.Context, handle string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id FROM trie_nodes WHERE parent_id = $1 ORDER BY id`, handle)
	if err != nil {
		return nil, fmt.Errorf("persistence: children of: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("persistence: scan child: %w", err)
		}
		handles = append(handles, strconv.FormatInt(id, 10))
	}
	return handles, rows.Err()
}

// Close closes the underlying connection pool.
func (p *PostgresAdapter) Close() error {
	return p.db.Close()
}
