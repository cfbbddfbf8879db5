package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"bigfish/internal/repository"
	"bigfish/internal/tree"

	_ "modernc.org/sqlite"
)

// DefaultPageSize is the number of documents fetched per feed query
const DefaultPageSize = 500

// Repository implements repository.DocumentStore on a single SQLite file
type Repository struct {
	db       *sql.DB
	pageSize int
}

// New opens (and migrates) the database at dbPath. ":memory:" gives a
// private in-memory database.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases coherent and serialises writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, pageSize: DefaultPageSize}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// SetPageSize changes how many documents each feed query fetches
func (r *Repository) SetPageSize(n int) {
	if n > 0 {
		r.pageSize = n
	}
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		data JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS collections (
		path TEXT PRIMARY KEY,
		parent TEXT NOT NULL,
		name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	CREATE INDEX IF NOT EXISTS idx_collections_parent ON collections(parent);
	`

	_, err := r.db.Exec(schema)
	return err
}

// RootCollections lists root collections in first-write order
func (r *Repository) RootCollections(ctx context.Context) ([]string, error) {
	return r.listCollections(ctx, "")
}

// SubCollections lists the collections under a document
func (r *Repository) SubCollections(ctx context.Context, doc tree.Path) ([]string, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	return r.listCollections(ctx, doc.String())
}

func (r *Repository) listCollections(ctx context.Context, parent string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM collections WHERE parent = ? ORDER BY rowid
	`, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return names, nil
}

type row struct {
	rowid int64
	id    string
	data  []byte
}

// Documents streams a collection page by page. Rows are released before
// each page is yielded so callers may query the database while iterating.
func (r *Repository) Documents(ctx context.Context, collection tree.Path) iter.Seq2[repository.Document, error] {
	if err := repository.CheckCollectionPath(collection); err != nil {
		return repository.FailedFeed(err)
	}
	return func(yield func(repository.Document, error) bool) {
		var after int64
		for {
			page, err := r.page(ctx, collection.String(), after)
			if err != nil {
				yield(repository.Document{}, err)
				return
			}
			for _, rw := range page {
				fields, err := tree.UnmarshalFieldsJSON(rw.data)
				if err != nil {
					yield(repository.Document{}, fmt.Errorf("document %s: %w", collection.Doc(rw.id), err))
					return
				}
				if !yield(repository.Document{ID: rw.id, Fields: fields}, nil) {
					return
				}
				after = rw.rowid
			}
			if len(page) < r.pageSize {
				return
			}
		}
	}
}

func (r *Repository) page(ctx context.Context, collection string, after int64) ([]row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rowid, doc_id, data FROM documents
		WHERE collection = ? AND rowid > ?
		ORDER BY rowid
		LIMIT ?
	`, collection, after, r.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var page []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.rowid, &rw.id, &rw.data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		page = append(page, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return page, nil
}

// Get retrieves a single document
func (r *Repository) Get(ctx context.Context, doc tree.Path) (tree.Fields, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}

	var data []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE path = ?
	`, doc.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return tree.UnmarshalFieldsJSON(data)
}

// Upsert inserts or fully replaces a document and records its collection chain
func (r *Repository) Upsert(ctx context.Context, doc tree.Path, fields tree.Fields) error {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return err
	}
	data, err := tree.MarshalFieldsJSON(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(doc); i += 2 {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO collections (path, parent, name) VALUES (?, ?, ?)
		`, doc[:i+1].String(), doc[:i].String(), doc[i])
		if err != nil {
			return fmt.Errorf("failed to register collection: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, collection, doc_id, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, doc.String(), doc.Parent().String(), doc.ID(), data)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

var _ repository.DocumentStore = (*Repository)(nil)
