package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

// SQLiteStore is the authoritative Document Store. Each status transition is
// a single-record atomic update; nothing is ever locked across documents.
type SQLiteStore struct {
	db     *sql.DB
	now    func() time.Time
	newId  func() string
	logger *logger_i.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	source_url TEXT,
	status TEXT NOT NULL,
	processing_error TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS document_tags (
	document_id TEXT NOT NULL,
	tag TEXT NOT NULL,
	PRIMARY KEY (document_id, tag)
);

CREATE TABLE IF NOT EXISTS document_links (
	source_doc_id TEXT NOT NULL,
	target_doc_id TEXT NOT NULL,
	PRIMARY KEY (source_doc_id, target_doc_id)
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at);
`

// Open opens or creates the SQLite database and initializes the schema.
// WAL mode keeps concurrent ingest status writes from blocking reads.
func Open(path string, newId func() string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		now:    time.Now,
		newId:  newId,
		logger: logger_i.NewLogger("DocStore"),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create allocates the id and persists the pending record atomically with any
// tags and the optional link. The pending row is durable before Create
// returns, so the caller holds a stable handle before background work begins.
func (s *SQLiteStore) Create(ctx context.Context, draft docModel.DocumentDraft) (docModel.Document, error) {
	log := s.logger.With("traceId", ctx.Value("traceId"))

	if !docModel.ValidType(draft.Type) {
		return docModel.Document{}, fmt.Errorf("document type %q: %w", draft.Type, docModel.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return docModel.Document{}, fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback()

	if draft.LinkToDocId != "" {
		if err := docExists(ctx, tx, draft.LinkToDocId); err != nil {
			return docModel.Document{}, err
		}
	}

	id := s.newId()
	now := s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, type, title, content, source_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(draft.Type), draft.Title, draft.Content, nullable(draft.SourceURL),
		string(docModel.StatusPending), now, now)
	if err != nil {
		return docModel.Document{}, fmt.Errorf("insert document: %w", err)
	}

	for _, tag := range draft.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO document_tags (document_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return docModel.Document{}, fmt.Errorf("insert tag: %w", err)
		}
	}

	if draft.LinkToDocId != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO document_links (source_doc_id, target_doc_id) VALUES (?, ?)`,
			id, draft.LinkToDocId); err != nil {
			return docModel.Document{}, fmt.Errorf("insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return docModel.Document{}, fmt.Errorf("commit create tx: %w", err)
	}

	log.Debug("created pending document", "docId", id)
	return s.Get(ctx, id)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (docModel.Document, error) {
	var doc docModel.Document
	var sourceURL, processingError sql.NullString

	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, title, content, source_url, status, processing_error, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	err := row.Scan(&doc.Id, &doc.Type, &doc.Title, &doc.Content, &sourceURL,
		&doc.Status, &processingError, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("document %s: %w", id, docModel.ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("get document: %w", err)
	}
	doc.SourceURL = sourceURL.String
	doc.ProcessingError = processingError.String

	if doc.Tags, err = s.tagsFor(ctx, id); err != nil {
		return doc, err
	}
	if doc.LinkedDocIds, err = s.linksFor(ctx, id); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter docModel.ListFilter) ([]docModel.Document, int, error) {
	where, args := listPredicate(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, content, source_url, status, processing_error, created_at, updated_at
		FROM documents`+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []docModel.Document
	for rows.Next() {
		var doc docModel.Document
		var sourceURL, processingError sql.NullString
		if err := rows.Scan(&doc.Id, &doc.Type, &doc.Title, &doc.Content, &sourceURL,
			&doc.Status, &processingError, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		doc.SourceURL = sourceURL.String
		doc.ProcessingError = processingError.String
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range docs {
		if docs[i].Tags, err = s.tagsFor(ctx, docs[i].Id); err != nil {
			return nil, 0, err
		}
		if docs[i].LinkedDocIds, err = s.linksFor(ctx, docs[i].Id); err != nil {
			return nil, 0, err
		}
	}
	return docs, total, nil
}

// UpdateStatus is a single-record atomic update, last write wins. A non-empty
// processingError is only meaningful for StatusFailed and is stored truncated
// by the caller.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status docModel.DocumentStatus, processingError string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, processing_error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), nullable(processingError), s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, docModel.ErrNotFound)
	}
	s.logger.Debug("status updated", "docId", id, "status", status)
	return nil
}

// AddLink persists the directed pair with uniqueness on the pair. The
// relation is conceptually unordered, so the reverse pair also conflicts.
func (s *SQLiteStore) AddLink(ctx context.Context, sourceId, targetId string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link tx: %w", err)
	}
	defer tx.Rollback()

	if err := docExists(ctx, tx, sourceId); err != nil {
		return err
	}
	if err := docExists(ctx, tx, targetId); err != nil {
		return err
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM document_links
		WHERE (source_doc_id = ? AND target_doc_id = ?)
		   OR (source_doc_id = ? AND target_doc_id = ?)`,
		sourceId, targetId, targetId, sourceId).Scan(&count)
	if err != nil {
		return fmt.Errorf("check link: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("link %s -> %s already exists: %w", sourceId, targetId, docModel.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_links (source_doc_id, target_doc_id) VALUES (?, ?)`,
		sourceId, targetId); err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) tagsFor(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM document_tags WHERE document_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *SQLiteStore) linksFor(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_doc_id FROM document_links WHERE source_doc_id = ?
		UNION
		SELECT source_doc_id FROM document_links WHERE target_doc_id = ?`, id, id)
	if err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var linked string
		if err := rows.Scan(&linked); err != nil {
			return nil, err
		}
		ids = append(ids, linked)
	}
	return ids, rows.Err()
}

func docExists(ctx context.Context, tx *sql.Tx, id string) error {
	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("check document: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("document %s: %w", id, docModel.ErrNotFound)
	}
	return nil
}

func listPredicate(filter docModel.ListFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
