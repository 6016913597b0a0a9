package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/carenest/carenest/internal/model"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
)

type EmbeddingRepo struct {
	db *sql.DB
}

func NewEmbeddingRepo(db *sql.DB) *EmbeddingRepo {
	return &EmbeddingRepo{db: db}
}

func (r *EmbeddingRepo) Save(ctx context.Context, emb *model.DocumentEmbedding) error {
	const query = `
		INSERT INTO document_embeddings (document_id, embedding, content_hash, mtime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			content_hash = EXCLUDED.content_hash,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query,
		emb.DocumentID,
		pgvector.NewVector(emb.Embedding),
		emb.ContentHash,
		emb.Mtime,
	)
	return err
}

func (r *EmbeddingRepo) GetByDocID(ctx context.Context, docID string) (*model.DocumentEmbedding, error) {
	const query = `
		SELECT document_id, embedding, content_hash, mtime
		FROM document_embeddings
		WHERE document_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, docID)
	var item model.DocumentEmbedding
	var vec pgvector.Vector
	if err := row.Scan(&item.DocumentID, &vec, &item.ContentHash, &item.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	item.Embedding = vec.Slice()
	return &item, nil
}

func (r *EmbeddingRepo) ListAll(ctx context.Context) ([]model.DocumentEmbedding, error) {
	const query = `
		SELECT document_id, embedding, content_hash, mtime
		FROM document_embeddings
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.DocumentEmbedding
	for rows.Next() {
		var item model.DocumentEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&item.DocumentID, &vec, &item.ContentHash, &item.Mtime); err != nil {
			return nil, err
		}
		item.Embedding = vec.Slice()
		results = append(results, item)
	}
	return results, rows.Err()
}

// ListStaleDocuments returns active, rankable documents whose embedding is
// missing or older than the document itself.
func (r *EmbeddingRepo) ListStaleDocuments(ctx context.Context, limit int) ([]model.Document, error) {
	const query = `
		SELECT d.id, d.title, d.tags, d.summary, d.content, d.is_active, d.extraction_method, d.mtime
		FROM documents d
		LEFT JOIN document_embeddings e ON d.id = e.document_id
		WHERE (e.document_id IS NULL OR d.mtime > e.mtime)
			AND d.is_active = TRUE
			AND d.extraction_method <> 'failed'
			AND d.content <> ''
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var tags, method string
		if err := rows.Scan(&doc.ID, &doc.Title, &tags, &doc.Summary, &doc.Content, &doc.IsActive, &method, &doc.Mtime); err != nil {
			return nil, err
		}
		doc.Tags = model.SplitTags(tags)
		doc.ExtractionMethod = model.ExtractionMethod(method)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// TouchMtime advances the embedding's mtime without re-writing the vector.
// Used when a document's text is unchanged but its own mtime moved forward.
func (r *EmbeddingRepo) TouchMtime(ctx context.Context, docID string, mtime int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE document_embeddings SET mtime = $1 WHERE document_id = $2`,
		mtime, docID,
	)
	return err
}

func (r *EmbeddingRepo) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_embeddings WHERE document_id = $1`, docID)
	return err
}
