package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/carenest/carenest/internal/model"
	"github.com/carenest/carenest/internal/pkg/dbutil"
	appErr "github.com/carenest/carenest/internal/pkg/errors"
)

var documentFields = []string{
	"id", "title", "category", "tags", "summary", "content",
	"source_authority", "source_channel", "extraction_method",
	"extraction_confidence", "page_count", "file_key", "is_active",
	"ctime", "mtime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                    doc.ID,
		"title":                 doc.Title,
		"category":              string(doc.Category),
		"tags":                  doc.Tags.Join(),
		"summary":               doc.Summary,
		"content":               doc.Content,
		"source_authority":      doc.SourceAuthority,
		"source_channel":        string(doc.SourceChannel),
		"extraction_method":     string(doc.ExtractionMethod),
		"extraction_confidence": doc.ExtractionConfidence,
		"page_count":            doc.PageCount,
		"file_key":              doc.FileKey,
		"is_active":             doc.IsActive,
		"ctime":                 doc.Ctime,
		"mtime":                 doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) Update(ctx context.Context, doc *model.Document) error {
	where := map[string]interface{}{
		"id": doc.ID,
	}
	update := map[string]interface{}{
		"title":                 doc.Title,
		"category":              string(doc.Category),
		"tags":                  doc.Tags.Join(),
		"summary":               doc.Summary,
		"content":               doc.Content,
		"source_authority":      doc.SourceAuthority,
		"extraction_method":     string(doc.ExtractionMethod),
		"extraction_confidence": doc.ExtractionConfidence,
		"page_count":            doc.PageCount,
		"mtime":                 doc.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// UpdateActive flips the activation flag. Deactivation is the only supported
// removal path; documents are never hard-deleted.
func (r *DocumentRepo) UpdateActive(ctx context.Context, docID string, active bool, mtime int64) error {
	where := map[string]interface{}{
		"id": docID,
	}
	update := map[string]interface{}{
		"is_active": active,
		"mtime":     mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanDocument(rows)
}

// ListActive returns the retrieval corpus: active documents only.
func (r *DocumentRepo) ListActive(ctx context.Context) ([]model.Document, error) {
	where := map[string]interface{}{
		"is_active": true,
		"_orderby":  "mtime desc",
	}
	return r.list(ctx, where)
}

func (r *DocumentRepo) List(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	return r.list(ctx, where)
}

func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents")
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepo) list(ctx context.Context, where map[string]interface{}) ([]model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	var category, channel, method, tags string
	if err := rows.Scan(
		&doc.ID, &doc.Title, &category, &tags, &doc.Summary, &doc.Content,
		&doc.SourceAuthority, &channel, &method,
		&doc.ExtractionConfidence, &doc.PageCount, &doc.FileKey, &doc.IsActive,
		&doc.Ctime, &doc.Mtime,
	); err != nil {
		return nil, err
	}
	doc.Category = model.Category(category)
	doc.SourceChannel = model.SourceChannel(channel)
	doc.ExtractionMethod = model.ExtractionMethod(method)
	doc.Tags = model.SplitTags(tags)
	return &doc, nil
}
