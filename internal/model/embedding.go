package model

type DocumentEmbedding struct {
	DocumentID  string    `json:"document_id"`
	Embedding   []float32 `json:"embedding"`
	ContentHash string    `json:"content_hash"`
	Mtime       int64     `json:"mtime"`
}
