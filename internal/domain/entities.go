package domain

import "time"

// Metadata keys written by ingestion.
const (
	MetaFileName    = "file_name"
	MetaSource      = "source"
	MetaContentHash = "content_hash"
	MetaPageCount   = "page_count"
	MetaArchiveURI  = "archive_uri"
)

// IsReservedMetaKey reports whether key is written by ingestion and must not
// be taken from document-supplied info.
func IsReservedMetaKey(key string) bool {
	switch key {
	case MetaFileName, MetaSource, MetaContentHash, MetaPageCount, MetaArchiveURI:
		return true
	}
	return false
}

// Document is a stored piece of extracted text. It is never mutated after insert.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// Embedding is the vector for exactly one document.
type Embedding struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Vector     []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Match is a similarity search hit.
type Match struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}

// Recognition is raw OCR output for one file. Info holds the PDF's own
// document information (Title, Author, CreationDate, ...). Confidence is the
// mean word confidence in [0, 100], or 0 when the engine reports none.
type Recognition struct {
	Text       string
	Pages      int
	Info       map[string]string
	Confidence float64
}

// Credentials are caller-held API keys. Pipeline components receive them
// explicitly and never read them from the environment.
type Credentials struct {
	Embedding string
	Chat      string
}

// Answer is the result of a question answered over retrieved documents.
type Answer struct {
	Question string        `json:"question"`
	Text     string        `json:"answer"`
	Matches  []Match       `json:"sources"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Stats summarizes store contents.
type Stats struct {
	Documents  int `json:"documents"`
	Embeddings int `json:"embeddings"`
	Orphans    int `json:"orphans"`
}
