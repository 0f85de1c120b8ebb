package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted entities.
// Identifiers are assigned by the storage backend.
type ID int64

// PreviewChars is the maximum length of a document preview in runes,
// taken as a prefix of the normalized content.
const PreviewChars = 2000

// Fingerprint is a content digest used to detect unchanged documents
// across re-deliveries of the same source object.
type Fingerprint uint64

// FingerprintOf computes a deterministic digest of text content using BLAKE2b.
// Identical content always produces the same fingerprint.
func FingerprintOf(text string) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}

// Document is a unit of ingested content, keyed by its source URI.
// Re-ingesting the same URI updates the document rather than duplicating it.
type Document struct {
	Id         ID
	URI        string            // Stable external identifier, unique per corpus
	Content    string            // Full normalized text
	Preview    string            // Bounded prefix of Content (PreviewChars)
	Metadata   map[string]string // Open key/value mapping (source tag, content type, ...)
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// MakePreview returns the bounded preview prefix for normalized
// content. The cut falls on a rune boundary so multi-byte content
// never yields an invalid prefix.
func MakePreview(content string) string {
	if len(content) <= PreviewChars {
		return content
	}
	runes := []rune(content)
	if len(runes) <= PreviewChars {
		return content
	}
	return string(runes[:PreviewChars])
}

// Chunk is a contiguous slice of a document's text, the unit of
// embedding and retrieval. Every chunk belongs to exactly one document.
type Chunk struct {
	Id         ID
	DocumentId ID
	Seq        int // Zero-based position within the document's chunk sequence
	Text       string
	Embedding  []float32 // Fixed dimension, matching the configured embedding model
	Metadata   map[string]string
}

// SearchHit is one row of a similarity search: a chunk joined with its
// owning document's URI and the cosine distance to the query embedding.
// Smaller distance means more similar.
type SearchHit struct {
	DocumentId ID
	DocURI     string
	ChunkText  string
	Distance   float64
	Metadata   map[string]string
}

// Rating is the tri-state feedback rating.
type Rating int

const (
	RatingNegative Rating = -1
	RatingNeutral  Rating = 0
	RatingPositive Rating = 1
)

// Feedback is an append-only human-in-the-loop record.
// Feedback rows are never updated or deleted.
type Feedback struct {
	Id        ID
	SessionId string
	Query     string
	Answer    string
	Rating    Rating
	Notes     string
	CreatedAt time.Time
}
