package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Session struct {
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	UploadedFiles []string  `json:"uploaded_files"`
	ChatHistory   []Message `json:"chat_history"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

type SessionSummary struct {
	SessionID   string    `json:"session_id"`
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"last_updated"`
}

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
}

// Chunk is the transient unit of ingestion: a passage of extracted text plus
// its embedding. Chunks live only while moving into the index; the index
// entry is the only persisted representation.
type Chunk struct {
	SourceFile string    `json:"source_file"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector,omitempty"`
}

type RetrievedChunk struct {
	SourceFile string  `json:"source_file"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
