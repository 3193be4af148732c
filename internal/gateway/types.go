package gateway

// Paper is the gateway's description of one ingested PDF. The fields are
// opaque to the client; they are rendered, never interpreted.
type Paper struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	Status    string `json:"status,omitempty"`
}

// RetrievedDocument is one ranked retrieval hit for a query. Order in a
// response is retrieval rank and is preserved as-is.
type RetrievedDocument struct {
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata,omitempty"`
}

// DocumentMetadata carries whatever the gateway attached to a chunk.
// Only the title is rendered; the rest rides along untouched.
type DocumentMetadata struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// QueryResponse is the gateway's answer to POST /query.
type QueryResponse struct {
	Query              string              `json:"query"`
	Answer             string              `json:"answer"`
	RetrievedDocuments []RetrievedDocument `json:"retrieved_documents"`
}

// Session is one server-side chat session from GET /sessions.
type Session struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

// Stats holds collection statistics from GET /stats. The gateway may add
// fields over time, so everything is kept as a loose map for display.
type Stats map[string]any
