package semantic

// ProjectHit is a single vector search result: a reference project ID with
// its cosine similarity score.
type ProjectHit struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
	Name  string  `json:"name"`
}
