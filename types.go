package mdblog

// PostSummary is a post as listed by GET /api/posts.
type PostSummary struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Excerpt    string   `json:"excerpt"`
	CoverImage string   `json:"coverImage,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Author     string   `json:"author"`
	URL        string   `json:"url"`
}

type postsResponse struct {
	Posts     []PostSummary `json:"posts"`
	Total     int           `json:"total"`
	Timestamp string        `json:"timestamp"`
}

type publishResponse struct {
	Success bool   `json:"success"`
	Slug    string `json:"slug"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

type statusResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}
