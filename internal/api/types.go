package api

import "time"

// StoryRequest is the body of POST /api/v1/stories and PUT /api/v1/stories/{id}.
// Only these fields are read; anything else in the body is ignored.
type StoryRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status string `json:"status"`
}

// AuthorResponse is the owner embedded in a story response.
type AuthorResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Image       string `json:"image,omitempty"`
}

// StoryResponse is the JSON representation of a single story.
type StoryResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Status    string          `json:"status"`
	Author    *AuthorResponse `json:"author,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// StoryListResponse is the paginated response for story list endpoints.
type StoryListResponse struct {
	Stories    []StoryResponse `json:"stories"`
	NextCursor *string         `json:"next_cursor"`
}
