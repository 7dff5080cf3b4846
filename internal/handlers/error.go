package handlers

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// NotFoundResponse is the diagnostic body for a content read that failed on
// every candidate. It never carries credentials.
type NotFoundResponse struct {
	Message       string   `json:"message"`
	Host          string   `json:"host"`
	Path          string   `json:"path"`
	AttemptedURLs []string `json:"attempted_urls"`
}
