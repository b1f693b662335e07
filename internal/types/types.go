package types

// AnalyzeRequest represents the request structure for the analyze endpoint
type AnalyzeRequest struct {
	Username string `json:"username" binding:"required"`
}

// ErrorResponse is the failure body shared with the analysis backend
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusResponse is returned by the API liveness endpoint
type StatusResponse struct {
	Message string `json:"message"`
}
