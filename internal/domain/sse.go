package domain

// Client-facing SSE frame payloads for the chat stream.

// ContentFrame carries one incremental text delta.
type ContentFrame struct {
	Content string `json:"content"`
}

// DoneFrame terminates a successful stream.
type DoneFrame struct {
	Done bool `json:"done"`
}

// ErrorFrame terminates a stream that failed after the response committed
// to SSE. Errors before that point surface as plain HTTP errors instead.
type ErrorFrame struct {
	Error string `json:"error"`
}
