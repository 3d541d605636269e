package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a render progress update
type WSProgressMessage struct {
	Type     string       `json:"type"`
	TaskID   string       `json:"taskId"`
	Progress int          `json:"progress"`
	Status   RenderStatus `json:"status"`
}

// WSCompleteMessage represents render completion
type WSCompleteMessage struct {
	Type      string `json:"type"`
	TaskID    string `json:"taskId"`
	OutputURL string `json:"outputUrl"`
}

// WSErrorMessage represents a render failure
type WSErrorMessage struct {
	Type   string  `json:"type"`
	TaskID string  `json:"taskId"`
	Error  WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
