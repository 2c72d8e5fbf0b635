package models

// APIResponse is the envelope every /api endpoint answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// CreationsResponse answers the creation listing endpoints.
type CreationsResponse struct {
	Success   bool       `json:"success"`
	Creations []Creation `json:"creations"`
}

// LikeResponse answers the toggle-like endpoint.
type LikeResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Likes   []string `json:"likes"`
}
