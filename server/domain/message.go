package domain

// Message is a chat message. Once constructed it is never mutated.
type Message struct {
	ID      string `json:"id"`
	User    User   `json:"user"`
	Content string `json:"content"`
}
