package model

// PersistedThread is a thread as returned by the collaborator history endpoint.
type PersistedThread struct {
	ID         string    `json:"_id"`
	DocumentID string    `json:"documentId"`
	Messages   []Message `json:"messages"`
}

// UploadResponse is returned by the collaborator after an upload.
type UploadResponse struct {
	DocumentID string `json:"documentId"`
}

// AskRequest is sent to the collaborator to ask a question about a document.
// ChatID is nil while the thread is still provisional.
type AskRequest struct {
	Question   string  `json:"question"`
	DocumentID string  `json:"documentId"`
	ChatID     *string `json:"chatId"`
}

// AskResponse carries the answer. ChatID is only present the first time a
// provisional thread is persisted.
type AskResponse struct {
	Answer string `json:"answer"`
	ChatID string `json:"chatId,omitempty"`
}
