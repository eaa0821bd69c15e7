package dto

type ChatRequest struct {
	UserID   string `json:"userId"`
	Question string `json:"question"`
}
