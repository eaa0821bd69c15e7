package dto

// FlagsInput carries optional flag values; nil fields keep the stored value.
type FlagsInput struct {
	IsCritical  *bool   `json:"isCritical"`
	IsDuplicate *bool   `json:"isDuplicate"`
	Notes       *string `json:"notes"`
}

type CreateIssueRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	ImageURL    string      `json:"imageUrl"`
	UserID      string      `json:"userId"`
	Status      string      `json:"status"`
	Flags       *FlagsInput `json:"flags"`
}

type UpdateIssueRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Location    *string     `json:"location"`
	ImageURL    *string     `json:"imageUrl"`
	Status      *string     `json:"status"`
	Flags       *FlagsInput `json:"flags"`
}

type CommentRequest struct {
	UserID  string `json:"userId"`
	Comment string `json:"comment"`
}
