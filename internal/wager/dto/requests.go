package dto

type CreateBetRequest struct {
	UserID      string `json:"userId"`
	ContestID   string `json:"contestId"`
	Side        string `json:"side"` // "A" | "B"
	AmountCents int64  `json:"amount_cents"`
}

type AcceptBetRequest struct {
	UserID string `json:"userId"`
}

type CancelBetRequest struct {
	UserID        string `json:"userId"`
	AdminOverride bool   `json:"admin_override,omitempty"`
}
