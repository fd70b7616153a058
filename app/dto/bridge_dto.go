package dto

// BridgeResultDTO is the outcome for one affiliate
type BridgeResultDTO struct {
	AccountID uint   `json:"account_id"`
	Username  string `json:"username,omitempty"`
	Status    string `json:"status" example:"bridged"` // bridged, skipped, failed
	Result    string `json:"result"`
	Share     string `json:"share,omitempty"`
	Error     string `json:"error,omitempty"`
}

type BridgeAllResponse struct {
	Role      string            `json:"role"`
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Failed    int               `json:"failed"`
	Results   []BridgeResultDTO `json:"results"`
}
