package dto

// AutoPaymentRequest is the notification forwarded by a collector device.
// Fields are not validated beyond defaults; unknown titles are still logged to the day file.
type AutoPaymentRequest struct {
	Type       string `json:"type" example:"sms"`
	Title      string `json:"title" example:"bKash"`
	Text       string `json:"text" example:"You have received Tk 500.00 from 01712345678. TrxID 9AB1CD2EF3 at 01/01/2026 10:30"`
	Timestamp  any    `json:"timestamp,omitempty"`
	DeviceID   string `json:"device_id" example:"device-1"`
	DeviceName string `json:"device_name" example:"Pixel 7"`
	DeviceKey  string `json:"-"` // injected from the X-Device-Key header
}

// ParsedPaymentTextDTO mirrors the parser output; absent fields are null
type ParsedPaymentTextDTO struct {
	Amount *string `json:"amount"`
	From   string  `json:"from"`
	TrxID  *string `json:"trxID"`
	Date   *string `json:"date"`
	Time   *string `json:"time"`
}

type AutoPaymentResponse struct {
	Key    string               `json:"key" example:"data-3"`
	Date   string               `json:"date" example:"2026-01-01"`
	Parsed ParsedPaymentTextDTO `json:"parsed"`
	Stored bool                 `json:"stored"`
}
