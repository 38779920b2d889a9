package model

// DeviceToken stores one push token per device/browser of a user. Tokens are
// looked up by user when a research request completes and a push is due.
type DeviceToken struct {
	Model
	UserID      string `json:"user_id" gorm:"index"`
	DeviceToken string `json:"device_token" gorm:"uniqueIndex;not null"`
	DeviceType  string `json:"device_type" gorm:"not null"` // mobile, web, ...
	Expired     bool   `json:"expired" gorm:"default:false"`
	System      string `json:"system"`
}
