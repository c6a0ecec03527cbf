package notification

import "time"

type DeviceToken struct {
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
	AddedAt  time.Time `json:"added_at" db:"created_at"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}
