package models

import (
	"encoding/json"
	"time"

	"github.com/quietdash/quietdash/internal/database"
)

// User is the public view of an account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

type CreateAPIKeyRequest struct {
	Provider database.Provider `json:"provider" binding:"required,oneof=openweathermap google_calendar"`
	APIKey   string            `json:"apiKey" binding:"required"`
}

type UpdateAPIKeyRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// APIKey never carries the secret or its encryption parameters.
type APIKey struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Provider  database.Provider `json:"provider"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type CreateWidgetRequest struct {
	Type     database.WidgetType `json:"type" binding:"required,oneof=weather calendar time_date news_rss"`
	Enabled  *bool               `json:"enabled"`
	Position *database.Position  `json:"position" binding:"required"`
	Settings json.RawMessage     `json:"settings"`
}

type UpdateWidgetRequest struct {
	Enabled  *bool              `json:"enabled"`
	Position *database.Position `json:"position"`
	Settings json.RawMessage    `json:"settings"`
}

type WidgetConfig struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	Type      database.WidgetType `json:"type"`
	Enabled   bool                `json:"enabled"`
	Position  database.Position   `json:"position"`
	Settings  json.RawMessage     `json:"settings"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type UpdateDisplaySettingsRequest struct {
	RefreshInterval *int                  `json:"refreshInterval" binding:"omitempty,min=60,max=86400"`
	Brightness      *int                  `json:"brightness" binding:"omitempty,min=0,max=100"`
	Orientation     *database.Orientation `json:"orientation" binding:"omitempty,oneof=landscape portrait"`
}

type DisplaySettings struct {
	ID              string               `json:"id"`
	UserID          string               `json:"userId"`
	RefreshInterval int                  `json:"refreshInterval"`
	Brightness      int                  `json:"brightness"`
	Orientation     database.Orientation `json:"orientation"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type JoinWaitlistRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type JoinWaitlistResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type VerifyResponse struct {
	Message       string `json:"message"`
	AddedToResend bool   `json:"addedToResend"`
}

type WaitlistStats struct {
	TotalSignups     int64 `json:"totalSignups"`
	TotalVerified    int64 `json:"totalVerified"`
	JoinedToday      int64 `json:"joinedToday"`
	VerificationRate int   `json:"verificationRate"`
}

type ReferralStats struct {
	Email         string `json:"email"`
	ReferralCode  string `json:"referralCode"`
	ReferralCount int    `json:"referralCount"`
	QueuePosition int    `json:"queuePosition"`
	RewardTier    string `json:"rewardTier"`
	ReferralURL   string `json:"referralUrl"`
}

// ErrorResponse is the body of every failed request. Fields is only set for validation errors.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
