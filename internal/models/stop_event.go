package models

import "gorm.io/gorm"

// StopEvent represents one stop/pause orchestration request and its cause.
type StopEvent struct {
	gorm.Model
	StopReason       string `json:"stop_reason"`
	Details          string `json:"details"`
	ScheduledBotStop bool   `json:"scheduled_bot_stop"`
	Timestamp        int64  `json:"timestamp"`
}
