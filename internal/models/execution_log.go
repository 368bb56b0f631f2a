package models

import "gorm.io/gorm"

// ExecutionLog represents one executed automation action batch.
type ExecutionLog struct {
	gorm.Model
	AutomationName string  `json:"automation_name"`
	TriggerName    string  `json:"trigger_name"`
	Description    string  `json:"description"`
	Timestamp      float64 `json:"timestamp"`
}
