package model

import "time"

const (
	ExceptionLevelWarn  = "warn"
	ExceptionLevelError = "error"
)

// Exception is a failure caught at an operation boundary and persisted for later inspection.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "voicetrader"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "deriv_client"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "BuyContract"

	Message string `gorm:"type:text" json:"message"`
	Level   string `gorm:"size:20;index" json:"level"`

	// request parameters, JSON encoded
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exception) TableName() string {
	return "exceptions"
}
