package model

import "time"

// Trade kinds recorded in the execution journal.
const (
	TradeKindBuyContract  = "buy_contract"
	TradeKindSellContract = "sell_contract"
	TradeKindMT5Order     = "mt5_order"
	TradeKindMT5Close     = "mt5_close"
	TradeKindMT5Modify    = "mt5_modify"
)

const (
	TradeExecutionStatusFilled = "filled"
	TradeExecutionStatusError  = "error"
)

// TradeExecutionLog is the write-only audit trail of every order sent to the gateway and its
// outcome. It is never read back to make trading decisions.
type TradeExecutionLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Kind         string `gorm:"size:30;index;not null" json:"kind"` // see TradeKind* constants
	Symbol       string `gorm:"size:100;index" json:"symbol"`
	ContractType string `gorm:"size:50" json:"contract_type,omitempty"` // CALL/PUT or buy/sell for MT5
	Login        string `gorm:"size:50;index" json:"login,omitempty"`

	Amount float64  `json:"amount"` // stake or volume
	Price  *float64 `json:"price,omitempty"`

	// gateway identifiers
	ContractID    string `gorm:"size:100" json:"contract_id,omitempty"`
	TransactionID string `gorm:"size:100" json:"transaction_id,omitempty"`
	Ticket        int64  `json:"ticket,omitempty"`

	Status       string    `gorm:"size:20;not null" json:"status"`
	ErrorMessage *string   `gorm:"type:text" json:"error_message,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (TradeExecutionLog) TableName() string {
	return "trade_execution_logs"
}
