package model

// TradeResult is the outcome of a binary-option buy or sell.
type TradeResult struct {
	Success       bool    `json:"success"`
	ContractID    string  `json:"contract_id,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	BuyPrice      float64 `json:"buy_price,omitempty"`
	SoldFor       float64 `json:"sold_for,omitempty"`
	Payout        float64 `json:"payout,omitempty"`
	Balance       float64 `json:"balance_after,omitempty"`
	Longcode      string  `json:"longcode,omitempty"`
	Error         string  `json:"error,omitempty"`
}

func FailedTrade(err error) TradeResult {
	return TradeResult{Success: false, Error: err.Error()}
}

// MT5TradeResult is the outcome of an MT5 order, close or modify.
type MT5TradeResult struct {
	Success bool     `json:"success"`
	OrderID int64    `json:"order_id,omitempty"`
	Ticket  int64    `json:"ticket,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func FailedMT5Trade(err error) MT5TradeResult {
	return MT5TradeResult{Success: false, Error: err.Error()}
}
