package model

import "time"

// Position is an open binary-option contract.
type Position struct {
	ContractID   string     `json:"contract_id"`
	Symbol       string     `json:"symbol"`
	ContractType string     `json:"contract_type"`
	BuyPrice     float64    `json:"buy_price"`
	EntryPrice   float64    `json:"entry_price"`
	CurrentPrice float64    `json:"current_price"`
	Payout       float64    `json:"payout"`
	Profit       float64    `json:"profit"`
	Currency     string     `json:"currency"`
	PurchaseTime time.Time  `json:"purchase_time"`
	ExpiryTime   *time.Time `json:"expiry_time,omitempty"`
	Description  string     `json:"description,omitempty"`
}

const (
	MT5DirectionBuy  = "buy"
	MT5DirectionSell = "sell"
)

// MT5Position is an open MetaTrader 5 position.
type MT5Position struct {
	Ticket       int64     `json:"ticket"`
	Symbol       string    `json:"symbol"`
	Volume       float64   `json:"volume"`
	OpenPrice    float64   `json:"open_price"`
	CurrentPrice float64   `json:"current_price"`
	Profit       float64   `json:"profit"`
	Swap         float64   `json:"swap,omitempty"`
	Direction    string    `json:"direction"`
	OpenTime     time.Time `json:"open_time"`
	StopLoss     *float64  `json:"stop_loss,omitempty"`
	TakeProfit   *float64  `json:"take_profit,omitempty"`
	Comment      string    `json:"comment,omitempty"`
}

// MT5Symbol is a tradable MT5 instrument with its quote and contract limits.
type MT5Symbol struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description,omitempty"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Digits      int     `json:"digits"`
	VolumeMin   float64 `json:"volume_min"`
	VolumeMax   float64 `json:"volume_max"`
	VolumeStep  float64 `json:"volume_step"`
}

// MT5Deal is one executed deal from the MT5 trade history.
type MT5Deal struct {
	Ticket    int64     `json:"ticket"`
	Order     int64     `json:"order,omitempty"`
	Symbol    string    `json:"symbol"`
	Volume    float64   `json:"volume"`
	Price     float64   `json:"price"`
	Profit    float64   `json:"profit"`
	Direction string    `json:"direction"`
	Time      time.Time `json:"time"`
	Comment   string    `json:"comment,omitempty"`
}

// ActiveSymbol is a market open for binary-option trading.
type ActiveSymbol struct {
	Symbol      string  `json:"symbol"`
	DisplayName string  `json:"display_name"`
	Market      string  `json:"market"`
	Submarket   string  `json:"submarket,omitempty"`
	IsOpen      bool    `json:"is_open"`
	Spot        float64 `json:"spot,omitempty"`
	PipSize     float64 `json:"pip,omitempty"`
}
