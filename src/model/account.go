package model

const (
	AccountTypeDemo = "demo"
	AccountTypeReal = "real"
)

// Account is a snapshot of the authorized trading account.
type Account struct {
	LoginID     string  `json:"loginid"`
	Balance     float64 `json:"balance"`
	Currency    string  `json:"currency"`
	AccountType string  `json:"account_type"`
	IsVirtual   bool    `json:"is_virtual"`
	Email       string  `json:"email,omitempty"`
	FullName    string  `json:"fullname,omitempty"`
}

// MT5Account is one MetaTrader 5 account linked to the trading account.
type MT5Account struct {
	Login       string  `json:"login"`
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity,omitempty"`
	Currency    string  `json:"currency"`
	Leverage    int     `json:"leverage"`
	Server      string  `json:"server"`
	AccountType string  `json:"account_type"`
	Group       string  `json:"group,omitempty"`
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email,omitempty"`
	Country     string  `json:"country,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
}
