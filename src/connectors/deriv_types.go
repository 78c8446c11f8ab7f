package connectors

import (
	"bytes"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexString accepts a JSON string or number; gateway ids arrive as either.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}

func (s flexString) int64() int64 {
	v, _ := strconv.ParseInt(string(s), 10, 64)
	return v
}

// epoch is a unix timestamp in seconds.
type epoch int64

func (e *epoch) UnmarshalJSON(data []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*e = epoch(f)
	return nil
}

func (e epoch) time() time.Time {
	if e == 0 {
		return time.Time{}
	}
	return time.Unix(int64(e), 0).UTC()
}

func (e epoch) timePtr() *time.Time {
	if e == 0 {
		return nil
	}
	t := e.time()
	return &t
}

// direction accepts "buy"/"sell" or the MT5 numeric deal type (0 buy, 1 sell).
type direction string

func (d *direction) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	switch s {
	case "0":
		*d = "buy"
	case "1":
		*d = "sell"
	default:
		*d = direction(s)
	}
	return nil
}

type authorizePayload struct {
	LoginID   string    `json:"loginid"`
	Balance   flexFloat `json:"balance"`
	Currency  string    `json:"currency"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullname"`
	IsVirtual flexFloat `json:"is_virtual"`
}

type authorizeReply struct {
	Authorize *authorizePayload `json:"authorize"`
}

type balanceReply struct {
	Balance *struct {
		Balance  flexFloat `json:"balance"`
		Currency string    `json:"currency"`
		LoginID  string    `json:"loginid"`
	} `json:"balance"`
}

type portfolioContract struct {
	ContractID   flexString `json:"contract_id"`
	Symbol       string     `json:"symbol"`
	ContractType string     `json:"contract_type"`
	BuyPrice     flexFloat  `json:"buy_price"`
	Payout       flexFloat  `json:"payout"`
	EntrySpot    flexFloat  `json:"entry_spot"`
	CurrentSpot  flexFloat  `json:"current_spot"`
	Profit       flexFloat  `json:"profit"`
	Currency     string     `json:"currency"`
	PurchaseTime epoch      `json:"purchase_time"`
	ExpiryTime   epoch      `json:"expiry_time"`
	Longcode     string     `json:"longcode"`
}

type portfolioReply struct {
	Portfolio *struct {
		Contracts []portfolioContract `json:"contracts"`
	} `json:"portfolio"`
}

type tickReply struct {
	Tick *struct {
		Quote  *flexFloat `json:"quote"`
		Symbol string     `json:"symbol"`
		Epoch  epoch      `json:"epoch"`
	} `json:"tick"`
}

type activeSymbolsReply struct {
	ActiveSymbols []struct {
		Symbol         string    `json:"symbol"`
		DisplayName    string    `json:"display_name"`
		Market         string    `json:"market"`
		Submarket      string    `json:"submarket"`
		ExchangeIsOpen flexFloat `json:"exchange_is_open"`
		Spot           flexFloat `json:"spot"`
		Pip            flexFloat `json:"pip"`
	} `json:"active_symbols"`
}

type proposalReply struct {
	Proposal *struct {
		ID        flexString `json:"id"`
		AskPrice  flexFloat  `json:"ask_price"`
		Payout    flexFloat  `json:"payout"`
		Spot      flexFloat  `json:"spot"`
		Longcode  string     `json:"longcode"`
		DateStart epoch      `json:"date_start"`
	} `json:"proposal"`
}

type buyReply struct {
	Buy *struct {
		ContractID    flexString `json:"contract_id"`
		TransactionID flexString `json:"transaction_id"`
		BuyPrice      flexFloat  `json:"buy_price"`
		Payout        flexFloat  `json:"payout"`
		BalanceAfter  flexFloat  `json:"balance_after"`
		Longcode      string     `json:"longcode"`
	} `json:"buy"`
}

type sellReply struct {
	Sell *struct {
		ContractID    flexString `json:"contract_id"`
		TransactionID flexString `json:"transaction_id"`
		SoldFor       flexFloat  `json:"sold_for"`
		BalanceAfter  flexFloat  `json:"balance_after"`
	} `json:"sell"`
}

type mt5AccountPayload struct {
	Login        flexString `json:"login"`
	Balance      flexFloat  `json:"balance"`
	Equity       flexFloat  `json:"equity"`
	Currency     string     `json:"currency"`
	Leverage     flexFloat  `json:"leverage"`
	Server       string     `json:"server"`
	AccountType  string     `json:"account_type"`
	Group        string     `json:"group"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Country      string     `json:"country"`
	DisplayLogin string     `json:"display_login"`
	ServerInfo   *struct {
		Environment string `json:"environment"`
	} `json:"server_info"`
}

type mt5LoginListReply struct {
	Accounts []mt5AccountPayload `json:"mt5_login_list"`
}

type mt5SettingsReply struct {
	Settings *mt5AccountPayload `json:"mt5_get_settings"`
}

type mt5SymbolsReply struct {
	Symbols []struct {
		Symbol      string    `json:"symbol"`
		Description string    `json:"description"`
		Bid         flexFloat `json:"bid"`
		Ask         flexFloat `json:"ask"`
		Digits      flexFloat `json:"digits"`
		VolumeMin   flexFloat `json:"volume_min"`
		VolumeMax   flexFloat `json:"volume_max"`
		VolumeStep  flexFloat `json:"volume_step"`
	} `json:"mt5_symbols"`
}

type mt5PositionsReply struct {
	Positions []struct {
		Ticket       flexString `json:"ticket"`
		Symbol       string     `json:"symbol"`
		Volume       flexFloat  `json:"volume"`
		PriceOpen    flexFloat  `json:"price_open"`
		PriceCurrent flexFloat  `json:"price_current"`
		Profit       flexFloat  `json:"profit"`
		Swap         flexFloat  `json:"swap"`
		Type         direction  `json:"type"`
		Time         epoch      `json:"time"`
		StopLoss     *flexFloat `json:"sl"`
		TakeProfit   *flexFloat `json:"tp"`
		Comment      string     `json:"comment"`
	} `json:"mt5_positions"`
}

type mt5HistoryReply struct {
	Deals []struct {
		Ticket  flexString `json:"ticket"`
		Order   flexString `json:"order"`
		Symbol  string     `json:"symbol"`
		Volume  flexFloat  `json:"volume"`
		Price   flexFloat  `json:"price"`
		Profit  flexFloat  `json:"profit"`
		Type    direction  `json:"type"`
		Time    epoch      `json:"time"`
		Comment string     `json:"comment"`
	} `json:"mt5_trade_history"`
}

type mt5TradePayload struct {
	OrderID flexString `json:"order_id"`
	Ticket  flexString `json:"ticket"`
	Price   *flexFloat `json:"price"`
	Volume  *flexFloat `json:"volume"`
}

type statementReply struct {
	Statement *struct {
		Transactions []map[string]interface{} `json:"transactions"`
	} `json:"statement"`
}

type profitTableReply struct {
	ProfitTable *struct {
		Transactions []map[string]interface{} `json:"transactions"`
	} `json:"profit_table"`
}

func floatPtr(f *flexFloat) *float64 {
	if f == nil {
		return nil
	}
	v := float64(*f)
	return &v
}
