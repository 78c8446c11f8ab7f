package connectors

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"voicetrader/src/model"
	"voicetrader/src/session"
)

const defaultHistoryDays = 30

const (
	MT5OrderMarket = "market"
	MT5OrderLimit  = "limit"
	MT5OrderStop   = "stop"
)

var errLoginRequired = errors.New("login is required")

func (c *DerivClient) GetMT5Accounts(ctx context.Context) []model.MT5Account {
	accounts := []model.MT5Account{}

	var reply mt5LoginListReply
	if err := c.call(ctx, session.Request{"mt5_login_list": 1}, &reply); err != nil {
		c.fail(ctx, "GetMT5Accounts", err, nil)
		return accounts
	}
	for _, a := range reply.Accounts {
		accounts = append(accounts, toMT5Account(a))
	}
	return accounts
}

func (c *DerivClient) GetMT5AccountSettings(ctx context.Context, login string) *model.MT5Account {
	if strings.TrimSpace(login) == "" {
		c.invalid("GetMT5AccountSettings", errLoginRequired)
		return nil
	}

	var reply mt5SettingsReply
	if err := c.call(ctx, session.Request{"mt5_get_settings": 1, "login": login}, &reply); err != nil {
		c.fail(ctx, "GetMT5AccountSettings", err, map[string]interface{}{"login": login})
		return nil
	}
	if reply.Settings == nil {
		c.fail(ctx, "GetMT5AccountSettings", errors.New("settings missing from reply"), map[string]interface{}{"login": login})
		return nil
	}
	acc := toMT5Account(*reply.Settings)
	if acc.Login == "" {
		acc.Login = login
	}
	return &acc
}

func (c *DerivClient) GetMT5Symbols(ctx context.Context, login string) []model.MT5Symbol {
	symbols := []model.MT5Symbol{}
	if strings.TrimSpace(login) == "" {
		c.invalid("GetMT5Symbols", errLoginRequired)
		return symbols
	}

	var reply mt5SymbolsReply
	if err := c.call(ctx, session.Request{"mt5_symbols": 1, "login": login}, &reply); err != nil {
		c.fail(ctx, "GetMT5Symbols", err, map[string]interface{}{"login": login})
		return symbols
	}
	for _, s := range reply.Symbols {
		symbols = append(symbols, model.MT5Symbol{
			Symbol:      s.Symbol,
			Description: s.Description,
			Bid:         float64(s.Bid),
			Ask:         float64(s.Ask),
			Digits:      int(s.Digits),
			VolumeMin:   float64(s.VolumeMin),
			VolumeMax:   float64(s.VolumeMax),
			VolumeStep:  float64(s.VolumeStep),
		})
	}
	return symbols
}

func (c *DerivClient) GetMT5Positions(ctx context.Context, login string) []model.MT5Position {
	positions := []model.MT5Position{}
	if strings.TrimSpace(login) == "" {
		c.invalid("GetMT5Positions", errLoginRequired)
		return positions
	}

	var reply mt5PositionsReply
	if err := c.call(ctx, session.Request{"mt5_positions": 1, "login": login}, &reply); err != nil {
		c.fail(ctx, "GetMT5Positions", err, map[string]interface{}{"login": login})
		return positions
	}
	for _, p := range reply.Positions {
		positions = append(positions, model.MT5Position{
			Ticket:       p.Ticket.int64(),
			Symbol:       p.Symbol,
			Volume:       float64(p.Volume),
			OpenPrice:    float64(p.PriceOpen),
			CurrentPrice: float64(p.PriceCurrent),
			Profit:       float64(p.Profit),
			Swap:         float64(p.Swap),
			Direction:    string(p.Type),
			OpenTime:     p.Time.time(),
			StopLoss:     nonZero(p.StopLoss),
			TakeProfit:   nonZero(p.TakeProfit),
			Comment:      p.Comment,
		})
	}
	return positions
}

// GetMT5TradeHistory returns the deals of the last daysBack days (default 30).
func (c *DerivClient) GetMT5TradeHistory(ctx context.Context, login string, daysBack int) []model.MT5Deal {
	deals := []model.MT5Deal{}
	if strings.TrimSpace(login) == "" {
		c.invalid("GetMT5TradeHistory", errLoginRequired)
		return deals
	}
	if daysBack <= 0 {
		daysBack = defaultHistoryDays
	}

	to := c.now().UTC()
	from := to.Add(-time.Duration(daysBack) * 24 * time.Hour)
	req := session.Request{
		"mt5_trade_history": 1,
		"login":             login,
		"date_from":         from.Unix(),
		"date_to":           to.Unix(),
	}

	var reply mt5HistoryReply
	if err := c.call(ctx, req, &reply); err != nil {
		c.fail(ctx, "GetMT5TradeHistory", err, map[string]interface{}{"login": login, "days_back": daysBack})
		return deals
	}
	for _, d := range reply.Deals {
		deals = append(deals, model.MT5Deal{
			Ticket:    d.Ticket.int64(),
			Order:     d.Order.int64(),
			Symbol:    d.Symbol,
			Volume:    float64(d.Volume),
			Price:     float64(d.Price),
			Profit:    float64(d.Profit),
			Direction: string(d.Type),
			Time:      d.Time.time(),
			Comment:   d.Comment,
		})
	}
	return deals
}

type MT5OrderParams struct {
	Login      string   `json:"login"`
	Symbol     string   `json:"symbol"`
	Volume     float64  `json:"volume"`
	Type       string   `json:"type"`                 // buy or sell
	OrderKind  string   `json:"order_type,omitempty"` // market, limit or stop; default market
	Price      *float64 `json:"price,omitempty"`      // required for limit and stop
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	Comment    string   `json:"comment,omitempty"`
}

func (p *MT5OrderParams) normalize() error {
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.OrderKind = strings.ToLower(strings.TrimSpace(p.OrderKind))
	if p.OrderKind == "" {
		p.OrderKind = MT5OrderMarket
	}

	switch {
	case strings.TrimSpace(p.Login) == "":
		return errLoginRequired
	case strings.TrimSpace(p.Symbol) == "":
		return errors.New("symbol is required")
	case p.Volume <= 0:
		return errors.New("volume must be positive")
	case p.Type != model.MT5DirectionBuy && p.Type != model.MT5DirectionSell:
		return errors.New("type must be buy or sell")
	}

	switch p.OrderKind {
	case MT5OrderMarket:
	case MT5OrderLimit, MT5OrderStop:
		if p.Price == nil || *p.Price <= 0 {
			return errors.New("price is required for limit and stop orders")
		}
	default:
		return errors.New("order_type must be market, limit or stop")
	}
	return nil
}

func (c *DerivClient) PlaceMT5Order(ctx context.Context, p MT5OrderParams) model.MT5TradeResult {
	if err := p.normalize(); err != nil {
		c.invalid("PlaceMT5Order", err)
		return model.FailedMT5Trade(err)
	}

	req := session.Request{
		"mt5_new_order": 1,
		"login":         p.Login,
		"symbol":        p.Symbol,
		"volume":        p.Volume,
		"type":          p.Type,
		"order_type":    p.OrderKind,
	}
	if p.OrderKind != MT5OrderMarket {
		req["price"] = *p.Price
	}
	if p.StopLoss != nil {
		req["stop_loss"] = *p.StopLoss
	}
	if p.TakeProfit != nil {
		req["take_profit"] = *p.TakeProfit
	}
	if p.Comment != "" {
		req["comment"] = p.Comment
	}

	requestedAt := c.now()
	result := c.mt5Trade(ctx, "PlaceMT5Order", "mt5_new_order", req)

	c.record(ctx, &model.TradeExecutionLog{
		Kind:         model.TradeKindMT5Order,
		Symbol:       p.Symbol,
		ContractType: p.Type,
		Login:        p.Login,
		Amount:       p.Volume,
		Price:        result.Price,
		Ticket:       result.Ticket,
		ContractID:   idString(result.OrderID),
		RequestedAt:  requestedAt,
	}, result.Success, result.Error)
	return result
}

type MT5CloseParams struct {
	Login  string   `json:"login"`
	Ticket int64    `json:"ticket"`
	Volume *float64 `json:"volume,omitempty"` // nil closes the whole position
}

func (c *DerivClient) CloseMT5Position(ctx context.Context, p MT5CloseParams) model.MT5TradeResult {
	var err error
	switch {
	case strings.TrimSpace(p.Login) == "":
		err = errLoginRequired
	case p.Ticket <= 0:
		err = errors.New("ticket is required")
	case p.Volume != nil && *p.Volume <= 0:
		err = errors.New("volume must be positive")
	}
	if err != nil {
		c.invalid("CloseMT5Position", err)
		return model.FailedMT5Trade(err)
	}

	req := session.Request{
		"mt5_close_position": 1,
		"login":              p.Login,
		"ticket":             p.Ticket,
	}
	if p.Volume != nil {
		req["volume"] = *p.Volume
	}

	requestedAt := c.now()
	result := c.mt5Trade(ctx, "CloseMT5Position", "mt5_close_position", req)
	if result.Success && result.Ticket == 0 {
		result.Ticket = p.Ticket
	}

	var volume float64
	if p.Volume != nil {
		volume = *p.Volume
	}
	c.record(ctx, &model.TradeExecutionLog{
		Kind:        model.TradeKindMT5Close,
		Login:       p.Login,
		Ticket:      p.Ticket,
		Amount:      volume,
		Price:       result.Price,
		RequestedAt: requestedAt,
	}, result.Success, result.Error)
	return result
}

type MT5ModifyParams struct {
	Login      string   `json:"login"`
	Ticket     int64    `json:"ticket"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
}

// ModifyMT5Position sends only the protective levels that are set, so an omitted one keeps its
// current value on the gateway.
func (c *DerivClient) ModifyMT5Position(ctx context.Context, p MT5ModifyParams) model.MT5TradeResult {
	var err error
	switch {
	case strings.TrimSpace(p.Login) == "":
		err = errLoginRequired
	case p.Ticket <= 0:
		err = errors.New("ticket is required")
	case p.StopLoss == nil && p.TakeProfit == nil:
		err = errors.New("stop_loss or take_profit is required")
	}
	if err != nil {
		c.invalid("ModifyMT5Position", err)
		return model.FailedMT5Trade(err)
	}

	req := session.Request{
		"mt5_modify_position": 1,
		"login":               p.Login,
		"ticket":              p.Ticket,
	}
	if p.StopLoss != nil {
		req["stop_loss"] = *p.StopLoss
	}
	if p.TakeProfit != nil {
		req["take_profit"] = *p.TakeProfit
	}

	requestedAt := c.now()
	result := c.mt5Trade(ctx, "ModifyMT5Position", "mt5_modify_position", req)
	if result.Success && result.Ticket == 0 {
		result.Ticket = p.Ticket
	}

	c.record(ctx, &model.TradeExecutionLog{
		Kind:        model.TradeKindMT5Modify,
		Login:       p.Login,
		Ticket:      p.Ticket,
		RequestedAt: requestedAt,
	}, result.Success, result.Error)
	return result
}

// mt5Trade sends an MT5 trading request whose reply body sits under msgType.
func (c *DerivClient) mt5Trade(ctx context.Context, method, msgType string, req session.Request) model.MT5TradeResult {
	var body map[string]jsoniter.RawMessage
	var payload *mt5TradePayload
	err := c.call(ctx, req, &body)
	if err == nil {
		if raw, ok := body[msgType]; ok {
			err = json.Unmarshal(raw, &payload)
		}
		if err == nil && payload == nil {
			err = errors.New(msgType + " reply carries no result")
		}
	}
	if err != nil {
		c.fail(ctx, method, err, map[string]interface{}{"login": req["login"], "request": msgType})
		return model.MT5TradeResult{Success: false, Error: errorText(err)}
	}

	return model.MT5TradeResult{
		Success: true,
		OrderID: payload.OrderID.int64(),
		Ticket:  payload.Ticket.int64(),
		Price:   floatPtr(payload.Price),
		Volume:  floatPtr(payload.Volume),
	}
}

func toMT5Account(a mt5AccountPayload) model.MT5Account {
	acc := model.MT5Account{
		Login:       string(a.Login),
		Balance:     float64(a.Balance),
		Equity:      float64(a.Equity),
		Currency:    a.Currency,
		Leverage:    int(a.Leverage),
		Server:      a.Server,
		AccountType: a.AccountType,
		Group:       a.Group,
		Name:        a.Name,
		Email:       a.Email,
		Country:     a.Country,
		DisplayName: a.DisplayLogin,
	}
	if acc.DisplayName == "" {
		acc.DisplayName = acc.Login
	}
	if a.ServerInfo != nil && a.ServerInfo.Environment != "" && acc.Server == "" {
		acc.Server = a.ServerInfo.Environment
	}
	return acc
}

// nonZero maps an unset (0) MT5 protective level to nil.
func nonZero(f *flexFloat) *float64 {
	if f == nil || *f == 0 {
		return nil
	}
	return floatPtr(f)
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
