package connectors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"voicetrader/src/model"
	"voicetrader/src/security"
	"voicetrader/src/session"
)

const (
	defaultDurationUnit = "t"
	defaultBasis        = "stake"
	defaultHistoryLimit = 50
)

// requester is the part of *session.Session the typed operations need.
type requester interface {
	Send(ctx context.Context, req session.Request) (*session.Response, error)
}

// TradeJournal receives the outcome of every order sent to the gateway.
type TradeJournal interface {
	Create(ctx context.Context, entry *model.TradeExecutionLog) error
}

// ExceptionRecorder persists failures caught at the operation boundary.
type ExceptionRecorder interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// DerivClient exposes the trading operations of the gateway as typed calls.
// No operation returns an error: failures are logged and mapped to an empty list, a nil
// pointer, ok=false or a result with Success=false.
type DerivClient struct {
	session  requester
	sess     *session.Session
	token    string
	currency string
	log      *logger.Entry
	journal  TradeJournal
	recorder ExceptionRecorder
	now      func() time.Time
}

// NewDerivClient builds a client on a new gateway session. It returns false when no API token
// is configured; callers treat that as the trading service being unavailable.
func NewDerivClient(cfg Config) (*DerivClient, bool) {
	log := logger.WithField("component", "deriv_client")

	token := strings.TrimSpace(cfg.DerivAPIToken)
	if cfg.DerivAPITokenEnc != "" {
		plain, err := security.DecryptString(cfg.DerivAPITokenEnc)
		if err != nil {
			log.WithError(err).Error("failed to decrypt DERIV_API_TOKEN_ENC")
		} else {
			token = plain
		}
	}
	if token == "" {
		log.Warn("DERIV_API_TOKEN not set, trading operations disabled")
		return nil, false
	}

	scfg := session.GetConfig()
	scfg.Token = token
	sess := session.New(scfg, logger.WithField("component", "gateway_session"))

	return NewDerivClientWithSession(sess, token, cfg.DerivCurrency), true
}

// NewDerivClientWithSession builds a client on an existing requester.
func NewDerivClientWithSession(r requester, token, currency string) *DerivClient {
	if currency == "" {
		currency = "USD"
	}
	c := &DerivClient{
		session:  r,
		token:    token,
		currency: currency,
		log:      logger.WithField("component", "deriv_client"),
		now:      time.Now,
	}
	if sess, ok := r.(*session.Session); ok {
		c.sess = sess
	}
	return c
}

func (c *DerivClient) WithJournal(j TradeJournal) *DerivClient {
	c.journal = j
	return c
}

func (c *DerivClient) WithExceptionRecorder(r ExceptionRecorder) *DerivClient {
	c.recorder = r
	return c
}

func (c *DerivClient) WithLogger(log *logger.Entry) *DerivClient {
	c.log = log
	return c
}

// Connect opens the gateway session ahead of the first operation.
func (c *DerivClient) Connect(ctx context.Context) error {
	if c.sess == nil {
		return nil
	}
	return c.sess.Connect(ctx)
}

func (c *DerivClient) Close() {
	if c.sess != nil {
		c.sess.Disconnect()
	}
}

// Subscribe registers h for every frame the gateway sends.
func (c *DerivClient) Subscribe(h session.Handler) func() {
	if c.sess == nil {
		return func() {}
	}
	return c.sess.Subscribe(h)
}

type Status struct {
	Connected         bool   `json:"connected"`
	State             string `json:"state"`
	Pending           int    `json:"pending_requests"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
}

func (c *DerivClient) Status() Status {
	if c.sess == nil {
		return Status{State: "unknown"}
	}
	return Status{
		Connected:         c.sess.IsConnected(),
		State:             c.sess.State().String(),
		Pending:           c.sess.Pending(),
		ReconnectAttempts: c.sess.ReconnectAttempts(),
	}
}

// GetAccountInfo merges the balance and authorize replies into one snapshot.
func (c *DerivClient) GetAccountInfo(ctx context.Context) *model.Account {
	var bal balanceReply
	if err := c.call(ctx, session.Request{"balance": 1}, &bal); err != nil {
		c.fail(ctx, "GetAccountInfo", err, nil)
		return nil
	}
	var auth authorizeReply
	if err := c.call(ctx, session.Request{"authorize": c.token}, &auth); err != nil {
		c.fail(ctx, "GetAccountInfo", err, nil)
		return nil
	}
	if bal.Balance == nil && auth.Authorize == nil {
		c.fail(ctx, "GetAccountInfo", errors.New("empty balance and authorize replies"), nil)
		return nil
	}

	acc := &model.Account{Currency: c.currency}
	if a := auth.Authorize; a != nil {
		acc.LoginID = a.LoginID
		acc.Balance = float64(a.Balance)
		acc.Email = a.Email
		acc.FullName = a.FullName
		acc.IsVirtual = a.IsVirtual != 0
		if a.Currency != "" {
			acc.Currency = a.Currency
		}
	}
	if b := bal.Balance; b != nil {
		acc.Balance = float64(b.Balance)
		if b.Currency != "" {
			acc.Currency = b.Currency
		}
		if acc.LoginID == "" {
			acc.LoginID = b.LoginID
		}
	}
	if strings.HasPrefix(acc.LoginID, "VR") {
		acc.IsVirtual = true
	}
	acc.AccountType = model.AccountTypeReal
	if acc.IsVirtual {
		acc.AccountType = model.AccountTypeDemo
	}
	return acc
}

func (c *DerivClient) GetBalance(ctx context.Context) *model.Account {
	var bal balanceReply
	if err := c.call(ctx, session.Request{"balance": 1}, &bal); err != nil {
		c.fail(ctx, "GetBalance", err, nil)
		return nil
	}
	if bal.Balance == nil {
		c.fail(ctx, "GetBalance", errors.New("balance missing from reply"), nil)
		return nil
	}
	return &model.Account{
		LoginID:  bal.Balance.LoginID,
		Balance:  float64(bal.Balance.Balance),
		Currency: bal.Balance.Currency,
	}
}

// GetOpenPositions never returns nil.
func (c *DerivClient) GetOpenPositions(ctx context.Context) []model.Position {
	positions := []model.Position{}

	var reply portfolioReply
	if err := c.call(ctx, session.Request{"portfolio": 1}, &reply); err != nil {
		c.fail(ctx, "GetOpenPositions", err, nil)
		return positions
	}
	if reply.Portfolio == nil {
		return positions
	}

	for _, ct := range reply.Portfolio.Contracts {
		positions = append(positions, model.Position{
			ContractID:   string(ct.ContractID),
			Symbol:       ct.Symbol,
			ContractType: ct.ContractType,
			BuyPrice:     float64(ct.BuyPrice),
			EntryPrice:   float64(ct.EntrySpot),
			CurrentPrice: float64(ct.CurrentSpot),
			Payout:       float64(ct.Payout),
			Profit:       float64(ct.Profit),
			Currency:     ct.Currency,
			PurchaseTime: ct.PurchaseTime.time(),
			ExpiryTime:   ct.ExpiryTime.timePtr(),
			Description:  ct.Longcode,
		})
	}
	return positions
}

// GetSymbolPrice returns the latest quote from a one-shot tick request.
func (c *DerivClient) GetSymbolPrice(ctx context.Context, symbol string) (float64, bool) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		c.invalid("GetSymbolPrice", errors.New("symbol is required"))
		return 0, false
	}

	var reply tickReply
	if err := c.call(ctx, session.Request{"ticks": symbol}, &reply); err != nil {
		c.fail(ctx, "GetSymbolPrice", err, map[string]interface{}{"symbol": symbol})
		return 0, false
	}
	if reply.Tick == nil || reply.Tick.Quote == nil {
		c.fail(ctx, "GetSymbolPrice", errors.New("tick reply carries no quote"), map[string]interface{}{"symbol": symbol})
		return 0, false
	}
	return float64(*reply.Tick.Quote), true
}

func (c *DerivClient) GetActiveSymbols(ctx context.Context) []model.ActiveSymbol {
	symbols := []model.ActiveSymbol{}

	var reply activeSymbolsReply
	req := session.Request{"active_symbols": "brief", "product_type": "basic"}
	if err := c.call(ctx, req, &reply); err != nil {
		c.fail(ctx, "GetActiveSymbols", err, nil)
		return symbols
	}
	for _, s := range reply.ActiveSymbols {
		symbols = append(symbols, model.ActiveSymbol{
			Symbol:      s.Symbol,
			DisplayName: s.DisplayName,
			Market:      s.Market,
			Submarket:   s.Submarket,
			IsOpen:      s.ExchangeIsOpen != 0,
			Spot:        float64(s.Spot),
			PipSize:     float64(s.Pip),
		})
	}
	return symbols
}

type BuyContractParams struct {
	Symbol       string  `json:"symbol"`
	ContractType string  `json:"contract_type"` // CALL, PUT, ...
	Amount       float64 `json:"amount"`        // stake, also the buy price ceiling
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit,omitempty"` // t, s, m, h, d; default t
	Barrier      string  `json:"barrier,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	Basis        string  `json:"basis,omitempty"` // default stake
}

func (p BuyContractParams) validate() error {
	switch {
	case strings.TrimSpace(p.Symbol) == "":
		return errors.New("symbol is required")
	case strings.TrimSpace(p.ContractType) == "":
		return errors.New("contract_type is required")
	case p.Amount <= 0:
		return errors.New("amount must be positive")
	case p.Duration <= 0:
		return errors.New("duration must be positive")
	}
	return nil
}

// BuyContract asks for a price proposal and buys it with Amount as the price ceiling. The buy
// is only sent after the proposal succeeded.
func (c *DerivClient) BuyContract(ctx context.Context, p BuyContractParams) model.TradeResult {
	if err := p.validate(); err != nil {
		c.invalid("BuyContract", err)
		return model.FailedTrade(err)
	}
	if p.DurationUnit == "" {
		p.DurationUnit = defaultDurationUnit
	}
	if p.Basis == "" {
		p.Basis = defaultBasis
	}
	if p.Currency == "" {
		p.Currency = c.currency
	}
	fields := map[string]interface{}{
		"symbol":        p.Symbol,
		"contract_type": p.ContractType,
		"amount":        p.Amount,
		"duration":      fmt.Sprintf("%d%s", p.Duration, p.DurationUnit),
	}
	requestedAt := c.now()

	proposalReq := session.Request{
		"proposal":      1,
		"amount":        p.Amount,
		"basis":         p.Basis,
		"contract_type": p.ContractType,
		"currency":      p.Currency,
		"duration":      p.Duration,
		"duration_unit": p.DurationUnit,
		"symbol":        p.Symbol,
	}
	if p.Barrier != "" {
		proposalReq["barrier"] = p.Barrier
	}

	var proposal proposalReply
	err := c.call(ctx, proposalReq, &proposal)
	if err == nil && (proposal.Proposal == nil || proposal.Proposal.ID == "") {
		err = errors.New("proposal reply carries no id")
	}
	if err != nil {
		c.fail(ctx, "BuyContract", err, fields)
		result := model.TradeResult{Success: false, Error: errorText(err)}
		c.journalBuy(ctx, p, result, requestedAt)
		return result
	}

	var bought buyReply
	err = c.call(ctx, session.Request{"buy": string(proposal.Proposal.ID), "price": p.Amount}, &bought)
	if err == nil && bought.Buy == nil {
		err = errors.New("buy reply carries no contract")
	}
	if err != nil {
		c.fail(ctx, "BuyContract", err, fields)
		result := model.TradeResult{Success: false, Error: errorText(err)}
		c.journalBuy(ctx, p, result, requestedAt)
		return result
	}

	result := model.TradeResult{
		Success:       true,
		ContractID:    string(bought.Buy.ContractID),
		TransactionID: string(bought.Buy.TransactionID),
		BuyPrice:      float64(bought.Buy.BuyPrice),
		Payout:        float64(bought.Buy.Payout),
		Balance:       float64(bought.Buy.BalanceAfter),
		Longcode:      bought.Buy.Longcode,
	}
	c.log.WithFields(map[string]interface{}{
		"contract_id": result.ContractID,
		"symbol":      p.Symbol,
		"buy_price":   result.BuyPrice,
	}).Info("contract bought")
	c.journalBuy(ctx, p, result, requestedAt)
	return result
}

// SellContract sells an open contract. A price of 0 sells at market.
func (c *DerivClient) SellContract(ctx context.Context, contractID string, price float64) model.TradeResult {
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		err := errors.New("contract_id is required")
		c.invalid("SellContract", err)
		return model.FailedTrade(err)
	}
	if price < 0 {
		err := errors.New("price must not be negative")
		c.invalid("SellContract", err)
		return model.FailedTrade(err)
	}
	requestedAt := c.now()

	var id interface{} = contractID
	if n, err := strconv.ParseInt(contractID, 10, 64); err == nil {
		id = n
	}

	var sold sellReply
	err := c.call(ctx, session.Request{"sell": id, "price": price}, &sold)
	if err == nil && sold.Sell == nil {
		err = errors.New("sell reply carries no result")
	}

	var result model.TradeResult
	if err != nil {
		c.fail(ctx, "SellContract", err, map[string]interface{}{"contract_id": contractID, "price": price})
		result = model.TradeResult{Success: false, ContractID: contractID, Error: errorText(err)}
	} else {
		result = model.TradeResult{
			Success:       true,
			ContractID:    contractID,
			TransactionID: string(sold.Sell.TransactionID),
			SoldFor:       float64(sold.Sell.SoldFor),
			Balance:       float64(sold.Sell.BalanceAfter),
		}
		if sold.Sell.ContractID != "" {
			result.ContractID = string(sold.Sell.ContractID)
		}
	}

	entry := &model.TradeExecutionLog{
		Kind:          model.TradeKindSellContract,
		Amount:        price,
		ContractID:    result.ContractID,
		TransactionID: result.TransactionID,
		RequestedAt:   requestedAt,
	}
	if result.Success {
		soldFor := result.SoldFor
		entry.Price = &soldFor
	}
	c.record(ctx, entry, result.Success, result.Error)
	return result
}

// GetTransactionHistory returns the raw statement entries, newest first.
func (c *DerivClient) GetTransactionHistory(ctx context.Context, limit int) []map[string]interface{} {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	out := []map[string]interface{}{}

	var reply statementReply
	req := session.Request{"statement": 1, "description": 1, "limit": limit}
	if err := c.call(ctx, req, &reply); err != nil {
		c.fail(ctx, "GetTransactionHistory", err, map[string]interface{}{"limit": limit})
		return out
	}
	if reply.Statement != nil && reply.Statement.Transactions != nil {
		out = reply.Statement.Transactions
	}
	return out
}

// GetProfitTable returns the raw profit table of closed contracts, newest first.
func (c *DerivClient) GetProfitTable(ctx context.Context, limit int) []map[string]interface{} {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	out := []map[string]interface{}{}

	var reply profitTableReply
	req := session.Request{"profit_table": 1, "description": 1, "limit": limit, "sort": "DESC"}
	if err := c.call(ctx, req, &reply); err != nil {
		c.fail(ctx, "GetProfitTable", err, map[string]interface{}{"limit": limit})
		return out
	}
	if reply.ProfitTable != nil && reply.ProfitTable.Transactions != nil {
		out = reply.ProfitTable.Transactions
	}
	return out
}

func (c *DerivClient) call(ctx context.Context, req session.Request, out interface{}) error {
	resp, err := c.session.Send(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// invalid logs a request rejected before anything was sent.
func (c *DerivClient) invalid(method string, err error) {
	c.log.WithField("method", method).WithError(err).Warn("rejected invalid trading request")
}

func (c *DerivClient) fail(ctx context.Context, method string, err error, fields map[string]interface{}) {
	entry := c.log.WithField("method", method)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.WithError(err).Error("gateway operation failed")

	if c.recorder == nil {
		return
	}

	var details string
	if len(fields) > 0 {
		if raw, mErr := json.Marshal(fields); mErr == nil {
			details = string(raw)
		}
	}
	exc := &model.Exception{
		Service:   "voicetrader",
		Module:    "deriv_client",
		Method:    method,
		Message:   errorText(err),
		Level:     model.ExceptionLevelError,
		Context:   details,
		CreatedAt: c.now(),
	}
	if err := c.recorder.Create(context.WithoutCancel(ctx), exc); err != nil {
		c.log.WithError(err).Warn("failed to persist exception")
	}
}

func (c *DerivClient) journalBuy(ctx context.Context, p BuyContractParams, result model.TradeResult, requestedAt time.Time) {
	entry := &model.TradeExecutionLog{
		Kind:          model.TradeKindBuyContract,
		Symbol:        p.Symbol,
		ContractType:  p.ContractType,
		Amount:        p.Amount,
		ContractID:    result.ContractID,
		TransactionID: result.TransactionID,
		RequestedAt:   requestedAt,
	}
	if result.Success {
		price := result.BuyPrice
		entry.Price = &price
	}
	c.record(ctx, entry, result.Success, result.Error)
}

func (c *DerivClient) record(ctx context.Context, entry *model.TradeExecutionLog, success bool, errMsg string) {
	if c.journal == nil {
		return
	}
	entry.Status = model.TradeExecutionStatusFilled
	if !success {
		entry.Status = model.TradeExecutionStatusError
		entry.ErrorMessage = &errMsg
	}
	entry.CreatedAt = c.now()
	if err := c.journal.Create(context.WithoutCancel(ctx), entry); err != nil {
		c.log.WithError(err).WithField("kind", entry.Kind).Warn("failed to journal trade")
	}
}
