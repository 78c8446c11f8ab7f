package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	logger "github.com/sirupsen/logrus"

	"voicetrader/src/connectors"
	"voicetrader/src/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrTradingUnavailable = errors.New("trading service not configured")
	errLoginRequired      = errors.New("login is required")
)

// Trader is the slice of *connectors.DerivClient the tools call into.
type Trader interface {
	GetAccountInfo(ctx context.Context) *model.Account
	GetBalance(ctx context.Context) *model.Account
	GetOpenPositions(ctx context.Context) []model.Position
	GetSymbolPrice(ctx context.Context, symbol string) (float64, bool)
	GetActiveSymbols(ctx context.Context) []model.ActiveSymbol
	BuyContract(ctx context.Context, p connectors.BuyContractParams) model.TradeResult
	SellContract(ctx context.Context, contractID string, price float64) model.TradeResult
	GetMT5Accounts(ctx context.Context) []model.MT5Account
	GetMT5AccountSettings(ctx context.Context, login string) *model.MT5Account
	GetMT5Symbols(ctx context.Context, login string) []model.MT5Symbol
	GetMT5Positions(ctx context.Context, login string) []model.MT5Position
	GetMT5TradeHistory(ctx context.Context, login string, daysBack int) []model.MT5Deal
	PlaceMT5Order(ctx context.Context, p connectors.MT5OrderParams) model.MT5TradeResult
	CloseMT5Position(ctx context.Context, p connectors.MT5CloseParams) model.MT5TradeResult
	ModifyMT5Position(ctx context.Context, p connectors.MT5ModifyParams) model.MT5TradeResult
	GetTransactionHistory(ctx context.Context, limit int) []map[string]interface{}
	GetProfitTable(ctx context.Context, limit int) []map[string]interface{}
}

type Dispatcher struct {
	trader   Trader
	searcher connectors.Searcher
	log      *logger.Entry
}

type handlerFunc func(d *Dispatcher, ctx context.Context, args []byte) (map[string]interface{}, error)

var handlers = map[string]handlerFunc{
	ToolGetAccountInfo:        (*Dispatcher).accountInfo,
	ToolGetBalance:            (*Dispatcher).balance,
	ToolGetPositions:          (*Dispatcher).positions,
	ToolGetPrice:              (*Dispatcher).price,
	ToolGetActiveSymbols:      (*Dispatcher).activeSymbols,
	ToolBuyContract:           (*Dispatcher).buyContract,
	ToolSellContract:          (*Dispatcher).sellContract,
	ToolGetMT5Accounts:        (*Dispatcher).mt5Accounts,
	ToolGetMT5AccountSettings: (*Dispatcher).mt5Settings,
	ToolGetMT5Symbols:         (*Dispatcher).mt5Symbols,
	ToolGetMT5Positions:       (*Dispatcher).mt5Positions,
	ToolGetMT5History:         (*Dispatcher).mt5History,
	ToolPlaceMT5Order:         (*Dispatcher).placeMT5Order,
	ToolCloseMT5Position:      (*Dispatcher).closeMT5Position,
	ToolModifyMT5Position:     (*Dispatcher).modifyMT5Position,
	ToolGetTransactions:       (*Dispatcher).transactions,
	ToolGetProfitTable:        (*Dispatcher).profitTable,
}

// New accepts a nil trader or searcher; the matching tools then answer with an error payload.
func New(trader Trader, searcher connectors.Searcher, log *logger.Entry) *Dispatcher {
	if log == nil {
		log = logger.WithField("component", "dispatcher")
	}
	return &Dispatcher{trader: trader, searcher: searcher, log: log}
}

// Has reports whether name is a known tool.
func (d *Dispatcher) Has(name string) bool {
	if name == ToolWebSearch {
		return true
	}
	_, ok := handlers[name]
	return ok
}

// Dispatch runs one tool call. It never returns nil and never panics on bad input;
// failures come back as {"error": "..."}.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, rawArgs []byte) map[string]interface{} {
	start := time.Now()
	log := d.log.WithField("tool", name)

	var (
		out map[string]interface{}
		err error
	)
	switch {
	case name == ToolWebSearch:
		out, err = d.search(ctx, rawArgs)
	case handlers[name] != nil:
		if d.trader == nil {
			err = ErrTradingUnavailable
			break
		}
		out, err = handlers[name](d, ctx, rawArgs)
	default:
		err = fmt.Errorf("unknown tool: %s", name)
	}

	if err != nil {
		log.WithError(err).Warn("tool call failed")
		return errorResult(err)
	}
	log.WithField("elapsed", time.Since(start)).Debug("tool call completed")
	return out
}

func errorResult(err error) map[string]interface{} {
	return map[string]interface{}{"error": err.Error()}
}

func decodeArgs(raw []byte, v interface{}) error {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// toMap turns a result struct into the generic shape handed back to the caller.
func toMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// stringID accepts contract ids sent either as JSON strings or numbers.
func stringID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

type loginArgs struct {
	Login string `json:"login"`
}

func (a loginArgs) validate() error {
	if strings.TrimSpace(a.Login) == "" {
		return errLoginRequired
	}
	return nil
}

func (d *Dispatcher) accountInfo(ctx context.Context, _ []byte) (map[string]interface{}, error) {
	acc := d.trader.GetAccountInfo(ctx)
	if acc == nil {
		return nil, errors.New("unable to fetch account info")
	}
	return toMap(acc)
}

func (d *Dispatcher) balance(ctx context.Context, _ []byte) (map[string]interface{}, error) {
	acc := d.trader.GetBalance(ctx)
	if acc == nil {
		return nil, errors.New("unable to fetch balance")
	}
	return map[string]interface{}{
		"balance":  acc.Balance,
		"currency": acc.Currency,
		"loginid":  acc.LoginID,
	}, nil
}

func (d *Dispatcher) positions(ctx context.Context, _ []byte) (map[string]interface{}, error) {
	positions := d.trader.GetOpenPositions(ctx)
	return map[string]interface{}{
		"positions":    positions,
		"count":        len(positions),
		"total_profit": positionsProfit(positions),
	}, nil
}

func (d *Dispatcher) price(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(args.Symbol) == "" {
		return nil, errors.New("symbol is required")
	}
	price, ok := d.trader.GetSymbolPrice(ctx, args.Symbol)
	if !ok {
		return nil, fmt.Errorf("no price available for %s", args.Symbol)
	}
	return map[string]interface{}{"symbol": args.Symbol, "price": price}, nil
}

func (d *Dispatcher) activeSymbols(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args struct {
		Market string `json:"market"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	symbols := d.trader.GetActiveSymbols(ctx)
	if args.Market != "" {
		filtered := make([]model.ActiveSymbol, 0, len(symbols))
		for _, s := range symbols {
			if strings.EqualFold(s.Market, args.Market) {
				filtered = append(filtered, s)
			}
		}
		symbols = filtered
	}
	return map[string]interface{}{"symbols": symbols, "count": len(symbols)}, nil
}

func (d *Dispatcher) buyContract(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var p connectors.BuyContractParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	return toMap(d.trader.BuyContract(ctx, p))
}

func (d *Dispatcher) sellContract(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args struct {
		ContractID interface{} `json:"contract_id"`
		Price      float64     `json:"price"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	return toMap(d.trader.SellContract(ctx, stringID(args.ContractID), args.Price))
}

func (d *Dispatcher) mt5Accounts(ctx context.Context, _ []byte) (map[string]interface{}, error) {
	accounts := d.trader.GetMT5Accounts(ctx)
	return map[string]interface{}{"accounts": accounts, "count": len(accounts)}, nil
}

func (d *Dispatcher) mt5Settings(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args loginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	acc := d.trader.GetMT5AccountSettings(ctx, args.Login)
	if acc == nil {
		return nil, fmt.Errorf("unable to fetch settings for %s", args.Login)
	}
	return toMap(acc)
}

func (d *Dispatcher) mt5Symbols(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args loginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	symbols := d.trader.GetMT5Symbols(ctx, args.Login)
	return map[string]interface{}{"symbols": symbols, "count": len(symbols)}, nil
}

func (d *Dispatcher) mt5Positions(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args loginArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	positions := d.trader.GetMT5Positions(ctx, args.Login)
	return map[string]interface{}{
		"positions":    positions,
		"count":        len(positions),
		"total_profit": mt5Profit(positions),
	}, nil
}

func (d *Dispatcher) mt5History(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args struct {
		loginArgs
		DaysBack int `json:"days_back"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := args.validate(); err != nil {
		return nil, err
	}
	deals := d.trader.GetMT5TradeHistory(ctx, args.Login, args.DaysBack)
	return map[string]interface{}{"deals": deals, "count": len(deals)}, nil
}

func (d *Dispatcher) placeMT5Order(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var p connectors.MT5OrderParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	return toMap(d.trader.PlaceMT5Order(ctx, p))
}

func (d *Dispatcher) closeMT5Position(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var p connectors.MT5CloseParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	return toMap(d.trader.CloseMT5Position(ctx, p))
}

func (d *Dispatcher) modifyMT5Position(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var p connectors.MT5ModifyParams
	if err := decodeArgs(raw, &p); err != nil {
		return nil, err
	}
	return toMap(d.trader.ModifyMT5Position(ctx, p))
}

type limitArgs struct {
	Limit int `json:"limit"`
}

func (d *Dispatcher) transactions(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args limitArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	txs := d.trader.GetTransactionHistory(ctx, args.Limit)
	return map[string]interface{}{"transactions": txs, "count": len(txs)}, nil
}

func (d *Dispatcher) profitTable(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args limitArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	rows := d.trader.GetProfitTable(ctx, args.Limit)
	return map[string]interface{}{
		"contracts":    rows,
		"count":        len(rows),
		"total_profit": profitTableTotal(rows),
	}, nil
}

func (d *Dispatcher) search(ctx context.Context, raw []byte) (map[string]interface{}, error) {
	var args struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if d.searcher == nil {
		return nil, connectors.ErrSearchUnavailable
	}
	results, err := d.searcher.Search(ctx, args.Query, args.MaxResults)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"query": args.Query, "results": results, "count": len(results)}, nil
}
