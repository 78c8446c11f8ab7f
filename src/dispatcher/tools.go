package dispatcher

// Tool describes one callable function for the realtime speech session.
type Tool struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

const (
	ToolGetAccountInfo        = "get_account_info"
	ToolGetBalance            = "get_balance"
	ToolGetPositions          = "get_positions"
	ToolGetPrice              = "get_price"
	ToolGetActiveSymbols      = "get_active_symbols"
	ToolBuyContract           = "buy_contract"
	ToolSellContract          = "sell_contract"
	ToolGetMT5Accounts        = "get_mt5_accounts"
	ToolGetMT5AccountSettings = "get_mt5_account_settings"
	ToolGetMT5Symbols         = "get_mt5_symbols"
	ToolGetMT5Positions       = "get_mt5_positions"
	ToolGetMT5History         = "get_mt5_trade_history"
	ToolPlaceMT5Order         = "place_mt5_order"
	ToolCloseMT5Position      = "close_mt5_position"
	ToolModifyMT5Position     = "modify_mt5_position"
	ToolGetTransactions       = "get_transaction_history"
	ToolGetProfitTable        = "get_profit_table"
	ToolWebSearch             = "web_search"
)

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func enum(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description, "enum": values}
}

var loginProp = prop("string", "MT5 account login, e.g. MTR1234567")

// Tools returns the function catalogue in the order it is offered to the speech model.
func Tools() []Tool {
	tools := []Tool{
		{
			Name:        ToolGetAccountInfo,
			Description: "Get the trading account: login id, balance, currency and whether it is a demo or real account.",
			Parameters:  object(map[string]interface{}{}),
		},
		{
			Name:        ToolGetBalance,
			Description: "Get the current account balance.",
			Parameters:  object(map[string]interface{}{}),
		},
		{
			Name:        ToolGetPositions,
			Description: "List open options contracts with their profit and the total profit.",
			Parameters:  object(map[string]interface{}{}),
		},
		{
			Name:        ToolGetPrice,
			Description: "Get the latest price of a symbol, e.g. R_100, frxEURUSD or cryBTCUSD.",
			Parameters: object(map[string]interface{}{
				"symbol": prop("string", "Market symbol"),
			}, "symbol"),
		},
		{
			Name:        ToolGetActiveSymbols,
			Description: "List the markets open for options trading.",
			Parameters: object(map[string]interface{}{
				"market": prop("string", "Optional market filter, e.g. forex, synthetic_index, cryptocurrency"),
			}),
		},
		{
			Name:        ToolBuyContract,
			Description: "Buy an options contract. Always confirm symbol, direction, stake and duration with the user first.",
			Parameters: object(map[string]interface{}{
				"symbol":        prop("string", "Market symbol"),
				"contract_type": enum("Contract type", "CALL", "PUT", "RISE", "FALL", "DIGITOVER", "DIGITUNDER", "ONETOUCH", "NOTOUCH"),
				"amount":        prop("number", "Stake in account currency"),
				"duration":      prop("integer", "Contract duration"),
				"duration_unit": enum("Duration unit, default ticks", "t", "s", "m", "h", "d"),
				"barrier":       prop("string", "Optional barrier, e.g. +0.5"),
			}, "symbol", "contract_type", "amount", "duration"),
		},
		{
			Name:        ToolSellContract,
			Description: "Sell an open options contract before expiry.",
			Parameters: object(map[string]interface{}{
				"contract_id": prop("string", "Contract id"),
				"price":       prop("number", "Minimum acceptable price, 0 sells at market"),
			}, "contract_id"),
		},
		{
			Name:        ToolGetMT5Accounts,
			Description: "List the linked MT5 accounts.",
			Parameters:  object(map[string]interface{}{}),
		},
		{
			Name:        ToolGetMT5AccountSettings,
			Description: "Get the settings of one MT5 account: balance, leverage and server.",
			Parameters:  object(map[string]interface{}{"login": loginProp}, "login"),
		},
		{
			Name:        ToolGetMT5Symbols,
			Description: "List the symbols tradable on an MT5 account with bid and ask.",
			Parameters:  object(map[string]interface{}{"login": loginProp}, "login"),
		},
		{
			Name:        ToolGetMT5Positions,
			Description: "List the open positions of an MT5 account.",
			Parameters:  object(map[string]interface{}{"login": loginProp}, "login"),
		},
		{
			Name:        ToolGetMT5History,
			Description: "List recent deals of an MT5 account.",
			Parameters: object(map[string]interface{}{
				"login":     loginProp,
				"days_back": prop("integer", "How many days back, default 30"),
			}, "login"),
		},
		{
			Name:        ToolPlaceMT5Order,
			Description: "Place an MT5 order. Always confirm symbol, direction and volume with the user first.",
			Parameters: object(map[string]interface{}{
				"login":       loginProp,
				"symbol":      prop("string", "MT5 symbol, e.g. EURUSD"),
				"volume":      prop("number", "Volume in lots"),
				"type":        enum("Direction", "buy", "sell"),
				"order_type":  enum("Order kind, default market", "market", "limit", "stop"),
				"price":       prop("number", "Entry price for limit and stop orders"),
				"stop_loss":   prop("number", "Optional stop loss price"),
				"take_profit": prop("number", "Optional take profit price"),
				"comment":     prop("string", "Optional order comment"),
			}, "login", "symbol", "volume", "type"),
		},
		{
			Name:        ToolCloseMT5Position,
			Description: "Close an MT5 position, fully or partially.",
			Parameters: object(map[string]interface{}{
				"login":  loginProp,
				"ticket": prop("integer", "Position ticket"),
				"volume": prop("number", "Optional volume to close, omit to close all"),
			}, "login", "ticket"),
		},
		{
			Name:        ToolModifyMT5Position,
			Description: "Change the stop loss and/or take profit of an MT5 position.",
			Parameters: object(map[string]interface{}{
				"login":       loginProp,
				"ticket":      prop("integer", "Position ticket"),
				"stop_loss":   prop("number", "New stop loss price"),
				"take_profit": prop("number", "New take profit price"),
			}, "login", "ticket"),
		},
		{
			Name:        ToolGetTransactions,
			Description: "List recent account transactions, newest first.",
			Parameters: object(map[string]interface{}{
				"limit": prop("integer", "Number of transactions, default 50"),
			}),
		},
		{
			Name:        ToolGetProfitTable,
			Description: "List recently closed contracts with their profit and the total.",
			Parameters: object(map[string]interface{}{
				"limit": prop("integer", "Number of contracts, default 50"),
			}),
		},
		{
			Name:        ToolWebSearch,
			Description: "Search the web for market news and research.",
			Parameters: object(map[string]interface{}{
				"query":       prop("string", "Search query"),
				"max_results": prop("integer", "Number of results, default 5"),
			}, "query"),
		},
	}

	for i := range tools {
		tools[i].Type = "function"
	}
	return tools
}
