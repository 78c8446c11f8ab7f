package connectors

import (
	"errors"
	"fmt"

	"voicetrader/src/session"
)

// DerivErrorCodes maps gateway error codes to messages used when the reply carries a code but
// no message.
var DerivErrorCodes = map[string]string{
	"AuthorizationRequired":       "Please log in.",
	"InvalidToken":                "The API token is invalid.",
	"PermissionDenied":            "The API token lacks the required scope.",
	"RateLimit":                   "Too many requests, slow down.",
	"InputValidationFailed":       "Input validation failed.",
	"InvalidSymbol":               "Invalid symbol.",
	"MarketIsClosed":              "This market is presently closed.",
	"ContractBuyValidationError":  "The contract could not be bought with these parameters.",
	"InvalidContractProposal":     "The price proposal expired, request a new one.",
	"PriceMoved":                  "The price moved, request a new proposal.",
	"InsufficientBalance":         "Insufficient balance.",
	"InvalidSellContractProposal": "The contract cannot be sold at this price.",
	"ContractNotFound":            "Contract not found.",
	"MT5AccountInactive":          "The MT5 account is inactive.",
	"MT5AccountNotFound":          "MT5 account not found.",
	"MT5TradeNotAllowed":          "Trading is disabled for this MT5 account.",
	"MT5InvalidVolume":            "Invalid MT5 volume.",
	"MT5PositionNotFound":         "MT5 position not found.",
}

// GetErrorMsg returns the message for a gateway error code, or a generic one naming the code.
func GetErrorMsg(code string) string {
	if msg, ok := DerivErrorCodes[code]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_GATEWAY_ERROR_%s", code)
}

// errorText renders err for a failure result. Gateway messages are passed through verbatim.
func errorText(err error) string {
	var apiErr *session.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if apiErr.Code != "" {
			return GetErrorMsg(apiErr.Code)
		}
	}
	return err.Error()
}
