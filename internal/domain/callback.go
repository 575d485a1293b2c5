package domain

import (
	"strings"
	"unicode"
)

// CallbackAction is the closed set of inline-button actions
type CallbackAction int

const (
	CallbackNone CallbackAction = iota
	CallbackPurchase
	CallbackRemovePrompt
	CallbackConfirmRemove
	CallbackCancelRemove
	CallbackVerifyJoins
	CallbackCancelFlow
)

// Callback button tokens (telebot "unique" identifiers)
const (
	TokenPurchase      = "purchase"
	TokenRemovePrompt  = "remove_prompt"
	TokenConfirmRemove = "confirm_remove_yes"
	TokenCancelRemove  = "confirm_remove_no"
	TokenVerifyJoins   = "verify_joins"
	TokenCancelFlow    = "cancel_flow"
)

// ParseCallback maps a callback's unique token and payload to an action.
// Some clients deliver the raw payload with an empty unique; in that case
// the token is recovered from the payload itself. For CallbackPurchase the
// second return value is the selected number; it is empty otherwise.
func ParseCallback(unique, data string) (CallbackAction, string) {
	unique = cleanCallbackData(unique)
	data = cleanCallbackData(data)

	if unique == "" {
		unique, data, _ = strings.Cut(data, "|")
	}

	switch unique {
	case TokenPurchase:
		if looksLikeNumber(data) {
			return CallbackPurchase, data
		}
		return CallbackNone, ""
	case TokenRemovePrompt:
		return CallbackRemovePrompt, ""
	case TokenConfirmRemove:
		return CallbackConfirmRemove, ""
	case TokenCancelRemove:
		return CallbackCancelRemove, ""
	case TokenVerifyJoins:
		return CallbackVerifyJoins, ""
	case TokenCancelFlow:
		return CallbackCancelFlow, ""
	}

	return CallbackNone, ""
}

// cleanCallbackData removes all non-printable characters from callback data
func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}
