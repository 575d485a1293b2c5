package domain

import "strings"

// Command is the closed set of actions a user can trigger. Raw text and
// callback payloads are classified into commands exactly once, at the
// transport boundary; nothing downstream matches strings.
type Command int

const (
	CmdUnknown Command = iota
	CmdStart
	CmdLogin
	CmdBuy
	CmdShowMessages
	CmdRemoveNumber
	CmdLogout
	CmdDirectBuy
)

// Persistent menu button labels
const (
	LabelLogin        = "🔑 Login"
	LabelBuy          = "🛒 Buy Number"
	LabelShowMessages = "✉️ Show Messages"
	LabelRemoveNumber = "🗑️ Remove Number"
	LabelLogout       = "↪️ Logout"
)

// MenuLabels returns every reserved menu label
func MenuLabels() []string {
	return []string{LabelLogin, LabelBuy, LabelShowMessages, LabelRemoveNumber, LabelLogout}
}

// IsMenuLabel reports whether text is one of the reserved menu labels
func IsMenuLabel(text string) bool {
	for _, l := range MenuLabels() {
		if text == l {
			return true
		}
	}
	return false
}

// ClassifyText maps an inbound text message to a command. For CmdDirectBuy
// the second return value is the phone number the user typed; it is empty
// for every other command.
func ClassifyText(text string) (Command, string) {
	text = strings.TrimSpace(text)

	switch text {
	case "/start":
		return CmdStart, ""
	case LabelLogin:
		return CmdLogin, ""
	case LabelBuy:
		return CmdBuy, ""
	case LabelShowMessages:
		return CmdShowMessages, ""
	case LabelRemoveNumber:
		return CmdRemoveNumber, ""
	case LabelLogout:
		return CmdLogout, ""
	}

	if looksLikeNumber(text) {
		return CmdDirectBuy, text
	}

	return CmdUnknown, ""
}

// looksLikeNumber matches a typed E.164-style number: leading '+'
// followed by at least seven digits
func looksLikeNumber(text string) bool {
	if len(text) < 8 || text[0] != '+' {
		return false
	}
	for _, r := range text[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
