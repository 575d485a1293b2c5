package handler

import (
	"strings"

	"numrent/internal/domain"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleStart handles /start. The gate middleware has already passed the
// user through, so this only shows the main menu.
func (h *Handler) handleStart(c tele.Context) error {
	userID := c.Sender().ID

	h.logger.Info("User started bot",
		zap.Int64("user_id", userID),
		zap.String("username", c.Sender().Username),
	)

	h.EndFlow(userID)
	return c.Send(
		"👋 Welcome! You are a member of our community. Press '"+domain.LabelLogin+"' or pick another option from the menu.",
		mainMenuMarkup(),
	)
}

// handleText handles all plain text messages. An active flow consumes
// the text first; otherwise the text is classified into a command once
// and dispatched.
func (h *Handler) handleText(c tele.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	// Slash commands are routed separately
	if strings.HasPrefix(text, "/") {
		return nil
	}

	switch h.Flow(userID).Flow {
	case domain.FlowAwaitingCredentials:
		return h.receiveCredentials(c, text)
	case domain.FlowAwaitingAreaCode:
		return h.receiveAreaCode(c, text)
	}

	cmd, arg := domain.ClassifyText(text)
	switch cmd {
	case domain.CmdStart:
		return h.handleStart(c)
	case domain.CmdLogin:
		return h.handleLogin(c)
	case domain.CmdBuy:
		return h.handleBuy(c)
	case domain.CmdShowMessages:
		return h.handleShowMessages(c)
	case domain.CmdRemoveNumber:
		return h.handleRemoveNumber(c)
	case domain.CmdLogout:
		return h.handleLogout(c)
	case domain.CmdDirectBuy:
		// Typed a full number directly, skip the candidate list
		return h.purchase(c, arg)
	default:
		return c.Send(
			"🤔 I didn't understand that. Please pick an option from the menu.",
			mainMenuMarkup(),
		)
	}
}
