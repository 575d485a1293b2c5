package handler

import (
	"errors"
	"fmt"

	"numrent/internal/domain"
	"numrent/internal/provider"
	"numrent/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleBuy starts the buy flow: the user is asked for an area code
// before the candidate search runs
func (h *Handler) handleBuy(c tele.Context) error {
	userID := c.Sender().ID

	sess, err := h.sessions.Current(userID)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send("⚠️ Something went wrong. Please try again.")
	}
	if sess == nil {
		return c.Send("🔒 Please login first using '" + domain.LabelLogin + "'.")
	}
	if sess.HasNumber() {
		return c.Send(fmt.Sprintf(
			"ℹ️ You already rent %s. Remove it with '%s' before buying another one.",
			sess.ActiveNumber(), domain.LabelRemoveNumber,
		))
	}

	msg, err := h.bot.Send(c.Chat(),
		"🔢 Send a three-digit area code to search in (for example 604):",
		cancelMarkup(),
	)

	promptID := 0
	if msg != nil {
		promptID = msg.ID
	}
	h.StartFlow(userID, domain.FlowAwaitingAreaCode, promptID)
	return err
}

// receiveAreaCode consumes the user's next text while awaiting an area
// code, then runs the candidate search
func (h *Handler) receiveAreaCode(c tele.Context, text string) error {
	userID := c.Sender().ID
	h.EndFlow(userID)

	if domain.IsMenuLabel(text) {
		return c.Send(
			"✋ Please type an area code instead of pressing a button. Press '"+domain.LabelBuy+"' to try again.",
			mainMenuMarkup(),
		)
	}

	if !domain.ValidAreaCode(text) {
		return c.Send("⚠️ That does not look like a three-digit area code. Press '" + domain.LabelBuy + "' to try again.")
	}

	candidates, err := h.sessions.Search(userID, text)
	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		return c.Send("🔒 Please login first using '" + domain.LabelLogin + "'.")
	case errors.Is(err, service.ErrHasNumber):
		return c.Send("ℹ️ You already rent a number. Remove it before buying another one.")
	case err != nil:
		h.logger.Error("Number search failed",
			zap.Int64("user_id", userID),
			zap.String("area_code", text),
			zap.Error(err),
		)
		return c.Send("⚠️ Could not fetch numbers. Your account may not be allowed to buy in this region.")
	}

	if len(candidates) == 0 {
		return c.Send("😔 No numbers available for area code " + text + " right now.")
	}

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(candidates))
	for _, cand := range candidates {
		btn := markup.Data("🛒 Buy "+cand.PhoneNumber, domain.TokenPurchase, cand.PhoneNumber)
		rows = append(rows, markup.Row(btn))
	}
	markup.Inline(rows...)

	return c.Send("📞 Available numbers below. Press 'Buy' next to the one you want:", markup)
}

// purchase executes the actual purchase. Reached from a candidate button
// or from a typed number; either way the preconditions were checked when
// the flow started and are re-checked inside the service right before
// the provider call.
func (h *Handler) purchase(c tele.Context, number string) error {
	userID := c.Sender().ID

	purchased, err := h.sessions.Purchase(userID, number)
	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		return h.editOrSend(c, "🔒 Please login first using '"+domain.LabelLogin+"'.")
	case errors.Is(err, service.ErrHasNumber):
		return h.editOrSend(c, "ℹ️ You already rent a number. Remove it with '"+domain.LabelRemoveNumber+"' before buying another one.")
	case errors.Is(err, service.ErrOperationInFlight):
		return h.editOrSend(c, "⏳ Another purchase of yours is still in progress.")
	case err != nil:
		h.logger.Error("Purchase failed",
			zap.Int64("user_id", userID),
			zap.String("number", number),
			zap.Error(err),
		)
		return h.editOrSend(c, purchaseFailureText(number, err))
	}

	return h.editOrSend(c, "🛍️ Number "+purchased+" purchased successfully!")
}

// purchaseFailureText picks the user-facing message for a provider
// failure, classified on a best-effort basis
func purchaseFailureText(number string, err error) string {
	base := "❌ Could not buy " + number + "."
	switch provider.ClassifyFailure(err) {
	case provider.ReasonAlreadyOwned:
		return base + " It is already on your account or in use by someone else."
	case provider.ReasonNotAvailable:
		return base + " It is no longer available."
	case provider.ReasonNoPermission:
		return base + " Your account may lack the balance or permission for it."
	default:
		return base + " It may be unavailable, or your account lacks balance or permission."
	}
}

// handleShowMessages lists the latest messages received on the rented
// number, with a release shortcut underneath
func (h *Handler) handleShowMessages(c tele.Context) error {
	userID := c.Sender().ID

	messages, number, err := h.sessions.Messages(userID)
	switch {
	case errors.Is(err, service.ErrNotLoggedIn):
		return c.Send("🔒 Please login first using '" + domain.LabelLogin + "'.")
	case errors.Is(err, service.ErrNoNumber):
		return c.Send("ℹ️ You have no rented number. Buy one first with '" + domain.LabelBuy + "'.")
	case err != nil:
		h.logger.Error("Failed to fetch messages", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send("⚠️ Could not fetch messages. Please try again.")
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnReleaseNumber))

	if len(messages) == 0 {
		return c.Send("📪 No messages on "+number+" yet.", markup)
	}

	text := "📨 Recent messages for " + number + ":\n\n"
	for _, m := range messages {
		sent := "N/A"
		if !m.Sent.IsZero() {
			sent = m.Sent.Format("2006-01-02 15:04:05")
		}
		text += fmt.Sprintf("➡️ From: %s\n📝 %s\n🗓️ %s\n---\n", m.From, m.Body, sent)
	}

	return c.Send(text, markup)
}

// handleRemoveNumber asks for explicit confirmation before releasing
func (h *Handler) handleRemoveNumber(c tele.Context) error {
	userID := c.Sender().ID

	sess, err := h.sessions.Current(userID)
	if err != nil {
		h.logger.Error("Failed to load session", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send("⚠️ Something went wrong. Please try again.")
	}
	if sess == nil {
		return c.Send("🔒 Please login first using '" + domain.LabelLogin + "'.")
	}
	if !sess.HasNumber() {
		return c.Send("ℹ️ You have no active number to remove.")
	}

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnConfirmRemove, btnCancelRemove))

	return c.Send(
		fmt.Sprintf("ℹ️ Your current number is %s. Are you sure you want to remove it?", sess.ActiveNumber()),
		markup,
	)
}
