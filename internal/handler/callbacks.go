package handler

import (
	"errors"
	"strings"

	"numrent/internal/domain"
	"numrent/internal/middleware"
	"numrent/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleCallback dispatches all inline-button callbacks
func (h *Handler) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		h.logger.Warn("handleCallback: callback is nil")
		return nil
	}

	userID := c.Sender().ID
	action, payload := domain.ParseCallback(callback.Unique, callback.Data)

	h.logger.Info("Processing callback",
		zap.String("unique", callback.Unique),
		zap.Int64("user_id", userID),
	)

	switch action {
	case domain.CallbackVerifyJoins:
		return h.handleVerifyJoins(c)
	case domain.CallbackPurchase:
		h.respond(c)
		return h.purchase(c, payload)
	case domain.CallbackRemovePrompt:
		h.respond(c)
		return h.handleRemoveNumber(c)
	case domain.CallbackConfirmRemove:
		h.respond(c)
		return h.confirmRemove(c)
	case domain.CallbackCancelRemove:
		h.respond(c)
		return h.editOrSend(c, "🚫 Number removal cancelled.")
	case domain.CallbackCancelFlow:
		h.respond(c)
		h.EndFlow(userID)
		return h.editOrSend(c, "🚫 Cancelled.")
	}

	h.logger.Warn("Unhandled callback",
		zap.String("unique", callback.Unique),
		zap.String("data", callback.Data),
	)
	return c.Respond()
}

// handleVerifyJoins re-runs the membership check on the user's explicit
// request and unlocks the bot when it passes
func (h *Handler) handleVerifyJoins(c tele.Context) error {
	userID := c.Sender().ID
	h.respond(c)

	if h.gate.Refresh(userID) {
		h.logger.Info("User passed join verification", zap.Int64("user_id", userID))
		if err := h.editOrSend(c, "🎉 Thanks! Your membership is verified and the bot is now unlocked."); err != nil {
			return err
		}
		return c.Send("Main menu:", mainMenuMarkup())
	}

	if err := h.editOrSend(c, "😔 Verification failed. Make sure you joined and try again."); err != nil {
		return err
	}
	text, markup := middleware.JoinPrompt(h.gateCfg)
	return c.Send(text, markup)
}

// confirmRemove releases the number after the user's explicit yes
func (h *Handler) confirmRemove(c tele.Context) error {
	userID := c.Sender().ID

	number, alreadyGone, err := h.sessions.Release(userID)
	switch {
	case errors.Is(err, service.ErrNotLoggedIn), errors.Is(err, service.ErrNoNumber):
		// The confirmation button may be minutes old
		return h.editOrSend(c, "🚫 This request is no longer valid: no active session or number.")
	case errors.Is(err, service.ErrOperationInFlight):
		return h.editOrSend(c, "⏳ Another operation of yours is still in progress.")
	case err != nil:
		h.logger.Error("Release failed", zap.Error(err), zap.Int64("user_id", userID))
		return h.editOrSend(c, "⚠️ Failed to remove the number. Please try again.")
	}

	if alreadyGone {
		return h.editOrSend(c, "❓ Number "+number+" was not found on your account. It has been cleared here as well.")
	}
	return h.editOrSend(c, "🗑️ Number "+number+" removed successfully!")
}

// respond acknowledges a callback so the client stops its spinner
func (h *Handler) respond(c tele.Context) {
	if err := c.Respond(); err != nil {
		h.logger.Warn("Failed to acknowledge callback", zap.Error(err))
	}
}

// editOrSend edits the callback's message in place, falling back to a
// new message when the edit is rejected. An unmodified-message error
// means another callback got there first, which is fine.
func (h *Handler) editOrSend(c tele.Context, text string) error {
	if c.Callback() == nil {
		return c.Send(text, mainMenuMarkup())
	}

	err := c.Edit(text)
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "message is not modified") {
		return nil
	}

	h.logger.Warn("Failed to edit message, sending new",
		zap.Error(err),
		zap.Int64("user_id", c.Sender().ID),
	)
	return c.Send(text)
}
