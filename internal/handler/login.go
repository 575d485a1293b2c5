package handler

import (
	"errors"
	"strings"

	"numrent/internal/domain"
	"numrent/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// handleLogin starts the credential-entry flow
func (h *Handler) handleLogin(c tele.Context) error {
	userID := c.Sender().ID

	has, err := h.sessions.HasSession(userID)
	if err != nil {
		h.logger.Error("Failed to check session", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send("⚠️ Something went wrong. Please try again.")
	}
	if has {
		h.EndFlow(userID)
		return c.Send("✅ You are already logged in.", mainMenuMarkup())
	}

	msg, err := h.bot.Send(c.Chat(),
		"📝 Send your Account SID and Auth Token separated by a space (e.g. ACxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx yourtoken):",
		cancelMarkup(),
	)

	promptID := 0
	if msg != nil {
		promptID = msg.ID
	}
	h.StartFlow(userID, domain.FlowAwaitingCredentials, promptID)
	return err
}

// receiveCredentials consumes the user's next text while awaiting
// credentials. Every outcome, success or not, ends the flow.
func (h *Handler) receiveCredentials(c tele.Context, text string) error {
	userID := c.Sender().ID
	h.EndFlow(userID)

	// A menu button press here is user confusion, not credentials
	if domain.IsMenuLabel(text) {
		return c.Send(
			"✋ Please type your Account SID and Auth Token instead of pressing a button. Press '"+domain.LabelLogin+"' to try again.",
			mainMenuMarkup(),
		)
	}

	fields := strings.Fields(text)
	if len(fields) != 2 {
		return c.Send(
			"⚠️ Could not read the SID and Auth Token. Send the SID, a space, then the Auth Token. Press '" + domain.LabelLogin + "' to try again.",
		)
	}

	sid, token := fields[0], fields[1]
	if !domain.ValidAccountSID(sid) {
		return c.Send(
			"⚠️ The SID you sent (" + sid + ") does not look right. Press '" + domain.LabelLogin + "' and send a valid SID and Auth Token.",
		)
	}

	if err := h.sessions.Login(userID, sid, token); err != nil {
		if errors.Is(err, service.ErrAlreadyLoggedIn) {
			return c.Send("✅ You are already logged in.", mainMenuMarkup())
		}
		// Bad secret, network, rate limit: all the same to the user
		h.logger.Warn("Login failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return c.Send("❌ Login with that SID and Auth Token failed. Press '" + domain.LabelLogin + "' to try again.")
	}

	return c.Send("🎉 Login successful!", mainMenuMarkup())
}

// handleLogout deletes the session. Always allowed, even behind the gate.
func (h *Handler) handleLogout(c tele.Context) error {
	userID := c.Sender().ID
	h.EndFlow(userID)

	err := h.sessions.Logout(userID)
	if errors.Is(err, service.ErrNotLoggedIn) {
		return c.Send("ℹ️ You are not logged in.", mainMenuMarkup())
	}
	if err != nil {
		h.logger.Error("Logout failed", zap.Error(err), zap.Int64("user_id", userID))
		return c.Send("⚠️ Something went wrong. Please try again.")
	}

	h.gate.HandleLogout(userID)
	return c.Send("✅ You have been logged out.", mainMenuMarkup())
}
