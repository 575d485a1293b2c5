package middleware

import (
	"fmt"

	"numrent/internal/config"
	"numrent/internal/domain"
	"numrent/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Gate creates the join-gate middleware. Every inbound event passes
// through it before reaching a handler; users who have not joined the
// configured communities get the join prompt instead. Logout and the
// cancel/verify callbacks are always let through.
func Gate(gate *service.GateService, cfg config.GateConfig, logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				logger.Warn("Event without sender, dropping")
				return nil
			}

			if gateExempt(c) {
				return next(c)
			}

			if gate.Allowed(sender.ID) {
				return next(c)
			}

			logger.Info("Gate denied access",
				zap.Int64("user_id", sender.ID),
			)

			if c.Callback() != nil {
				return c.Respond(&tele.CallbackResponse{
					Text:      "Please join our channel and group first, then press verify.",
					ShowAlert: true,
				})
			}

			text, markup := JoinPrompt(cfg)
			return c.Send(text, markup)
		}
	}
}

// btnVerifyJoins re-checks the memberships when pressed
var btnVerifyJoins = tele.Btn{
	Unique: domain.TokenVerifyJoins,
	Text:   "✅ I have joined (verify)",
}

// gateExempt reports whether the event may bypass the gate: logout is
// always allowed, as are the verify action itself and flow cancellation
func gateExempt(c tele.Context) bool {
	if cb := c.Callback(); cb != nil {
		action, _ := domain.ParseCallback(cb.Unique, cb.Data)
		switch action {
		case domain.CallbackVerifyJoins, domain.CallbackCancelFlow, domain.CallbackCancelRemove:
			return true
		}
		return false
	}

	cmd, _ := domain.ClassifyText(c.Text())
	return cmd == domain.CmdLogout
}

// JoinPrompt builds the join instructions and the verify button. Also
// used by the verify callback to re-issue the prompt after a failed
// check.
func JoinPrompt(cfg config.GateConfig) (string, *tele.ReplyMarkup) {
	text := "👋 To use this bot, please join our community first:\n\n" +
		fmt.Sprintf("1. Channel: %s\n", cfg.ChannelUsername)
	if cfg.GroupID != 0 {
		text += fmt.Sprintf("2. Support group: %s\n", cfg.GroupUsername)
	}
	text += "\nAfter joining, press the button below to verify:"

	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnVerifyJoins))

	return text, markup
}
