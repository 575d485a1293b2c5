package middleware

import (
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Recover catches panics in per-event handling so one bad update never
// kills the poller for everyone else. The user gets a generic reply.
func Recover(logger *zap.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					userID := int64(0)
					if c.Sender() != nil {
						userID = c.Sender().ID
					}
					logger.Error("Recovered from panic in handler",
						zap.Any("panic", r),
						zap.Int64("user_id", userID),
					)
					_ = c.Send("⚠️ Something went wrong. Please try again.")
				}
			}()
			return next(c)
		}
	}
}
