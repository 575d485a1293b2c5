package handler

import (
	"strconv"
	"sync"

	"numrent/internal/config"
	"numrent/internal/domain"
	"numrent/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Handler manages all bot interactions
type Handler struct {
	bot      *tele.Bot
	gate     *service.GateService
	sessions *service.SessionService
	gateCfg  config.GateConfig
	logger   *zap.Logger

	// Per-user conversation flows (in-memory state machine)
	flows   map[int64]*domain.FlowData
	flowMux sync.RWMutex
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	gate *service.GateService,
	sessions *service.SessionService,
	gateCfg config.GateConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:      bot,
		gate:     gate,
		sessions: sessions,
		gateCfg:  gateCfg,
		logger:   logger,
		flows:    make(map[int64]*domain.FlowData),
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	h.bot.Handle("/start", h.handleStart)

	// Menu buttons arrive as plain text; classification happens once
	// in handleText
	h.bot.Handle(tele.OnText, h.handleText)

	// All inline buttons go through one dispatcher
	h.bot.Handle(tele.OnCallback, h.handleCallback)
}

// Flow returns the user's current conversation flow
func (h *Handler) Flow(userID int64) domain.FlowData {
	h.flowMux.RLock()
	defer h.flowMux.RUnlock()

	if f, ok := h.flows[userID]; ok {
		return *f
	}
	return domain.FlowData{Flow: domain.FlowNone}
}

// StartFlow begins a flow for the user, explicitly cancelling any flow
// that was already active. The superseded flow's prompt loses its inline
// keyboard so its buttons cannot fire against stale state.
func (h *Handler) StartFlow(userID int64, flow domain.Flow, promptID int) {
	h.flowMux.Lock()
	prev := h.flows[userID]
	h.flows[userID] = &domain.FlowData{Flow: flow, PromptID: promptID}
	h.flowMux.Unlock()

	if prev != nil && prev.PromptID != 0 {
		h.stripPrompt(userID, prev.PromptID)
	}
}

// EndFlow returns the user to the idle state
func (h *Handler) EndFlow(userID int64) {
	h.flowMux.Lock()
	delete(h.flows, userID)
	h.flowMux.Unlock()
}

// stripPrompt removes the inline keyboard from a superseded prompt.
// Best effort: the message may be gone or already edited.
func (h *Handler) stripPrompt(userID int64, messageID int) {
	msg := &tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    userID,
	}
	if _, err := h.bot.EditReplyMarkup(msg, nil); err != nil {
		h.logger.Debug("Could not strip keyboard from superseded prompt",
			zap.Int64("user_id", userID),
			zap.Int("message_id", messageID),
			zap.Error(err),
		)
	}
}

// Inline keyboard buttons
var (
	btnCancelFlow = tele.Btn{
		Unique: domain.TokenCancelFlow,
		Text:   "❌ Cancel",
	}
	btnReleaseNumber = tele.Btn{
		Unique: domain.TokenRemovePrompt,
		Text:   "🗑️ Release this number",
	}
	btnConfirmRemove = tele.Btn{
		Unique: domain.TokenConfirmRemove,
		Text:   "✅ Yes, remove it",
	}
	btnCancelRemove = tele.Btn{
		Unique: domain.TokenCancelRemove,
		Text:   "❌ No, keep it",
	}
)

// mainMenuMarkup returns the persistent menu keyboard
func mainMenuMarkup() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(domain.LabelLogin)),
		menu.Row(
			menu.Text(domain.LabelBuy),
			menu.Text(domain.LabelShowMessages),
			menu.Text(domain.LabelRemoveNumber),
		),
		menu.Row(menu.Text(domain.LabelLogout)),
	)
	return menu
}

// cancelMarkup returns an inline keyboard with a single cancel button
func cancelMarkup() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(btnCancelFlow))
	return markup
}
