package domain

// Flow identifies which multi-step dialog, if any, is waiting on the
// user's next text message
type Flow string

const (
	FlowNone                Flow = "none"
	FlowAwaitingCredentials Flow = "awaiting_credentials"
	FlowAwaitingAreaCode    Flow = "awaiting_area_code"
)

// FlowData holds the ephemeral conversation state for one user.
// At most one flow is active per user; starting a new flow replaces
// the previous one.
type FlowData struct {
	Flow Flow

	// PromptID is the message ID of the prompt that opened this flow,
	// kept so a superseding flow can strip its stale inline keyboard.
	// Zero when no such message exists.
	PromptID int
}
