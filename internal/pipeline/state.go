package pipeline

// State is the position of one campaign in the review-gated pipeline.
type State string

const (
	StateInput      State = "INPUT"
	StateThinking   State = "THINKING"
	StateReview     State = "REVIEW"
	StateGenerating State = "GENERATING"
	StateDone       State = "DONE"
)

// Busy reports whether a stage call is in flight. User actions are ignored then.
func (s State) Busy() bool {
	return s == StateThinking || s == StateGenerating
}

type Event string

const (
	EventStart          Event = "start"
	EventStrategyReady  Event = "strategy_ready"
	EventStrategyFailed Event = "strategy_failed"
	EventRefine         Event = "refine"
	EventApprove        Event = "approve"
	EventContentReady   Event = "content_ready"
	EventContentFailed  Event = "content_failed"
	EventNewCampaign    Event = "new_campaign"
)

type edge struct {
	from State
	on   Event
}

var transitions = map[edge]State{
	{StateInput, EventStart}:              StateThinking,
	{StateThinking, EventStrategyReady}:   StateReview,
	{StateThinking, EventStrategyFailed}:  StateInput,
	{StateReview, EventRefine}:            StateInput,
	{StateReview, EventApprove}:           StateGenerating,
	{StateGenerating, EventContentReady}:  StateDone,
	{StateGenerating, EventContentFailed}: StateReview,
	{StateDone, EventNewCampaign}:         StateInput,
}

// Transition returns the next state, or false when the event is not legal in from.
func Transition(from State, on Event) (State, bool) {
	next, ok := transitions[edge{from: from, on: on}]
	return next, ok
}
