package game

// State is the screen the player is on.
type State string

const (
	StateLobby         State = "lobby"
	StateInvestigating State = "investigating"
	StateInterrogating State = "interrogating"
	StateDeducting     State = "deducting"
	StateResult        State = "result"
)

// Action names a player intent that may move the controller to another state.
type Action string

const (
	ActionStartCase      Action = "start case"
	ActionResumeCase     Action = "resume case"
	ActionSelectSuspect  Action = "select suspect"
	ActionBeginDeduction Action = "begin deduction"
	ActionBack           Action = "back"
	ActionNotReady       Action = "not ready"
	ActionSubmit         Action = "submit deduction"
	ActionReturn         Action = "return"
	ActionAbort          Action = "abort"
)

var transitions = map[State]map[Action]State{
	StateLobby: {
		ActionStartCase:  StateInvestigating,
		ActionResumeCase: StateInvestigating,
	},
	StateInvestigating: {
		ActionSelectSuspect:  StateInterrogating,
		ActionBeginDeduction: StateDeducting,
		ActionAbort:          StateLobby,
	},
	StateInterrogating: {
		ActionBack:  StateInvestigating,
		ActionAbort: StateLobby,
	},
	StateDeducting: {
		ActionNotReady: StateInvestigating,
		ActionSubmit:   StateResult,
		ActionAbort:    StateLobby,
	},
	StateResult: {
		ActionReturn: StateLobby,
		ActionAbort:  StateLobby,
	},
}

// Next returns the state reached by applying action in from.
func Next(from State, action Action) (State, bool) {
	to, ok := transitions[from][action]
	return to, ok
}

// Category groups the oracle requests sharing one in-flight slot.
type Category string

const (
	CategoryGeneration Category = "generation"
	CategoryChat       Category = "chat"
	CategoryGrading    Category = "grading"
)

var categories = []Category{CategoryGeneration, CategoryChat, CategoryGrading}
