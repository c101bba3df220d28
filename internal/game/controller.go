package game

import (
	"context"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"golang.org/x/sync/semaphore"
	"log/slog"
	"strings"
	"sync"
)

var (
	ErrInvalidTransition   = errors.NewSentinel("invalid transition")
	ErrBusy                = errors.NewSentinel("request already in flight")
	ErrSessionEnded        = errors.NewSentinel("session ended while the request was in flight")
	ErrUnknownSuspect      = errors.NewSentinel("unknown suspect")
	ErrUnknownClue         = errors.NewSentinel("unknown clue")
	ErrEmptyMessage        = errors.NewSentinel("empty message")
	ErrIncompleteDeduction = errors.NewSentinel("deduction needs a suspect and reasoning")
	ErrGenerationFailed    = errors.NewSentinel("case generation failed")
	ErrChatFailed          = errors.NewSentinel("interrogation failed")
	ErrGradingFailed       = errors.NewSentinel("grading failed")
)

// emptyReply stands in for a suspect reply without text.
const emptyReply = "..."

// Oracle is the external generation service.
type Oracle interface {
	GenerateCase(ctx context.Context, difficulty models.Difficulty, lang models.Language) (models.CaseDetails, error)
	Interrogate(ctx context.Context, req models.InterrogationRequest) (string, error)
	EvaluateDeduction(ctx context.Context, req models.EvaluationRequest) (models.Evaluation, error)
}

// History is the player's persistent case history.
type History interface {
	Record(ctx context.Context, details models.CaseDetails) (models.HistoryEntry, error)
	List(ctx context.Context) ([]models.HistoryEntry, error)
	Get(ctx context.Context, id string) (models.HistoryEntry, error)
	Remove(ctx context.Context, id string) error
}

// Controller runs one play session. All methods are safe for concurrent use.
//
// The mutex is released while the oracle works. Each request category has a single slot; a second request of the
// same category fails with ErrBusy instead of queueing. Every transition increments the epoch, and a response that
// arrives for an older epoch is dropped.
type Controller struct {
	oracle  Oracle
	history History
	logger  *slog.Logger
	slots   map[Category]*semaphore.Weighted

	mu         sync.Mutex
	state      State
	epoch      uint64
	language   models.Language
	details    *models.CaseDetails
	discovered map[string]struct{}
	suspect    *models.Suspect
	transcript []models.Message
	pending    string
	chatFailed bool
	draft      *models.Deduction
	evaluation *models.Evaluation
}

func NewController(oracle Oracle, history History, logger *slog.Logger) *Controller {
	slots := make(map[Category]*semaphore.Weighted, len(categories))
	for _, category := range categories {
		slots[category] = semaphore.NewWeighted(1)
	}
	return &Controller{
		oracle:     oracle,
		history:    history,
		logger:     logger.With("source", "game"),
		slots:      slots,
		state:      StateLobby,
		language:   models.LanguageEnglish,
		discovered: make(map[string]struct{}),
	}
}

// transition moves to the state reached by action. It must be called with the mutex held.
func (c *Controller) transition(ctx context.Context, action Action) error {
	to, ok := Next(c.state, action)
	if !ok {
		return errors.Wrap(ErrInvalidTransition, "transition",
			slog.String("state", string(c.state)), slog.String("action", string(action)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "transition",
		slog.String("from", string(c.state)), slog.String("to", string(to)), slog.String("action", string(action)))
	c.state = to
	c.epoch++
	return nil
}

// allowed reports whether action is valid in the current state. It must be called with the mutex held.
func (c *Controller) allowed(action Action) error {
	if _, ok := Next(c.state, action); !ok {
		return errors.Wrap(ErrInvalidTransition, "check transition",
			slog.String("state", string(c.state)), slog.String("action", string(action)))
	}
	return nil
}

// acquire takes the category's in-flight slot. It must be called with the mutex held.
func (c *Controller) acquire(category Category) error {
	if !c.slots[category].TryAcquire(1) {
		return errors.Wrap(ErrBusy, "acquire slot", slog.String("category", string(category)))
	}
	return nil
}

func (c *Controller) busy(category Category) bool {
	if c.slots[category].TryAcquire(1) {
		c.slots[category].Release(1)
		return false
	}
	return true
}

func (c *Controller) resetInterrogation() {
	c.suspect = nil
	c.transcript = nil
	c.pending = ""
	c.chatFailed = false
}

func (c *Controller) resetSession() {
	c.details = nil
	c.discovered = make(map[string]struct{})
	c.resetInterrogation()
	c.draft = nil
	c.evaluation = nil
}

func (c *Controller) load(details models.CaseDetails) {
	c.resetSession()
	c.details = &details
}

// SetLanguage changes the language of subsequent oracle requests. It is allowed in every state.
func (c *Controller) SetLanguage(lang models.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = lang
}

// StartCase asks the oracle for a new case and records it in the history.
func (c *Controller) StartCase(ctx context.Context, difficulty models.Difficulty, lang models.Language) error {
	c.mu.Lock()
	if err := c.allowed(ActionStartCase); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.acquire(CategoryGeneration); err != nil {
		c.mu.Unlock()
		return err
	}
	c.language = lang
	epoch := c.epoch
	c.mu.Unlock()

	details, err := c.oracle.GenerateCase(ctx, difficulty, lang)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.slots[CategoryGeneration].Release(1)
	if err != nil {
		return errors.Wrap(errors.Mark(err, ErrGenerationFailed), "generate case",
			slog.String("difficulty", string(difficulty)))
	}
	if c.epoch != epoch {
		return errors.Wrap(ErrSessionEnded, "generate case")
	}

	if _, err = c.history.Record(ctx, details); err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "failed to record case", errors.SlogError(err))
	}
	c.load(details)
	return c.transition(ctx, ActionStartCase)
}

// ResumeCase replays a case from the history without reordering it.
func (c *Controller) ResumeCase(ctx context.Context, entryID string) error {
	c.mu.Lock()
	if err := c.allowed(ActionResumeCase); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.acquire(CategoryGeneration); err != nil {
		c.mu.Unlock()
		return err
	}
	epoch := c.epoch
	c.mu.Unlock()

	entry, err := c.history.Get(ctx, entryID)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.slots[CategoryGeneration].Release(1)
	if err != nil {
		return errors.Wrap(err, "get history entry")
	}
	if c.epoch != epoch {
		return errors.Wrap(ErrSessionEnded, "resume case")
	}
	c.load(entry.Details)
	return c.transition(ctx, ActionResumeCase)
}

// ToggleClue flips the examined mark of a clue of the active case.
func (c *Controller) ToggleClue(_ context.Context, clueID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInvestigating {
		return errors.Wrap(ErrInvalidTransition, "toggle clue", slog.String("state", string(c.state)))
	}
	if !c.details.HasClue(clueID) {
		return errors.Wrap(ErrUnknownClue, "toggle clue", slog.String("clue_id", clueID))
	}
	if _, ok := c.discovered[clueID]; ok {
		delete(c.discovered, clueID)
	} else {
		c.discovered[clueID] = struct{}{}
	}
	return nil
}

// SelectSuspect opens an interrogation with an empty transcript.
func (c *Controller) SelectSuspect(ctx context.Context, suspectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.allowed(ActionSelectSuspect); err != nil {
		return err
	}
	suspect, ok := c.details.Suspect(suspectID)
	if !ok {
		return errors.Wrap(ErrUnknownSuspect, "select suspect", slog.String("suspect_id", suspectID))
	}
	c.resetInterrogation()
	c.suspect = &suspect
	return c.transition(ctx, ActionSelectSuspect)
}

// LeaveInterrogation discards the transcript and returns to the case board.
func (c *Controller) LeaveInterrogation(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(ctx, ActionBack); err != nil {
		return err
	}
	c.resetInterrogation()
	return nil
}

// Ask sends a question to the selected suspect. The question and the reply are appended to the transcript together
// once the reply arrives.
func (c *Controller) Ask(ctx context.Context, message string) (string, error) {
	c.mu.Lock()
	if c.state != StateInterrogating {
		c.mu.Unlock()
		return "", errors.Wrap(ErrInvalidTransition, "ask", slog.String("state", string(c.state)))
	}
	if strings.TrimSpace(message) == "" {
		c.mu.Unlock()
		return "", errors.Wrap(ErrEmptyMessage, "ask")
	}
	if err := c.acquire(CategoryChat); err != nil {
		c.mu.Unlock()
		return "", err
	}
	req := models.InterrogationRequest{
		CaseDescription: c.details.Case.Description,
		Suspect:         *c.suspect,
		Message:         message,
		Transcript:      append([]models.Message(nil), c.transcript...),
		Language:        c.language,
	}
	c.pending = message
	c.chatFailed = false
	epoch := c.epoch
	c.mu.Unlock()

	reply, err := c.oracle.Interrogate(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.slots[CategoryChat].Release(1)
	if c.epoch != epoch {
		return "", errors.Wrap(ErrSessionEnded, "ask")
	}
	c.pending = ""
	if err != nil {
		c.chatFailed = true
		return "", errors.Wrap(errors.Mark(err, ErrChatFailed), "ask",
			slog.String("suspect_id", req.Suspect.ID))
	}
	if strings.TrimSpace(reply) == "" {
		reply = emptyReply
	}
	c.transcript = append(c.transcript,
		models.Message{Speaker: models.SpeakerPlayer, Text: message},
		models.Message{Speaker: models.SpeakerSuspect, Text: reply},
	)
	return reply, nil
}

// BeginDeduction opens the accusation screen. There is no minimum number of examined clues.
func (c *Controller) BeginDeduction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(ctx, ActionBeginDeduction); err != nil {
		return err
	}
	c.draft = nil
	return nil
}

// NotReady abandons the accusation and clears the draft.
func (c *Controller) NotReady(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(ctx, ActionNotReady); err != nil {
		return err
	}
	c.draft = nil
	return nil
}

// SubmitDeduction asks the oracle to grade the accusation. On failure the draft stays so that it can be resubmitted.
func (c *Controller) SubmitDeduction(ctx context.Context, deduction models.Deduction) (models.Evaluation, error) {
	c.mu.Lock()
	if err := c.allowed(ActionSubmit); err != nil {
		c.mu.Unlock()
		return models.Evaluation{}, err
	}
	if deduction.SuspectID == "" || strings.TrimSpace(deduction.Reasoning) == "" {
		c.mu.Unlock()
		return models.Evaluation{}, errors.Wrap(ErrIncompleteDeduction, "submit deduction")
	}
	if _, ok := c.details.Suspect(deduction.SuspectID); !ok {
		c.mu.Unlock()
		return models.Evaluation{}, errors.Wrap(ErrUnknownSuspect, "submit deduction",
			slog.String("suspect_id", deduction.SuspectID))
	}
	if err := c.acquire(CategoryGrading); err != nil {
		c.mu.Unlock()
		return models.Evaluation{}, err
	}
	c.draft = &deduction
	req := models.EvaluationRequest{
		Details:   *c.details,
		Deduction: deduction,
		Language:  c.language,
	}
	epoch := c.epoch
	c.mu.Unlock()

	evaluation, err := c.oracle.EvaluateDeduction(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.slots[CategoryGrading].Release(1)
	if c.epoch != epoch {
		return models.Evaluation{}, errors.Wrap(ErrSessionEnded, "submit deduction")
	}
	if err != nil {
		return models.Evaluation{}, errors.Wrap(errors.Mark(err, ErrGradingFailed), "submit deduction")
	}
	c.evaluation = &evaluation
	if err = c.transition(ctx, ActionSubmit); err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

// Return leaves the result screen for the lobby.
func (c *Controller) Return(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(ctx, ActionReturn); err != nil {
		return err
	}
	c.resetSession()
	return nil
}

// Abort drops the session from any state but the lobby. The history is left alone.
func (c *Controller) Abort(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.transition(ctx, ActionAbort); err != nil {
		return err
	}
	c.resetSession()
	return nil
}

// History lists the recorded cases, most recent first.
func (c *Controller) History(ctx context.Context) ([]models.HistoryEntry, error) {
	entries, err := c.history.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list history")
	}
	return entries, nil
}

// RemoveHistory deletes a recorded case.
func (c *Controller) RemoveHistory(ctx context.Context, entryID string) error {
	if err := c.history.Remove(ctx, entryID); err != nil {
		return errors.Wrap(err, "remove history entry")
	}
	return nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns a snapshot for the player.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	view := View{
		State:             c.state,
		Language:          c.language,
		Direction:         c.language.Direction(),
		DiscoveredClueIDs: []string{},
		Transcript:        append([]models.Message{}, c.transcript...),
		PendingMessage:    c.pending,
		Busy:              []Category{},
	}
	if c.details != nil {
		header := c.details.Case
		view.Case = &header
		view.Clues = append([]models.Clue(nil), c.details.Clues...)
		view.Suspects = append([]models.Suspect(nil), c.details.Suspects...)
		for _, clue := range c.details.Clues {
			if _, ok := c.discovered[clue.ID]; ok {
				view.DiscoveredClueIDs = append(view.DiscoveredClueIDs, clue.ID)
			}
		}
	}
	if c.suspect != nil {
		suspect := *c.suspect
		view.Suspect = &suspect
	}
	if c.chatFailed {
		view.ChatError = ErrChatFailed.Error()
	}
	if c.draft != nil {
		draft := *c.draft
		view.Draft = &draft
	}
	if c.evaluation != nil {
		evaluation := *c.evaluation
		view.Evaluation = &evaluation
	}
	for _, category := range categories {
		if c.busy(category) {
			view.Busy = append(view.Busy, category)
		}
	}
	return view
}
