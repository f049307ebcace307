// README: Dialogue state machine; sequences guardrail, slot filling, and plan generation.
package conversation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"navmarg/internal/modules/guardrail"
	"navmarg/internal/modules/planner"
	"navmarg/internal/modules/slot"
	"navmarg/internal/types"
)

// Classifier decides whether an utterance may proceed into the planning flow.
type Classifier interface {
	Classify(ctx context.Context, utterance, expectedSlot string) (guardrail.Result, error)
}

// Normalizer cleans a raw slot answer; it never fails, only falls back.
type Normalizer interface {
	Normalize(ctx context.Context, slotName, rawText string) string
}

// PlanGenerator produces a budget-consistent itinerary from a complete slot set.
type PlanGenerator interface {
	Generate(ctx context.Context, values slot.Values, previousPlan, changeRequest string) (*planner.Plan, error)
}

// Recorder is the write-only audit boundary. Failures are logged and never
// block the dialogue.
type Recorder interface {
	UpsertSession(ctx context.Context, id types.ID, state State, questionIdx int) error
	AppendMessage(ctx context.Context, id types.ID, role, content string) error
	UpsertSlots(ctx context.Context, id types.ID, values slot.Values, complete bool) error
	AppendItinerary(ctx context.Context, id types.ID, version int, rawDraft, finalPlan, changeRequest string) error
}

// PlaceChecker is the optional best-effort city-validation boundary.
type PlaceChecker interface {
	IsKnownPlace(ctx context.Context, name string) bool
}

const intro = "Hello, I am NavMarg, your AI travel advisor. " +
	"I can help you design a complete, personalized itinerary for your trip."

// Service holds the live session registry and drives each conversation turn.
// Sessions are fully isolated: each carries its own lock and no state is
// shared between them.
type Service struct {
	classifier Classifier
	normalizer Normalizer
	planner    PlanGenerator
	recorder   Recorder     // optional
	places     PlaceChecker // optional

	mu       sync.Mutex
	sessions map[types.ID]*Session
}

func NewService(classifier Classifier, normalizer Normalizer, generator PlanGenerator, recorder Recorder, places PlaceChecker) *Service {
	return &Service{
		classifier: classifier,
		normalizer: normalizer,
		planner:    generator,
		recorder:   recorder,
		places:     places,
		sessions:   make(map[types.ID]*Session),
	}
}

// StartSession registers a fresh session and returns its identifier.
func (s *Service) StartSession(ctx context.Context) types.ID {
	id := newID()
	now := time.Now()
	sess := &Session{
		ID:        id,
		State:     StateAwaitingFirstMessage,
		Slots:     slot.NewValues(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.recordSession(ctx, sess)
	return id
}

// Get returns a copy-out snapshot of the session.
func (s *Service) Get(id types.ID) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return View{
		ID:            sess.ID,
		State:         sess.State,
		QuestionIdx:   sess.QuestionIdx,
		SlotsComplete: sess.Slots.Complete(),
		Version:       sess.Version,
		FinalPlan:     sess.LatestFinalPlan,
	}, nil
}

// HandleMessage processes one user turn to completion and returns the
// assistant replies in order.
func (s *Service) HandleMessage(ctx context.Context, id types.ID, text string) ([]string, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.addMessage(ctx, sess, "user", text)

	lower := strings.ToLower(strings.TrimSpace(text))
	if _, ok := restartTokens[lower]; ok {
		s.reset(ctx, sess)
		return s.reply(ctx, sess, "Starting over. Send any message to begin a new trip plan."), nil
	}

	switch sess.State {
	case StateAwaitingFirstMessage:
		sess.State = StateSlotFilling
		sess.UpdatedAt = time.Now()
		s.recordSession(ctx, sess)
		return s.reply(ctx, sess,
			intro,
			"I will ask you a few questions one by one. Once you answer, I will generate your itinerary.",
			"Let's start with your origin city?",
		), nil

	case StateSlotFilling:
		return s.handleSlotFilling(ctx, sess, text)

	case StateAwaitingChanges:
		return s.handleRefinement(ctx, sess, text, lower)

	default: // StateCompleted
		return s.reply(ctx, sess, "Session completed. Type `restart` to begin a new itinerary."), nil
	}
}

func (s *Service) handleSlotFilling(ctx context.Context, sess *Session, text string) ([]string, error) {
	// A complete slot set in this state means a previous generate call
	// failed; any inbound message re-attempts generation.
	if sess.Slots.Complete() {
		return s.generatePlan(ctx, sess, "", ""), nil
	}

	q := slot.Questions[sess.QuestionIdx]

	decision, err := s.classifier.Classify(ctx, text, q.Name)
	if err != nil {
		// Fail open: classifier unavailability must never block the user.
		log.Printf("guardrail unavailable, allowing input: %v", err)
		decision = guardrail.Result{Decision: guardrail.DecisionAllow, Reason: "Guardrail fallback"}
	}

	switch decision.Decision {
	case guardrail.DecisionGreeting:
		return s.reply(ctx, sess, intro, fmt.Sprintf("Please answer this first:\n\n%s", q.Prompt)), nil
	case guardrail.DecisionOfftopic, guardrail.DecisionUnsafe:
		msg := decision.AssistantMessage
		if msg == "" {
			msg = "Please share travel-related input so I can continue."
		}
		return s.reply(ctx, sess, fmt.Sprintf("%s\n\nCurrent question: %s", msg, q.Prompt)), nil
	}

	normalized := strings.TrimSpace(s.normalizer.Normalize(ctx, q.Name, text))

	ok, errMsg := slot.Validate(q.Name, normalized, sess.Slots)
	if !ok {
		// Question index stays put; the same question is re-asked.
		return s.reply(ctx, sess, fmt.Sprintf("%s\n\nPlease answer again:\n%s", errMsg, q.Prompt)), nil
	}

	var caution string
	if (q.Name == "origin" || q.Name == "destination") && s.places != nil {
		if !s.places.IsKnownPlace(ctx, normalized) {
			caution = fmt.Sprintf("I could not verify \"%s\" as a known place, but let's continue.", normalized)
		}
	}

	sess.Slots[q.Name] = normalized
	sess.QuestionIdx++
	sess.UpdatedAt = time.Now()
	s.recordSlots(ctx, sess, sess.Slots.Complete())
	s.recordSession(ctx, sess)

	if sess.QuestionIdx < len(slot.Questions) {
		next := slot.Questions[sess.QuestionIdx]
		ask := fmt.Sprintf("%s\n\n`(Field: %s)`", next.Prompt, next.Name)
		if caution != "" {
			return s.reply(ctx, sess, caution, ask), nil
		}
		return s.reply(ctx, sess, ask), nil
	}

	return s.generatePlan(ctx, sess, "", ""), nil
}

func (s *Service) handleRefinement(ctx context.Context, sess *Session, text, lower string) ([]string, error) {
	if _, ok := affirmativeTokens[lower]; ok {
		sess.State = StateCompleted
		sess.UpdatedAt = time.Now()
		s.recordSession(ctx, sess)
		return s.reply(ctx, sess, "Perfect. Glad I could help. If you want a new plan, type `restart`."), nil
	}

	if _, ok := negativeTokens[lower]; ok || lower == "" {
		return s.reply(ctx, sess, "Tell me exactly what to change, and I will regenerate the full itinerary."), nil
	}

	return s.generatePlan(ctx, sess, sess.LatestFinalPlan, strings.TrimSpace(text)), nil
}

// generatePlan runs the plan generator and, on success, stores the new
// version and moves the session to awaiting_changes. On failure the session
// keeps its pre-call state so the user can retry the same turn.
func (s *Service) generatePlan(ctx context.Context, sess *Session, previousPlan, changeRequest string) []string {
	plan, err := s.planner.Generate(ctx, sess.Slots, previousPlan, changeRequest)
	if err != nil {
		log.Printf("plan generation failed for session %s: %v", sess.ID, err)
		return s.reply(ctx, sess,
			"I could not produce a budget-consistent itinerary this time. "+
				"Send any message to try again, or type `restart` to adjust your answers.")
	}

	sess.Version++
	sess.LatestRawPlan = plan.Raw
	sess.LatestFinalPlan = plan.Final
	sess.State = StateAwaitingChanges
	sess.UpdatedAt = time.Now()

	s.recordItinerary(ctx, sess, plan, changeRequest)
	s.recordSession(ctx, sess)

	followUp := "Are you satisfied with this plan? Reply `yes` or share changes."
	if changeRequest != "" {
		followUp = "Updated. Are you satisfied now? Reply `yes` or send more changes."
	}
	return s.reply(ctx, sess, plan.Final, followUp)
}

// reset re-initializes the session in place: no slot survives, the question
// index returns to the first slot, and plan history restarts at version zero.
func (s *Service) reset(ctx context.Context, sess *Session) {
	sess.State = StateAwaitingFirstMessage
	sess.QuestionIdx = 0
	sess.Slots = slot.NewValues()
	sess.LatestRawPlan = ""
	sess.LatestFinalPlan = ""
	sess.Version = 0
	sess.UpdatedAt = time.Now()
	s.recordSession(ctx, sess)
	s.recordSlots(ctx, sess, false)
}

func (s *Service) lookup(id types.ID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// reply appends assistant messages to the transcript and audit log, then
// returns them for delivery.
func (s *Service) reply(ctx context.Context, sess *Session, messages ...string) []string {
	for _, m := range messages {
		s.addMessage(ctx, sess, "assistant", m)
	}
	return messages
}

func (s *Service) addMessage(ctx context.Context, sess *Session, role, content string) {
	sess.Transcript = append(sess.Transcript, Message{Role: role, Content: content, CreatedAt: time.Now()})
	if s.recorder != nil {
		if err := s.recorder.AppendMessage(ctx, sess.ID, role, content); err != nil {
			log.Printf("audit append message: %v", err)
		}
	}
}

func (s *Service) recordSession(ctx context.Context, sess *Session) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.UpsertSession(ctx, sess.ID, sess.State, sess.QuestionIdx); err != nil {
		log.Printf("audit upsert session: %v", err)
	}
}

func (s *Service) recordSlots(ctx context.Context, sess *Session, complete bool) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.UpsertSlots(ctx, sess.ID, sess.Slots.Clone(), complete); err != nil {
		log.Printf("audit upsert slots: %v", err)
	}
}

func (s *Service) recordItinerary(ctx context.Context, sess *Session, plan *planner.Plan, changeRequest string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.AppendItinerary(ctx, sess.ID, sess.Version, plan.Raw, plan.Final, changeRequest); err != nil {
		log.Printf("audit append itinerary: %v", err)
	}
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
