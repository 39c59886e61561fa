// Package capture implements the capture -> preview -> submit -> result
// flow as an explicit state machine. Screens drive it through methods and
// render from its snapshots; it never touches presentation.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicolasssh/cosplaiii/internal/client/device"
	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/common"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

// HighConfidenceThreshold is the cutoff above which human validation is
// skipped and the result finalizes immediately with the success visual
// state.
const HighConfidenceThreshold = 0.9999

// DiscardDragDistance is how far the preview must be dragged down before
// release discards the captured photo.
const DiscardDragDistance = 300.0

type State int

const (
	StateIdle State = iota
	StateCaptured
	StateSubmitting
	StateDisplaying
	StateValidating
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCaptured:
		return "captured"
	case StateSubmitting:
		return "submitting"
	case StateDisplaying:
		return "displaying"
	case StateValidating:
		return "validating"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Outcome records how a finalized flow ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeAuto: confidence cleared the threshold, validation skipped.
	OutcomeAuto
	// OutcomePositive: the user affirmed the candidate.
	OutcomePositive
	// OutcomeNegative: the user rejected it and no alternative was offered.
	OutcomeNegative
)

var (
	// ErrBusy: a submission is already in flight; the action control is
	// disabled, and this is the hard guard behind that affordance.
	ErrBusy = errors.New("a submission is already in flight")
	// ErrInvalidState: the requested transition does not exist from the
	// current state.
	ErrInvalidState = errors.New("invalid state for this action")
	// ErrStale: the response belonged to a capture session that was
	// discarded or torn down while the request was in flight.
	ErrStale = errors.New("stale capture session")
)

// RecognizerAPI is the slice of the recognizer client the pipeline needs.
type RecognizerAPI interface {
	Recognize(ctx context.Context, photo models.Photo) (*models.RecognitionResult, error)
	Validate(ctx context.Context, candidate string, isTrue bool, photo models.Photo) (*models.RecognitionResult, error)
}

// UnlockStore persists validated recognitions for the signed-in user.
type UnlockStore interface {
	CreateUnlock(ctx context.Context, unlock models.Unlock) error
}

// SessionInfo answers who, if anyone, is signed in.
type SessionInfo interface {
	Current() (models.UserSession, bool)
}

// Pipeline is the state machine. All methods are safe for the single
// event-loop caller plus the in-flight response path; stale responses are
// detected by comparing the capture-session id taken before the request.
type Pipeline struct {
	recognizer RecognizerAPI
	unlocks    UnlockStore
	session    SessionInfo
	gate       device.Gate
	log        logging.Logger

	mu      sync.Mutex
	state   State
	photo   models.Photo
	epoch   uuid.UUID
	result  *models.RecognitionResult
	outcome Outcome
}

func NewPipeline(recognizer RecognizerAPI, unlocks UnlockStore, session SessionInfo, gate device.Gate, log logging.Logger) *Pipeline {
	return &Pipeline{
		recognizer: recognizer,
		unlocks:    unlocks,
		session:    session,
		gate:       gate,
		log:        log,
		state:      StateIdle,
		epoch:      uuid.New(),
	}
}

func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Photo returns the in-flight photo reference, if any. At most one exists
// per capture session.
func (p *Pipeline) Photo() (models.Photo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.photo, p.state != StateIdle
}

// Result returns a copy of the displayed result; it is immutable once
// received, so a re-validation replaces it rather than patching it.
func (p *Pipeline) Result() (models.RecognitionResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.result == nil {
		return models.RecognitionResult{}, false
	}
	return *p.result, true
}

func (p *Pipeline) Outcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

// Succeeded reports whether the flow finalized on a confirmed (or
// auto-confirmed) recognition; the result screen uses it for the distinct
// success background.
func (p *Pipeline) Succeeded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateFinalized &&
		(p.outcome == OutcomeAuto || p.outcome == OutcomePositive)
}

// Capture moves Idle -> Captured with a photo from the device camera. The
// camera permission is requested when missing; on denial the pipeline
// stays Idle and the caller surfaces a blocking alert.
func (p *Pipeline) Capture(ctx context.Context, photo models.Photo) error {
	return p.acquire(ctx, photo, device.PermissionCamera)
}

// Pick moves Idle -> Captured with a photo from the gallery, gated on the
// photo-library permission.
func (p *Pipeline) Pick(ctx context.Context, photo models.Photo) error {
	return p.acquire(ctx, photo, device.PermissionPhotoLibrary)
}

func (p *Pipeline) acquire(ctx context.Context, photo models.Photo, perm device.Permission) error {
	if !p.gate.Granted(ctx, perm) {
		granted, err := p.gate.Request(ctx, perm)
		if err != nil {
			return err
		}
		if !granted {
			return common.ErrPermissionDenied
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return ErrInvalidState
	}
	p.state = StateCaptured
	p.photo = photo
	p.result = nil
	p.outcome = OutcomeNone
	p.epoch = uuid.New()
	return nil
}

// DragRelease handles the end of a downward drag on the preview. Past the
// threshold the photo is discarded; otherwise the preview springs back.
// Returns whether the photo was discarded.
func (p *Pipeline) DragRelease(distance float64) bool {
	if distance <= DiscardDragDistance {
		return false
	}
	return p.Cancel()
}

// Cancel discards the captured photo without any backend call and returns
// to Idle. The dropped reference is never submitted; any response still in
// flight for it is ignored by the session-id check.
func (p *Pipeline) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateCaptured && p.state != StateDisplaying && p.state != StateFinalized {
		return false
	}
	p.reset()
	return true
}

// Reset returns a finalized pipeline to Idle for the next capture.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Pipeline) reset() {
	p.state = StateIdle
	p.photo = models.Photo{}
	p.result = nil
	p.outcome = OutcomeNone
	p.epoch = uuid.New()
}

// Submit sends the captured photo to the recognizer. Re-invocation while a
// request is in flight returns ErrBusy. On failure the state rolls back to
// Captured and the user must re-invoke the action; there is no automatic
// retry. On success, high-confidence results finalize immediately and the
// rest move to Displaying for human validation.
func (p *Pipeline) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.state == StateSubmitting {
		p.mu.Unlock()
		return ErrBusy
	}
	if p.state != StateCaptured {
		p.mu.Unlock()
		return ErrInvalidState
	}
	photo := p.photo
	epoch := p.epoch
	p.state = StateSubmitting
	p.mu.Unlock()

	result, err := p.recognizer.Recognize(ctx, photo)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		// The capture was discarded or the screen torn down while the
		// request was in flight; drop the response.
		p.log.Debug(ctx, "dropping stale recognition response")
		return ErrStale
	}
	if err != nil {
		p.state = StateCaptured
		return err
	}

	p.result = result
	if result.Confidence > HighConfidenceThreshold {
		p.state = StateFinalized
		p.outcome = OutcomeAuto
		p.log.Info(ctx, "recognition auto-confirmed",
			"character", result.Character, "confidence", result.Confidence)
	} else {
		p.state = StateDisplaying
	}
	return nil
}

// Affirm records a positive judgment: the result is reported to the
// recognizer and persisted as an unlock for the signed-in user. Without an
// active session the action is refused and the state is unchanged.
func (p *Pipeline) Affirm(ctx context.Context) error {
	user, ok := p.session.Current()
	if !ok {
		return common.ErrSignInRequired
	}

	photo, result, epoch, err := p.beginValidation()
	if err != nil {
		return err
	}

	if _, err := p.recognizer.Validate(ctx, result.Character, true, photo); err != nil {
		p.endValidation(epoch, StateDisplaying, OutcomeNone, nil)
		return err
	}

	unlock := models.Unlock{
		UserID:    user.UID,
		Character: result.Character,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.unlocks.CreateUnlock(ctx, unlock); err != nil {
		p.endValidation(epoch, StateDisplaying, OutcomeNone, nil)
		return err
	}

	p.endValidation(epoch, StateFinalized, OutcomePositive, nil)
	return nil
}

// Reject records a negative judgment. If the recognizer offers an
// alternative candidate the flow loops back to Displaying with the fresh
// result; otherwise it finalizes as negative.
func (p *Pipeline) Reject(ctx context.Context) error {
	photo, result, epoch, err := p.beginValidation()
	if err != nil {
		return err
	}

	alternative, err := p.recognizer.Validate(ctx, result.Character, false, photo)
	if err != nil {
		p.endValidation(epoch, StateDisplaying, OutcomeNone, nil)
		return err
	}

	if alternative != nil {
		p.endValidation(epoch, StateDisplaying, OutcomeNone, alternative)
		return nil
	}
	p.endValidation(epoch, StateFinalized, OutcomeNegative, nil)
	return nil
}

func (p *Pipeline) beginValidation() (models.Photo, models.RecognitionResult, uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateDisplaying {
		return models.Photo{}, models.RecognitionResult{}, uuid.UUID{}, ErrInvalidState
	}
	p.state = StateValidating
	return p.photo, *p.result, p.epoch, nil
}

// endValidation applies the validation verdict unless the session changed
// underneath the request.
func (p *Pipeline) endValidation(epoch uuid.UUID, state State, outcome Outcome, replacement *models.RecognitionResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		return
	}
	if replacement != nil {
		p.result = replacement
	}
	p.state = state
	p.outcome = outcome
}

// FormatConfidence renders a [0,1] confidence as the percentage shown to
// the user, rounded to two decimals.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%.2f%%", c*100)
}
