package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolasssh/cosplaiii/internal/client/device"
	"github.com/nicolasssh/cosplaiii/internal/client/models"
	"github.com/nicolasssh/cosplaiii/internal/common"
	"github.com/nicolasssh/cosplaiii/internal/logging"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// ---- fakes ----

type fakeRecognizer struct {
	mu sync.Mutex

	RecognizeRet *models.RecognitionResult
	RecognizeErr error
	recognized   int
	LastPhoto    models.Photo

	// Validate can be scripted per call.
	ValidateRets []*models.RecognitionResult
	ValidateErr  error
	validated    int
	LastCand     string
	LastIsTrue   bool

	// barrier, when set, is closed by the test to release Recognize.
	barrier chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, photo models.Photo) (*models.RecognitionResult, error) {
	if f.barrier != nil {
		<-f.barrier
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recognized++
	f.LastPhoto = photo
	return f.RecognizeRet, f.RecognizeErr
}

func (f *fakeRecognizer) Validate(ctx context.Context, candidate string, isTrue bool, photo models.Photo) (*models.RecognitionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastCand = candidate
	f.LastIsTrue = isTrue
	var ret *models.RecognitionResult
	if f.validated < len(f.ValidateRets) {
		ret = f.ValidateRets[f.validated]
	}
	f.validated++
	return ret, f.ValidateErr
}

func (f *fakeRecognizer) recognizeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recognized
}

type fakeUnlocks struct {
	CreateErr  error
	created    int
	LastUnlock models.Unlock
}

func (f *fakeUnlocks) CreateUnlock(ctx context.Context, unlock models.Unlock) error {
	f.created++
	f.LastUnlock = unlock
	return f.CreateErr
}

type fakeSession struct {
	user models.UserSession
	ok   bool
}

func (f *fakeSession) Current() (models.UserSession, bool) {
	return f.user, f.ok
}

type fakeGate struct {
	granted map[device.Permission]bool
	answer  bool
	asked   int
}

func (f *fakeGate) Granted(ctx context.Context, p device.Permission) bool {
	return f.granted[p]
}

func (f *fakeGate) Request(ctx context.Context, p device.Permission) (bool, error) {
	f.asked++
	if f.answer {
		if f.granted == nil {
			f.granted = map[device.Permission]bool{}
		}
		f.granted[p] = true
	}
	return f.answer, nil
}

func openGate() *fakeGate {
	return &fakeGate{granted: map[device.Permission]bool{
		device.PermissionCamera:       true,
		device.PermissionPhotoLibrary: true,
	}}
}

func testLogger() logging.Logger {
	return logging.NewTextLogger(io.Discard, slog.LevelDebug)
}

func testPhoto() models.Photo {
	return models.Photo{URI: "file:///tmp/shot.jpg", Width: 1080, Height: 1920}
}

// ---- tests ----

func TestCaptureRequestsPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("denied stays idle", func(t *testing.T) {
		gate := &fakeGate{answer: false}
		p := NewPipeline(&fakeRecognizer{}, &fakeUnlocks{}, &fakeSession{}, gate, testLogger())

		err := p.Capture(ctx, testPhoto())
		require.ErrorIs(t, err, common.ErrPermissionDenied)
		assert.Equal(t, StateIdle, p.State())
		assert.Equal(t, 1, gate.asked)
	})

	t.Run("granted moves to captured", func(t *testing.T) {
		gate := &fakeGate{answer: true}
		p := NewPipeline(&fakeRecognizer{}, &fakeUnlocks{}, &fakeSession{}, gate, testLogger())

		require.NoError(t, p.Capture(ctx, testPhoto()))
		assert.Equal(t, StateCaptured, p.State())
	})
}

func TestSubmitConfidenceRouting(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		confidence float64
		wantState  State
		wantOut    Outcome
	}{
		{"above threshold finalizes", 0.99995, StateFinalized, OutcomeAuto},
		{"exactly threshold prompts", 0.9999, StateDisplaying, OutcomeNone},
		{"mid confidence prompts", 0.5, StateDisplaying, OutcomeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{RecognizeRet: &models.RecognitionResult{
				Character:  "Rem",
				Confidence: tt.confidence,
			}}
			p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())

			require.NoError(t, p.Capture(ctx, testPhoto()))
			require.NoError(t, p.Submit(ctx))
			assert.Equal(t, tt.wantState, p.State())
			assert.Equal(t, tt.wantOut, p.Outcome())
			if tt.wantState == StateFinalized {
				assert.True(t, p.Succeeded())
			}
		})
	}
}

func TestSubmitWhileInFlightReturnsBusy(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{
		RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5},
		barrier:      make(chan struct{}),
	}
	p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())
	require.NoError(t, p.Capture(ctx, testPhoto()))

	done := make(chan error, 1)
	go func() { done <- p.Submit(ctx) }()

	// Wait until the first submission holds the in-flight state.
	require.Eventually(t, func() bool { return p.State() == StateSubmitting },
		waitFor, tick)

	require.ErrorIs(t, p.Submit(ctx), ErrBusy)

	close(rec.barrier)
	require.NoError(t, <-done)
	assert.Equal(t, 1, rec.recognizeCalls())
}

func TestSubmitFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{RecognizeErr: errors.New("recognizer offline")}
	p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())

	require.NoError(t, p.Capture(ctx, testPhoto()))
	require.Error(t, p.Submit(ctx))
	assert.Equal(t, StateCaptured, p.State())

	// No automatic retry: a second explicit submit reaches the backend again.
	require.Error(t, p.Submit(ctx))
	assert.Equal(t, 2, rec.recognizeCalls())
}

func TestDragReleaseThreshold(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5}}
	p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())
	require.NoError(t, p.Capture(ctx, testPhoto()))

	assert.False(t, p.DragRelease(299.9))
	assert.Equal(t, StateCaptured, p.State())
	assert.False(t, p.DragRelease(DiscardDragDistance))
	assert.Equal(t, StateCaptured, p.State())

	assert.True(t, p.DragRelease(300.1))
	assert.Equal(t, StateIdle, p.State())

	// The discarded photo must never reach the recognizer.
	require.ErrorIs(t, p.Submit(ctx), ErrInvalidState)
	assert.Equal(t, 0, rec.recognizeCalls())
}

func TestDiscardDropsInFlightResponse(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{
		RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5},
		barrier:      make(chan struct{}),
	}
	p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())
	require.NoError(t, p.Capture(ctx, testPhoto()))

	done := make(chan error, 1)
	go func() { done <- p.Submit(ctx) }()
	require.Eventually(t, func() bool { return p.State() == StateSubmitting },
		waitFor, tick)

	// A new capture session starts while the old response is in flight.
	p.Reset()
	require.NoError(t, p.Capture(ctx, testPhoto()))

	close(rec.barrier)
	require.ErrorIs(t, <-done, ErrStale)

	// The fresh session is unaffected by the dropped response.
	assert.Equal(t, StateCaptured, p.State())
	_, ok := p.Result()
	assert.False(t, ok)
}

func TestAffirmRequiresSession(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5}}
	unlocks := &fakeUnlocks{}
	p := NewPipeline(rec, unlocks, &fakeSession{ok: false}, openGate(), testLogger())

	require.NoError(t, p.Capture(ctx, testPhoto()))
	require.NoError(t, p.Submit(ctx))

	err := p.Affirm(ctx)
	require.ErrorIs(t, err, common.ErrSignInRequired)
	assert.Equal(t, StateDisplaying, p.State())
	assert.Equal(t, 0, unlocks.created)
}

func TestAffirmPersistsUnlock(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5}}
	unlocks := &fakeUnlocks{}
	session := &fakeSession{user: models.UserSession{UID: "u1", Email: "a@b.c"}, ok: true}
	p := NewPipeline(rec, unlocks, session, openGate(), testLogger())

	require.NoError(t, p.Capture(ctx, testPhoto()))
	require.NoError(t, p.Submit(ctx))
	require.NoError(t, p.Affirm(ctx))

	assert.Equal(t, StateFinalized, p.State())
	assert.Equal(t, OutcomePositive, p.Outcome())
	assert.True(t, p.Succeeded())
	assert.Equal(t, "Rem", rec.LastCand)
	assert.True(t, rec.LastIsTrue)
	require.Equal(t, 1, unlocks.created)
	assert.Equal(t, "u1", unlocks.LastUnlock.UserID)
	assert.Equal(t, "Rem", unlocks.LastUnlock.Character)
}

func TestAffirmUnlockFailureReverts(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5}}
	unlocks := &fakeUnlocks{CreateErr: errors.New("store down")}
	session := &fakeSession{user: models.UserSession{UID: "u1"}, ok: true}
	p := NewPipeline(rec, unlocks, session, openGate(), testLogger())

	require.NoError(t, p.Capture(ctx, testPhoto()))
	require.NoError(t, p.Submit(ctx))
	require.Error(t, p.Affirm(ctx))

	assert.Equal(t, StateDisplaying, p.State())
	assert.False(t, p.Succeeded())
}

func TestRejectWithAlternativeLoopsBack(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{
		RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5},
		ValidateRets: []*models.RecognitionResult{
			{Character: "Ram", Confidence: 0.42},
		},
	}
	p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())

	require.NoError(t, p.Capture(ctx, testPhoto()))
	require.NoError(t, p.Submit(ctx))
	require.NoError(t, p.Reject(ctx))

	assert.Equal(t, StateDisplaying, p.State())
	result, ok := p.Result()
	require.True(t, ok)
	assert.Equal(t, "Ram", result.Character)
	assert.Equal(t, "Rem", rec.LastCand)
	assert.False(t, rec.LastIsTrue)
}

func TestRejectWithoutAlternativeFinalizes(t *testing.T) {
	ctx := context.Background()
	rec := &fakeRecognizer{
		RecognizeRet: &models.RecognitionResult{Character: "Rem", Confidence: 0.5},
		ValidateRets: []*models.RecognitionResult{nil},
	}
	p := NewPipeline(rec, &fakeUnlocks{}, &fakeSession{}, openGate(), testLogger())

	require.NoError(t, p.Capture(ctx, testPhoto()))
	require.NoError(t, p.Submit(ctx))
	require.NoError(t, p.Reject(ctx))

	assert.Equal(t, StateFinalized, p.State())
	assert.Equal(t, OutcomeNegative, p.Outcome())
	assert.False(t, p.Succeeded())
}

func TestFormatConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.874512, "87.45%"},
		{0.87456, "87.46%"},
		{1, "100.00%"},
		{0, "0.00%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatConfidence(tt.in))
	}
}
