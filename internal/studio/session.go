package studio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kfashion/internal/domain"
	"kfashion/internal/imagegen"
	"kfashion/internal/infra"
	"kfashion/pkg/dataurl"
)

// Status is the request outcome of the session's generation flow.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Failure describes why the last trigger did not produce an image.
type Failure struct {
	Kind    domain.ErrorKind
	Message string
	// Detail is the cause reported by the image service, when there is one.
	Detail string
}

// Snapshot is an immutable copy of session state.
type Snapshot struct {
	ID          string
	Locale      domain.Locale
	Mode        domain.Mode
	Gender      domain.Gender
	Background  domain.Background
	SourceImage *dataurl.DataURL
	Status      Status
	Result      *domain.GenerationResult
	Failure     *Failure
	History     []domain.HistoryEntry
	UpdatedAt   time.Time
}

const subscriberBuffer = 8

type pendingRequest struct {
	mode   domain.Mode
	prompt string
	source dataurl.DataURL
}

// Session holds one user's selection, outcome, and history. All methods are
// safe for concurrent use; the generation call runs without holding the lock.
type Session struct {
	id     string
	gen    imagegen.Generator
	logger zerolog.Logger
	now    func() time.Time

	mu          sync.Mutex
	locale      domain.Locale
	mode        domain.Mode
	gender      domain.Gender
	backgrounds map[domain.Mode]domain.Background
	images      map[domain.Mode]dataurl.DataURL
	status      Status
	result      *domain.GenerationResult
	failure     *Failure
	history     []domain.HistoryEntry
	lastActive  time.Time
	subscribers map[int]chan Snapshot
	nextSub     int
	wg          sync.WaitGroup
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithLogger attaches a logger to the session.
func WithLogger(l *infra.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = *l
		}
	}
}

// NewSession creates a session in CLOTHING mode with default selections.
func NewSession(id string, locale domain.Locale, gen imagegen.Generator, opts ...SessionOption) *Session {
	s := &Session{
		id:     id,
		gen:    gen,
		logger: zerolog.Nop(),
		now:    time.Now,
		locale: domain.NormalizeLocale(string(locale)),
		mode:   domain.ModeClothing,
		gender: domain.GenderGirl,
		backgrounds: map[domain.Mode]domain.Background{
			domain.ModeClothing: domain.DefaultBackground(domain.ModeClothing),
			domain.ModeFootwear: domain.DefaultBackground(domain.ModeFootwear),
		},
		images:      make(map[domain.Mode]dataurl.DataURL),
		status:      StatusIdle,
		subscribers: make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session_id", id).Logger()
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SelectMode switches the active mode. The background resets to the new
// mode's default and the displayed result and error are cleared. Uploaded
// images stay remembered per mode. Selecting the current mode is a no-op.
func (s *Session) SelectMode(mode domain.Mode) error {
	mode, err := domain.ParseMode(string(mode))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if mode == s.mode {
		return nil
	}
	s.mode = mode
	s.backgrounds[mode] = domain.DefaultBackground(mode)
	s.result = nil
	s.failure = nil
	if s.status != StatusLoading {
		s.status = StatusIdle
	}
	s.publishLocked()
	return nil
}

// SelectGender sets the shared gender selection.
func (s *Session) SelectGender(gender domain.Gender) error {
	gender, err := domain.ParseGender(string(gender))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.gender = gender
	s.publishLocked()
	return nil
}

// SelectBackground sets the current mode's background. label may be the
// background identifier or any of its localized labels.
func (s *Session) SelectBackground(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	bg, err := domain.ResolveBackground(s.mode, label)
	if err != nil {
		return err
	}
	s.backgrounds[s.mode] = bg
	s.publishLocked()
	return nil
}

// AutoBackground lets the model pick the setting for the current mode.
func (s *Session) AutoBackground() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.backgrounds[s.mode] = domain.BackgroundAuto
	s.publishLocked()
}

// SetSourceImage encodes r as the current mode's product image.
func (s *Session) SetSourceImage(r io.Reader, mediaType string) error {
	img, err := dataurl.Encode(r, mediaType)
	if err != nil {
		return fmt.Errorf("set source image: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.images[s.mode] = img
	s.publishLocked()
	return nil
}

// Generate runs one generation for the current selection and blocks until it
// completes. A trigger while another generation is in flight is ignored.
func (s *Session) Generate(ctx context.Context) error {
	req, err := s.begin()
	if err != nil || req == nil {
		return err
	}
	return s.complete(ctx, *req)
}

// GenerateAsync validates and enters the loading state synchronously, then
// completes the call in the background. started is false when a generation
// was already in flight or validation failed.
func (s *Session) GenerateAsync(ctx context.Context) (started bool, err error) {
	req, err := s.begin()
	if err != nil || req == nil {
		return false, err
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.complete(ctx, *req)
	}()
	return true, nil
}

// Wait blocks until every background generation has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) begin() (*pendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.status == StatusLoading {
		return nil, nil
	}
	source, ok := s.images[s.mode]
	if !ok {
		s.failure = &Failure{
			Kind:    domain.KindValidation,
			Message: FailureMessage(s.locale, domain.KindValidation, s.mode, ""),
		}
		s.publishLocked()
		return nil, fmt.Errorf("%w: no %s image uploaded", domain.ErrValidation, s.mode)
	}
	prompt, err := imagegen.BuildPrompt(imagegen.PromptInput{
		Mode:       s.mode,
		Gender:     s.gender,
		Background: s.backgrounds[s.mode],
		Locale:     s.locale,
	})
	if err != nil {
		s.failure = &Failure{Kind: domain.KindValidation, Message: err.Error()}
		s.publishLocked()
		return nil, err
	}
	s.status = StatusLoading
	s.failure = nil
	s.publishLocked()
	return &pendingRequest{mode: s.mode, prompt: prompt, source: source}, nil
}

func (s *Session) complete(ctx context.Context, req pendingRequest) error {
	start := time.Now()
	img, err := s.gen.Generate(ctx, imagegen.GenerateRequest{Source: req.source, Prompt: req.prompt})
	if err == nil && len(img.Data) == 0 {
		err = fmt.Errorf("generate: %w", domain.ErrEmptyResult)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if err != nil {
		kind := domain.KindOf(err)
		s.status = StatusFailed
		detail := domain.DetailOf(err)
		s.failure = &Failure{Kind: kind, Message: FailureMessage(s.locale, kind, req.mode, detail), Detail: detail}
		s.logger.Error().Err(err).Str("mode", string(req.mode)).Str("kind", string(kind)).Msg("generation failed")
		s.publishLocked()
		return err
	}

	now := s.now()
	result := domain.GenerationResult{
		Image:     img.DataURL(),
		Prompt:    req.prompt,
		CreatedAt: now,
		Mode:      req.mode,
	}
	stamp := now.UnixMilli()
	if len(s.history) > 0 && stamp <= s.history[0].Stamp {
		stamp = s.history[0].Stamp + 1
	}
	s.history = append([]domain.HistoryEntry{{Stamp: stamp, GenerationResult: result}}, s.history...)
	s.result = &result
	s.failure = nil
	s.status = StatusSuccess
	s.logger.Info().
		Str("mode", string(req.mode)).
		Int64("stamp", stamp).
		Dur("elapsed", time.Since(start)).
		Msg("generation succeeded")
	s.publishLocked()
	return nil
}

// DeleteHistoryEntry removes the entry with the given stamp. It reports
// whether an entry was removed; an unknown stamp leaves history unchanged.
func (s *Session) DeleteHistoryEntry(stamp int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	for i, entry := range s.history {
		if entry.Stamp != stamp {
			continue
		}
		s.history = append(s.history[:i:i], s.history[i+1:]...)
		s.publishLocked()
		return true
	}
	return false
}

// ClearHistory empties the history.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.history = nil
	s.publishLocked()
}

// HistoryEntry returns the entry with the given stamp.
func (s *Session) HistoryEntry(stamp int64) (domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.history {
		if entry.Stamp == stamp {
			return entry, nil
		}
	}
	return domain.HistoryEntry{}, fmt.Errorf("history entry %d: %w", stamp, domain.ErrNotFound)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers for snapshots published after every state change. The
// returned cancel func must be called when the subscriber is done. A
// subscriber that falls behind is dropped and its channel closed.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, subscriberBuffer)
	s.subscribers[id] = ch
	ch <- s.snapshotLocked()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

// IdleSince reports when the session last saw activity.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Close disconnects every subscriber.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:         s.id,
		Locale:     s.locale,
		Mode:       s.mode,
		Gender:     s.gender,
		Background: s.backgrounds[s.mode],
		Status:     s.status,
		UpdatedAt:  s.lastActive,
	}
	if img, ok := s.images[s.mode]; ok {
		snap.SourceImage = &img
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
	}
	if s.failure != nil {
		f := *s.failure
		snap.Failure = &f
	}
	if len(s.history) > 0 {
		snap.History = make([]domain.HistoryEntry, len(s.history))
		copy(snap.History, s.history)
	}
	return snap
}

func (s *Session) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for id, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			delete(s.subscribers, id)
			close(ch)
			s.logger.Warn().Int("subscriber", id).Msg("dropping slow subscriber")
		}
	}
}
