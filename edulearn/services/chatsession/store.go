// edulearn/services/chatsession/store.go
package chatsession

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"edulearn/edulearn/services/auth"
	"edulearn/edulearn/utils/logging"

	"go.uber.org/zap"
)

const defaultWriteTimeout = 10 * time.Second

type Option func(*Store)

// WithGenerator sets the assistant reply source. Without one, AppendMessage
// only records the user message.
func WithGenerator(g ResponseGenerator) Option {
	return func(s *Store) { s.generator = g }
}

func WithEventSink(sink EventSink) Option {
	return func(s *Store) { s.events = sink }
}

// WithSeedLedger shares seeding history between stores, e.g. across a registry.
func WithSeedLedger(l SeedLedger) Option {
	return func(s *Store) { s.ledger = l }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the chat sessions of one signed-in owner. State transitions are
// serialized by mu, which is never held across I/O; remote writes of one
// session are serialized by that session's writer lock.
type Store struct {
	docs         DocumentStore
	generator    ResponseGenerator
	events       EventSink
	ledger       SeedLedger
	now          func() time.Time
	writeTimeout time.Duration

	createMu sync.Mutex

	mu       sync.Mutex
	owner    string
	sessions []*Session
	activeID string
	status   LoadStatus
	pending  int
	epoch    uint64

	writersMu sync.Mutex
	writers   map[string]*sync.Mutex
}

func NewStore(docs DocumentStore, opts ...Option) *Store {
	s := &Store{
		docs:         docs,
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
		status:       LoadIdle,
		writers:      map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ledger == nil {
		s.ledger = NewMemoryLedger()
	}
	return s
}

// AppendResult describes what AppendMessage added.
type AppendResult struct {
	SessionID   string   `json:"sessionId"`
	Title       string   `json:"title"`
	UserMessage Message  `json:"userMessage"`
	Reply       *Message `json:"reply,omitempty"`
}

// LoadSessions replaces the in-memory sessions with the owner's stored ones,
// seeding example sessions the first time an owner comes back empty.
func (s *Store) LoadSessions(ctx context.Context, ownerID string) error {
	defer logging.LogDuration(ctx, "chatsession.LoadSessions")()
	if ownerID == "" {
		return opErr("load", "", ErrAuthRequired, nil)
	}

	s.mu.Lock()
	s.status = LoadLoading
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	recs, err := s.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		s.mu.Lock()
		if s.epoch == epoch {
			s.status = LoadError
		}
		s.mu.Unlock()
		logging.ErrorLogger.Error("list sessions failed", zap.String("owner", ownerID), zap.Error(err))
		return opErr("load", "", ErrStoreLoadFailed, err)
	}

	sessions := make([]*Session, 0, len(recs))
	for _, rec := range recs {
		if rec.OwnerID != "" && rec.OwnerID != ownerID {
			continue
		}
		sess, err := fromRecord(rec)
		if err != nil {
			logging.ErrorLogger.Error("skipping unreadable session", zap.String("owner", ownerID), zap.Error(err))
			continue
		}
		sess.OwnerID = ownerID
		sessions = append(sessions, &sess)
	}

	var seedErr error
	seeded := false
	// Claim marks the owner either way: a non-empty listing also counts.
	first, err := s.ledger.Claim(ctx, ownerID)
	if err != nil {
		// unknown ledger state: skip seeding, the next load claims again
		logging.ErrorLogger.Warn("seed claim failed", zap.String("owner", ownerID), zap.Error(err))
	}
	if first && len(sessions) == 0 {
		sessions, seedErr = s.seed(ctx, ownerID)
		seeded = len(sessions) > 0
		if !seeded {
			if err := s.ledger.Release(ctx, ownerID); err != nil {
				logging.ErrorLogger.Warn("seed claim release failed", zap.String("owner", ownerID), zap.Error(err))
			}
		}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return seedErr
	}
	if s.owner != ownerID {
		s.activeID = ""
	}
	s.owner = ownerID
	s.sessions = sessions
	if s.findLocked(s.activeID) == nil {
		s.activeID = ""
	}
	s.status = LoadIdle
	count := len(s.sessions)
	s.mu.Unlock()

	logging.AppLogger.Info("sessions loaded", zap.String("owner", ownerID), zap.Int("count", count), zap.Bool("seeded", seeded))
	if seeded {
		s.publish(ctx, Event{Type: EventSessionsSeeded, OwnerID: ownerID, Data: map[string]any{"count": count}})
	}
	s.publish(ctx, Event{Type: EventSessionsLoaded, OwnerID: ownerID, Data: map[string]any{"count": count}})
	return seedErr
}

func (s *Store) seed(ctx context.Context, ownerID string) ([]*Session, error) {
	recs, err := ExampleSessions(ownerID, s.now())
	if err != nil {
		return nil, opErr("seed", "", ErrStorePersistFailed, err)
	}
	var errs []error
	sessions := make([]*Session, 0, len(recs))
	for _, rec := range recs {
		wctx, cancel := s.writeContext(ctx)
		id, err := s.docs.Create(wctx, ownerID, rec)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("seed %q: %w", rec.Title, err))
			continue
		}
		rec.ID = id
		sess, err := fromRecord(rec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sessions = append(sessions, &sess)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if len(errs) > 0 {
		return sessions, opErr("seed", "", ErrStorePersistFailed, errors.Join(errs...))
	}
	return sessions, nil
}

// CreateSession selects an existing empty session when there is one and
// otherwise creates, persists and selects a new one.
func (s *Store) CreateSession(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", opErr("create", "", ErrAuthRequired, nil)
	}
	s.createMu.Lock()
	defer s.createMu.Unlock()

	s.mu.Lock()
	if s.owner != "" && s.owner != ownerID {
		s.mu.Unlock()
		return "", opErr("create", "", ErrAuthRequired, errors.New("owner is not signed in to this store"))
	}
	if empty := s.findEmptyLocked(); empty != nil {
		s.activeID = empty.ID
		s.mu.Unlock()
		logging.AppLogger.Info("reusing empty session", zap.String("owner", ownerID), zap.String("session", empty.ID))
		return empty.ID, nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	now := s.now()
	rec := SessionRecord{
		Title:     SentinelTitle,
		Messages:  []MessageRecord{},
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	wctx, cancel := s.writeContext(ctx)
	id, err := s.docs.Create(wctx, ownerID, rec)
	cancel()
	if err != nil {
		logging.ErrorLogger.Error("create session failed", zap.String("owner", ownerID), zap.Error(err))
		return "", opErr("create", "", ErrStorePersistFailed, err)
	}

	sess := &Session{
		ID:        id,
		Title:     SentinelTitle,
		Messages:  []Message{},
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	if s.epoch == epoch {
		s.owner = ownerID
		s.sessions = append([]*Session{sess}, s.sessions...)
		s.activeID = id
	}
	s.mu.Unlock()

	s.publish(ctx, Event{Type: EventSessionCreated, OwnerID: ownerID, SessionID: id})
	return id, nil
}

// findEmptyLocked prefers an empty session still carrying the sentinel title,
// then the most recently created empty one.
func (s *Store) findEmptyLocked() *Session {
	var newest *Session
	for _, sess := range s.sessions {
		if len(sess.Messages) != 0 {
			continue
		}
		if sess.Title == SentinelTitle {
			return sess
		}
		if newest == nil || sess.CreatedAt.After(newest.CreatedAt) {
			newest = sess
		}
	}
	return newest
}

func (s *Store) SelectSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(id) == nil {
		return opErr("select", id, ErrNotFound, nil)
	}
	s.activeID = id
	return nil
}

func (s *Store) RenameSession(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return opErr("rename", id, ErrValidationFailed, errors.New("title is empty"))
	}
	w := s.writer(id)
	w.Lock()
	defer w.Unlock()

	s.mu.Lock()
	sess := s.findLocked(id)
	if sess == nil {
		s.mu.Unlock()
		return opErr("rename", id, ErrNotFound, nil)
	}
	owner := sess.OwnerID
	s.mu.Unlock()

	now := s.now()
	if err := s.update(ctx, id, Patch{Title: &title, UpdatedAt: now}); err != nil {
		return opErr("rename", id, ErrStorePersistFailed, err)
	}

	s.mu.Lock()
	if sess := s.findLocked(id); sess != nil {
		sess.Title = title
		sess.UpdatedAt = now
	}
	s.mu.Unlock()

	s.publish(ctx, Event{Type: EventSessionRenamed, OwnerID: owner, SessionID: id, Data: map[string]any{"title": title}})
	return nil
}

// ToggleStar flips the starred flag and returns the new value.
func (s *Store) ToggleStar(ctx context.Context, id string) (bool, error) {
	w := s.writer(id)
	w.Lock()
	defer w.Unlock()

	s.mu.Lock()
	sess := s.findLocked(id)
	if sess == nil {
		s.mu.Unlock()
		return false, opErr("star", id, ErrNotFound, nil)
	}
	starred := !sess.Starred
	owner := sess.OwnerID
	s.mu.Unlock()

	now := s.now()
	if err := s.update(ctx, id, Patch{Starred: &starred, UpdatedAt: now}); err != nil {
		return !starred, opErr("star", id, ErrStorePersistFailed, err)
	}

	s.mu.Lock()
	if sess := s.findLocked(id); sess != nil {
		sess.Starred = starred
		sess.UpdatedAt = now
	}
	s.mu.Unlock()

	s.publish(ctx, Event{Type: EventSessionStarred, OwnerID: owner, SessionID: id, Data: map[string]any{"starred": starred}})
	return starred, nil
}

// DeleteSession removes the session remotely first; the local list only
// changes once the remote delete succeeded.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	w := s.writer(id)
	w.Lock()
	defer w.Unlock()

	s.mu.Lock()
	sess := s.findLocked(id)
	if sess == nil {
		s.mu.Unlock()
		return opErr("delete", id, ErrNotFound, nil)
	}
	owner := sess.OwnerID
	s.mu.Unlock()

	wctx, cancel := s.writeContext(ctx)
	err := s.docs.Delete(wctx, id)
	cancel()
	if err != nil {
		logging.ErrorLogger.Error("delete session failed", zap.String("session", id), zap.Error(err))
		return opErr("delete", id, ErrStorePersistFailed, err)
	}

	s.mu.Lock()
	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
			break
		}
	}
	if s.activeID == id {
		s.activeID = ""
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		}
	}
	s.mu.Unlock()

	s.dropWriter(id)
	s.publish(ctx, Event{Type: EventSessionDeleted, OwnerID: owner, SessionID: id})
	return nil
}

// ClearSessions deletes every session, stopping at the first remote failure.
func (s *Store) ClearSessions(ctx context.Context) error {
	s.mu.Lock()
	owner := s.owner
	ids := make([]string, len(s.sessions))
	for i, sess := range s.sessions {
		ids[i] = sess.ID
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.DeleteSession(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
	}
	s.publish(ctx, Event{Type: EventSessionsCleared, OwnerID: owner, Data: map[string]any{"count": len(ids)}})
	return nil
}

// AppendMessage records a user message, persists it, then asks the generator
// for the reply. Persist failures keep the local append and are returned
// with the result so the caller can SyncSession later.
func (s *Store) AppendMessage(ctx context.Context, sessionID, text string) (AppendResult, error) {
	defer logging.LogDuration(ctx, "chatsession.AppendMessage")()
	text = strings.TrimSpace(text)
	if text == "" {
		return AppendResult{}, opErr("append", sessionID, ErrValidationFailed, errors.New("message is empty"))
	}

	s.mu.Lock()
	sess := s.findLocked(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return AppendResult{}, opErr("append", sessionID, ErrNotFound, nil)
	}
	msg := Message{
		ID:        newMessageID(),
		Sender:    SenderUser,
		Text:      text,
		Timestamp: s.nextTimestampLocked(sess),
	}
	if len(sess.Messages) == 0 && sess.Title == SentinelTitle {
		sess.Title = DeriveTitle(text)
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = msg.Timestamp
	s.pending++
	sc := SessionContext{
		SessionID: sess.ID,
		OwnerID:   sess.OwnerID,
		Title:     sess.Title,
		History:   sess.clone().Messages,
	}
	s.mu.Unlock()

	clearPending := sync.OnceFunc(func() {
		s.mu.Lock()
		s.pending--
		s.mu.Unlock()
	})
	defer clearPending()

	result := AppendResult{SessionID: sessionID, Title: sc.Title, UserMessage: msg}
	persistErr := s.persistMessages(ctx, sessionID)
	s.publish(ctx, Event{Type: EventMessageAppended, OwnerID: sc.OwnerID, SessionID: sessionID,
		Data: map[string]any{"messageId": msg.ID, "sender": string(msg.Sender)}})

	if s.generator == nil {
		return result, persistErr
	}

	reply, err := s.generator.GenerateResponse(ctx, sc)
	clearPending()
	if err == nil && strings.TrimSpace(reply.Text) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		logging.ErrorLogger.Error("response generation failed", zap.String("session", sessionID), zap.Error(err))
		return result, errors.Join(opErr("append", sessionID, ErrResponseFailed, err), persistErr)
	}

	s.mu.Lock()
	sess = s.findLocked(sessionID)
	if sess == nil {
		s.mu.Unlock()
		return result, persistErr
	}
	reply = Message{
		ID:        newMessageID(),
		Sender:    SenderAssistant,
		Text:      strings.TrimSpace(reply.Text),
		Timestamp: s.nextTimestampLocked(sess),
	}
	sess.Messages = append(sess.Messages, reply)
	sess.UpdatedAt = reply.Timestamp
	s.mu.Unlock()

	result.Reply = &reply
	if err := s.persistMessages(ctx, sessionID); err != nil {
		persistErr = err
	}
	s.publish(ctx, Event{Type: EventMessageAppended, OwnerID: sc.OwnerID, SessionID: sessionID,
		Data: map[string]any{"messageId": reply.ID, "sender": string(reply.Sender)}})
	return result, persistErr
}

// SyncSession rewrites the whole session remotely; it is the retry path after
// a failed append.
func (s *Store) SyncSession(ctx context.Context, id string) error {
	w := s.writer(id)
	w.Lock()
	defer w.Unlock()

	s.mu.Lock()
	sess := s.findLocked(id)
	if sess == nil {
		s.mu.Unlock()
		return opErr("sync", id, ErrNotFound, nil)
	}
	title, starred := sess.Title, sess.Starred
	patch := Patch{
		Title:     &title,
		Starred:   &starred,
		Messages:  toMessageRecords(sess.Messages),
		UpdatedAt: sess.UpdatedAt,
	}
	s.mu.Unlock()

	if err := s.update(ctx, id, patch); err != nil {
		return opErr("sync", id, ErrStorePersistFailed, err)
	}
	return nil
}

func (s *Store) persistMessages(ctx context.Context, id string) error {
	w := s.writer(id)
	w.Lock()
	defer w.Unlock()

	s.mu.Lock()
	sess := s.findLocked(id)
	if sess == nil {
		s.mu.Unlock()
		return nil
	}
	title := sess.Title
	patch := Patch{Title: &title, Messages: toMessageRecords(sess.Messages), UpdatedAt: sess.UpdatedAt}
	s.mu.Unlock()

	if err := s.update(ctx, id, patch); err != nil {
		logging.ErrorLogger.Error("persist messages failed", zap.String("session", id), zap.Error(err))
		return opErr("append", id, ErrStorePersistFailed, err)
	}
	return nil
}

// Reset drops all state; it is the sign-out teardown.
func (s *Store) Reset() {
	s.mu.Lock()
	s.owner = ""
	s.sessions = nil
	s.activeID = ""
	s.status = LoadIdle
	s.epoch++
	s.mu.Unlock()

	s.writersMu.Lock()
	s.writers = map[string]*sync.Mutex{}
	s.writersMu.Unlock()
}

// HandleAuthEvent loads on sign-in and resets on sign-out.
func (s *Store) HandleAuthEvent(ctx context.Context, ev auth.Event) error {
	switch ev.Kind {
	case auth.SignedIn:
		s.mu.Lock()
		switched := s.owner != "" && s.owner != ev.User.ID
		s.mu.Unlock()
		if switched {
			s.Reset()
		}
		return s.LoadSessions(ctx, ev.User.ID)
	case auth.SignedOut:
		s.Reset()
		return nil
	}
	return fmt.Errorf("unknown auth event %v", ev.Kind)
}

// Follow subscribes the store to p and returns the unsubscribe function.
func (s *Store) Follow(p *auth.Provider) func() {
	return p.Subscribe(func(ctx context.Context, ev auth.Event) {
		if err := s.HandleAuthEvent(ctx, ev); err != nil {
			logging.ErrorLogger.Error("auth transition failed", zap.Stringer("event", ev.Kind), zap.Error(err))
		}
	})
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		OwnerID:         s.owner,
		Sessions:        make([]Session, len(s.sessions)),
		ActiveSessionID: s.activeID,
		ActiveMessages:  []Message{},
		PendingResponse: s.pending > 0,
		LoadStatus:      s.status,
	}
	for i, sess := range s.sessions {
		snap.Sessions[i] = sess.clone()
		if sess.ID == s.activeID {
			snap.ActiveMessages = snap.Sessions[i].Messages
		}
	}
	return snap
}

func (s *Store) Session(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.findLocked(id)
	if sess == nil {
		return Session{}, false
	}
	return sess.clone(), true
}

// Export renders the current sessions in the SessionRecord wire shape.
func (s *Store) Export() ([]byte, error) {
	return MarshalRecords(s.Snapshot().Sessions)
}

func (s *Store) findLocked(id string) *Session {
	if id == "" {
		return nil
	}
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

func (s *Store) nextTimestampLocked(sess *Session) time.Time {
	now := s.now().UTC()
	if n := len(sess.Messages); n > 0 && now.Before(sess.Messages[n-1].Timestamp) {
		return sess.Messages[n-1].Timestamp
	}
	return now
}

func (s *Store) writer(id string) *sync.Mutex {
	s.writersMu.Lock()
	defer s.writersMu.Unlock()
	w, ok := s.writers[id]
	if !ok {
		w = &sync.Mutex{}
		s.writers[id] = w
	}
	return w
}

func (s *Store) dropWriter(id string) {
	s.writersMu.Lock()
	delete(s.writers, id)
	s.writersMu.Unlock()
}

// writeContext detaches from the caller's cancellation: once issued, a
// write completes or fails on its own.
func (s *Store) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
}

func (s *Store) update(ctx context.Context, id string, patch Patch) error {
	wctx, cancel := s.writeContext(ctx)
	defer cancel()
	return s.docs.Update(wctx, id, patch)
}

func (s *Store) publish(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now().UTC()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logging.ErrorLogger.Warn("publish event failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}
