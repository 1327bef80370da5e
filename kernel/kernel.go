// Package kernel implements the session lifecycle of the chat core: which
// document's transcript is visible, how responses stream into it, and when a
// conversation is persisted.
//
// The kernel initializes from configuration via New, creating all subsystems
// internally. Functional options allow test overrides of any subsystem.
//
//	k, err := kernel.New(&cfg)
//	k.SelectDocument(ctx, "amp.asc")
//	req, err := k.Send(ctx, "lower the cutoff frequency")
//	outcome, err := req.Wait(ctx)
package kernel

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/spicy/agent"
	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/memory"
	"github.com/tailored-agentic-units/spicy/observability"
	"github.com/tailored-agentic-units/spicy/session"
	"github.com/tailored-agentic-units/spicy/stream"
	"github.com/tailored-agentic-units/spicy/workspace"
)

// Listener receives the state of the active document after every change to
// it, including one call per applied stream event. Calls are serialized and
// arrive in mutation order: a snapshot older than one already delivered is
// dropped, so the last call always reflects the current state. Listeners must
// not call Subscribe or the returned unsubscribe function.
type Listener func(document string, state session.FileChatState)

// Option configures a Kernel after config-driven initialization.
type Option func(*Kernel)

// WithStore overrides the config-created persistence gateway.
func WithStore(s memory.Store) Option {
	return func(k *Kernel) { k.store = s }
}

// WithStreamer overrides the config-created chat backend.
func WithStreamer(s agent.Streamer) Option {
	return func(k *Kernel) { k.streamer = s }
}

// WithObserver overrides the configured observer.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// WithWorkspace overrides the config-created workspace.
func WithWorkspace(ws *workspace.Workspace) Option {
	return func(k *Kernel) { k.workspace = ws }
}

// WithListener registers a change listener.
func WithListener(l Listener) Option {
	return func(k *Kernel) { k.Subscribe(l) }
}

// Kernel is the session lifecycle controller. It owns the Message Store of
// the active document and the Session Cache of every document visited.
//
// Each streaming request remembers the document it was issued against. Its
// events mutate the live Message Store while that document is active and the
// document's cache entry otherwise, so a late response never lands in another
// document's transcript. A completed request is persisted only if its
// document is active at completion.
type Kernel struct {
	store     memory.Store
	streamer  agent.Streamer
	observer  observability.Observer
	workspace *workspace.Workspace
	titles    session.Config

	mu         sync.Mutex
	document   string
	sessions   []protocol.SessionMeta
	activeID   string
	transcript session.Transcript
	cache      *session.Cache
	generation uint64 // bumped by every transition; stale session switches compare against it
	loads      map[string]*pendingLoad
	inflight   int
	seq        uint64 // numbers state snapshots handed to listeners

	persistMu sync.Mutex
	requests  sync.WaitGroup

	listenMu  sync.Mutex
	listeners map[int]Listener
	nextID    int
	delivered uint64
}

// pendingLoad is a document's first load while it is in flight. Operations
// that overlap it record which parts of the loaded state they made stale.
type pendingLoad struct {
	indexRefreshed     bool // the session index was re-read from the store
	transcriptReplaced bool // the transcript was started over or switched
	deleted            []string
}

// merge folds a finished load into the document's current state. The index is
// taken unless a newer one was read; the latest session is adopted, ahead of
// any turns sent meanwhile, only while no session is active.
func (p *pendingLoad) merge(state *session.FileChatState, loaded session.FileChatState) {
	if !p.indexRefreshed {
		state.Sessions = loaded.Sessions
	}
	if p.transcriptReplaced || state.ActiveSessionID != "" || loaded.ActiveSessionID == "" {
		return
	}
	if slices.Contains(p.deleted, loaded.ActiveSessionID) {
		return
	}
	state.ActiveSessionID = loaded.ActiveSessionID
	state.Messages = append(loaded.Messages, state.Messages...)
}

// notification is a state snapshot numbered in mutation order.
type notification struct {
	doc   string
	state session.FileChatState
	seq   uint64
}

// New creates a Kernel from configuration. The store, streamer, observer and
// workspace are built from their config sections unless an option supplies
// them.
func New(cfg *Config, opts ...Option) (*Kernel, error) {
	k := &Kernel{
		titles:     cfg.Session,
		transcript: session.NewTranscript(),
		cache:      session.NewCache(),
		sessions:   []protocol.SessionMeta{},
		loads:      make(map[string]*pendingLoad),
		listeners:  make(map[int]Listener),
	}

	for _, opt := range opts {
		opt(k)
	}

	if k.observer == nil {
		name := cfg.Observer
		if name == "" {
			name = defaultObserver
		}
		observer, err := observability.GetObserver(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer: %w", err)
		}
		k.observer = observer
	}

	if k.workspace == nil {
		k.workspace = workspace.New("")
		if cfg.WorkingDirectory != "" {
			if err := k.workspace.SetDirectory(cfg.WorkingDirectory); err != nil {
				return nil, fmt.Errorf("failed to create workspace: %w", err)
			}
		}
	}

	if k.store == nil {
		dir, _ := k.workspace.Directory()
		store, err := memory.NewStore(context.Background(), &cfg.Memory, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		k.store = store
	}

	if k.streamer == nil {
		k.streamer = agent.NewAnthropicStreamer(&cfg.Agent, k.workspace, agent.WithObserver(k.observer))
	}

	return k, nil
}

// Workspace returns the kernel's workspace.
func (k *Kernel) Workspace() *workspace.Workspace {
	return k.workspace
}

// Store returns the kernel's persistence gateway.
func (k *Kernel) Store() memory.Store {
	return k.store
}

// Streamer returns the agent client requests are dispatched to.
func (k *Kernel) Streamer() agent.Streamer {
	return k.streamer
}

// Observer returns the kernel's observer.
func (k *Kernel) Observer() observability.Observer {
	return k.observer
}

// Close waits for in-flight requests and releases the store.
func (k *Kernel) Close() error {
	k.Wait()
	if closer, ok := k.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Wait blocks until every request sent so far has completed, persistence
// included.
func (k *Kernel) Wait() {
	k.requests.Wait()
}

// Subscribe registers a change listener and returns a function removing it.
func (k *Kernel) Subscribe(l Listener) func() {
	k.listenMu.Lock()
	defer k.listenMu.Unlock()

	id := k.nextID
	k.nextID++
	k.listeners[id] = l

	return func() {
		k.listenMu.Lock()
		defer k.listenMu.Unlock()
		delete(k.listeners, id)
	}
}

// Document returns the active document, or "" when none is selected.
func (k *Kernel) Document() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.document
}

// State returns a snapshot of the active document's state.
func (k *Kernel) State() session.FileChatState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.snapshotLocked()
}

// Loading reports whether any request is still in flight.
func (k *Kernel) Loading() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.inflight > 0
}

// SelectDocument makes doc the active document. The state of the document
// being left is cached. A document seen before is restored from the cache
// without touching the store; a new one loads its most recent session, or
// starts empty when it has none or loading fails. An empty doc clears the
// view. Selecting the active document again is a no-op.
//
// A first load that is overtaken by other operations still completes the
// document's state, live or cached, without undoing what they did.
func (k *Kernel) SelectDocument(ctx context.Context, doc string) session.FileChatState {
	k.mu.Lock()
	if doc == k.document {
		state := k.snapshotLocked()
		k.mu.Unlock()
		return state
	}

	if prev := k.document; prev != "" {
		k.cache.Set(prev, k.snapshotLocked())
	}
	k.generation++
	k.document = doc

	if doc == "" {
		k.resetLocked()
		n := k.changedLocked()
		k.mu.Unlock()

		k.emit(ctx, EventDocumentSelect, observability.LevelInfo, map[string]any{"document": doc})
		k.notify(n)
		return n.state
	}

	if cached, ok := k.cache.Get(doc); ok {
		k.restoreLocked(cached)
		n := k.changedLocked()
		k.mu.Unlock()

		k.emit(ctx, EventCacheHit, observability.LevelVerbose, map[string]any{
			"document": doc,
			"messages": len(n.state.Messages),
		})
		k.notify(n)
		return n.state
	}

	k.resetLocked()
	pending := &pendingLoad{}
	k.loads[doc] = pending
	n := k.changedLocked()
	k.mu.Unlock()
	k.notify(n)

	loaded := k.load(ctx, doc)

	k.mu.Lock()
	if k.loads[doc] == pending {
		delete(k.loads, doc)
	}
	live := k.document == doc
	if live {
		state := k.snapshotLocked()
		pending.merge(&state, loaded)
		k.restoreLocked(state)
		n = k.changedLocked()
	} else {
		// Left while loading: the document's state now lives in the cache.
		k.cache.Update(doc, func(state *session.FileChatState) {
			pending.merge(state, loaded)
		})
	}
	state := k.snapshotLocked()
	k.mu.Unlock()

	k.emit(ctx, EventDocumentSelect, observability.LevelInfo, map[string]any{
		"document": doc,
		"sessions": len(loaded.Sessions),
		"active":   loaded.ActiveSessionID,
		"live":     live,
	})
	if live {
		k.notify(n)
	}
	return state
}

// load reads the session index of doc and the transcript of its most recent
// session. Failures degrade to an empty state.
func (k *Kernel) load(ctx context.Context, doc string) session.FileChatState {
	state := session.EmptyState()

	sessions, err := k.store.List(ctx, doc)
	if err != nil {
		k.emit(ctx, EventLoadFailed, observability.LevelWarning, map[string]any{
			"document": doc,
			"stage":    "list",
			"error":    err.Error(),
		})
		return state
	}
	if len(sessions) == 0 {
		return state
	}

	data, err := k.store.Load(ctx, doc, sessions[0].ID)
	if err != nil {
		k.emit(ctx, EventLoadFailed, observability.LevelWarning, map[string]any{
			"document": doc,
			"stage":    "load",
			"session":  sessions[0].ID,
			"error":    err.Error(),
		})
		return state
	}

	state.Sessions = sessions
	state.ActiveSessionID = sessions[0].ID
	state.Messages = session.LoadMessages(data.Messages)
	return state
}

// SwitchSession loads a stored session of the active document and replaces
// the Message Store with it. It is a no-op when no document is active or id is
// already active.
//
// Unlike a failed load on document selection, which degrades to an empty
// state silently, a failed switch returns the error and keeps the current
// transcript and active session.
func (k *Kernel) SwitchSession(ctx context.Context, id string) error {
	k.mu.Lock()
	doc := k.document
	if doc == "" || id == k.activeID {
		k.mu.Unlock()
		return nil
	}
	k.generation++
	gen := k.generation
	k.mu.Unlock()

	data, err := k.store.Load(ctx, doc, id)
	if err != nil {
		k.emit(ctx, EventLoadFailed, observability.LevelWarning, map[string]any{
			"document": doc,
			"stage":    "switch",
			"session":  id,
			"error":    err.Error(),
		})
		return fmt.Errorf("failed to load session %s: %w", id, err)
	}

	k.mu.Lock()
	if k.generation != gen {
		k.mu.Unlock()
		return nil
	}
	k.activeID = id
	k.transcript.Replace(session.LoadMessages(data.Messages))
	k.overlapLocked(doc, func(p *pendingLoad) { p.transcriptReplaced = true })
	n := k.changedLocked()
	k.mu.Unlock()

	k.emit(ctx, EventSessionSwitch, observability.LevelInfo, map[string]any{
		"document": doc,
		"session":  id,
		"messages": len(n.state.Messages),
	})
	k.notify(n)
	return nil
}

// NewSession clears the active session id and the Message Store. Stored
// sessions are untouched; the next completed exchange creates a new one.
func (k *Kernel) NewSession(ctx context.Context) {
	k.mu.Lock()
	k.generation++
	k.activeID = ""
	k.transcript.Clear()
	doc := k.document
	k.overlapLocked(doc, func(p *pendingLoad) { p.transcriptReplaced = true })
	n := k.changedLocked()
	k.mu.Unlock()

	k.emit(ctx, EventSessionNew, observability.LevelInfo, map[string]any{"document": doc})
	k.notify(n)
}

// DeleteSession removes a stored session of the active document. Deleting the
// active session starts a new one. The session index is refreshed from the
// store.
func (k *Kernel) DeleteSession(ctx context.Context, id string) error {
	doc := k.Document()
	if doc == "" {
		return ErrNoDocument
	}

	if err := k.store.Delete(ctx, doc, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	sessions, listErr := k.store.List(ctx, doc)
	if listErr != nil {
		k.emit(ctx, EventLoadFailed, observability.LevelWarning, map[string]any{
			"document": doc,
			"stage":    "list",
			"error":    listErr.Error(),
		})
	}
	refresh := func(state *session.FileChatState) {
		if listErr == nil {
			state.Sessions = sessions
			return
		}
		state.Sessions = slices.DeleteFunc(state.Sessions, func(m protocol.SessionMeta) bool {
			return m.ID == id
		})
	}

	k.mu.Lock()
	k.overlapLocked(doc, func(p *pendingLoad) {
		p.deleted = append(p.deleted, id)
		if listErr == nil {
			p.indexRefreshed = true
		}
	})
	if k.document != doc {
		k.cache.Update(doc, refresh)
		k.mu.Unlock()
		return nil
	}

	state := k.snapshotLocked()
	refresh(&state)
	k.sessions = state.Sessions
	if k.activeID == id {
		k.generation++
		k.activeID = ""
		k.transcript.Clear()
	}
	n := k.changedLocked()
	k.mu.Unlock()

	k.emit(ctx, EventSessionDelete, observability.LevelInfo, map[string]any{
		"document": doc,
		"session":  id,
	})
	k.notify(n)
	return nil
}

// Request is a streaming exchange started by Send.
type Request struct {
	ID       string // Placeholder turn id.
	Document string // Document the request was issued against.

	done    chan struct{}
	outcome Outcome
}

// Outcome describes how a request ended.
type Outcome struct {
	Result    stream.Result
	Persisted bool
	SessionID string // Session the transcript was saved under, if persisted.
}

// Done is closed once the request has completed, persistence included.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request completes or ctx is done.
func (r *Request) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Send appends a user turn and a streaming placeholder to the active
// transcript and starts the request in the background. Cancelling ctx ends the
// request as a transport failure; switching documents does not.
func (k *Kernel) Send(ctx context.Context, text string) (*Request, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	user := session.NewUserMessage(text)
	placeholder := session.NewPlaceholder()

	k.mu.Lock()
	doc := k.document
	k.transcript.Append(user)
	history := session.History(k.transcript.Messages())
	k.transcript.Append(placeholder)
	k.inflight++
	n := k.changedLocked()
	k.mu.Unlock()

	k.notify(n)

	req := &Request{
		ID:       placeholder.ID,
		Document: doc,
		done:     make(chan struct{}),
	}
	chat := protocol.ChatRequest{
		Message:  text,
		Document: doc,
		History:  history,
	}

	k.requests.Add(1)
	go k.run(ctx, req, chat)
	return req, nil
}

func (k *Kernel) run(ctx context.Context, req *Request, chat protocol.ChatRequest) {
	defer k.requests.Done()
	defer close(req.done)

	k.emit(ctx, EventRequestStart, observability.LevelInfo, map[string]any{
		"request_id": req.ID,
		"document":   req.Document,
		"history":    len(chat.History),
	})

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	target := stream.TargetFunc(func(fn func(msg *session.ChatMessage)) bool {
		return k.updateTurn(req.Document, req.ID, fn)
	})
	asm := stream.NewAssembler(target,
		stream.WithObserver(k.observer),
		stream.WithRequestID(req.ID),
	)

	var result stream.Result
	events, err := k.streamer.StreamChat(streamCtx, chat)
	if err != nil {
		result = asm.Fail(ctx, err)
	} else {
		result = asm.Run(streamCtx, events)
	}
	// Release the producer; nothing reads its events past this point.
	cancel()

	req.outcome = k.complete(context.WithoutCancel(ctx), req, result)
}

// updateTurn routes a mutation of a request's placeholder to the live
// Message Store or to the cache entry of the request's document.
func (k *Kernel) updateTurn(doc, id string, fn func(msg *session.ChatMessage)) bool {
	k.mu.Lock()

	if doc != k.document {
		found := false
		k.cache.Update(doc, func(state *session.FileChatState) {
			for i := range state.Messages {
				if state.Messages[i].ID == id {
					fn(&state.Messages[i])
					found = true
					return
				}
			}
		})
		k.mu.Unlock()
		return found
	}

	if !k.transcript.Update(id, fn) {
		k.mu.Unlock()
		return false
	}
	n := k.changedLocked()
	k.mu.Unlock()

	k.notify(n)
	return true
}

// complete applies the auto-persist policy to a finished request: the
// transcript is saved only when the request's document is still active and
// its placeholder is still part of the live transcript.
func (k *Kernel) complete(ctx context.Context, req *Request, result stream.Result) Outcome {
	outcome := Outcome{Result: result}

	k.emit(ctx, EventRequestComplete, observability.LevelInfo, map[string]any{
		"request_id": req.ID,
		"document":   req.Document,
		"status":     result.Status.String(),
		"events":     result.Events,
	})

	k.persistMu.Lock()
	defer k.persistMu.Unlock()

	k.mu.Lock()
	k.inflight--
	doc := k.document
	messages := k.transcript.Messages()

	reason := ""
	switch {
	case req.Document == "":
		reason = "no document"
	case doc != req.Document:
		reason = "document inactive"
	case !containsTurn(messages, req.ID):
		reason = "transcript replaced"
	}
	if reason != "" {
		k.mu.Unlock()
		k.emit(ctx, EventPersistSkipped, observability.LevelVerbose, map[string]any{
			"request_id": req.ID,
			"document":   req.Document,
			"reason":     reason,
		})
		return outcome
	}

	// A new session id becomes active only once the save has succeeded.
	id := k.activeID
	minted := id == ""
	if minted {
		id = uuid.Must(uuid.NewV7()).String()
	}
	k.mu.Unlock()

	data := protocol.SessionData{
		ID:       id,
		Title:    k.titles.Title(messages),
		Messages: session.StoreMessages(messages),
	}
	if err := k.store.Save(ctx, doc, data); err != nil {
		k.emit(ctx, EventPersistFailed, observability.LevelError, map[string]any{
			"document": doc,
			"session":  id,
			"stage":    "save",
			"error":    err.Error(),
		})
		return outcome
	}
	outcome.Persisted = true
	outcome.SessionID = id

	sessions, listErr := k.store.List(ctx, doc)
	if listErr != nil {
		k.emit(ctx, EventPersistFailed, observability.LevelWarning, map[string]any{
			"document": doc,
			"session":  id,
			"stage":    "index",
			"error":    listErr.Error(),
		})
	}

	// The saved transcript is the one still holding this request's turn.
	apply := func(state *session.FileChatState) {
		if minted && state.ActiveSessionID == "" && containsTurn(state.Messages, req.ID) {
			state.ActiveSessionID = id
		}
		if listErr == nil {
			state.Sessions = sessions
		}
	}

	k.mu.Lock()
	if listErr == nil {
		k.overlapLocked(doc, func(p *pendingLoad) { p.indexRefreshed = true })
	}
	live := k.document == doc
	var n notification
	if live {
		state := k.snapshotLocked()
		apply(&state)
		k.activeID = state.ActiveSessionID
		k.sessions = state.Sessions
		n = k.changedLocked()
	} else {
		k.cache.Update(doc, apply)
	}
	k.mu.Unlock()

	k.emit(ctx, EventPersist, observability.LevelInfo, map[string]any{
		"document": doc,
		"session":  id,
		"title":    data.Title,
		"messages": len(data.Messages),
	})
	if live {
		k.notify(n)
	}
	return outcome
}

func containsTurn(msgs []session.ChatMessage, id string) bool {
	return slices.ContainsFunc(msgs, func(m session.ChatMessage) bool { return m.ID == id })
}

func (k *Kernel) snapshotLocked() session.FileChatState {
	state := session.FileChatState{
		Sessions:        slices.Clone(k.sessions),
		ActiveSessionID: k.activeID,
		Messages:        k.transcript.Messages(),
	}
	if state.Sessions == nil {
		state.Sessions = []protocol.SessionMeta{}
	}
	if state.Messages == nil {
		state.Messages = []session.ChatMessage{}
	}
	return state
}

func (k *Kernel) restoreLocked(state session.FileChatState) {
	k.sessions = slices.Clone(state.Sessions)
	k.activeID = state.ActiveSessionID
	k.transcript.Replace(state.Messages)
}

func (k *Kernel) resetLocked() {
	k.sessions = []protocol.SessionMeta{}
	k.activeID = ""
	k.transcript.Clear()
}

// overlapLocked applies fn to doc's in-flight first load, if any.
func (k *Kernel) overlapLocked(doc string, fn func(p *pendingLoad)) {
	if p, ok := k.loads[doc]; ok {
		fn(p)
	}
}

// changedLocked snapshots the active document for listeners.
func (k *Kernel) changedLocked() notification {
	k.seq++
	return notification{doc: k.document, state: k.snapshotLocked(), seq: k.seq}
}

func (k *Kernel) notify(n notification) {
	k.listenMu.Lock()
	defer k.listenMu.Unlock()

	if n.seq <= k.delivered {
		return
	}
	k.delivered = n.seq
	for _, l := range k.listeners {
		l(n.doc, n.state.Clone())
	}
}

func (k *Kernel) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	k.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "kernel.Kernel",
		Data:      data,
	})
}
