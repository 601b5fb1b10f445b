package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"agentdesk/backend"
	"agentdesk/config"
)

type EngineState int

const (
	StateIdle EngineState = iota
	StateAwaitingResponse
	StateError
)

func (s EngineState) String() string {
	switch s {
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

var (
	ErrBusy           = errors.New("a request is already in flight")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrWrongMode      = errors.New("operation not available in this conversation mode")
	ErrUploadRejected = errors.New("upload rejected")
	ErrClosed         = errors.New("conversation is closed")
)

// RejectionError carries the user-facing reason an upload never left the
// client.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrUploadRejected
}

const (
	pendingThinking   = "Thinking..."
	pendingEvaluating = "Evaluating..."

	failedChat     = "Unable to reach agent. Please try again."
	failedUpload   = "Unable to process file. Please try again."
	failedEvaluate = "Evaluation failed. Please try again."
)

// Transport is the subset of the proxy client a conversation needs.
type Transport interface {
	Chat(ctx context.Context, token, agentID, message string) (string, error)
	Upload(ctx context.Context, token string, upload backend.UploadRequest) (string, error)
}

// TokenSource supplies the bearer token at the moment an exchange begins.
type TokenSource interface {
	Token() string
}

type ExchangeKind int

const (
	KindText ExchangeKind = iota
	KindFile
	KindEvaluate
)

func (k ExchangeKind) pendingText() string {
	if k == KindEvaluate {
		return pendingEvaluating
	}
	return pendingThinking
}

func (k ExchangeKind) failureText() string {
	switch k {
	case KindFile:
		return failedUpload
	case KindEvaluate:
		return failedEvaluate
	default:
		return failedChat
	}
}

// Exchange is one dispatched request. It owns copies of everything it sends,
// so Do may run on any goroutine.
type Exchange struct {
	Kind      ExchangeKind
	PendingID string

	transport Transport
	render    func(string) string
	token     string
	agentID   string
	text      string
	upload    backend.UploadRequest
}

// Result is the completion of an Exchange, fed back through Resolve.
type Result struct {
	Exchange *Exchange
	Reply    string
	Rendered string
	Err      error
}

// Unauthorized reports whether the proxy rejected the token the exchange was
// sent with, returning that token.
func (r Result) Unauthorized() (token string, ok bool) {
	if r.Exchange == nil || !backend.IsUnauthorized(r.Err) {
		return "", false
	}
	return r.Exchange.token, true
}

// Do performs the exchange's single request. It never touches conversation
// state.
func (e *Exchange) Do(ctx context.Context) Result {
	var (
		reply string
		err   error
	)
	switch e.Kind {
	case KindText:
		reply, err = e.transport.Chat(ctx, e.token, e.agentID, e.text)
	default:
		reply, err = e.transport.Upload(ctx, e.token, e.upload)
	}

	res := Result{Exchange: e, Reply: reply, Err: err}
	if err == nil && e.render != nil {
		res.Rendered = e.render(reply)
	}
	return res
}

type Outcome int

const (
	OutcomeStale Outcome = iota
	OutcomeReplied
	OutcomeFailed
	OutcomeSignedOut
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplied:
		return "replied"
	case OutcomeFailed:
		return "failed"
	case OutcomeSignedOut:
		return "signed-out"
	default:
		return "stale"
	}
}

// Controls reports which inputs the conversation view should enable.
type Controls struct {
	Input  bool
	Attach bool
	Send   bool
}

type ConversationOption func(*Conversation)

// WithRenderer sets the formatter applied to agent replies.
func WithRenderer(render func(string) string) ConversationOption {
	return func(c *Conversation) {
		c.render = render
	}
}

// WithAuthFailureHandler sets the escalation called when an exchange is
// rejected with 401.
func WithAuthFailureHandler(fn func()) ConversationOption {
	return func(c *Conversation) {
		c.onAuthFailure = fn
	}
}

// WithStateObserver is notified of every state transition, including the
// transient Error state.
func WithStateObserver(fn func(from, to EngineState)) ConversationOption {
	return func(c *Conversation) {
		c.onState = fn
	}
}

// Conversation is the per-agent state machine. It is created when a
// conversation view is entered and thrown away when the view is left.
type Conversation struct {
	mu sync.Mutex

	agent     Agent
	session   TokenSource
	transport Transport
	strategy  strategy

	messages []Message
	state    EngineState
	inFlight *Exchange
	lastErr  error
	closed   bool

	render        func(string) string
	onAuthFailure func()
	onState       func(from, to EngineState)
}

func NewConversation(agent Agent, session TokenSource, transport Transport, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		agent:     agent,
		session:   session,
		transport: transport,
		strategy:  strategyFor(agent.Mode),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conversation) Agent() Agent {
	return c.agent
}

func (c *Conversation) Mode() Mode {
	return c.strategy.mode()
}

func (c *Conversation) State() EngineState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight != nil
}

// LastError is the failure of the most recent exchange that did not succeed,
// or nil.
func (c *Conversation) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// LastReply returns the most recent agent message.
func (c *Conversation) LastReply() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAgent {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

func (c *Conversation) Controls() Controls {
	c.mu.Lock()
	defer c.mu.Unlock()

	idle := c.inFlight == nil && !c.closed
	chat := c.strategy.mode() == ModeConversational
	return Controls{
		Input:  idle && chat,
		Send:   idle && chat,
		Attach: idle && c.agent.Upload.Enabled,
	}
}

// Close detaches the conversation from its view. Exchanges resolved after
// Close are stale.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.inFlight = nil
}

// BeginText validates text, appends it with a pending placeholder and
// returns the exchange to dispatch.
func (c *Conversation) BeginText(text string) (*Exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkReady(); err != nil {
		return nil, err
	}
	if c.strategy.mode() != ModeConversational {
		return nil, ErrWrongMode
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ex := c.newExchange(KindText)
	ex.text = text
	c.dispatch(ex, newMessage(RoleUser, text))
	return ex, nil
}

// BeginFile runs the upload gate and, when the file is accepted, appends the
// upload summary with a pending placeholder. A rejected file appends a system
// message and returns a *RejectionError.
func (c *Conversation) BeginFile(file File) (*Exchange, error) {
	return c.beginUpload(file, KindFile)
}

// BeginEvaluate is BeginFile for evaluate-only agents. The result replaces
// whatever the previous evaluation produced.
func (c *Conversation) BeginEvaluate(file File) (*Exchange, error) {
	return c.beginUpload(file, KindEvaluate)
}

// BeginUpload picks BeginFile or BeginEvaluate by mode.
func (c *Conversation) BeginUpload(file File) (*Exchange, error) {
	if c.Mode() == ModeEvaluateOnly {
		return c.BeginEvaluate(file)
	}
	return c.BeginFile(file)
}

func (c *Conversation) beginUpload(file File, kind ExchangeKind) (*Exchange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkReady(); err != nil {
		return nil, err
	}
	wantMode := ModeConversational
	if kind == KindEvaluate {
		wantMode = ModeEvaluateOnly
	}
	if c.strategy.mode() != wantMode {
		return nil, ErrWrongMode
	}

	verdict := CheckUpload(c.agent.Upload, file)
	if !verdict.Accepted {
		c.strategy.reject(c, newMessage(RoleSystem, verdict.Reason))
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Conversation] %s rejected for agent %s: %s", file.Name, c.agent.ID, verdict.Reason)
		}
		return nil, &RejectionError{Reason: verdict.Reason}
	}

	ex := c.newExchange(kind)
	ex.upload = backend.UploadRequest{
		AgentID:     c.agent.ID,
		Endpoint:    c.agent.Upload.Endpoint,
		FileName:    file.Name,
		ContentType: file.Type,
		Content:     file.Content,
	}
	c.dispatch(ex, newMessage(RoleUser, "📄 Uploaded: "+file.Name))
	return ex, nil
}

// Resolve applies a completed exchange. The placeholder is always removed;
// exactly one agent or system message is appended unless the proxy answered
// 401, in which case nothing is appended and the auth failure handler runs.
// A stale exchange changes nothing here, but a 401 for the still-current
// token runs the auth failure handler all the same.
func (c *Conversation) Resolve(res Result) Outcome {
	c.mu.Lock()

	if res.Exchange == nil || c.closed || res.Exchange != c.inFlight {
		// The view is gone but a 401 still ends the session it was sent with
		rejected := res.Exchange != nil && backend.IsUnauthorized(res.Err) &&
			res.Exchange.token != "" && res.Exchange.token == c.session.Token()
		escalate := c.onAuthFailure
		c.mu.Unlock()

		if rejected && escalate != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Conversation] agent %s: late 401 after the view closed", c.agent.ID)
			}
			escalate()
			return OutcomeSignedOut
		}
		return OutcomeStale
	}

	ex := res.Exchange
	c.inFlight = nil
	var transitions [][2]EngineState
	var escalate func()
	var outcome Outcome

	switch {
	case res.Err == nil:
		reply := newMessage(RoleAgent, res.Reply)
		reply.Rendered = res.Rendered
		c.strategy.settle(c, ex.PendingID, &reply)
		c.lastErr = nil
		transitions = append(transitions, c.setState(StateIdle))
		outcome = OutcomeReplied

	case backend.IsUnauthorized(res.Err):
		c.strategy.settle(c, ex.PendingID, nil)
		c.lastErr = res.Err
		transitions = append(transitions, c.setState(StateIdle))
		escalate = c.onAuthFailure
		outcome = OutcomeSignedOut

	default:
		notice := newMessage(RoleSystem, ex.Kind.failureText())
		c.strategy.settle(c, ex.PendingID, &notice)
		c.lastErr = fmt.Errorf("%s exchange with %s failed: %w", c.strategy.mode(), c.agent.ID, res.Err)
		transitions = append(transitions, c.setState(StateError), c.setState(StateIdle))
		outcome = OutcomeFailed
	}

	observer := c.onState
	c.mu.Unlock()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Conversation] agent %s exchange resolved: %s (err=%v)", c.agent.ID, outcome, res.Err)
	}
	if observer != nil {
		for _, t := range transitions {
			observer(t[0], t[1])
		}
	}
	if escalate != nil {
		escalate()
	}
	return outcome
}

// SendText is BeginText, Do and Resolve in one blocking call.
func (c *Conversation) SendText(ctx context.Context, text string) (Outcome, error) {
	ex, err := c.BeginText(text)
	if err != nil {
		return OutcomeStale, err
	}
	return c.Resolve(ex.Do(ctx)), nil
}

func (c *Conversation) SendFile(ctx context.Context, file File) (Outcome, error) {
	ex, err := c.BeginFile(file)
	if err != nil {
		return OutcomeStale, err
	}
	return c.Resolve(ex.Do(ctx)), nil
}

func (c *Conversation) Evaluate(ctx context.Context, file File) (Outcome, error) {
	ex, err := c.BeginEvaluate(file)
	if err != nil {
		return OutcomeStale, err
	}
	return c.Resolve(ex.Do(ctx)), nil
}

func (c *Conversation) checkReady() error {
	if c.closed {
		return ErrClosed
	}
	if c.inFlight != nil {
		return ErrBusy
	}
	return nil
}

func (c *Conversation) newExchange(kind ExchangeKind) *Exchange {
	return &Exchange{
		Kind:      kind,
		transport: c.transport,
		render:    c.render,
		token:     c.session.Token(),
		agentID:   c.agent.ID,
	}
}

// dispatch must be called with mu held. The placeholder is the last message
// when it is appended.
func (c *Conversation) dispatch(ex *Exchange, user Message) {
	pending := newMessage(RolePending, ex.Kind.pendingText())
	ex.PendingID = pending.ID
	c.strategy.begin(c, user, pending)
	c.inFlight = ex

	from := c.state
	c.state = StateAwaitingResponse
	if c.onState != nil {
		// observers must not call back into the conversation
		c.onState(from, StateAwaitingResponse)
	}
}

func (c *Conversation) setState(to EngineState) [2]EngineState {
	from := c.state
	c.state = to
	return [2]EngineState{from, to}
}

func (c *Conversation) removeMessage(id string) {
	for i, msg := range c.messages {
		if msg.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}
