package model

// strategy holds the mode-specific half of a conversation: where optimistic
// entries go and how a resolved exchange lands in history. It is chosen once
// when the conversation is created.
type strategy interface {
	mode() Mode
	// begin records the user entry and the pending placeholder.
	begin(c *Conversation, user, pending Message)
	// settle removes the placeholder with pendingID and appends terminal
	// when it is non-nil.
	settle(c *Conversation, pendingID string, terminal *Message)
	reject(c *Conversation, notice Message)
}

func strategyFor(mode Mode) strategy {
	if mode == ModeEvaluateOnly {
		return evaluateStrategy{}
	}
	return chatStrategy{}
}

// chatStrategy keeps an append-only thread.
type chatStrategy struct{}

func (chatStrategy) mode() Mode { return ModeConversational }

func (chatStrategy) begin(c *Conversation, user, pending Message) {
	c.messages = append(c.messages, user, pending)
}

func (chatStrategy) settle(c *Conversation, pendingID string, terminal *Message) {
	c.removeMessage(pendingID)
	if terminal != nil {
		c.messages = append(c.messages, *terminal)
	}
}

func (chatStrategy) reject(c *Conversation, notice Message) {
	c.messages = append(c.messages, notice)
}

// evaluateStrategy keeps a single result slot: the document being evaluated
// and what came back for it. A new evaluation replaces the previous one.
type evaluateStrategy struct{}

func (evaluateStrategy) mode() Mode { return ModeEvaluateOnly }

func (evaluateStrategy) begin(c *Conversation, user, pending Message) {
	c.messages = []Message{user, pending}
}

func (evaluateStrategy) settle(c *Conversation, pendingID string, terminal *Message) {
	c.removeMessage(pendingID)
	if terminal != nil {
		c.messages = append(c.messages, *terminal)
	}
}

func (evaluateStrategy) reject(c *Conversation, notice Message) {
	c.messages = []Message{notice}
}
