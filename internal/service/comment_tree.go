package service

// NodeState is the reply-loading state of a comment node:
// collapsed -> loading -> loaded, and loaded <-> collapsed once replies are fetched.
type NodeState string

const (
	NodeCollapsed NodeState = "collapsed"
	NodeLoading   NodeState = "loading"
	NodeLoaded    NodeState = "loaded"
)

// Expand is the user asking to see replies. Replies already fetched show at once.
func (s NodeState) Expand(fetched bool) NodeState {
	if s != NodeCollapsed {
		return s
	}
	if fetched {
		return NodeLoaded
	}
	return NodeLoading
}

// Loaded marks an in-flight reply fetch as finished.
func (s NodeState) Loaded() NodeState {
	if s == NodeLoading {
		return NodeLoaded
	}
	return s
}

// Collapse hides loaded replies.
func (s NodeState) Collapse() NodeState {
	if s == NodeLoaded {
		return NodeCollapsed
	}
	return s
}

// ComposerState is the state of the inline reply box under a comment.
type ComposerState string

const (
	ComposerHidden    ComposerState = "hidden"
	ComposerComposing ComposerState = "composing"
)

// ReplyComposer tracks the reply box of one comment and whether its replies are shown.
type ReplyComposer struct {
	State           ComposerState `json:"state"`
	RepliesExpanded bool          `json:"replies_expanded"`
}

// NewReplyComposer returns a hidden composer.
func NewReplyComposer() ReplyComposer {
	return ReplyComposer{State: ComposerHidden}
}

// Open shows the reply box.
func (c ReplyComposer) Open() ReplyComposer {
	c.State = ComposerComposing
	return c
}

// Cancel hides the reply box without posting.
func (c ReplyComposer) Cancel() ReplyComposer {
	c.State = ComposerHidden
	return c
}

// Submitted hides the box after a successful reply and expands the parent's replies
// so the new one is visible.
func (c ReplyComposer) Submitted() ReplyComposer {
	if c.State != ComposerComposing {
		return c
	}
	c.State = ComposerHidden
	c.RepliesExpanded = true
	return c
}
