package completion

// Completions is the candidate set of one successful generation.
// The candidate list never changes after construction.
type Completions struct {
	actionID   string
	candidates []string
	index      int
}

// NewCompletions copies candidates and selects the first one.
func NewCompletions(actionID string, candidates []string) *Completions {
	return &Completions{
		actionID:   actionID,
		candidates: append([]string(nil), candidates...),
	}
}

// ActionID identifies the generation on the backend.
func (c *Completions) ActionID() string { return c.actionID }

// Index is the position of the displayed candidate.
func (c *Completions) Index() int { return c.index }

// Size is the number of candidates.
func (c *Completions) Size() int { return len(c.candidates) }

// Current returns the displayed candidate.
func (c *Completions) Current() string {
	if len(c.candidates) == 0 {
		return ""
	}
	return c.candidates[c.index]
}
