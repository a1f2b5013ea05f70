package vm

// Default limits, overridable through options.
const (
	DefaultStackLimit        = 1024
	DefaultCallDepth         = 256
	DefaultInstructionBudget = 1_000_000
)

// Stack is the bounded operand stack.
type Stack struct {
	values []Value
	limit  int
}

// NewStack creates an operand stack holding at most limit values.
// A non-positive limit selects DefaultStackLimit.
func NewStack(limit int) *Stack {
	if limit <= 0 {
		limit = DefaultStackLimit
	}
	return &Stack{values: make([]Value, 0, 32), limit: limit}
}

// Push adds v to the top of the stack.
func (s *Stack) Push(v Value) error {
	if len(s.values) >= s.limit {
		return NewStackOverflowError(s.limit)
	}
	s.values = append(s.values, v)
	return nil
}

// Pop removes and returns the top value.
func (s *Stack) Pop() (Value, error) {
	n := len(s.values)
	if n == 0 {
		return None, NewStackUnderflowError()
	}
	v := s.values[n-1]
	s.values[n-1] = Value{}
	s.values = s.values[:n-1]
	return v, nil
}

// Top returns a pointer to the top value so handlers can rewrite it in place.
func (s *Stack) Top() (*Value, error) {
	n := len(s.values)
	if n == 0 {
		return nil, NewStackUnderflowError()
	}
	return &s.values[n-1], nil
}

// Len returns the number of values on the stack.
func (s *Stack) Len() int {
	return len(s.values)
}

// Truncate drops everything above depth n.
func (s *Stack) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	for i := n; i < len(s.values); i++ {
		s.values[i] = Value{}
	}
	if n < len(s.values) {
		s.values = s.values[:n]
	}
}

// Values returns a copy of the stack contents, bottom first.
func (s *Stack) Values() []Value {
	out := make([]Value, len(s.values))
	copy(out, s.values)
	return out
}

// Frame is one procedure activation.
type Frame struct {
	ReturnAddress int
	Procedure     int     // index into Program.Procedures
	Base          int     // operand depth after the arguments were popped
	Locals        []Value // arguments first, then declared locals
}

// CallStack is the bounded stack of procedure activations.
type CallStack struct {
	frames []Frame
	limit  int
}

// NewCallStack creates a call stack holding at most limit frames.
// A non-positive limit selects DefaultCallDepth.
func NewCallStack(limit int) *CallStack {
	if limit <= 0 {
		limit = DefaultCallDepth
	}
	return &CallStack{frames: make([]Frame, 0, 8), limit: limit}
}

// PushFrame adds an activation.
func (c *CallStack) PushFrame(f Frame) error {
	if len(c.frames) >= c.limit {
		return NewCallStackOverflowError(c.limit)
	}
	c.frames = append(c.frames, f)
	return nil
}

// PopFrame removes the current activation and returns it.
func (c *CallStack) PopFrame() (Frame, error) {
	n := len(c.frames)
	if n == 0 {
		return Frame{}, NewCallStackUnderflowError()
	}
	f := c.frames[n-1]
	c.frames[n-1] = Frame{}
	c.frames = c.frames[:n-1]
	return f, nil
}

// Current returns the innermost activation, or nil outside any procedure.
func (c *CallStack) Current() *Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return &c.frames[len(c.frames)-1]
}

// Depth returns the number of activations.
func (c *CallStack) Depth() int {
	return len(c.frames)
}

// Truncate drops every activation above depth n.
func (c *CallStack) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	for i := n; i < len(c.frames); i++ {
		c.frames[i] = Frame{}
	}
	if n < len(c.frames) {
		c.frames = c.frames[:n]
	}
}
