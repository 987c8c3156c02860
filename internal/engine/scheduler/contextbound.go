package scheduler

// ContextBound is the context-bound exhaustive scheduler (spec.md §4.G):
// like FullSearch, it walks the interleaving tree with backtracking, but
// once the iteration has spent its budget of K voluntary preemptions, it
// forces the current thread to keep running until it blocks or finishes.
// Switches forced by the current thread no longer being runnable (it
// blocked or finished) are not preemptions and never consume the budget.
type ContextBound struct {
	threads int
	k       int

	stack []choicePoint
	pos   int

	current      int
	switchesUsed int
}

// NewContextBound returns a context-bound scheduler allowing at most k
// voluntary preemptions per iteration.
func NewContextBound(threads, k int) *ContextBound {
	return &ContextBound{threads: threads, k: k, current: -1}
}

func (s *ContextBound) IterationBegin(iter int) int {
	s.pos = 0
	s.current = -1
	s.switchesUsed = 0
	all := make([]int, s.threads)
	for i := range all {
		all[i] = i
	}
	return s.Schedule(all, -1, ReasonSched)
}

func (s *ContextBound) Schedule(runnable []int, yieldHint int, reason Reason) int {
	options := sortedCopy(runnable)
	wasRunnable := contains(runnable, s.current)
	if s.switchesUsed >= s.k && wasRunnable {
		options = []int{s.current}
	}
	chosen := s.nextChoice(options)
	if chosen != s.current && wasRunnable {
		s.switchesUsed++
	}
	s.current = chosen
	return chosen
}

func (s *ContextBound) Rand(limit int, purpose string) int {
	if limit <= 0 {
		return 0
	}
	opts := make([]int, limit)
	for i := range opts {
		opts[i] = i
	}
	return s.nextChoice(opts)
}

func (s *ContextBound) nextChoice(options []int) int {
	if s.pos < len(s.stack) {
		cp := &s.stack[s.pos]
		s.pos++
		return cp.options[cp.tried]
	}
	cp := choicePoint{options: options, tried: 0}
	s.stack = append(s.stack, cp)
	s.pos++
	return cp.options[0]
}

func (s *ContextBound) ParkCurrent(timed, allowSpurious bool, otherRunnable int) bool {
	return otherRunnable > 0
}

func (s *ContextBound) Unpark(thread int, doSwitch bool) {}

func (s *ContextBound) ThreadFinished(remainingRunnable, remainingBlocked int) FinishKind {
	switch {
	case remainingRunnable == 0 && remainingBlocked == 0:
		return FinishLast
	case remainingRunnable == 0 && remainingBlocked > 0:
		return FinishDeadlock
	default:
		return FinishNormal
	}
}

func (s *ContextBound) IterationEnd() bool {
	for len(s.stack) > 0 {
		last := &s.stack[len(s.stack)-1]
		if last.tried+1 < len(last.options) {
			last.tried++
			return false
		}
		s.stack = s.stack[:len(s.stack)-1]
	}
	return true
}

func (s *ContextBound) GetState() State {
	return State{Iteration: 0, Blob: encodeStack(s.stack)}
}

func (s *ContextBound) SetState(st State) {
	s.stack = decodeStack(st.Blob)
	s.pos = 0
	s.current = -1
	s.switchesUsed = 0
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
