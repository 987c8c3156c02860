package scheduler

import "encoding/binary"

// choicePoint is one node of the exhaustive search tree: the set of
// options available (threads or rand values, already tie-break sorted) and
// which one this run of the tree took.
type choicePoint struct {
	options []int
	tried   int
}

// FullSearch is the exhaustive fair scheduler (spec.md §4.G): a DFS over
// the full interleaving space with backtracking, lexicographic tie-breaking
// on thread id then rand value, and a fairness cap limiting how many
// consecutive steps one thread may take so no single path can starve the
// search by always re-picking the same thread.
type FullSearch struct {
	threads     int
	fairnessCap int

	stack []choicePoint
	pos   int

	current     int
	lastThread  int
	consecutive int
}

// NewFullSearch returns a fresh exhaustive scheduler for the given thread
// count. fairnessCap is the maximum number of consecutive scheduling
// decisions that may pick the same thread when an alternative exists; 0
// disables the cap.
func NewFullSearch(threads, fairnessCap int) *FullSearch {
	return &FullSearch{
		threads:     threads,
		fairnessCap: fairnessCap,
		lastThread:  -1,
	}
}

func (s *FullSearch) IterationBegin(iter int) int {
	s.pos = 0
	s.lastThread = -1
	s.consecutive = 0
	all := make([]int, s.threads)
	for i := range all {
		all[i] = i
	}
	return s.Schedule(all, -1, ReasonSched)
}

func (s *FullSearch) Schedule(runnable []int, yieldHint int, reason Reason) int {
	options := sortedCopy(runnable)
	if s.fairnessCap > 0 && s.consecutive >= s.fairnessCap && len(options) > 1 {
		options = filterOut(options, s.lastThread)
	}
	chosen := s.nextChoice(options)
	s.current = chosen
	if chosen == s.lastThread {
		s.consecutive++
	} else {
		s.lastThread = chosen
		s.consecutive = 1
	}
	return chosen
}

func (s *FullSearch) Rand(limit int, purpose string) int {
	if limit <= 0 {
		return 0
	}
	opts := make([]int, limit)
	for i := range opts {
		opts[i] = i
	}
	return s.nextChoice(opts)
}

// nextChoice is the shared DFS primitive: during replay of an
// already-decided prefix it returns the recorded choice; once past the
// recorded prefix it opens a new choice point starting at option 0.
func (s *FullSearch) nextChoice(options []int) int {
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

func (s *FullSearch) ParkCurrent(timed, allowSpurious bool, otherRunnable int) bool {
	return otherRunnable > 0
}

func (s *FullSearch) Unpark(thread int, doSwitch bool) {}

func (s *FullSearch) ThreadFinished(remainingRunnable, remainingBlocked int) FinishKind {
	switch {
	case remainingRunnable == 0 && remainingBlocked == 0:
		return FinishLast
	case remainingRunnable == 0 && remainingBlocked > 0:
		return FinishDeadlock
	default:
		return FinishNormal
	}
}

// IterationEnd backtracks the search tree: the innermost choice point with
// an untried option advances to it and every choice point nested inside it
// is discarded (it belongs to the branch just finished). Returns true once
// every choice point has been fully tried — the tree is exhausted.
func (s *FullSearch) IterationEnd() bool {
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

func (s *FullSearch) GetState() State {
	return State{Iteration: 0, Blob: encodeStack(s.stack)}
}

func (s *FullSearch) SetState(st State) {
	s.stack = decodeStack(st.Blob)
	s.pos = 0
	s.lastThread = -1
	s.consecutive = 0
}

func filterOut(options []int, exclude int) []int {
	out := make([]int, 0, len(options))
	for _, o := range options {
		if o != exclude {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return options
	}
	return out
}

// encodeStack serializes the choice-point stack into the scheduler-specific
// blob half of spec.md §6's state format: a count followed by, per choice
// point, its tried index and option list length and values.
func encodeStack(stack []choicePoint) []byte {
	buf := make([]byte, 0, 8+len(stack)*16)
	buf = appendUvarint(buf, uint64(len(stack)))
	for _, cp := range stack {
		buf = appendUvarint(buf, uint64(cp.tried))
		buf = appendUvarint(buf, uint64(len(cp.options)))
		for _, o := range cp.options {
			buf = appendUvarint(buf, uint64(o))
		}
	}
	return buf
}

func decodeStack(blob []byte) []choicePoint {
	if len(blob) == 0 {
		return nil
	}
	r := blob
	n, r := readUvarint(r)
	stack := make([]choicePoint, 0, n)
	for i := uint64(0); i < n; i++ {
		var tried, numOpts uint64
		tried, r = readUvarint(r)
		numOpts, r = readUvarint(r)
		opts := make([]int, numOpts)
		for j := range opts {
			var v uint64
			v, r = readUvarint(r)
			opts[j] = int(v)
		}
		stack = append(stack, choicePoint{options: opts, tried: int(tried)})
	}
	return stack
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, []byte) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, nil
	}
	return v, buf[n:]
}
