package cpu

// Stack is the downward growing stack at the top of memory. Sp points at
// the most recently pushed word; Sp == len(Memory) is the empty stack.
type Stack struct {
	Memory []Word
	Sp     *Word
}

// Push decrements sp then stores value at the new top.
func (s Stack) Push(value Word) (err error) {
	if s.Full() {
		err = ErrStackFull
		return
	}
	sp := *s.Sp - 1
	if sp >= Word(len(s.Memory)) {
		err = ErrMemoryBounds
		return
	}
	*s.Sp = sp
	s.Memory[sp] = value
	return
}

// Pop loads the top of stack then increments sp.
func (s Stack) Pop() (value Word, err error) {
	value, ok := s.Peek()
	if !ok {
		err = ErrStackEmpty
		return
	}
	*s.Sp += 1
	return
}

// Peek returns the top of stack without popping it.
func (s Stack) Peek() (value Word, ok bool) {
	if s.Empty() {
		return
	}
	return s.Memory[*s.Sp], true
}

// Empty is true when nothing is left to pop.
func (s Stack) Empty() bool {
	return *s.Sp >= Word(len(s.Memory))
}

// Full is true when sp has reached the bottom of memory.
func (s Stack) Full() bool {
	return *s.Sp == 0
}

// Depth is the number of words on the stack.
func (s Stack) Depth() int {
	if s.Empty() {
		return 0
	}
	return len(s.Memory) - int(*s.Sp)
}

// Data is the live stack, top first.
func (s Stack) Data() []Word {
	if s.Empty() {
		return nil
	}
	return s.Memory[*s.Sp:]
}
