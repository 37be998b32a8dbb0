package cpu

const (
	MEM_SIZE   = 0xEEEE // Default memory capacity, in words.
	WORD_BYTES = 8      // Bytes packed per word by str and print.
	WORD_BITS  = WORD_BYTES * 8
)

// load reads memory at index.
func (cpu *Cpu) load(index Word) (value Word, err error) {
	if index >= Word(len(cpu.Memory)) {
		err = ErrMemoryBounds
		return
	}
	value = cpu.Memory[index]
	return
}

// store writes memory at index.
func (cpu *Cpu) store(index Word, value Word) (err error) {
	if index >= Word(len(cpu.Memory)) {
		err = ErrMemoryBounds
		return
	}
	cpu.Memory[index] = value
	return
}
