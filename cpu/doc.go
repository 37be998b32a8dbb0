// Package cpu implements the register machine and assembler for the hexvm system.
//
// The CPU consists of nine 64-bit registers (ax, bx, cx, dx, si, di, sp, bp
// and ip), a set of condition flags, and a flat word addressed memory whose
// top end holds a downward growing stack. Instructions read and write
// registers, memory directly or through a register, and label slots.
//
// The assembler accepts a line oriented assembly language of labels and
// instructions, with compile-time $(...) expression evaluation.
package cpu
