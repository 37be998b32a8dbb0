package cpu

import (
	"strings"
)

// Sum of all multiples of 3 or 5 below 1000, left in dx and ax.
var programSumMultiples = []string{
	"mov ax, 0",
	"mov cx, 0",
	"mov dx, 0",
	"loop:",
	"mov ax, cx",
	"mod 3",
	"je to_add",
	"mov ax, cx",
	"mod 5",
	"je to_add",
	"to_inc:",
	"inc cx",
	"cmp cx, 1000",
	"jl loop",
	"jmp end",
	"to_add:",
	"add dx, cx",
	"jmp to_inc",
	"end:",
	"mov ax, dx",
}

// Sum of the even Fibonacci terms below four million, left in dx and ax.
var programEvenFibonacci = []string{
	"mov dx, 2",
	"push 1",
	"push 2",
	"loop:",
	"pop cx",
	"pop bx",
	"mov ax, 0",
	"add ax, cx",
	"add ax, bx",
	"push cx",
	"push ax",
	"push ax",
	"mod 2",
	"cmp ax, 0",
	"pop ax",
	"je be",
	"check:",
	"cmp ax, 4000000",
	"jl loop",
	"jmp end",
	"be:",
	"add dx, ax",
	"jmp check",
	"end:",
	"mov ax, dx",
}

// Largest prime factor of 600851475143, left in cx.
var programPrimeFactor = []string{
	"mov cx, 600851475143",
	"mov bx, 2",
	"loop:",
	"mov ax, bx",
	"mul ax",
	"cmp ax, cx",
	"jge end",
	"mov ax, cx",
	"mod bx",
	"cmp ax, 0",
	"jne be",
	"mov ax, cx",
	"div bx",
	"mov cx, ax",
	"jne loop",
	"be:",
	"inc bx",
	"jmp loop",
	"end:",
}

// Largest palindrome made from the product of two 3-digit numbers, left in di.
var programPalindrome = []string{
	"start:",
	"mov di, 0",
	"mov bx, 1000",
	"outer:",
	"mov cx, bx",
	"dec bx",
	"cmp bx, 0",
	"je end",
	"inner:",
	"dec cx",
	"cmp cx, 0",
	"je outer",
	"do_check:",
	"mov ax, cx",
	"mul bx",
	"mov si, ax",
	"push bx",
	"push cx",
	"mov bx, 0",
	"check_loop:",
	"mov cx, ax",
	"mod 10",
	"mov dx, ax",
	"mov ax, bx",
	"mul 10",
	"add ax, dx",
	"mov bx, ax",
	"mov ax, cx",
	"div 10",
	"cmp ax, 0",
	"jg check_loop",
	"greater:",
	"cmp bx, si",
	"jne check_end",
	"cmp si, di",
	"jl check_end",
	"mov di, si",
	"check_end:",
	"pop cx",
	"pop bx",
	"jmp inner",
	"end:",
}

func source(lines []string) string {
	return strings.Join(lines, "\n")
}
