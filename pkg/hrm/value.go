package hrm

import (
	"errors"
	"fmt"
)

// ErrArithmetic is returned when Add or Sub is applied to operands whose
// types the machine cannot combine.
var ErrArithmetic = errors.New("type error")

// Kind distinguishes the two variants of Value.
type Kind uint8

const (
	KindInt Kind = iota
	KindLetter
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindLetter:
		return "letter"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is what a memory cell or the register holds: an integer or a letter.
// Values are comparable and can key a map.
type Value struct {
	kind   Kind
	n      int
	letter rune
}

// Int returns an integer value.
func Int(n int) Value { return Value{kind: KindInt, n: n} }

// Letter returns a letter value.
func Letter(c rune) Value { return Value{kind: KindLetter, letter: c} }

// Ints is shorthand for a slice of integer values.
func Ints(ns ...int) []Value {
	out := make([]Value, len(ns))
	for i, n := range ns {
		out[i] = Int(n)
	}
	return out
}

// Letters converts every rune of s into a letter value.
func Letters(s string) []Value {
	out := make([]Value, 0, len(s))
	for _, c := range s {
		out = append(out, Letter(c))
	}
	return out
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsInt() bool    { return v.kind == KindInt }
func (v Value) IsLetter() bool { return v.kind == KindLetter }

// AsInt returns the integer payload; ok is false for letters.
func (v Value) AsInt() (n int, ok bool) {
	return v.n, v.kind == KindInt
}

// AsLetter returns the letter payload; ok is false for integers.
func (v Value) AsLetter() (c rune, ok bool) {
	return v.letter, v.kind == KindLetter
}

// Equal reports whether v and other hold the same kind and payload.
func (v Value) Equal(other Value) bool { return v == other }

func (v Value) String() string {
	if v.kind == KindLetter {
		return string(v.letter)
	}
	return fmt.Sprintf("%d", v.n)
}

// Add computes v + other. Only int + int is defined.
func (v Value) Add(other Value) (Value, error) {
	if v.kind == KindLetter {
		return Value{}, fmt.Errorf("%w: can't add to a letter (%s + %s)", ErrArithmetic, v, other)
	}
	if other.kind == KindLetter {
		return Value{}, fmt.Errorf("%w: can't add a letter to an int (%s + %s)", ErrArithmetic, v, other)
	}
	return Int(v.n + other.n), nil
}

// Sub computes v - other. Int - int yields an int; letter - letter yields
// the distance between the two letters as an int.
func (v Value) Sub(other Value) (Value, error) {
	switch {
	case v.kind == KindInt && other.kind == KindInt:
		return Int(v.n - other.n), nil
	case v.kind == KindLetter && other.kind == KindLetter:
		return Int(int(v.letter - other.letter)), nil
	case v.kind == KindInt:
		return Value{}, fmt.Errorf("%w: can't subtract a letter from an int (%s - %s)", ErrArithmetic, v, other)
	default:
		return Value{}, fmt.Errorf("%w: can't subtract an int from a letter (%s - %s)", ErrArithmetic, v, other)
	}
}
