package emulator

import (
	"errors"

	"github.com/ezrec/hexvm/translate"
)

var f = translate.From

var (
	ErrTickLimit = errors.New(f("tick limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Label  string
	Err    error
}

func (err *ErrRuntime) Error() string {
	if len(err.Label) != 0 {
		return f("line %d <%v> %v", err.LineNo, err.Label, err.Err)
	}
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
