package assert

import "fmt"

// Assert panics with the formatted message when cond is false.
// Only for invariants that a correct caller can never break.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}
	panic("assertion failed: " + fmt.Sprintf(format, args...))
}

func NoError(err error) {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %+v", err))
	}
}
