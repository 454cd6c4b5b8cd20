package errors

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// stackTracer is implemented by errors created with github.com/pkg/errors
// that carry the call stack of their creation point.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the stacktrace attached to the deepest layer of the
// given error, or nil when no layer carries one.
func stackTrace(err error) errors.StackTrace {
	for {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return nil
		}
	}
}

// Format implements fmt.Formatter so that %+v prints the creation
// stacktrace followed by the full message chain, while %v and %s print only
// the message chain.
func (e *wrappedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			if st := stackTrace(e); st != nil {
				fmt.Fprintf(s, "%+v\n", st)
			}
			io.WriteString(s, e.Error())
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
