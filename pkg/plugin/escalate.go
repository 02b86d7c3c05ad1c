package plugin

import (
	"runtime"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Escalate is the uniform log-and-propagate step for functions that return
// the unified error type. On a nil err it yields v untouched with no side
// effect. Otherwise it emits exactly one error-severity log line naming the
// calling function, source file and line, and returns the failure converted
// through FromErr; the caller is expected to return that error immediately:
//
//	ln, err := plugin.Escalate(ep.Listen())
//	if err != nil {
//		return err
//	}
func Escalate[T any](v T, err error) (T, error) {
	if err == nil {
		return v, nil
	}
	logEscalation(err)
	var zero T
	return zero, FromErr(err)
}

// EscalateErr is Escalate for call sites that produce no value.
func EscalateErr(err error) error {
	if err == nil {
		return nil
	}
	logEscalation(err)
	return FromErr(err)
}

// EscalateStatus is Escalate for functions whose callers expect a wire-level
// RPC status instead of the unified error type. The failure is logged the
// same way, then converted directly into a status error with code Unknown
// and the debug-rendered failure as the message, bypassing FromErr.
func EscalateStatus[T any](v T, err error) (T, error) {
	if err == nil {
		return v, nil
	}
	logEscalation(err)
	var zero T
	return zero, status.Error(codes.Unknown, debugString(err))
}

// EscalateStatusErr is EscalateStatus for call sites that produce no value.
func EscalateStatusErr(err error) error {
	if err == nil {
		return nil
	}
	logEscalation(err)
	return status.Error(codes.Unknown, debugString(err))
}

// FuncName returns the fully qualified name of the function it is called
// from, for use in diagnostics that need a call-site label.
func FuncName() string {
	return callerFunc(1)
}

// logEscalation emits the single escalation log line. Two frames up is the
// function that invoked the exported helper.
func logEscalation(err error) {
	pc, file, line, ok := runtime.Caller(2)
	name := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			name = fn.Name()
		}
	}
	l := escalationLogger()
	l.Error().Msgf("%s,(%s:%d), %s", name, file, line, debugString(err))
}

func callerFunc(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}
