// Package plugin defines the unified error representation for the plugin
// runtime and the escalation helpers that log a failure at its origin and
// propagate it in the form the caller expects.
package plugin

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies one of the closed set of failure domains a plugin process
// can produce. There is no catch-all beyond KindGeneric, which exists solely
// for ad hoc string failures that map to no structured cause.
type Kind int

const (
	// KindNoPortAvailable means no TCP port in the configured range could be
	// bound for the plugin's gRPC server.
	KindNoPortAvailable Kind = iota
	// KindHandshakeMagicCookieMismatch means the host's magic cookie value
	// did not match the expected constant: the process was not launched as a
	// plugin child.
	KindHandshakeMagicCookieMismatch
	// KindServiceIDNotFound means a lookup for a brokered service by numeric
	// ID timed out without finding it.
	KindServiceIDNotFound
	// KindIO wraps a platform I/O failure.
	KindIO
	// KindGeneric carries a free-form failure message.
	KindGeneric
	// KindTransportSetup wraps a gRPC transport setup failure.
	KindTransportSetup
	// KindAddressParse wraps a network address parse failure.
	KindAddressParse
	// KindChannelSend means a send on an internal service channel failed.
	// Only the element type's name is retained.
	KindChannelSend
	// KindInvalidURI wraps a URI parse failure.
	KindInvalidURI
	// KindUnknownEndpointType means an endpoint descriptor named a transport
	// kind the runtime does not recognize.
	KindUnknownEndpointType
)

func (k Kind) String() string {
	switch k {
	case KindNoPortAvailable:
		return "NoPortAvailable"
	case KindHandshakeMagicCookieMismatch:
		return "HandshakeMagicCookieMismatch"
	case KindServiceIDNotFound:
		return "ServiceIDNotFound"
	case KindIO:
		return "IO"
	case KindGeneric:
		return "Generic"
	case KindTransportSetup:
		return "TransportSetup"
	case KindAddressParse:
		return "AddressParse"
	case KindChannelSend:
		return "ChannelSend"
	case KindInvalidURI:
		return "InvalidURI"
	case KindUnknownEndpointType:
		return "UnknownEndpointType"
	default:
		return "Unknown"
	}
}

// Error is the unified failure representation for the plugin runtime. Every
// failure surfaced by the runtime, whether produced here or converted from a
// dependent library, is one of the kinds above. Constructing or converting
// an Error never logs; logging belongs to the escalation helpers.
type Error struct {
	kind      Kind
	serviceID uint32
	msg       string
	cause     error
}

// NoPortAvailable reports that the configured port range is exhausted.
func NoPortAvailable() *Error {
	return &Error{kind: KindNoPortAvailable}
}

// HandshakeMagicCookieMismatch reports a failed magic cookie validation.
func HandshakeMagicCookieMismatch() *Error {
	return &Error{kind: KindHandshakeMagicCookieMismatch}
}

// ServiceIDNotFound reports that a brokered service lookup timed out.
func ServiceIDNotFound(id uint32) *Error {
	return &Error{kind: KindServiceIDNotFound, serviceID: id}
}

// IO wraps a platform I/O failure.
func IO(err error) *Error {
	return &Error{kind: KindIO, cause: err}
}

// Generic wraps a free-form message not otherwise categorized.
func Generic(msg string) *Error {
	return &Error{kind: KindGeneric, msg: msg}
}

// Genericf is Generic with formatting.
func Genericf(format string, args ...any) *Error {
	return &Error{kind: KindGeneric, msg: fmt.Sprintf(format, args...)}
}

// TransportSetup wraps a gRPC transport setup failure.
func TransportSetup(err error) *Error {
	return &Error{kind: KindTransportSetup, cause: err}
}

// AddressParse wraps a network address parse failure.
func AddressParse(err error) *Error {
	return &Error{kind: KindAddressParse, cause: err}
}

// ChannelSend reports a failed send of a T on an internal service channel.
// The unsendable value itself is dropped; only T's name survives for
// diagnostics.
func ChannelSend[T any]() *Error {
	name := reflect.TypeOf((*T)(nil)).Elem().String()
	return &Error{kind: KindChannelSend, msg: fmt.Sprintf("unable to send %s on a mpsc channel", name)}
}

// InvalidURI wraps a URI parse failure.
func InvalidURI(err error) *Error {
	return &Error{kind: KindInvalidURI, cause: err}
}

// UnknownEndpointType reports an unrecognized endpoint transport kind.
func UnknownEndpointType(network string) *Error {
	return &Error{kind: KindUnknownEndpointType, msg: network}
}

// Kind returns the failure domain of e.
func (e *Error) Kind() Kind { return e.kind }

// ServiceID returns the service identifier carried by a
// KindServiceIDNotFound error, zero otherwise.
func (e *Error) ServiceID() uint32 { return e.serviceID }

// Unwrap exposes the wrapped external failure for errors.Is and errors.As.
// Returns nil for kinds that carry no cause.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	switch e.kind {
	case KindNoPortAvailable:
		return "No ports were available to bind the plugin's gRPC server to."
	case KindHandshakeMagicCookieMismatch:
		return "This executable is meant to be run as a plugin of a host process. Do not run it directly. The magic cookie handshake failed."
	case KindServiceIDNotFound:
		return fmt.Sprintf("The requested ServiceId %d does not exist and timed out waiting for it.", e.serviceID)
	case KindIO:
		return fmt.Sprintf("Error with IO: %v", e.cause)
	case KindGeneric:
		return e.msg
	case KindTransportSetup:
		return fmt.Sprintf("Error with gRPC transport: %v", e.cause)
	case KindAddressParse:
		return fmt.Sprintf("Error parsing string into a network address: %v", e.cause)
	case KindChannelSend:
		return fmt.Sprintf("Error sending on a mpsc channel: %s", e.msg)
	case KindInvalidURI:
		return fmt.Sprintf("Invalid Uri: %v", e.cause)
	case KindUnknownEndpointType:
		return fmt.Sprintf("Service endpoint type unknown: %s", e.msg)
	default:
		return "unknown plugin error"
	}
}

// Debug renders e in variant form, e.g. "ServiceIDNotFound(42)". This is the
// representation carried in escalation log lines and RPC statuses.
func (e *Error) Debug() string {
	switch e.kind {
	case KindNoPortAvailable, KindHandshakeMagicCookieMismatch:
		return e.kind.String()
	case KindServiceIDNotFound:
		return fmt.Sprintf("%s(%d)", e.kind, e.serviceID)
	case KindIO, KindTransportSetup, KindAddressParse, KindInvalidURI:
		return fmt.Sprintf("%s(%v)", e.kind, e.cause)
	default:
		return fmt.Sprintf("%s(%q)", e.kind, e.msg)
	}
}

// GRPCStatus converts e into the wire-level representation: code Unknown
// with the debug-rendered error as the message. The conversion is one-way;
// no structured kind survives it. status.FromError recognizes this method,
// so returning an *Error from a gRPC handler yields this status.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(codes.Unknown, e.Debug())
}

// FromErr converts an arbitrary failure into the unified representation. The
// mapping is total and deterministic: errors whose concrete type identifies
// an external failure domain land in that domain's kind, an *Error passes
// through unchanged, and everything else becomes Generic. Channel-send and
// transport-setup failures carry no distinguishing Go type and are converted
// at their producing call sites instead.
func FromErr(err error) *Error {
	switch e := err.(type) {
	case nil:
		return nil
	case *Error:
		return e
	case *url.Error:
		return InvalidURI(e)
	case *net.AddrError, *net.ParseError:
		return AddressParse(err)
	case *net.OpError, *os.PathError, *os.SyscallError, *os.LinkError:
		return IO(err)
	default:
		return Generic(err.Error())
	}
}

// debugString renders any failure the way escalation log lines and statuses
// expect: variant form for an *Error, the plain error text otherwise.
func debugString(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Debug()
	}
	return fmt.Sprintf("%v", err)
}
