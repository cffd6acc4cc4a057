// Package terrain defines the discriminated error kinds shared by the
// heightfield and frame packages.
package terrain

// Kind identifies a class of fallible outcome in the terrain core.
type Kind int

const (
	// BadResolution: heightfield resolution is not 2^k + 1.
	BadResolution Kind = iota
	// IoTruncated: asset file ends before the expected sample count.
	IoTruncated
	// OutOfRange: a coordinate or handle is outside what is valid.
	// The heightfield sampling routines treat it as soft (a zero value
	// or ok=false, no error); frame.Ring returns it as an error from
	// Map and Resolve for a handle that is not live.
	OutOfRange
	// AllocationFailure: the Frame Allocator Interface returned no handle.
	AllocationFailure
)

func (k Kind) String() string {
	switch k {
	case BadResolution:
		return "bad resolution"
	case IoTruncated:
		return "io truncated"
	case OutOfRange:
		return "out of range"
	case AllocationFailure:
		return "allocation failure"
	default:
		return "unknown"
	}
}

// Error is the discriminated result returned by fallible entry points.
type Error struct {
	Kind Kind
	Msg  string
}

func New(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Msg }

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, terrain.New(terrain.BadResolution, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}
