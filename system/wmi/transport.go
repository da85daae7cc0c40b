package wmi

// Namespace selects which method block of the firmware's WMI interface a
// command is evaluated against. The values index the bridge driver's GUID
// table (see reference.go).
type Namespace uint32

// The three method blocks the firmware exposes
const (
	ApgeAction Namespace = iota // simple get/set function toggles
	Gaming                      // gaming/lighting/thermal command set
	Battery                     // battery health control
)

func (n Namespace) String() string {
	return [...]string{"ApgeAction", "Gaming", "Battery"}[n]
}

// Method identifies one firmware method within a Namespace
type Method uint32

// ResponseKind tags the shape of the object the firmware returned
type ResponseKind int

// Possible response shapes
const (
	ResponseAbsent ResponseKind = iota
	ResponseInteger
	ResponseBuffer
)

// Response is the raw evaluation result before any decoding. Buffer is only
// valid when Kind is ResponseBuffer, Integer only when Kind is
// ResponseInteger.
type Response struct {
	Kind    ResponseKind
	Integer uint64
	Buffer  []byte
}

// Transport submits one raw command to the firmware and returns the
// undecoded response. Implementations must not interpret the payload.
type Transport interface {
	Evaluate(ns Namespace, method Method, payload []byte) (Response, error)
	Close() error
}

// TransportFunc adapts a function to the Transport interface. Used by the
// dry-run transport and extensively by tests.
type TransportFunc func(ns Namespace, method Method, payload []byte) (Response, error)

// Evaluate satisfies Transport
func (f TransportFunc) Evaluate(ns Namespace, method Method, payload []byte) (Response, error) {
	return f(ns, method, payload)
}

// Close satisfies Transport
func (f TransportFunc) Close() error {
	return nil
}
