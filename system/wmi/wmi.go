package wmi

import (
	"encoding/binary"
	"errors"
)

// Decode errors. Transport failures are returned as-is from the underlying
// Transport; everything below concerns the shape of a successful call.
var (
	// ErrUnexpectedShape indicates the firmware returned a buffer whose
	// length cannot be coerced to an integer (not 4 or 8 bytes)
	ErrUnexpectedShape = errors.New("wmi: unexpected response shape")

	// ErrResponseLength indicates a structured response buffer was shorter
	// than the expected layout. Short buffers are never zero-filled.
	ErrResponseLength = errors.New("wmi: response buffer length mismatch")

	// ErrFirmwareStatus indicates the command round-tripped but the
	// embedded status byte signals failure
	ErrFirmwareStatus = errors.New("wmi: firmware reported failure status")
)

// Channel is the single point of contact with the firmware. It encodes
// request payloads, submits them through the Transport, and decodes the
// polymorphic responses. Higher level controls must never talk to the
// Transport directly.
type Channel struct {
	transport Transport
}

// NewChannel wraps a Transport with the encode/decode rules
func NewChannel(t Transport) (*Channel, error) {
	if t == nil {
		return nil, errors.New("nil Transport is invalid")
	}
	return &Channel{transport: t}, nil
}

func decodeValue(resp Response) (uint64, error) {
	switch resp.Kind {
	case ResponseAbsent:
		// some set methods return nothing at all; treat as value 0 and let
		// callers that need a real answer validate the status sub-field
		return 0, nil
	case ResponseInteger:
		return resp.Integer, nil
	case ResponseBuffer:
		switch len(resp.Buffer) {
		case 4:
			return uint64(binary.LittleEndian.Uint32(resp.Buffer)), nil
		case 8:
			return binary.LittleEndian.Uint64(resp.Buffer), nil
		default:
			return 0, ErrUnexpectedShape
		}
	default:
		return 0, ErrUnexpectedShape
	}
}

// ExecuteU64 submits an 8-byte little-endian integer payload and decodes
// the response into a 64-bit value
func (c *Channel) ExecuteU64(ns Namespace, method Method, in uint64) (uint64, error) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, in)
	resp, err := c.transport.Evaluate(ns, method, payload)
	if err != nil {
		return 0, err
	}
	return decodeValue(resp)
}

// ExecuteBuffer submits a caller-defined fixed-length payload and decodes
// the response into a 64-bit value
func (c *Channel) ExecuteBuffer(ns Namespace, method Method, payload []byte) (uint64, error) {
	resp, err := c.transport.Evaluate(ns, method, payload)
	if err != nil {
		return 0, err
	}
	return decodeValue(resp)
}

// EvaluateBuffer submits a payload and requires a buffer response of exactly
// expect bytes. Used for methods returning fixed-layout structures.
func (c *Channel) EvaluateBuffer(ns Namespace, method Method, payload []byte, expect int) ([]byte, error) {
	resp, err := c.transport.Evaluate(ns, method, payload)
	if err != nil {
		return nil, err
	}
	if resp.Kind != ResponseBuffer || len(resp.Buffer) != expect {
		return nil, ErrResponseLength
	}
	return resp.Buffer, nil
}

// EvaluateBufferMin submits a payload and requires a buffer response of at
// least min bytes. Some firmware revisions append padding to structured
// responses.
func (c *Channel) EvaluateBufferMin(ns Namespace, method Method, payload []byte, min int) ([]byte, error) {
	resp, err := c.transport.Evaluate(ns, method, payload)
	if err != nil {
		return nil, err
	}
	if resp.Kind != ResponseBuffer || len(resp.Buffer) < min {
		return nil, ErrResponseLength
	}
	return resp.Buffer, nil
}

// SetMiscSetting writes one misc setting value on the Gaming block. The
// response status byte must be zero.
func (c *Channel) SetMiscSetting(setting MiscSetting, value uint8) error {
	in := uint64(setting) | uint64(value)<<miscValueShift
	result, err := c.ExecuteU64(Gaming, SetGamingMiscSetting, in)
	if err != nil {
		return err
	}
	if result&statusMask != 0 {
		return ErrFirmwareStatus
	}
	return nil
}

// GetMiscSetting reads one misc setting value from the Gaming block. The
// response packs a status in the low byte (must be zero) and the value in
// the next byte.
func (c *Channel) GetMiscSetting(setting MiscSetting) (uint8, error) {
	result, err := c.ExecuteU64(Gaming, GetGamingMiscSetting, uint64(setting))
	if err != nil {
		return 0, err
	}
	if result&statusMask != 0 {
		return 0, ErrFirmwareStatus
	}
	return uint8(result >> miscValueShift), nil
}

// GetSysInfo runs one sys-info command and returns the full response word
// after validating the status byte
func (c *Channel) GetSysInfo(command uint64) (uint64, error) {
	result, err := c.ExecuteU64(Gaming, GetGamingSysInfo, command)
	if err != nil {
		return 0, err
	}
	if result&statusMask != 0 {
		return 0, ErrFirmwareStatus
	}
	return result, nil
}

// Close releases the underlying transport
func (c *Channel) Close() error {
	return c.transport.Close()
}
