package wmi

import (
	"encoding/binary"
	"fmt"

	"github.com/avakist/PHN16Manager/system/device"
)

const devicePath = `\\.\AcerWmiBridge`
const controlCode = uint32(2160644)

// The bridge driver expects a framed request:
//   [0:4]  GUID block index (Namespace)
//   [4:8]  method ID
//   [8:12] payload length in bytes
//   [12:]  payload
// and answers with a framed response:
//   [0:4]  object type (0 = absent, 1 = integer, 2 = buffer)
//   [4:8]  data length in bytes
//   [8:]   data (8-byte little-endian for integers)
const (
	requestHeaderLength  = 12
	responseHeaderLength = 8
)

const (
	objectTypeAbsent  = 0
	objectTypeInteger = 1
	objectTypeBuffer  = 2
)

type deviceTransport struct {
	dev *device.Control
}

var _ Transport = &deviceTransport{}

// NewTransport opens the ACPI-WMI bridge device and returns a Transport
// submitting commands through it
func NewTransport(dryRun bool) (Transport, error) {
	dev, err := device.NewControl(device.Config{
		DryRun:      dryRun,
		Path:        devicePath,
		ControlCode: controlCode,
	})
	if err != nil {
		return nil, err
	}
	return &deviceTransport{dev: dev}, nil
}

func (t *deviceTransport) Evaluate(ns Namespace, method Method, payload []byte) (Response, error) {
	buf := make([]byte, requestHeaderLength+len(payload))
	binary.LittleEndian.PutUint32(buf[0:], uint32(ns))
	binary.LittleEndian.PutUint32(buf[4:], uint32(method))
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(payload)))
	copy(buf[requestHeaderLength:], payload)

	out, err := t.dev.Execute(buf, 1024)
	if err != nil {
		return Response{}, err
	}
	if len(out) < responseHeaderLength {
		return Response{}, ErrUnexpectedShape
	}

	kind := binary.LittleEndian.Uint32(out[0:4])
	length := int(binary.LittleEndian.Uint32(out[4:8]))

	switch kind {
	case objectTypeAbsent:
		return Response{Kind: ResponseAbsent}, nil
	case objectTypeInteger:
		if len(out) < responseHeaderLength+8 {
			return Response{}, ErrUnexpectedShape
		}
		return Response{
			Kind:    ResponseInteger,
			Integer: binary.LittleEndian.Uint64(out[8:16]),
		}, nil
	case objectTypeBuffer:
		if length < 0 || len(out) < responseHeaderLength+length {
			return Response{}, ErrUnexpectedShape
		}
		data := make([]byte, length)
		copy(data, out[responseHeaderLength:responseHeaderLength+length])
		return Response{Kind: ResponseBuffer, Buffer: data}, nil
	default:
		return Response{}, fmt.Errorf("wmi: unknown object type %d: %w", kind, ErrUnexpectedShape)
	}
}

func (t *deviceTransport) Close() error {
	return t.dev.Close()
}
