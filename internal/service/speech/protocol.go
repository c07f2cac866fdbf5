package speech

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ProtocolVersion is the binary websocket protocol version spoken with the
// recognition endpoint.
const ProtocolVersion = 0b0001

// MessageType occupies the upper nibble of the second header byte.
type MessageType uint8

const (
	FullClientRequest       MessageType = 0b0001
	AudioOnlyRequest        MessageType = 0b0010
	FullServerResponse      MessageType = 0b1001
	AudioOnlyServerResponse MessageType = 0b1011
	ErrorMessage            MessageType = 0b1111
)

// MessageFlags qualify the frame; the low two bits describe the sequence field.
type MessageFlags uint8

const (
	NoSequenceNumber       MessageFlags = 0b0000
	PositiveSequenceNumber MessageFlags = 0b0001
	LastPacketNoSequence   MessageFlags = 0b0010
	NegativeSequenceNumber MessageFlags = 0b0011
)

// SerializationMethod describes the payload encoding.
type SerializationMethod uint8

const (
	NoSerialization   SerializationMethod = 0b0000
	JSONSerialization SerializationMethod = 0b0001
)

// CompressionMethod describes the payload compression.
type CompressionMethod uint8

const (
	NoCompression   CompressionMethod = 0b0000
	GzipCompression CompressionMethod = 0b0001
)

// Header is the fixed 4-byte frame header.
type Header struct {
	ProtocolVersion     uint8
	HeaderSize          uint8 // in 4-byte units
	MessageType         MessageType
	MessageFlags        MessageFlags
	SerializationMethod SerializationMethod
	CompressionMethod   CompressionMethod
	Reserved            uint8
}

// Frame is one protocol message.
type Frame struct {
	Header      Header
	Sequence    int32 // present only when the flags say so
	ErrorCode   uint32
	PayloadSize uint32
	Payload     []byte
}

// NewHeader builds a single-unit header for the given frame kind.
func NewHeader(msgType MessageType, flags MessageFlags, serialization SerializationMethod, compression CompressionMethod) Header {
	return Header{
		ProtocolVersion:     ProtocolVersion,
		HeaderSize:          0b0001,
		MessageType:         msgType,
		MessageFlags:        flags,
		SerializationMethod: serialization,
		CompressionMethod:   compression,
	}
}

// Encode packs the header into its 4-byte wire form.
func (h *Header) Encode() []byte {
	buf := make([]byte, 4)
	buf[0] = (h.ProtocolVersion << 4) | h.HeaderSize
	buf[1] = (uint8(h.MessageType) << 4) | uint8(h.MessageFlags)
	buf[2] = (uint8(h.SerializationMethod) << 4) | uint8(h.CompressionMethod)
	buf[3] = h.Reserved
	return buf
}

// DecodeHeader parses the 4-byte wire form.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("header data too short: got %d, need 4", len(data))
	}

	header := &Header{
		ProtocolVersion:     (data[0] >> 4) & 0x0F,
		HeaderSize:          data[0] & 0x0F,
		MessageType:         MessageType((data[1] >> 4) & 0x0F),
		MessageFlags:        MessageFlags(data[1] & 0x0F),
		SerializationMethod: SerializationMethod((data[2] >> 4) & 0x0F),
		CompressionMethod:   CompressionMethod(data[2] & 0x0F),
		Reserved:            data[3],
	}

	if header.ProtocolVersion != ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", header.ProtocolVersion)
	}

	return header, nil
}

// EncodeFrame serializes a complete frame.
func EncodeFrame(frame *Frame) []byte {
	buf := bytes.NewBuffer(frame.Header.Encode())

	switch frame.Header.MessageFlags & 0b0011 {
	case PositiveSequenceNumber, NegativeSequenceNumber:
		seq := make([]byte, 4)
		binary.BigEndian.PutUint32(seq, uint32(frame.Sequence))
		buf.Write(seq)
	}

	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, frame.PayloadSize)
	buf.Write(size)

	if len(frame.Payload) > 0 {
		buf.Write(frame.Payload)
	}

	return buf.Bytes()
}

// DecodeFrame reads one complete frame from the reader.
func DecodeFrame(reader io.Reader) (*Frame, error) {
	headerBytes := make([]byte, 4)
	if _, err := io.ReadFull(reader, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	frame := &Frame{Header: *header}

	// Skip any extended header units.
	extra := int(header.HeaderSize)*4 - 4
	if extra > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(extra)); err != nil {
			return nil, fmt.Errorf("failed to read extended header: %w", err)
		}
	}

	switch header.MessageFlags & 0b0011 {
	case PositiveSequenceNumber, NegativeSequenceNumber:
		seqBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, seqBytes); err != nil {
			return nil, fmt.Errorf("failed to read sequence: %w", err)
		}
		frame.Sequence = int32(binary.BigEndian.Uint32(seqBytes))
	}

	if header.MessageType == ErrorMessage {
		codeBytes := make([]byte, 4)
		if _, err := io.ReadFull(reader, codeBytes); err != nil {
			return nil, fmt.Errorf("failed to read error code: %w", err)
		}
		frame.ErrorCode = binary.BigEndian.Uint32(codeBytes)
	}

	sizeBytes := make([]byte, 4)
	if _, err := io.ReadFull(reader, sizeBytes); err != nil {
		return nil, fmt.Errorf("failed to read payload size: %w", err)
	}
	frame.PayloadSize = binary.BigEndian.Uint32(sizeBytes)

	if frame.PayloadSize > 0 {
		frame.Payload = make([]byte, frame.PayloadSize)
		if _, err := io.ReadFull(reader, frame.Payload); err != nil {
			return nil, fmt.Errorf("failed to read payload (expected %d bytes): %w", frame.PayloadSize, err)
		}
	}

	return frame, nil
}

// NewFullClientRequest wraps a JSON payload as the opening request frame.
func NewFullClientRequest(payload []byte, compression CompressionMethod) *Frame {
	return &Frame{
		Header:      NewHeader(FullClientRequest, NoSequenceNumber, JSONSerialization, compression),
		PayloadSize: uint32(len(payload)),
		Payload:     payload,
	}
}

// NewAudioOnlyRequest wraps one audio chunk. The last chunk carries a negated
// sequence number so the server knows the stream is complete.
func NewAudioOnlyRequest(audioData []byte, sequence int32, isLast bool, compression CompressionMethod) *Frame {
	var flags MessageFlags
	switch {
	case isLast && sequence != 0:
		flags = NegativeSequenceNumber
		sequence = -sequence
	case isLast:
		flags = LastPacketNoSequence
	case sequence > 0:
		flags = PositiveSequenceNumber
	default:
		flags = NoSequenceNumber
	}

	return &Frame{
		Header:      NewHeader(AudioOnlyRequest, flags, NoSerialization, compression),
		Sequence:    sequence,
		PayloadSize: uint32(len(audioData)),
		Payload:     audioData,
	}
}

// IsLastPacket reports whether this frame ends the stream.
func (f *Frame) IsLastPacket() bool {
	switch f.Header.MessageFlags & 0b0011 {
	case LastPacketNoSequence, NegativeSequenceNumber:
		return true
	default:
		return false
	}
}

// IsErrorMessage reports whether this frame carries a server error.
func (f *Frame) IsErrorMessage() bool {
	return f.Header.MessageType == ErrorMessage
}
