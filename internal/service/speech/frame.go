package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// 火山引擎 openspeech v3 二进制帧：4 字节头 + 可选序号/事件 + payload。
const protocolVersion = 0b0001

// MessageType 帧类型
type MessageType uint8

const (
	FullClientRequest       MessageType = 0b0001
	AudioOnlyRequest        MessageType = 0b0010
	FullServerResponse      MessageType = 0b1001
	AudioOnlyServerResponse MessageType = 0b1011
	ErrorMessage            MessageType = 0b1111
)

// MessageFlags 帧标志，低两位描述序号，第三位表示携带事件。
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
	WithEvent        MessageFlags = 0b0100

	sequenceMask MessageFlags = 0b0011
)

// EventType 服务端事件
type EventType int32

const (
	EventNone               EventType = 0
	EventStartConnection    EventType = 1
	EventFinishConnection   EventType = 2
	EventConnectionStarted  EventType = 50
	EventConnectionFailed   EventType = 51
	EventConnectionFinished EventType = 52
	EventSessionStarted     EventType = 150
	EventSessionFinished    EventType = 152
	EventSessionFailed      EventType = 153
)

// Serialization 序列化方式
type Serialization uint8

const (
	RawSerialization  Serialization = 0b0000
	JSONSerialization Serialization = 0b0001
)

// Compression 压缩方式
type Compression uint8

const (
	NoCompression   Compression = 0b0000
	GzipCompression Compression = 0b0001
)

// Frame is one binary websocket message.
type Frame struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression
	HeaderSize    uint8 // in 4-byte words, 1 when encoding

	Sequence  int32
	Event     EventType
	SessionID string
	ConnectID string
	ErrorCode uint32
	Payload   []byte
}

func (f *Frame) hasSequence() bool {
	s := f.Flags & sequenceMask
	return s == PositiveSequence || s == NegativeSequence
}

func (f *Frame) hasEvent() bool { return f.Flags&WithEvent != 0 }

// Last reports whether the sender marked this as the final frame.
func (f *Frame) Last() bool {
	s := f.Flags & sequenceMask
	return s == LastNoSequence || s == NegativeSequence
}

// Finished reports whether the frame closes the server session.
func (f *Frame) Finished() bool {
	return f.Last() || (f.hasEvent() && f.Event == EventSessionFinished)
}

// Body returns the payload with compression removed.
func (f *Frame) Body() ([]byte, error) {
	return decompress(f.Payload, f.Compression)
}

// MarshalBinary encodes the frame.
func (f *Frame) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | 0b0001,
		uint8(f.Type)<<4 | uint8(f.Flags),
		uint8(f.Serialization)<<4 | uint8(f.Compression),
		0,
	})

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if !connectionEvent(f.Event) {
			writeString(&buf, f.SessionID)
		}
		if connectionReply(f.Event) {
			writeString(&buf, f.ConnectID)
		}
	}
	if f.Type == ErrorMessage {
		writeUint32(&buf, f.ErrorCode)
	}
	writeUint32(&buf, uint32(len(f.Payload)))
	buf.Write(f.Payload)
	return buf.Bytes(), nil
}

// ReadFrame decodes one frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	head := make([]byte, 4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if v := head[0] >> 4; v != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", v)
	}

	f := &Frame{
		HeaderSize:    head[0] & 0x0F,
		Type:          MessageType(head[1] >> 4),
		Flags:         MessageFlags(head[1] & 0x0F),
		Serialization: Serialization(head[2] >> 4),
		Compression:   Compression(head[2] & 0x0F),
	}
	if extra := int(f.HeaderSize)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("read extended header: %w", err)
		}
	}

	var err error
	if f.hasSequence() {
		var seq uint32
		if seq, err = readUint32(r); err != nil {
			return nil, fmt.Errorf("read sequence: %w", err)
		}
		f.Sequence = int32(seq)
	}
	if f.hasEvent() {
		ev, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		f.Event = EventType(int32(ev))
		if !connectionEvent(f.Event) {
			if f.SessionID, err = readString(r); err != nil {
				return nil, fmt.Errorf("read session id: %w", err)
			}
		}
		if connectionReply(f.Event) {
			if f.ConnectID, err = readString(r); err != nil {
				return nil, fmt.Errorf("read connect id: %w", err)
			}
		}
	}
	if f.Type == ErrorMessage {
		if f.ErrorCode, err = readUint32(r); err != nil {
			return nil, fmt.Errorf("read error code: %w", err)
		}
	}

	size, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read payload size: %w", err)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("read payload (expected %d bytes): %w", size, err)
		}
	}
	return f, nil
}

// newRequestFrame wraps a JSON request body.
func newRequestFrame(body []byte, c Compression) (*Frame, error) {
	payload, err := compress(body, c)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Type:          FullClientRequest,
		Flags:         NoSequence,
		Serialization: JSONSerialization,
		Compression:   c,
		Payload:       payload,
	}, nil
}

// newAudioFrame wraps one audio chunk. The last chunk carries the negated sequence.
func newAudioFrame(chunk []byte, seq int32, last bool, c Compression) (*Frame, error) {
	payload, err := compress(chunk, c)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		Type:          AudioOnlyRequest,
		Flags:         PositiveSequence,
		Serialization: RawSerialization,
		Compression:   c,
		Sequence:      seq,
		Payload:       payload,
	}
	if last {
		f.Flags = NegativeSequence
		f.Sequence = -seq
	}
	return f, nil
}

func connectionEvent(e EventType) bool {
	switch e {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func connectionReply(e EventType) bool {
	switch e {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil || n == 0 {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case NoCompression:
		return data, nil
	case GzipCompression:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported compression: %d", c)
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case NoCompression:
		return data, nil
	case GzipCompression:
		if len(data) == 0 {
			return nil, nil
		}
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("unsupported compression: %d", c)
}
