package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Delimiter terminates every frame on the wire.
const Delimiter byte = '\n'

var (
	ErrEmptyFrame    = errors.New("empty frame")
	ErrMissingType   = errors.New("missing type field")
	ErrReservedType  = errors.New("type is reserved for local use")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// UnknownTypeError is returned by Decode for a well-formed frame whose type
// discriminator does not name a known message.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

type validator interface {
	validate() error
}

type envelope struct {
	Type *string `json:"type"`
}

// Encode serializes msg as a single-line JSON object whose first field is the
// type discriminator. The returned slice does not include the delimiter.
//
// Parameters:
//   - msg: The message to encode
//
// Returns:
//   - The JSON object bytes
//   - An error if msg is nil or cannot be marshaled
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("encode: nil message")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}

	typ, err := json.Marshal(string(msg.Type()))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type(), err)
	}

	out := make([]byte, 0, len(body)+len(typ)+10)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}

	return out, nil
}

// AppendFrame encodes msg and returns it terminated by Delimiter, ready to be
// written to the stream. encoding/json escapes control characters, so the
// result never contains an interior newline.
//
// Parameters:
//   - msg: The message to frame
//
// Returns:
//   - The framed bytes
//   - An error if encoding fails
func AppendFrame(msg Message) ([]byte, error) {
	b, err := Encode(msg)
	if err != nil {
		return nil, err
	}

	return append(b, Delimiter), nil
}

// Decode parses one frame (without its delimiter) into a Message. Unknown
// fields are ignored. Decode never panics; every failure is reported as an
// error so the caller can drop the frame and carry on.
//
// Parameters:
//   - frame: One line of the stream; a trailing "\r" and surrounding whitespace are ignored
//
// Returns:
//   - The decoded message
//   - ErrEmptyFrame, ErrMissingType, ErrReservedType, *UnknownTypeError or a
//     wrapped JSON/validation error on failure
func Decode(frame []byte) (Message, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return nil, ErrEmptyFrame
	}

	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	if env.Type == nil {
		return nil, ErrMissingType
	}

	switch Type(*env.Type) {
	case TypeJoin:
		return decodeInto[Join](frame)
	case TypeQueue:
		return Queue{}, nil
	case TypeMove:
		return decodeInto[Move](frame)
	case TypeLeave:
		return Leave{}, nil
	case TypeJoined:
		return decodeInto[Joined](frame)
	case TypeQueued:
		return Queued{}, nil
	case TypeMatched:
		return decodeInto[Matched](frame)
	case TypeBoardUpdate:
		return decodeInto[BoardUpdate](frame)
	case TypeXPAward:
		return decodeInto[XPAward](frame)
	case TypeXPSync:
		return decodeInto[XPSync](frame)
	case TypeOpponentLeft:
		return OpponentLeft{}, nil
	case TypeError:
		return decodeInto[Error](frame)
	case TypeDisconnected:
		return nil, ErrReservedType
	case "":
		return nil, ErrMissingType
	default:
		return nil, &UnknownTypeError{Type: *env.Type}
	}
}

func decodeInto[T Message](frame []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", m.Type(), err)
	}

	if v, ok := any(m).(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}

	return m, nil
}
