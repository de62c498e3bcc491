package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Deeathex/paxos/types"
)

// MaxFrameSize bounds a single wire frame. Consensus messages are tiny;
// anything near this limit is a corrupt or hostile stream.
const MaxFrameSize = 1 << 20

// Framing errors
var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrEmptyFrame    = errors.New("empty frame")
)

// WriteFrame writes a 4-byte big-endian length prefix followed by the
// payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed payload from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(prefix[:])
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteMessage marshals a message and writes it as one frame.
func WriteMessage(w io.Writer, m *types.Message) error {
	payload, err := Marshal(m)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

// ReadMessage reads one frame and unmarshals it.
func ReadMessage(r io.Reader) (*types.Message, error) {
	payload, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(payload)
}

// Envelope wraps a message in the NETWORK_MESSAGE frame the wire
// carries. A PL_SEND is unwrapped so only its inner message travels, and
// its destination host is recorded as the sender host, matching what the
// hub protocol expects. senderPort is always the sender's listening
// port, which the receiver uses to resolve the sender ProcessId.
func Envelope(m *types.Message, senderPort int32) *types.Message {
	inner := m
	host := ""
	if m.Type == types.MessageTypePlSend && m.PlSend != nil {
		inner = m.PlSend.Message
		if m.PlSend.Destination != nil {
			host = m.PlSend.Destination.Host
		}
	}
	return &types.Message{
		Type:          types.MessageTypeNetworkMessage,
		AbstractionID: m.AbstractionID,
		SystemID:      m.SystemID,
		NetworkMessage: &types.NetworkMessage{
			Message:             inner,
			SenderHost:          host,
			SenderListeningPort: senderPort,
		},
	}
}
