package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxFrameSize bounds a single worker frame.
const MaxFrameSize = 64 << 20

// ErrFrameTooLarge indicates a frame header above MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")

// WriteFrame writes payload as "<decimal length>\n<payload>".
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	if _, err := io.WriteString(w, strconv.Itoa(len(payload))+"\n"); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one frame written by WriteFrame.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && header != "" {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	size, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || size < 0 {
		return nil, fmt.Errorf("invalid frame header %q", strings.TrimSpace(header))
	}
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Reply is a worker's answer to one command.
type Reply struct {
	OK   bool
	Body string
}

const (
	replyOK  = "ok\n"
	replyErr = "err\n"
)

// EncodeReply serializes a reply for WriteFrame.
func EncodeReply(reply Reply) []byte {
	if reply.OK {
		return []byte(replyOK + reply.Body)
	}
	return []byte(replyErr + reply.Body)
}

// DecodeReply parses a reply payload.
func DecodeReply(payload []byte) (Reply, error) {
	s := string(payload)
	switch {
	case strings.HasPrefix(s, replyOK):
		return Reply{OK: true, Body: s[len(replyOK):]}, nil
	case strings.HasPrefix(s, replyErr):
		return Reply{OK: false, Body: s[len(replyErr):]}, nil
	default:
		return Reply{}, fmt.Errorf("invalid reply status")
	}
}
