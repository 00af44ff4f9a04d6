// Package mcpquic carries MCP JSON-RPC sessions over a QUIC stream. The
// chassis demuxes its shared UDP socket by ALPN and hands matching
// connections to the Handler here.
package mcpquic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPNProtocolMCP selects the MCP session protocol during the QUIC
	// handshake.
	ALPNProtocolMCP = "hankinta-mcp-v1"
	// MagicBytesMCP must be the first bytes a client sends on its stream.
	// Defense-in-depth against ALPN confusion.
	MagicBytesMCP = "MCP1"

	DefaultIdleTimeout = 5 * time.Minute
	DefaultKeepAlive   = 30 * time.Second
)

// QUIC stream-level error codes.
const (
	StreamErrorProtocolConfusion quic.StreamErrorCode = 0x02
)

// QUIC connection-level error codes.
const (
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x01
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03
)

var ErrInvalidMagicBytes = errors.New("invalid magic bytes: expected MCP1")

// QUICConfig returns the transport settings shared by server and client.
func QUICConfig() *quic.Config {
	return &quic.Config{
		MaxStreamReceiveWindow:     10 * 1024 * 1024,
		MaxConnectionReceiveWindow: 50 * 1024 * 1024,
		MaxIdleTimeout:             DefaultIdleTimeout,
		KeepAlivePeriod:            DefaultKeepAlive,
	}
}

// ValidateMagicBytes reads and validates the magic prefix from a stream.
func ValidateMagicBytes(r io.Reader) error {
	magic := make([]byte, len(MagicBytesMCP))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("read magic bytes: %w", err)
	}
	if !bytes.Equal(magic, []byte(MagicBytesMCP)) {
		return fmt.Errorf("%w: got %q", ErrInvalidMagicBytes, string(magic))
	}
	return nil
}

// SendMagicBytes writes the magic prefix. Clients must call this immediately
// after opening the stream.
func SendMagicBytes(w io.Writer) error {
	if _, err := w.Write([]byte(MagicBytesMCP)); err != nil {
		return fmt.Errorf("write magic bytes: %w", err)
	}
	return nil
}
