// Package cursor provides the opaque pagination token used by cursor
// pagination. Tokens are msgpack-encoded and base64url-wrapped so any
// scalar boundary value round-trips exactly through Encode and Decode.
package cursor

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Cursor holds the boundary column values of one page edge.
type Cursor struct {
	Parameters map[string]any `msgpack:"p"`
}

// New returns a cursor over the given boundary parameters.
func New(parameters map[string]any) *Cursor {
	return &Cursor{Parameters: parameters}
}

// Parameter returns the boundary value recorded for a column.
func (c *Cursor) Parameter(column string) (any, bool) {
	v, ok := c.Parameters[column]
	return v, ok
}

// Encode renders the cursor as an opaque URL-safe token.
func (c *Cursor) Encode() (string, error) {
	raw, err := msgpack.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("cursor: encode: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode reverses Encode. Integer boundary values always come back as
// int64 so comparisons behave the same before and after a round trip.
func Decode(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("cursor: decode: %w", err)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var c Cursor
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("cursor: decode: %w", err)
	}
	return &c, nil
}
