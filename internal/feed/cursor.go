package feed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulsegram/feedengine/internal/models"
)

// Pool tags baked into cursor tokens. Decoding enforces that an affinity
// cursor cannot resume the discovery pool and vice versa.
const (
	poolAffinity  = "a"
	poolDiscovery = "d"
)

// Position is a decoded keyset position within one pool: everything strictly
// older than (Before, LastID) in (created_at, id) order. The zero Position
// means "from the top".
type Position struct {
	Before time.Time
	LastID int64
}

// IsZero reports whether the position is the start of the stream.
func (p Position) IsZero() bool {
	return p.LastID == 0 && p.Before.IsZero()
}

// Cursor is an opaque continuation token for one candidate pool.
type Cursor struct {
	pool string
	pos  Position
}

// Position returns the decoded keyset position.
func (c Cursor) Position() Position {
	return c.pos
}

// IsZero reports whether the cursor resumes from the stream start.
func (c Cursor) IsZero() bool {
	return c.pos.IsZero()
}

// Encode serializes the cursor to its opaque token form. A zero cursor
// encodes to the empty string.
func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw := fmt.Sprintf("%s:%d:%d", c.pool, c.pos.Before.UnixNano(), c.pos.LastID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor parses an opaque token and checks it belongs to pool.
// An empty token is the zero cursor for that pool.
func decodeCursor(token, pool string) (Cursor, error) {
	if token == "" {
		return Cursor{pool: pool}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 {
		return Cursor{}, ErrBadCursor
	}
	if parts[0] != pool {
		return Cursor{}, ErrCursorPoolMismatch
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp", ErrBadCursor)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad item id", ErrBadCursor)
	}
	return Cursor{pool: pool, pos: Position{Before: time.Unix(0, nanos).UTC(), LastID: id}}, nil
}

// cursorAfter mints the continuation cursor pointing just past item.
func cursorAfter(pool string, item *models.ContentItem) Cursor {
	return Cursor{pool: pool, pos: Position{Before: item.CreatedAt, LastID: item.ID}}
}

// PageCursor carries the continuation state of both pools across feed pages.
// The wire form is a single opaque token.
type PageCursor struct {
	Affinity  string `json:"a,omitempty"`
	Discovery string `json:"d,omitempty"`
}

// IsZero reports whether both pool cursors are at the stream start.
func (p PageCursor) IsZero() bool {
	return p.Affinity == "" && p.Discovery == ""
}

// Encode serializes the page cursor to one opaque token.
func (p PageCursor) Encode() string {
	if p.IsZero() {
		return ""
	}
	raw, _ := json.Marshal(p)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodePageCursor parses a feed-level continuation token. Pool membership of
// the embedded cursors is validated on first use, not here.
func DecodePageCursor(token string) (PageCursor, error) {
	if token == "" {
		return PageCursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return PageCursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var p PageCursor
	if err := json.Unmarshal(raw, &p); err != nil {
		return PageCursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	return p, nil
}
