// Package session implements the slash-delimited session protocol that
// rides on callback payloads and is persisted against users while a
// free-text reply is pending.
package session

import (
	"errors"
	"strings"
)

// Header tags the domain a session action belongs to. The set is closed
// but the codec does not enforce membership: an unknown header decodes
// fine and is the dispatcher's problem to ignore.
type Header string

const (
	HeaderMenu              Header = "MnSe"
	HeaderCollection        Header = "CoLSe"
	HeaderCard              Header = "CaRSe"
	HeaderPendingCollection Header = "UsrCoLSe"
	HeaderPendingCard       Header = "UsrCaRSe"
)

// ErrMalformed reports a raw session string with zero segments.
var ErrMalformed = errors.New("session: malformed session string")

// Session is the decoded routing state: which menu, which entity, and
// which pending operation the next action applies to.
type Session struct {
	Header  Header
	Action  string
	Key     string // collection key, optional
	CardKey string // card key, only meaningful under a card header
}

// Decode parses a raw session string. Segment 0 is the header, 1 the
// action, 2 the collection key and 3 the card key. Fewer than two
// segments still decode; zero segments is an error.
func Decode(raw string) (Session, error) {
	var s Session
	segments := split(raw)
	if len(segments) == 0 {
		return s, ErrMalformed
	}
	s.Header = Header(segments[0])
	if len(segments) > 1 {
		s.Action = segments[1]
	}
	if len(segments) > 2 {
		s.Key = segments[2]
	}
	if len(segments) > 3 {
		s.CardKey = segments[3]
	}
	return s, nil
}

// Encode is the exact inverse of Decode for sessions whose optional
// fields are set left to right.
func (s Session) Encode() string {
	parts := []string{string(s.Header), s.Action}
	if s.Key != "" {
		parts = append(parts, s.Key)
	}
	if s.CardKey != "" {
		parts = append(parts, s.CardKey)
	}
	return strings.Join(parts, "/")
}

// split returns the non-empty segments of raw, mirroring the original
// `([^/]+)` extraction: empty segments between slashes are skipped.
func split(raw string) []string {
	var out []string
	for _, seg := range strings.Split(raw, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
