package core

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// Real is the payload constraint for DataTokenList aggregation queries.
type Real interface {
	constraints.Integer | constraints.Float
}

// Token is a small handle tracked by TokenList. Its live/dead status is what
// the list observes; the debug name exists for diagnostics only.
//
// A token is idiomatic to treat as a scope guard: take one when some
// condition starts applying, hold it across suspensions, and release it
// (usually with defer) when the condition ends. Releasing logically removes
// the token from every list that held it.
type Token struct {
	name     string
	released bool
}

// NewToken creates a token with the given debug name.
func NewToken(name string) *Token {
	return &Token{name: name}
}

// Name returns the token's debug name.
func (t *Token) Name() string {
	return t.name
}

// Release expires the token, removing it from every list holding it.
// Idempotent.
func (t *Token) Release() {
	t.released = true
}

// IsReleased returns whether the token has been released.
func (t *Token) IsReleased() bool {
	return t.released
}

// TokenList tracks decentralized shared state across multiple tasks: any
// number of callers take tokens, and the list answers "does the condition
// currently hold anywhere". Membership is weak: expired tokens are compacted
// opportunistically on every query.
//
// A TokenList may be mutated only from its owning goroutine. Tokens are
// never deduplicated by name or payload: two distinct tokens with equal data
// are two list entries.
type TokenList struct {
	tokens []*Token
}

// TakeToken creates a token with the given debug name and adds it to the
// list. The caller owns the token and must keep it (releasing it removes it
// from the list).
func (l *TokenList) TakeToken(name string) *Token {
	return l.AddToken(NewToken(name))
}

// AddToken adds an existing token to the list. Duplicate entries of the same
// token are prevented; released tokens are not added.
func (l *TokenList) AddToken(token *Token) *Token {
	if token == nil {
		panic("ticktask: cannot add nil token")
	}
	if token.released || slices.Contains(l.tokens, token) {
		return token
	}
	l.compact()
	l.tokens = append(l.tokens, token)
	return token
}

// RemoveToken explicitly removes a token from the list.
func (l *TokenList) RemoveToken(token *Token) {
	l.tokens = slices.DeleteFunc(l.tokens, func(t *Token) bool {
		return t == token
	})
}

// HasTokens returns whether the list holds any live tokens.
func (l *TokenList) HasTokens() bool {
	for i := len(l.tokens) - 1; i >= 0; i-- {
		if !l.tokens[i].released {
			return true
		}
		l.tokens = l.tokens[:i]
	}
	return false
}

// Any is a convenience alias for HasTokens.
func (l *TokenList) Any() bool {
	return l.HasTokens()
}

// DebugString returns the debug names of all live tokens, one per line.
func (l *TokenList) DebugString() string {
	l.compact()
	debugStr := ""
	for _, t := range l.tokens {
		if debugStr != "" {
			debugStr += "\n"
		}
		debugStr += t.name
	}
	if debugStr == "" {
		return "[no tokens]"
	}
	return debugStr
}

func (l *TokenList) compact() {
	l.tokens = slices.DeleteFunc(l.tokens, func(t *Token) bool {
		return t.released
	})
}

// =============================================================================
// DataToken / DataTokenList
// =============================================================================

// DataToken is a Token that additionally carries a payload of T.
type DataToken[T Real] struct {
	name     string
	data     T
	released bool
}

// NewDataToken creates a data token with the given debug name and payload.
func NewDataToken[T Real](name string, data T) *DataToken[T] {
	return &DataToken[T]{name: name, data: data}
}

// Name returns the token's debug name.
func (t *DataToken[T]) Name() string {
	return t.name
}

// Data returns the token's payload.
func (t *DataToken[T]) Data() T {
	return t.data
}

// Release expires the token, removing it from every list holding it.
// Idempotent.
func (t *DataToken[T]) Release() {
	t.released = true
}

// IsReleased returns whether the token has been released.
func (t *DataToken[T]) IsReleased() bool {
	return t.released
}

// DataTokenList is a TokenList whose tokens carry payloads, with aggregation
// queries over the payloads of the live tokens. Ordering queries (MostRecent,
// LeastRecent) follow insertion order.
type DataTokenList[T Real] struct {
	tokens []*DataToken[T]
}

// TakeToken creates a token with the given debug name and payload and adds
// it to the list.
func (l *DataTokenList[T]) TakeToken(name string, data T) *DataToken[T] {
	return l.AddToken(NewDataToken(name, data))
}

// AddToken adds an existing token to the list. Duplicate entries of the same
// token are prevented; released tokens are not added.
func (l *DataTokenList[T]) AddToken(token *DataToken[T]) *DataToken[T] {
	if token == nil {
		panic("ticktask: cannot add nil token")
	}
	if token.released || slices.Contains(l.tokens, token) {
		return token
	}
	l.compact()
	l.tokens = append(l.tokens, token)
	return token
}

// RemoveToken explicitly removes a token from the list.
func (l *DataTokenList[T]) RemoveToken(token *DataToken[T]) {
	l.tokens = slices.DeleteFunc(l.tokens, func(t *DataToken[T]) bool {
		return t == token
	})
}

// HasTokens returns whether the list holds any live tokens.
func (l *DataTokenList[T]) HasTokens() bool {
	for i := len(l.tokens) - 1; i >= 0; i-- {
		if !l.tokens[i].released {
			return true
		}
		l.tokens = l.tokens[:i]
	}
	return false
}

// Any is a convenience alias for HasTokens.
func (l *DataTokenList[T]) Any() bool {
	return l.HasTokens()
}

// LeastRecent returns the payload of the least-recently-added live token.
func (l *DataTokenList[T]) LeastRecent() (T, bool) {
	l.compact()
	if len(l.tokens) == 0 {
		var zero T
		return zero, false
	}
	return l.tokens[0].data, true
}

// MostRecent returns the payload of the most-recently-added live token.
func (l *DataTokenList[T]) MostRecent() (T, bool) {
	l.compact()
	if len(l.tokens) == 0 {
		var zero T
		return zero, false
	}
	return l.tokens[len(l.tokens)-1].data, true
}

// Min returns the smallest payload among the live tokens.
func (l *DataTokenList[T]) Min() (T, bool) {
	l.compact()
	var ret T
	found := false
	for _, t := range l.tokens {
		if !found || t.data < ret {
			ret = t.data
			found = true
		}
	}
	return ret, found
}

// Max returns the largest payload among the live tokens.
func (l *DataTokenList[T]) Max() (T, bool) {
	l.compact()
	var ret T
	found := false
	for _, t := range l.tokens {
		if !found || t.data > ret {
			ret = t.data
			found = true
		}
	}
	return ret, found
}

// Mean returns the arithmetic mean of the payloads of the live tokens.
func (l *DataTokenList[T]) Mean() (float64, bool) {
	l.compact()
	if len(l.tokens) == 0 {
		return 0, false
	}
	total := 0.0
	for _, t := range l.tokens {
		total += float64(t.data)
	}
	return total / float64(len(l.tokens)), true
}

// Contains returns whether any live token carries the given payload.
func (l *DataTokenList[T]) Contains(data T) bool {
	l.compact()
	for _, t := range l.tokens {
		if t.data == data {
			return true
		}
	}
	return false
}

// SnapshotData returns the payloads of all live tokens in insertion order.
func (l *DataTokenList[T]) SnapshotData() []T {
	l.compact()
	data := make([]T, 0, len(l.tokens))
	for _, t := range l.tokens {
		data = append(data, t.data)
	}
	return data
}

// DebugString returns the debug names of all live tokens, one per line.
func (l *DataTokenList[T]) DebugString() string {
	l.compact()
	debugStr := ""
	for _, t := range l.tokens {
		if debugStr != "" {
			debugStr += "\n"
		}
		debugStr += t.name
	}
	if debugStr == "" {
		return "[no tokens]"
	}
	return debugStr
}

func (l *DataTokenList[T]) compact() {
	l.tokens = slices.DeleteFunc(l.tokens, func(t *DataToken[T]) bool {
		return t.released
	})
}
