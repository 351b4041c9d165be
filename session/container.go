package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/polarisdb/polaris/types"
)

const (
	rangeTokenSeparator = ":"
	tokenListSeparator  = ","
)

// Container tracks the freshest session token per partition key range, per
// collection.
//
// Callers record the token returned with every response via Set and attach
// the stored token (or the combined per-collection form) to subsequent
// requests. Recording merges with any existing token for the same range, so
// the container only ever moves forward.
//
// Container is safe for concurrent use from multiple goroutines.
type Container struct {
	mu sync.RWMutex

	// tokens maps collection resource id -> partition key range id -> token.
	tokens map[string]map[string]Token
}

// NewContainer creates an empty session container.
//
// Returns:
//   - *Container: A new container ready for use
func NewContainer() *Container {
	return &Container{
		tokens: make(map[string]map[string]Token),
	}
}

// Set parses tokenText and records it for the given collection and range,
// merging with any token already stored for that range.
//
// Parameters:
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range id the token belongs to
//   - tokenText: The wire-format session token from a response
//
// Returns:
//   - error: A types.ErrMalformedSessionToken wrap on unparsable input, or a
//     *types.SessionConsistencyError if merging detects a region-set mismatch
func (c *Container) Set(collectionRID, rangeID, tokenText string) error {
	token, err := Parse(tokenText)
	if err != nil {
		return err
	}

	return c.SetToken(collectionRID, rangeID, token)
}

// SetToken records an already-parsed token, merging with any existing token
// for the same range.
//
// Parameters:
//   - collectionRID: The collection's resource id
//   - rangeID: The partition key range id the token belongs to
//   - token: The token to record
//
// Returns:
//   - error: nil, or a *types.SessionConsistencyError from the merge
func (c *Container) SetToken(collectionRID, rangeID string, token Token) error {
	if token.IsZero() {
		return fmt.Errorf("%w: zero token", types.ErrMalformedSessionToken)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byRange, ok := c.tokens[collectionRID]
	if !ok {
		byRange = make(map[string]Token)
		c.tokens[collectionRID] = byRange
	}

	if existing, ok := byRange[rangeID]; ok {
		merged, err := existing.Merge(token)
		if err != nil {
			return err
		}
		byRange[rangeID] = merged

		return nil
	}

	byRange[rangeID] = token

	return nil
}

// Resolve returns the stored token for the given collection and range.
//
// Returns:
//   - Token: The stored token
//   - bool: false if no token is recorded for that range
func (c *Container) Resolve(collectionRID, rangeID string) (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	token, ok := c.tokens[collectionRID][rangeID]

	return token, ok
}

// Combined renders all tokens recorded for a collection as a single header
// value of the form "rangeID:token,rangeID:token", in ascending range-id
// order. An empty string means no session state is recorded.
//
// Parameters:
//   - collectionRID: The collection's resource id
//
// Returns:
//   - string: The combined header value, or "" when nothing is recorded
func (c *Container) Combined(collectionRID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byRange, ok := c.tokens[collectionRID]
	if !ok || len(byRange) == 0 {
		return ""
	}

	rangeIDs := make([]string, 0, len(byRange))
	for rangeID := range byRange {
		rangeIDs = append(rangeIDs, rangeID)
	}
	sort.Strings(rangeIDs)

	parts := make([]string, 0, len(rangeIDs))
	for _, rangeID := range rangeIDs {
		parts = append(parts, rangeID+rangeTokenSeparator+byRange[rangeID].String())
	}

	return strings.Join(parts, tokenListSeparator)
}

// ApplyCombined parses a combined header value produced by Combined (or by
// another client observing the same collection) and merges every contained
// token into the container.
//
// Parameters:
//   - collectionRID: The collection's resource id
//   - combined: The combined header value
//
// Returns:
//   - error: A types.ErrMalformedSessionToken wrap on malformed input, or a
//     *types.SessionConsistencyError from a merge
func (c *Container) ApplyCombined(collectionRID, combined string) error {
	if combined == "" {
		return nil
	}

	for _, part := range strings.Split(combined, tokenListSeparator) {
		rangeID, tokenText, found := strings.Cut(part, rangeTokenSeparator)
		if !found || rangeID == "" {
			return fmt.Errorf("%w: invalid combined token part %q", types.ErrMalformedSessionToken, part)
		}

		if err := c.Set(collectionRID, rangeID, tokenText); err != nil {
			return err
		}
	}

	return nil
}

// Clear drops all session state recorded for a collection. Used when the
// collection is recreated (its generation changes) and old progress no
// longer applies.
func (c *Container) Clear(collectionRID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tokens, collectionRID)
}
