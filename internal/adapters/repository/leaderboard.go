package repository

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/trio/internal/domain/types"
	"github.com/okian/trio/pkg/metrics"
)

// Treap-based, in-memory rating leaderboard.
//
// Ordering: rating DESC, then playerID ASC (deterministic). "less" means
// ranks earlier, so an in-order traversal yields the leaderboard from best
// to worst. Ratings carry two decimals and are keyed in hundredths.
//
// Ranks are dense: equal ratings share a rank and the next distinct rating
// takes the following rank. A second treap over distinct ratings answers
// "how many distinct ratings are higher" in O(log n).

type cents int64

func toCents(x float64) cents {
	if math.IsNaN(x) {
		return 0
	}
	return cents(math.Round(x * 100))
}

func (c cents) float() float64 { return float64(c) / 100 }

// treap node
type node struct {
	id     string
	rating cents
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aRating, aID) should appear before (bRating, bID).
func less(aRating cents, aID string, bRating cents, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating cents) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: rand.Uint64(), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, rating cents) *node {
	if n == nil {
		return nil
	}
	if rating == n.rating && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, rating)
		}
	} else if less(rating, id, n.rating, n.id) {
		n.left = deleteNode(n.left, id, rating)
	} else {
		n.right = deleteNode(n.right, id, rating)
	}
	fix(n)
	return n
}

// countBefore returns how many nodes order strictly before (rating, id).
func countBefore(n *node, rating cents, id string) int {
	count := 0
	for n != nil {
		if less(n.rating, n.id, rating, id) {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in rank order.
func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{PlayerID: n.id, Rating: n.rating.float()})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// Leaderboard ranks players by rating.
type Leaderboard struct {
	mu       sync.RWMutex
	root     *node
	distinct *node // one node per distinct rating, id ""
	byID     map[string]cents
	counts   map[cents]int
}

// NewLeaderboard returns an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		byID:   make(map[string]cents),
		counts: make(map[cents]int),
	}
}

// Upsert sets a player's rating. It reports whether the rating changed.
func (l *Leaderboard) Upsert(_ context.Context, playerID string, rating float64) bool {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	nr := toCents(rating)

	l.mu.Lock()
	old, ok := l.byID[playerID]
	if ok && old == nr {
		l.mu.Unlock()
		return false
	}
	if ok {
		l.removeLocked(playerID, old)
	}
	l.byID[playerID] = nr
	l.root = insert(l.root, playerID, nr)
	if l.counts[nr]++; l.counts[nr] == 1 {
		l.distinct = insert(l.distinct, "", nr)
	}
	size := len(l.byID)
	l.mu.Unlock()

	metrics.RecordLeaderboardUpdate()
	metrics.UpdateLeaderboardSize(size)
	return true
}

// Remove drops a player. Unknown ids are ignored.
func (l *Leaderboard) Remove(_ context.Context, playerID string) {
	l.mu.Lock()
	old, ok := l.byID[playerID]
	if ok {
		l.removeLocked(playerID, old)
		delete(l.byID, playerID)
	}
	size := len(l.byID)
	l.mu.Unlock()

	if ok {
		metrics.UpdateLeaderboardSize(size)
	}
}

// removeLocked unlinks the tree nodes of playerID; the caller owns byID.
func (l *Leaderboard) removeLocked(playerID string, rating cents) {
	l.root = deleteNode(l.root, playerID, rating)
	if l.counts[rating]--; l.counts[rating] == 0 {
		delete(l.counts, rating)
		l.distinct = deleteNode(l.distinct, "", rating)
	}
}

// Reset replaces the whole board with ratings.
func (l *Leaderboard) Reset(_ context.Context, ratings map[string]float64) {
	var root, distinct *node
	byID := make(map[string]cents, len(ratings))
	counts := make(map[cents]int)
	for id, r := range ratings {
		c := toCents(r)
		byID[id] = c
		root = insert(root, id, c)
		if counts[c]++; counts[c] == 1 {
			distinct = insert(distinct, "", c)
		}
	}

	l.mu.Lock()
	l.root, l.distinct, l.byID, l.counts = root, distinct, byID, counts
	l.mu.Unlock()

	metrics.UpdateLeaderboardSize(len(byID))
}

// Rank returns the player's dense rank and rating in O(log n).
func (l *Leaderboard) Rank(_ context.Context, playerID string) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.byID[playerID]
	if !ok {
		metrics.RecordErrorByComponent("leaderboard", "not_found")
		return types.Entry{}, ErrNotFound
	}
	// distinct ratings strictly higher than r
	higher := countBefore(l.distinct, r, "")
	return types.Entry{Rank: higher + 1, PlayerID: playerID, Rating: r.float()}, nil
}

// TopN returns the top n entries ordered by rating desc.
func (l *Leaderboard) TopN(_ context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("leaderboard", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, len(l.byID)))
	collectTopN(l.root, n, &out)
	assignDenseRanks(out)
	return out, nil
}

// Count returns the number of rated players.
func (l *Leaderboard) Count(_ context.Context) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}

// assignDenseRanks ranks a prefix of the board that starts at the top.
func assignDenseRanks(entries []types.Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Rating != entries[i-1].Rating {
			rank++
		}
		entries[i].Rank = rank
	}
}
