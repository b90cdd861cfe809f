package core

import (
	"math"
	"testing"
)

// TestDataTokenList_Aggregation verifies the aggregation queries
// Given: Tokens with payloads 0.5, 1.2, 0.8 where the first is released
// When: The aggregate queries run
// Then: max=1.2 min=0.8 mean=1.0 most_recent=0.8 least_recent=1.2 any=true,
//       and releasing the rest empties the list
func TestDataTokenList_Aggregation(t *testing.T) {
	// Arrange
	var list DataTokenList[float64]
	first := list.TakeToken("first", 0.5)
	second := list.TakeToken("second", 1.2)
	third := list.TakeToken("third", 0.8)

	// Act
	first.Release()

	// Assert
	if v, ok := list.Max(); !ok || v != 1.2 {
		t.Fatalf("max = (%v, %v), want (1.2, true)", v, ok)
	}
	if v, ok := list.Min(); !ok || v != 0.8 {
		t.Fatalf("min = (%v, %v), want (0.8, true)", v, ok)
	}
	if v, ok := list.Mean(); !ok || math.Abs(v-1.0) > 1e-9 {
		t.Fatalf("mean = (%v, %v), want (1.0, true)", v, ok)
	}
	if v, ok := list.MostRecent(); !ok || v != 0.8 {
		t.Fatalf("most recent = (%v, %v), want (0.8, true)", v, ok)
	}
	if v, ok := list.LeastRecent(); !ok || v != 1.2 {
		t.Fatalf("least recent = (%v, %v), want (1.2, true)", v, ok)
	}
	if !list.Any() {
		t.Fatal("list with live tokens should report any = true")
	}

	// Act
	second.Release()
	third.Release()

	// Assert
	if list.Any() {
		t.Fatal("list with no live tokens should report any = false")
	}
}

// TestDataTokenList_EqualPayloadsAreDistinctTokens verifies token identity
// Given: Two distinct tokens carrying the same payload
// When: One is released
// Then: The other still counts (tokens are never deduplicated by payload)
func TestDataTokenList_EqualPayloadsAreDistinctTokens(t *testing.T) {
	// Arrange
	var list DataTokenList[int]
	a := list.TakeToken("a", 7)
	b := list.TakeToken("b", 7)

	// Act
	a.Release()

	// Assert
	if !list.Contains(7) {
		t.Fatal("second token with the same payload must survive the first's release")
	}
	if got := len(list.SnapshotData()); got != 1 {
		t.Fatalf("snapshot length = %d, want 1", got)
	}
	b.Release()
}

// TestDataTokenList_AddRemoveAndDedup verifies membership operations
// Given: A token added twice and then removed
// When: Membership is queried around each step
// Then: Duplicate adds are prevented and removal is immediate
func TestDataTokenList_AddRemoveAndDedup(t *testing.T) {
	// Arrange
	var list DataTokenList[int]
	token := NewDataToken("dup", 3)

	// Act
	list.AddToken(token)
	list.AddToken(token)

	// Assert
	if got := len(list.SnapshotData()); got != 1 {
		t.Fatalf("snapshot length after duplicate add = %d, want 1", got)
	}

	// Act
	list.RemoveToken(token)

	// Assert
	if list.Any() {
		t.Fatal("removed token should not count as live")
	}
}

// TestTokenList_FlagSemantics verifies the payload-less list
// Given: Tasks holding plain tokens
// When: Tokens are taken and released
// Then: HasTokens tracks liveness and the debug string lists names
func TestTokenList_FlagSemantics(t *testing.T) {
	// Arrange
	var list TokenList

	// Assert
	if list.HasTokens() {
		t.Fatal("empty list should have no tokens")
	}
	if got := list.DebugString(); got != "[no tokens]" {
		t.Fatalf("debug = %q, want [no tokens]", got)
	}

	// Act
	stunned := list.TakeToken("stunned")
	rooted := list.TakeToken("rooted")

	// Assert
	if !list.HasTokens() {
		t.Fatal("list should report live tokens")
	}
	if got := list.DebugString(); got != "stunned\nrooted" {
		t.Fatalf("debug = %q, want stunned\\nrooted", got)
	}

	// Act
	stunned.Release()
	rooted.Release()

	// Assert
	if list.HasTokens() {
		t.Fatal("all tokens released, list should be empty")
	}
}

// TestTokenList_HeldAcrossSuspensions verifies the scope-guard idiom
// Given: A task that holds a token while it runs
// When: The task is killed mid-suspension
// Then: The deferred release removes the token from the list
func TestTokenList_HeldAcrossSuspensions(t *testing.T) {
	// Arrange
	var poisoned TokenList
	task := Start(func(tc *TaskContext) {
		token := poisoned.TakeToken("poison instance")
		defer token.Release()
		for {
			tc.Suspend()
		}
	})
	task.Resume()

	// Assert
	if !poisoned.HasTokens() {
		t.Fatal("token should be live while the task holds it")
	}

	// Act
	task.Release()

	// Assert
	if poisoned.HasTokens() {
		t.Fatal("killing the task should release its token")
	}
}
