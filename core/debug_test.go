package core

import "testing"

// TestDebugStackFormatter_IndentProtocol verifies the marker rewriting
// Given: A string using "\n`" (indent) and "`\n" (dedent) markers
// When: Format runs
// Then: Lines are indented per level and markers are consumed
func TestDebugStackFormatter_IndentProtocol(t *testing.T) {
	// Arrange
	formatter := DebugStackFormatter{}
	input := "WaitForAny\n`entry one\nentry two`\ntail"

	// Act
	got := formatter.Format(input)

	// Assert
	want := "WaitForAny\n  entry one\n  entry two\ntail"
	if got != want {
		t.Fatalf("formatted = %q, want %q", got, want)
	}
}

// TestDebugStackFormatter_PlainBreaksKeepLevel verifies neutral line breaks
// Given: A string with plain line breaks only
// When: Format runs
// Then: The text is unchanged apart from the zero indent prefix
func TestDebugStackFormatter_PlainBreaksKeepLevel(t *testing.T) {
	// Arrange
	formatter := DebugStackFormatter{}

	// Act
	got := formatter.Format("one\ntwo\nthree")

	// Assert
	if got != "one\ntwo\nthree" {
		t.Fatalf("formatted = %q, want unchanged", got)
	}
}

// TestDebugStackFormatter_CustomWidth verifies the indent width knob
// Given: A formatter with a 4-space indent
// When: Formatting an indented entry
// Then: Nested lines use four spaces per level
func TestDebugStackFormatter_CustomWidth(t *testing.T) {
	// Arrange
	formatter := DebugStackFormatter{IndentWidth: 4}

	// Act
	got := formatter.Format("race\n`inner`\ndone")

	// Assert
	want := "race\n    inner\ndone"
	if got != want {
		t.Fatalf("formatted = %q, want %q", got, want)
	}
}

// TestFormatDebugString verifies flattening and truncation
// Given: A multi-line string longer than the label cap
// When: FormatDebugString runs
// Then: Line breaks become spaces and the result is capped at 32 bytes
func TestFormatDebugString(t *testing.T) {
	// Arrange
	input := "first line\nsecond line that runs long enough to truncate"

	// Act
	got := FormatDebugString(input)

	// Assert
	if len(got) != 32 {
		t.Fatalf("length = %d, want 32", len(got))
	}
	if got != "first line second line that runs" {
		t.Fatalf("formatted = %q", got)
	}
}

// TestCombinatorDebugStack verifies composite awaiter debug rendering
// Given: A race over two named tasks
// When: The race's debug name is rendered and formatted
// Then: Entries appear indented beneath the combinator
func TestCombinatorDebugStack(t *testing.T) {
	// Arrange
	named := func(name string) *Task[Void] {
		return Start(func(tc *TaskContext) {
			tc.SetDebugName(name)
			for {
				tc.Suspend()
			}
		})
	}
	race := WaitForAny(TaskEntry(named("left")), TaskEntry(named("right")))
	defer race.Release()
	race.Resume()

	// Act
	formatted := DebugStackFormatter{}.Format(race.DebugName())

	// Assert
	if formatted != "WaitForAny [\n  left\n  right\n]" {
		t.Fatalf("formatted = %q", formatted)
	}
}
