package dispatch

import (
	"testing"

	"github.com/pi-agent/messenger/internal/executor"
)

func TestParseVerdictFindsTaggedLineAmongFreeText(t *testing.T) {
	output := "Looking at the diff, this seems mostly fine.\n\nVERDICT: NEEDS_WORK\n\nThanks for the patience."
	v, ok := parseVerdict(output)
	if !ok {
		t.Fatalf("expected a verdict to be found")
	}
	if v != executor.VerdictNeedsWork {
		t.Fatalf("expected NEEDS_WORK, got %q", v)
	}
}

func TestParseVerdictMissingTagReturnsFalse(t *testing.T) {
	if _, ok := parseVerdict("looks good to me, ship it"); ok {
		t.Fatalf("expected no verdict without a VERDICT: line")
	}
}

func TestParsePlanBlocksSplitsOnTaskLines(t *testing.T) {
	output := `Some analyst preamble that should be ignored.

TASK: Add rate limiting
DEPENDS_ON: Wire config loader, Add metrics
Implement a token bucket around the inbound handler.

TASK: Add metrics
No dependencies here.
`
	blocks := parsePlanBlocks(output)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Title != "Add rate limiting" {
		t.Fatalf("unexpected title: %q", blocks[0].Title)
	}
	if len(blocks[0].DependsOn) != 2 || blocks[0].DependsOn[0] != "Wire config loader" || blocks[0].DependsOn[1] != "Add metrics" {
		t.Fatalf("unexpected depends_on: %+v", blocks[0].DependsOn)
	}
	if blocks[0].Description == "" {
		t.Fatalf("expected a description for the first block")
	}
	if blocks[1].Title != "Add metrics" || len(blocks[1].DependsOn) != 0 {
		t.Fatalf("unexpected second block: %+v", blocks[1])
	}
}

func TestParsePlanBlocksEmptyOutputYieldsNoBlocks(t *testing.T) {
	if blocks := parsePlanBlocks("no tasks here at all"); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %+v", blocks)
	}
}
