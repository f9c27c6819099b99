package dispatch

import (
	"strings"

	"github.com/pi-agent/messenger/internal/executor"
)

// parseVerdict looks for an authoritative "VERDICT: <tag>" line in a
// reviewer worker's output, per spec §9's open-question resolution:
// the structured tag is authoritative, free-text around it is ignored.
func parseVerdict(output string) (executor.Verdict, bool) {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "VERDICT:") {
			continue
		}
		switch strings.TrimSpace(strings.TrimPrefix(trimmed, "VERDICT:")) {
		case string(executor.VerdictShip):
			return executor.VerdictShip, true
		case string(executor.VerdictNeedsWork):
			return executor.VerdictNeedsWork, true
		case string(executor.VerdictMajorRethink):
			return executor.VerdictMajorRethink, true
		}
	}
	return "", false
}

// planTaskBlock is one task the analyst step parsed out of its own
// output, per spec §5/§9's "treat the verdict tag/structured envelope as
// authoritative, ignore free-text" guidance generalized to task blocks:
// the analyst is asked to emit a fixed block format, and anything that
// doesn't match it is simply not a task.
type planTaskBlock struct {
	Title       string
	Description string
	DependsOn   []string
}

// parsePlanBlocks scans analyst output for blocks of the form:
//
//	TASK: <title>
//	DEPENDS_ON: <title a>, <title b>   (optional)
//	<free-text description, until the next TASK: line or EOF>
//
// This is a deliberately narrow, line-oriented format rather than a
// markdown or JSON parser: per spec §9's open question on the review
// step, the structured envelope is authoritative and prose around it is
// ignored rather than fought with a lenient parser.
func parsePlanBlocks(output string) []planTaskBlock {
	var blocks []planTaskBlock
	var cur *planTaskBlock
	var desc []string

	flush := func() {
		if cur == nil {
			return
		}
		cur.Description = strings.TrimSpace(strings.Join(desc, "\n"))
		blocks = append(blocks, *cur)
		cur = nil
		desc = nil
	}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "TASK:"):
			flush()
			title := strings.TrimSpace(strings.TrimPrefix(trimmed, "TASK:"))
			cur = &planTaskBlock{Title: title}
		case strings.HasPrefix(trimmed, "DEPENDS_ON:") && cur != nil:
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "DEPENDS_ON:"))
			for _, dep := range strings.Split(rest, ",") {
				dep = strings.TrimSpace(dep)
				if dep != "" {
					cur.DependsOn = append(cur.DependsOn, dep)
				}
			}
		case cur != nil:
			desc = append(desc, line)
		}
	}
	flush()
	return blocks
}
