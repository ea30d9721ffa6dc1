package caption

import (
	"fmt"
	"io"
	"strings"
)

// timingDelimiter separates start and end timestamps on a timing line.
const timingDelimiter = "-->"

// ParseIssue records a block that looked like a cue but could not be parsed.
type ParseIssue struct {
	// Line is the 1-based line number of the offending timing line.
	Line int
	// Reason describes why the block was dropped.
	Reason string
}

// String returns a human-readable representation for logging.
func (i ParseIssue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Reason)
}

// ParseReport is the outcome of parsing one caption file.
type ParseReport struct {
	// Cues holds the successfully parsed cues in file order.
	Cues []Cue
	// Issues lists dropped cue blocks.
	Issues []ParseIssue
	// SkippedBlocks counts blocks without a timing line (NOTE, STYLE, REGION, stray text).
	SkippedBlocks int
}

// line is an input line tagged with its 1-based position.
type line struct {
	n    int
	text string
}

// Parse converts WebVTT text into cues. It never fails: malformed cue
// blocks are dropped, reported in ParseReport.Issues, and parsing
// continues with the next block.
func Parse(data []byte) ParseReport {
	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")

	var report ParseReport

	// Skip the header token and any metadata up to the first blank or timing line.
	i := 0
	for i < len(lines) {
		l := strings.TrimSpace(lines[i])
		if l == "" || strings.Contains(l, timingDelimiter) {
			break
		}
		i++
	}

	var block []line
	for ; i < len(lines); i++ {
		l := strings.TrimSpace(lines[i])
		if l == "" {
			report.flush(block)
			block = block[:0]
			continue
		}
		block = append(block, line{n: i + 1, text: l})
	}
	report.flush(block)

	return report
}

// Read reads all of r and parses it.
func Read(r io.Reader) (ParseReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ParseReport{}, fmt.Errorf("read captions: %w", err)
	}
	return Parse(data), nil
}

// flush turns an accumulated block into a cue, an issue, or a skip.
func (r *ParseReport) flush(block []line) {
	if len(block) == 0 {
		return
	}

	// The timing line may be preceded by a single cue identifier line.
	timing := -1
	for k := 0; k < len(block) && k < 2; k++ {
		if strings.Contains(block[k].text, timingDelimiter) {
			timing = k
			break
		}
	}
	if timing < 0 {
		r.SkippedBlocks++
		return
	}

	header := block[timing].text
	start, end, settings, err := parseTiming(header)
	if err != nil {
		r.Issues = append(r.Issues, ParseIssue{Line: block[timing].n, Reason: err.Error()})
		return
	}

	cue := Cue{
		Start:    start,
		End:      end,
		Header:   header,
		Settings: settings,
		Text:     make([]string, 0, len(block)-timing-1),
	}
	if timing == 1 {
		cue.ID = block[0].text
	}
	for _, l := range block[timing+1:] {
		cue.Text = append(cue.Text, l.text)
	}
	r.Cues = append(r.Cues, cue)
}
