package conflict

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/storage"
)

// Parser state machine states
type parserState int

const (
	stateNormal parserState = iota
	stateInOurs
	stateInBase
	stateInTheirs
)

// Conflict marker prefixes
const (
	oursMarker      = "<<<<<<<"
	baseMarker      = "|||||||"
	separatorMarker = "======="
	theirsMarker    = ">>>>>>>"
)

// Parse reads a conflicted file and returns the parse result.
// diff3 base sections are skipped.
func Parse(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, storage.MaxJSONLLineCapacity), storage.MaxJSONLLineCapacity)
	result := &ParseResult{}

	state := stateNormal
	lineNum := 0
	var region ConflictRegion
	var oursLines, theirsLines []string
	var theirsStart int

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		marker := markerOf(line)

		switch state {
		case stateNormal:
			switch marker {
			case oursMarker:
				region = ConflictRegion{StartLine: lineNum}
				oursLines, theirsLines = nil, nil
				state = stateInOurs
			case "":
				result.CleanLines = append(result.CleanLines, CleanLine{LineNum: lineNum, Content: line})
			default:
				return nil, ParseError{Line: lineNum, Message: "unexpected marker outside conflict region", Context: line}
			}

		case stateInOurs, stateInBase:
			switch marker {
			case "":
				if state == stateInOurs {
					oursLines = append(oursLines, line)
				}
			case baseMarker:
				state = stateInBase
			case separatorMarker:
				state = stateInTheirs
				theirsStart = lineNum + 1
			case oursMarker:
				return nil, ParseError{Line: lineNum, Message: "nested conflict markers not allowed", Context: line}
			default:
				return nil, ParseError{Line: lineNum, Message: "unexpected end marker before separator", Context: line}
			}

		case stateInTheirs:
			switch marker {
			case "":
				theirsLines = append(theirsLines, line)
			case theirsMarker:
				region.EndLine = lineNum

				var err error
				if region.Ours, err = parseJSONLContent(oursLines, region.StartLine+1); err != nil {
					return nil, err
				}
				if region.Theirs, err = parseJSONLContent(theirsLines, theirsStart); err != nil {
					return nil, err
				}

				result.Conflicts = append(result.Conflicts, region)
				state = stateNormal
			case oursMarker:
				return nil, ParseError{Line: lineNum, Message: "nested conflict markers not allowed", Context: line}
			default:
				return nil, ParseError{Line: lineNum, Message: "duplicate separator marker in conflict region", Context: line}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if state != stateNormal {
		return nil, ParseError{Line: lineNum, Message: "unterminated conflict region at end of file"}
	}

	return result, nil
}

// markerOf returns the conflict marker a line starts with, or "".
func markerOf(line string) string {
	for _, m := range []string{oursMarker, baseMarker, separatorMarker, theirsMarker} {
		if strings.HasPrefix(line, m) {
			return m
		}
	}
	return ""
}

// parseJSONLContent parses JSONL lines into records.
func parseJSONLContent(lines []string, startLine int) ([]article.Record, error) {
	var records []article.Record

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec article.Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, ParseError{
				Line:    startLine + i,
				Message: "invalid JSON: " + err.Error(),
				Context: truncate(line, 50),
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// truncate truncates a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ParseString is a convenience function that parses from a string.
func ParseString(content string) (*ParseResult, error) {
	return Parse(strings.NewReader(content))
}

// HasConflicts returns true if the parse result contains any conflict regions.
func (r *ParseResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// CleanRecords parses the clean lines between two line numbers (exclusive).
// Lines that are not valid records are skipped.
func (r *ParseResult) CleanRecords(after, before int) []article.Record {
	var records []article.Record
	for _, cl := range r.CleanLines {
		if cl.LineNum <= after || cl.LineNum >= before {
			continue
		}
		content := strings.TrimSpace(cl.Content)
		if content == "" {
			continue
		}
		var rec article.Record
		if err := json.Unmarshal([]byte(content), &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records
}

// Assemble rebuilds the full record list, replacing each conflict region
// with its resolved records. resolved must have one entry per region.
func (r *ParseResult) Assemble(resolved [][]article.Record) []article.Record {
	var all []article.Record
	prevEnd := 0
	for i, region := range r.Conflicts {
		all = append(all, r.CleanRecords(prevEnd, region.StartLine)...)
		if i < len(resolved) {
			all = append(all, resolved[i]...)
		}
		prevEnd = region.EndLine
	}
	return append(all, r.CleanRecords(prevEnd, int(^uint(0)>>1))...)
}
