// Package conflict resolves git merge conflicts in articles.jsonl using
// knowledge of article records and the screening workflow.
package conflict

import (
	"fmt"

	"github.com/matsen/sysreview/internal/article"
)

// ConflictRegion represents a single git conflict region in a JSONL file.
type ConflictRegion struct {
	// Line numbers in original file (1-indexed)
	StartLine int // Line of <<<<<<< marker
	EndLine   int // Line of >>>>>>> marker

	// Parsed content from each side
	Ours   []article.Record // Articles from "ours" (HEAD) side
	Theirs []article.Record // Articles from "theirs" side
}

// ArticleMatch represents an article that appears on both sides of a conflict.
type ArticleMatch struct {
	Ours      article.Record
	Theirs    article.Record
	MatchedBy string // "doi" or "key"
}

// FieldConflict is a field both sides set to different values.
// Values are stored in full; truncation happens only at display time.
type FieldConflict struct {
	FieldName   string `json:"field"`
	OursValue   string `json:"ours"`
	TheirsValue string `json:"theirs"`
}

// ResolutionPlan describes how a matched article pair will be resolved.
type ResolutionPlan struct {
	CitationKey string
	DOI         string

	Action ResolutionAction
	Reason string

	// True conflicts that need a side chosen
	Conflicts []FieldConflict
}

// ResolutionAction indicates the type of resolution applied.
type ResolutionAction string

const (
	ActionKeepOurs   ResolutionAction = "keep_ours"   // Ours is more complete
	ActionKeepTheirs ResolutionAction = "keep_theirs" // Theirs is more complete
	ActionMerge      ResolutionAction = "merge"       // Complementary data merged
	ActionAddOurs    ResolutionAction = "add_ours"    // Article only in ours
	ActionAddTheirs  ResolutionAction = "add_theirs"  // Article only in theirs
	ActionConflict   ResolutionAction = "conflict"    // True conflict, needs a side chosen
)

// Side names one side of a conflict.
type Side string

const (
	SideNone   Side = ""
	SideOurs   Side = "ours"
	SideTheirs Side = "theirs"
)

// ParseSide validates a --prefer value.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideNone, SideOurs, SideTheirs:
		return Side(s), nil
	}
	return SideNone, fmt.Errorf("invalid side %q (want ours or theirs)", s)
}

// ParseError represents an error while parsing conflict markers or JSONL.
type ParseError struct {
	Line    int    // Line number where error occurred (1-indexed)
	Message string // Description of the error
	Context string // Surrounding content for debugging
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ParseResult contains the result of parsing a conflicted file.
type ParseResult struct {
	// Lines outside conflict regions (clean content)
	CleanLines []CleanLine

	// Conflict regions found
	Conflicts []ConflictRegion
}

// CleanLine represents a line outside of any conflict region.
type CleanLine struct {
	LineNum int    // Line number in original file (1-indexed)
	Content string // Line content
}

// MatchResult contains the result of matching articles in a conflict region.
type MatchResult struct {
	// Articles on both sides (same DOI or key)
	Matches []ArticleMatch

	OursOnly   []article.Record
	TheirsOnly []article.Record
}
