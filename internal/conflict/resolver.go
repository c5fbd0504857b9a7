package conflict

import (
	"strconv"
	"strings"

	"github.com/matsen/sysreview/internal/article"
	"github.com/matsen/sysreview/internal/bibtex"
)

// Field completeness weights (higher = more important)
const (
	weightAbstract = 5
	weightAuthors  = 4
	weightJournal  = 3
	weightYear     = 2
	weightDOI      = 1
)

// Resolve determines the resolution plan for a matched article pair and
// returns the merged record. Fields in true conflict take the value of
// prefer, or of ours when prefer is SideNone.
func Resolve(match ArticleMatch, prefer Side) (ResolutionPlan, article.Record) {
	plan := ResolutionPlan{
		CitationKey: match.Ours.CitationKey,
		DOI:         match.Ours.DOI,
	}

	merged, conflicts := MergeRecords(match.Ours, match.Theirs, prefer)

	if len(conflicts) > 0 {
		plan.Conflicts = conflicts
		switch prefer {
		case SideOurs:
			plan.Action = ActionKeepOurs
			plan.Reason = "conflicts on " + conflictFieldNames(conflicts) + " settled for ours"
		case SideTheirs:
			plan.Action = ActionKeepTheirs
			plan.Reason = "conflicts on " + conflictFieldNames(conflicts) + " settled for theirs"
		default:
			plan.Action = ActionConflict
			plan.Reason = "true conflicts on: " + conflictFieldNames(conflicts)
		}
		return plan, merged
	}

	if isComplementary(match.Ours, match.Theirs) {
		plan.Action = ActionMerge
		plan.Reason = "complementary metadata merged"
		return plan, merged
	}

	oursScore := ComputeCompleteness(match.Ours)
	theirsScore := ComputeCompleteness(match.Theirs)

	if oursScore == theirsScore {
		oursAuthors := len(match.Ours.Authors)
		theirsAuthors := len(match.Theirs.Authors)
		if theirsAuthors > oursAuthors {
			plan.Action = ActionKeepTheirs
			plan.Reason = "theirs has more authors"
			return plan, merged
		} else if oursAuthors > theirsAuthors {
			plan.Action = ActionKeepOurs
			plan.Reason = "ours has more authors"
			return plan, merged
		}
	}

	if oursScore >= theirsScore {
		plan.Action = ActionKeepOurs
		if oursScore > theirsScore {
			plan.Reason = "ours is more complete"
		} else {
			plan.Reason = "identical metadata, keeping ours"
		}
	} else {
		plan.Action = ActionKeepTheirs
		plan.Reason = "theirs is more complete"
	}

	return plan, merged
}

// isComplementary returns true if each side has metadata the other lacks.
func isComplementary(ours, theirs article.Record) bool {
	oursHasExtra := false
	theirsHasExtra := false

	check := func(o, t bool) {
		if o && !t {
			oursHasExtra = true
		}
		if t && !o {
			theirsHasExtra = true
		}
	}

	check(ours.Abstract != "", theirs.Abstract != "")
	check(ours.Journal != "", theirs.Journal != "")
	check(ours.DOI != "", theirs.DOI != "")
	check(len(ours.Authors) > 0, len(theirs.Authors) > 0)
	check(ours.HasYear(), theirs.HasYear())
	check(ours.Status() != article.StatusPending, theirs.Status() != article.StatusPending)

	return oursHasExtra && theirsHasExtra
}

// MergeRecords merges two versions of the same article.
//
// Bibliographic fields take whichever side is set; both set and different
// is a conflict. Keywords and labels are unioned. A pending screening
// status yields to a decision; two different decisions conflict. Distinct
// notes are joined.
func MergeRecords(ours, theirs article.Record, prefer Side) (article.Record, []FieldConflict) {
	merged := ours
	var conflicts []FieldConflict

	mergeField := func(fieldName, oursVal, theirsVal string, target *string) {
		val, conflict := mergeString(fieldName, oursVal, theirsVal, prefer)
		*target = val
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
	}

	mergeField("title", ours.Title, theirs.Title, &merged.Title)
	mergeField("journal", ours.Journal, theirs.Journal, &merged.Journal)
	mergeField("publisher", ours.Publisher, theirs.Publisher, &merged.Publisher)
	mergeField("volume", ours.Volume, theirs.Volume, &merged.Volume)
	mergeField("booktitle", ours.Booktitle, theirs.Booktitle, &merged.Booktitle)
	mergeField("school", ours.School, theirs.School, &merged.School)
	mergeField("institution", ours.Institution, theirs.Institution, &merged.Institution)
	mergeField("url", ours.URL, theirs.URL, &merged.URL)
	mergeField("isbn", ours.ISBN, theirs.ISBN, &merged.ISBN)
	mergeField("issn", ours.ISSN, theirs.ISSN, &merged.ISSN)
	mergeField("abstract", ours.Abstract, theirs.Abstract, &merged.Abstract)
	mergeField("imported_from", ours.ImportedFrom, theirs.ImportedFrom, &merged.ImportedFrom)
	mergeField("source_file", ours.SourceFile, theirs.SourceFile, &merged.SourceFile)

	// DOIs compare case-insensitively and without resolver prefixes
	merged.DOI = nonEmpty(ours.DOI, theirs.DOI)
	if ours.DOI != "" && theirs.DOI != "" && bibtex.NormalizeDOI(ours.DOI) != bibtex.NormalizeDOI(theirs.DOI) {
		merged.DOI = pick(ours.DOI, theirs.DOI, prefer)
		conflicts = append(conflicts, FieldConflict{FieldName: "doi", OursValue: ours.DOI, TheirsValue: theirs.DOI})
	}

	authors, conflict := mergeAuthors(ours.Authors, theirs.Authors, prefer)
	merged.Authors = authors
	if conflict != nil {
		conflicts = append(conflicts, *conflict)
	}

	year, conflict := mergeYear(ours, theirs, prefer)
	merged.Year = year
	if conflict != nil {
		conflicts = append(conflicts, *conflict)
	}
	merged.PublicationDate = nonEmpty(ours.PublicationDate, theirs.PublicationDate)

	merged.Keywords = unionStrings(ours.Keywords, theirs.Keywords)
	merged.Labels = article.DedupeLabels(append(append([]string{}, ours.Labels...), theirs.Labels...))

	status, conflict := mergeStatus(ours, theirs, prefer)
	merged.ScreeningStatus = status
	if conflict != nil {
		conflicts = append(conflicts, *conflict)
	}

	merged.ScreeningNotes = mergeNotes(ours.ScreeningNotes, theirs.ScreeningNotes)

	return merged, conflicts
}

// mergeString merges a single string field, returning the value and a
// conflict if both sides are set and differ.
func mergeString(fieldName, ours, theirs string, prefer Side) (string, *FieldConflict) {
	if ours == "" {
		return theirs, nil
	}
	if theirs == "" || ours == theirs {
		return ours, nil
	}
	return pick(ours, theirs, prefer), &FieldConflict{FieldName: fieldName, OursValue: ours, TheirsValue: theirs}
}

// mergeAuthors keeps the longer author list. Lists of equal length that
// differ are a conflict.
func mergeAuthors(ours, theirs []article.Author, prefer Side) ([]article.Author, *FieldConflict) {
	if len(theirs) > len(ours) {
		return theirs, nil
	}
	if len(ours) > len(theirs) || authorsEqual(ours, theirs) {
		return ours, nil
	}

	conflict := &FieldConflict{FieldName: "authors", OursValue: formatAuthors(ours), TheirsValue: formatAuthors(theirs)}
	if prefer == SideTheirs {
		return theirs, conflict
	}
	return ours, conflict
}

func mergeYear(ours, theirs article.Record, prefer Side) (*int, *FieldConflict) {
	oy, oursOK := ours.YearValue()
	ty, theirsOK := theirs.YearValue()
	switch {
	case !theirsOK:
		return ours.Year, nil
	case !oursOK:
		return theirs.Year, nil
	case oy == ty:
		return ours.Year, nil
	}

	conflict := &FieldConflict{FieldName: "year", OursValue: strconv.Itoa(oy), TheirsValue: strconv.Itoa(ty)}
	if prefer == SideTheirs {
		return theirs.Year, conflict
	}
	return ours.Year, conflict
}

func mergeStatus(ours, theirs article.Record, prefer Side) (string, *FieldConflict) {
	oursStatus, theirsStatus := ours.Status(), theirs.Status()
	switch {
	case theirsStatus == article.StatusPending:
		return ours.ScreeningStatus, nil
	case oursStatus == article.StatusPending || oursStatus == theirsStatus:
		return theirs.ScreeningStatus, nil
	}
	return pick(ours.ScreeningStatus, theirs.ScreeningStatus, prefer),
		&FieldConflict{FieldName: "screening_status", OursValue: string(oursStatus), TheirsValue: string(theirsStatus)}
}

// mergeNotes keeps both notes when they differ.
func mergeNotes(ours, theirs string) string {
	ours, theirs = strings.TrimSpace(ours), strings.TrimSpace(theirs)
	switch {
	case theirs == "" || ours == theirs || strings.Contains(ours, theirs):
		return ours
	case ours == "" || strings.Contains(theirs, ours):
		return theirs
	}
	return ours + "\n" + theirs
}

func pick(ours, theirs string, prefer Side) string {
	if prefer == SideTheirs {
		return theirs
	}
	return ours
}

// ComputeCompleteness calculates a weighted completeness score for a record.
func ComputeCompleteness(rec article.Record) int {
	score := 0
	if rec.Abstract != "" {
		score += weightAbstract
	}
	if len(rec.Authors) > 0 {
		score += weightAuthors
	}
	if rec.Journal != "" {
		score += weightJournal
	}
	if rec.HasYear() {
		score += weightYear
	}
	if rec.DOI != "" {
		score += weightDOI
	}
	return score
}

// ResolveRegion resolves one conflict region. Articles present on one side
// only are kept. unresolved counts matched pairs left in true conflict;
// their records carry the ours value for each conflicting field.
func ResolveRegion(region ConflictRegion, prefer Side) (records []article.Record, plans []ResolutionPlan, unresolved int) {
	result := MatchArticles(region)

	for _, m := range result.Matches {
		plan, merged := Resolve(m, prefer)
		if plan.Action == ActionConflict {
			unresolved++
		}
		plans = append(plans, plan)
		records = append(records, merged)
	}

	for _, rec := range result.OursOnly {
		plans = append(plans, ResolutionPlan{CitationKey: rec.CitationKey, DOI: rec.DOI, Action: ActionAddOurs, Reason: "only in ours"})
		records = append(records, rec)
	}
	for _, rec := range result.TheirsOnly {
		plans = append(plans, ResolutionPlan{CitationKey: rec.CitationKey, DOI: rec.DOI, Action: ActionAddTheirs, Reason: "only in theirs"})
		records = append(records, rec)
	}

	return records, plans, unresolved
}

// Helper functions

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func authorsEqual(a, b []article.Author) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].DisplayName() != b[i].DisplayName() {
			return false
		}
	}
	return true
}

func formatAuthors(authors []article.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.DisplayName()
	}
	return strings.Join(names, "; ")
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func conflictFieldNames(conflicts []FieldConflict) string {
	names := make([]string, len(conflicts))
	for i, c := range conflicts {
		names[i] = c.FieldName
	}
	return strings.Join(names, ", ")
}
