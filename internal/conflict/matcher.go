package conflict

import "github.com/matsen/sysreview/internal/bibtex"

// MatchArticles pairs articles between the two sides of a conflict region,
// by normalized DOI first, then by citation key.
func MatchArticles(region ConflictRegion) MatchResult {
	result := MatchResult{}

	oursByDOI := make(map[string]int)
	oursByKey := make(map[string]int)
	for i, rec := range region.Ours {
		if doi := bibtex.NormalizeDOI(rec.DOI); doi != "" {
			oursByDOI[doi] = i
		}
		if rec.CitationKey != "" {
			oursByKey[rec.CitationKey] = i
		}
	}

	oursMatched := make(map[int]bool)
	theirsMatched := make(map[int]bool)

	// First pass: match by DOI
	for j, theirs := range region.Theirs {
		doi := bibtex.NormalizeDOI(theirs.DOI)
		if doi == "" {
			continue
		}
		if i, ok := oursByDOI[doi]; ok && !oursMatched[i] {
			result.Matches = append(result.Matches, ArticleMatch{Ours: region.Ours[i], Theirs: theirs, MatchedBy: "doi"})
			oursMatched[i] = true
			theirsMatched[j] = true
		}
	}

	// Second pass: match by key for articles not yet matched
	for j, theirs := range region.Theirs {
		if theirsMatched[j] || theirs.CitationKey == "" {
			continue
		}
		if i, ok := oursByKey[theirs.CitationKey]; ok && !oursMatched[i] {
			result.Matches = append(result.Matches, ArticleMatch{Ours: region.Ours[i], Theirs: theirs, MatchedBy: "key"})
			oursMatched[i] = true
			theirsMatched[j] = true
		}
	}

	for i, rec := range region.Ours {
		if !oursMatched[i] {
			result.OursOnly = append(result.OursOnly, rec)
		}
	}
	for j, rec := range region.Theirs {
		if !theirsMatched[j] {
			result.TheirsOnly = append(result.TheirsOnly, rec)
		}
	}

	return result
}
