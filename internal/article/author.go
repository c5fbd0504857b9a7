package article

import "strings"

// Author is one entry of an article's ordered author list.
type Author struct {
	FullName  string `json:"full_name" bson:"full_name"`   // Cleaned name as it appeared in the source
	FirstName string `json:"first_name" bson:"first_name"` // Everything before the last token
	LastName  string `json:"last_name" bson:"last_name"`   // Final whitespace-separated token
}

// NewAuthor splits a cleaned name into first and last parts.
// Returns false if the name has no tokens.
func NewAuthor(name string) (Author, bool) {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return Author{}, false
	}
	return Author{
		FullName:  strings.Join(tokens, " "),
		FirstName: strings.Join(tokens[:len(tokens)-1], " "),
		LastName:  tokens[len(tokens)-1],
	}, true
}

// DisplayName returns the best available name for display.
func (a Author) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	if a.FirstName != "" {
		return a.FirstName + " " + a.LastName
	}
	return a.LastName
}
