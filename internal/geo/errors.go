package geo

import (
	"fmt"
	"strings"

	"fitsearch/internal/utils"
)

// UnresolvedLocationError is returned when a token is not in the gazetteer.
// Suggestions holds up to MaxSuggestions canonical names the caller can offer.
type UnresolvedLocationError struct {
	Token       string
	Suggestions []string
}

func (e *UnresolvedLocationError) Error() string {
	name := e.Token
	if _, kind := ParsePostcode(name); kind == NotPostcode {
		name = utils.TitleCase(name)
	}
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown location %q", name)
	}
	return fmt.Sprintf("unknown location %q, did you mean %s?", name, strings.Join(e.Suggestions, ", "))
}

// Code is the machine-readable clarification code
func (e *UnresolvedLocationError) Code() string {
	return "unresolved_location"
}
