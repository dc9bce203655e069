package ocr

import "regexp"

// SearchOutcome is the result of looking for a keyword in extracted text.
type SearchOutcome struct {
	Found bool
	// Rendered is text with every match wrapped in ** markers. Only
	// meaningful when Found is true.
	Rendered string
}

// Search finds keyword in text case-insensitively, treating keyword as a
// literal string. Callers skip the search when keyword is empty.
func Search(text, keyword string) SearchOutcome {
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(keyword))
	if !re.MatchString(text) {
		return SearchOutcome{}
	}
	return SearchOutcome{
		Found: true,
		Rendered: re.ReplaceAllStringFunc(text, func(m string) string {
			return "**" + m + "**"
		}),
	}
}
