package api

import "regexp"

// Ethiopian mobile formats. Validation is structural only, not a
// carrier lookup.
var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^09\d{8}$`),
	regexp.MustCompile(`^\+2519\d{8}$`),
	regexp.MustCompile(`^2519\d{8}$`),
	regexp.MustCompile(`^07\d{8}$`),
}

func validPhone(phone string) bool {
	for _, p := range phonePatterns {
		if p.MatchString(phone) {
			return true
		}
	}

	return false
}
