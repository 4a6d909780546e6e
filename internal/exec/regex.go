package exec

import "regexp"

// matchRegex implements the `~` comparison operator: an unanchored
// regular-expression search, not a full match.
func matchRegex(pattern, text string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
