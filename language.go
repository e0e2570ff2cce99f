package osm

import (
	"regexp"
	"strings"
)

var languagePart = regexp.MustCompile(`^[a-zA-Z]{1,8}$`)

// ValidateLanguage checks the syntax of an Accept-Language style tag such as
// "en-GB,fr". Each comma separated subtag may contain hyphen separated parts
// and every part must be one to eight ASCII letters. No registry lookup is
// performed.
func ValidateLanguage(tag string) error {
	for _, sub := range strings.Split(tag, ",") {
		for _, part := range strings.Split(sub, "-") {
			if !languagePart.MatchString(part) {
				return newError(CodeInvalidLanguage, ErrInvalidLanguage.Message, tag, nil)
			}
		}
	}
	return nil
}
