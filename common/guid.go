package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeGUID prepares MOBI unique id for the record "guid" field.
//
// Tools dumping MOBI header report uniqid as a decimal number while Kindle
// expects upper case hex. Value which already contains hex letters is taken as
// is (upper-cased).
func NormalizeGUID(in string) (string, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		return "", errors.New("guid is empty")
	}

	if strings.IndexFunc(s, isASCIILetter) >= 0 {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		if _, err := strconv.ParseUint(s, 16, 64); err != nil {
			return "", fmt.Errorf("guid %q is neither decimal nor hex: %w", in, err)
		}
		s = strings.ToUpper(strings.TrimLeft(s, "0"))
		if s == "" {
			return "", fmt.Errorf("guid %q converts to zero", in)
		}
		return s, nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", fmt.Errorf("guid %q is not a number: %w", in, err)
	}
	if v == 0 {
		return "", fmt.Errorf("guid %q converts to zero", in)
	}
	return strings.ToUpper(strconv.FormatUint(v, 16)), nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
