package annotation

import (
	"regexp"
	"strconv"
	"unicode"
)

// EquivID is the literal marker used in place of an id on equivalence lines.
const EquivID = "*"

var idPattern = regexp.MustCompile(`^([A-Za-z]+|#[A-Za-z]*)([0-9]+)(.*?)$`)

// SplitID splits an id such as "T12_a" into its prefix ("T"), number ("12")
// and free suffix ("_a").
func SplitID(id string) (prefix, number, suffix string, err error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return "", "", "", &InvalidIDError{ID: id}
	}
	return m[1], m[2], m[3], nil
}

// IDPrefix returns the leading non-digit part of an id.
func IDPrefix(id string) (string, error) {
	for i, r := range id {
		if unicode.IsDigit(r) {
			if i == 0 {
				return "", &InvalidIDError{ID: id}
			}
			return id[:i], nil
		}
	}
	if id == "" {
		return "", &InvalidIDError{ID: id}
	}
	return id, nil
}

// IDNumber returns the numeric part of an id.
func IDNumber(id string) (int, error) {
	_, num, _, err := SplitID(id)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, &InvalidIDError{ID: id}
	}
	return n, nil
}

// IsValidID reports whether id is well formed. The equivalence marker is valid.
func IsValidID(id string) bool {
	if id == EquivID {
		return true
	}
	return idPattern.MatchString(id)
}

// SplitRole separates a trailing run of digits from an argument role,
// e.g. "Theme2" -> ("Theme", "2"). The first character is never split off.
func SplitRole(role string) (base, number string) {
	i := len(role)
	for i > 1 && role[i-1] >= '0' && role[i-1] <= '9' {
		i--
	}
	return role[:i], role[i:]
}
