package models

import "strings"

// Gender is the self-reported gender of a searching user.
// The zero value means the user did not set one.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// ParseGender normalizes a free-form profile value into one of the known
// variants. Any non-empty value that is not male or female becomes GenderOther.
func ParseGender(raw string) Gender {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return GenderUnset
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderOther
	}
}

// IsSet reports whether the user provided any gender at all.
func (g Gender) IsSet() bool {
	return g != GenderUnset
}

// Opposite returns the opposite gender. It is only defined for male and female.
func (g Gender) Opposite() (Gender, bool) {
	switch g {
	case GenderMale:
		return GenderFemale, true
	case GenderFemale:
		return GenderMale, true
	default:
		return GenderUnset, false
	}
}

func (g Gender) String() string {
	if g == GenderUnset {
		return "unset"
	}
	return string(g)
}
