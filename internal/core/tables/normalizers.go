package tables

import "github.com/JonMunkholm/dbadmin/internal/core"

// phone returns a phone rule for the given digit count using the standard
// grouping for that length.
func phone(digits int) core.Phone {
	return core.Phone{
		Digits:  digits,
		Groups:  core.DefaultPhoneGroups(digits),
		Message: phoneMessage(digits),
	}
}

func phoneMessage(digits int) string {
	switch digits {
	case 11:
		return "phone number must contain exactly 11 digits, e.g. 8 999 123 45 67"
	case 12:
		return "phone number must contain exactly 12 digits, e.g. 375 29 123 45 67"
	default:
		return ""
	}
}
