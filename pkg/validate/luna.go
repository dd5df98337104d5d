package validate

import (
	"github.com/ShiraazMoollatjie/goluhn"
)

const referralCodeLength = 10

func IsLuna(s string) bool {
	err := goluhn.Validate(s)
	return err == nil
}

// NewReferralCode returns a numeric code whose last digit is a Luhn check
// digit, so mistyped codes are rejected before any lookup.
func NewReferralCode() string {
	return goluhn.Generate(referralCodeLength)
}

func IsReferralCode(s string) bool {
	return len(s) == referralCodeLength && IsLuna(s)
}
