// Package password validates passwords against an administrator defined
// strength policy.
package password

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"
)

// Policy is the administrator defined password policy.
type Policy struct {
	MinimumLength                      int  `json:"minimumLength"`
	MaximumLength                      int  `json:"maximumLength"`
	MinimumUppercaseLetters            int  `json:"minimumUppercaseLetters"`
	MinimumLowercaseLetters            int  `json:"minimumLowercaseLetters"`
	MinimumDigits                      int  `json:"minimumDigits"`
	MinimumSpecialCharacters           int  `json:"minimumSpecialCharacters"`
	AllowWhitespaces                   bool `json:"allowWhitespaces"`
	ForceUserToResetPasswordIfNotValid bool `json:"forceUserToResetPasswordIfNotValid"`
	PasswordExpirationPeriodDays       int  `json:"passwordExpirationPeriodDays"`
	PasswordReuseFrequencyDays         int  `json:"passwordReuseFrequencyDays"`
}

var ErrInvalidPolicy = errors.New("password: invalid policy")

// Validate checks a policy entered by an administrator.
func (p Policy) Validate() error {
	switch {
	case p.MinimumLength < 6 || p.MinimumLength > 50:
		return fmt.Errorf("%w: minimumLength %d not in 6..50", ErrInvalidPolicy, p.MinimumLength)
	case p.MaximumLength != 0 && p.MaximumLength < 6:
		return fmt.Errorf("%w: maximumLength %d below 6", ErrInvalidPolicy, p.MaximumLength)
	case p.MaximumLength != 0 && p.MaximumLength < p.MinimumLength:
		return fmt.Errorf("%w: maximumLength %d below minimumLength %d", ErrInvalidPolicy, p.MaximumLength, p.MinimumLength)
	case p.MinimumUppercaseLetters < 0, p.MinimumLowercaseLetters < 0, p.MinimumDigits < 0, p.MinimumSpecialCharacters < 0:
		return fmt.Errorf("%w: negative character minimum", ErrInvalidPolicy)
	case p.PasswordExpirationPeriodDays < 0, p.PasswordReuseFrequencyDays < 0:
		return fmt.Errorf("%w: negative period", ErrInvalidPolicy)
	}
	return nil
}

// Rule names a violated policy rule.
type Rule string

const (
	MinLength      Rule = "minLength"
	MaxLength      Rule = "maxLength"
	NotUpperCase   Rule = "notUpperCase"
	NotLowerCase   Rule = "notLowerCase"
	NotNumeric     Rule = "notNumeric"
	NotSpecial     Rule = "notSpecial"
	HasWhitespaces Rule = "hasWhitespaces"

	// SamePassword and DifferencePassword compare sibling fields of a password change.
	SamePassword       Rule = "samePassword"
	DifferencePassword Rule = "differencePassword"
)

// Violations is the set of rules a password broke. The zero value means the
// password was not evaluated, which is distinct from an evaluated empty set.
type Violations struct {
	evaluated   bool
	provisional bool
	rules       map[Rule]bool
}

func evaluated() Violations {
	return Violations{evaluated: true, rules: map[Rule]bool{}}
}

func (v *Violations) add(r Rule) {
	v.rules[r] = true
}

func (v Violations) Evaluated() bool { return v.evaluated }

// Provisional reports that no policy was available and only the caller-side rules ran.
func (v Violations) Provisional() bool { return v.provisional }

// Valid reports an evaluated password without violations.
func (v Violations) Valid() bool { return v.evaluated && len(v.rules) == 0 }

func (v Violations) Has(r Rule) bool { return v.rules[r] }

func (v Violations) Len() int { return len(v.rules) }

// Rules returns the violated rules in lexical order.
func (v Violations) Rules() []Rule {
	out := make([]Rule, 0, len(v.rules))
	for r := range v.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes {"rule":true,...}, {} when valid and null when not evaluated.
func (v Violations) MarshalJSON() ([]byte, error) {
	if !v.evaluated {
		return []byte("null"), nil
	}
	return json.Marshal(v.rules)
}

// Validate evaluates every rule of p against password. Rules do not short circuit.
func Validate(password string, p Policy) Violations {
	v := evaluated()
	var upper, lower, digits, special int
	var space bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= 'a' && r <= 'z':
			lower++
		case r >= '0' && r <= '9':
			digits++
		default:
			special++
		}
		if unicode.IsSpace(r) {
			space = true
		}
	}
	length := utf8.RuneCountInString(password)

	if p.MinimumUppercaseLetters > 0 && upper < p.MinimumUppercaseLetters {
		v.add(NotUpperCase)
	}
	if p.MinimumLowercaseLetters > 0 && lower < p.MinimumLowercaseLetters {
		v.add(NotLowerCase)
	}
	if p.MinimumDigits > 0 && digits < p.MinimumDigits {
		v.add(NotNumeric)
	}
	if p.MinimumSpecialCharacters > 0 && special < p.MinimumSpecialCharacters {
		v.add(NotSpecial)
	}
	if !p.AllowWhitespaces && space {
		v.add(HasWhitespaces)
	}
	if p.MinimumLength > 0 && length < p.MinimumLength {
		v.add(MinLength)
	}
	// an empty password always fails, whatever the maximum
	if length == 0 || (p.MaximumLength > 0 && length > p.MaximumLength) {
		v.add(MaxLength)
	}
	return v
}

// CheckChange validates a password change: the new password against p, that
// it differs from the current one and that the confirmation matches it.
func CheckChange(current, next, confirm string, p Policy) Violations {
	v := Validate(next, p)
	compare(&v, current, next, confirm)
	return v
}

func compare(v *Violations, current, next, confirm string) {
	if next == current {
		v.add(SamePassword)
	}
	if confirm != next {
		v.add(DifferencePassword)
	}
}
