package models

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/desertthunder/snackx/internal/shared"
)

// Code is one entry of a backend enum with its display label.
type Code struct {
	Value string
	Label string
}

// HealthConcerns are the health purposes a user can register, in display order.
var HealthConcerns = []Code{
	{"BLOOD_SUGAR", "혈당"},
	{"BLOOD_PRESSURE", "고혈압"},
	{"CHOLESTEROL", "콜레스테롤"},
	{"WEIGHT_CONTROL", "체중 관리"},
	{"KIDNEY", "신장"},
	{"HEART", "심혈관"},
}

// Allergies are the allergens a user can register, in display order.
var Allergies = []Code{
	{"MILK", "우유"},
	{"EGG", "계란"},
	{"WHEAT", "밀"},
	{"SOY", "대두"},
	{"PEANUT", "땅콩"},
	{"TREE_NUT", "견과류"},
	{"FISH", "생선"},
	{"SHELLFISH", "조개/갑각류"},
	{"SESAME", "참깨"},
	{"BUCKWHEAT", "메밀"},
}

// NormalizeCodes maps each entry, given as a code or a label, onto its code.
//
// Unknown entries and repeats are dropped. The result follows table order.
func NormalizeCodes(table []Code, in []string) []string {
	picked := make(map[string]bool, len(in))
	for _, raw := range in {
		raw = strings.TrimSpace(raw)
		for _, c := range table {
			if strings.EqualFold(c.Value, raw) || c.Label == raw {
				picked[c.Value] = true
				break
			}
		}
	}

	out := make([]string, 0, len(picked))
	for _, c := range table {
		if picked[c.Value] {
			out = append(out, c.Value)
		}
	}
	return out
}

// Labels returns the display labels for codes, keeping unknown codes as-is.
func Labels(table []Code, codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		i := slices.IndexFunc(table, func(c Code) bool { return c.Value == code })
		if i < 0 {
			out = append(out, code)
			continue
		}
		out = append(out, table[i].Label)
	}
	return out
}

// Profile is the signed-in user's account data.
type Profile struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Purposes  []string `json:"purposes"`
	Allergies []string `json:"allergies"`
}

// ProfileUpdate holds edited profile fields. Empty fields keep their current value.
type ProfileUpdate struct {
	Name      string
	Email     string
	Purposes  []string
	Allergies []string
}

// Apply resolves the update against the current profile, normalizing purposes and allergies to codes.
func (u ProfileUpdate) Apply(current Profile) Profile {
	next := Profile{
		Username:  firstString(u.Name, current.Username),
		Email:     firstString(u.Email, current.Email),
		Purposes:  current.Purposes,
		Allergies: current.Allergies,
	}
	if len(u.Purposes) > 0 {
		next.Purposes = NormalizeCodes(HealthConcerns, u.Purposes)
	}
	if len(u.Allergies) > 0 {
		next.Allergies = NormalizeCodes(Allergies, u.Allergies)
	}
	return next
}

var emailPattern = regexp.MustCompile(`(?i)^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 8

// SignUpForm is the account registration input.
type SignUpForm struct {
	Username       string
	Email          string
	Password       string
	Confirm        string
	Agree          bool
	HealthConcerns []string
	Allergies      []string
}

// Validate checks the form before it is sent, reporting every problem at once.
func (f SignUpForm) Validate() error {
	var problems []string
	if strings.TrimSpace(f.Username) == "" {
		problems = append(problems, "name is required")
	}

	switch {
	case strings.TrimSpace(f.Email) == "":
		problems = append(problems, "email is required")
	case !ValidEmail(f.Email):
		problems = append(problems, "email is not valid")
	}

	switch {
	case f.Password == "":
		problems = append(problems, "password is required")
	case len([]rune(f.Password)) < MinPasswordLength:
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	switch {
	case f.Confirm == "":
		problems = append(problems, "password confirmation is required")
	case f.Confirm != f.Password:
		problems = append(problems, "passwords do not match")
	}

	if !f.Agree {
		problems = append(problems, "terms must be accepted")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
