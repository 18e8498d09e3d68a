package validator

import (
	"regexp"
	"strings"

	"github.com/amirk1998/notedeck/pkg/errors"
)

const (
	maxTitleLength   = 100
	maxContentLength = 5000
	maxTags          = 10
	minPasswordLen   = 6
)

var (
	// Email: basic email validation
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	// Color: #rgb or #rrggbb hex
	colorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// SanitizeString removes null bytes and trims whitespace
func (v *Validator) SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// ValidateLogin checks login fields before any network call
func (v *Validator) ValidateLogin(email, password string) error {
	fields := make(map[string]string)

	if strings.TrimSpace(email) == "" {
		fields["email"] = "email is required"
	} else if !emailRegex.MatchString(email) {
		fields["email"] = "email format is invalid"
	}

	if password == "" {
		fields["password"] = "password is required"
	}

	if len(fields) > 0 {
		return errors.NewValidationError("login validation failed", fields)
	}
	return nil
}

// ValidateRegistration checks registration fields before any network
// call, collecting every failing field.
func (v *Validator) ValidateRegistration(email, password, confirmPassword, firstName string) error {
	fields := make(map[string]string)

	if strings.TrimSpace(email) == "" {
		fields["email"] = "email is required"
	} else if !emailRegex.MatchString(email) {
		fields["email"] = "email format is invalid"
	}

	if password == "" {
		fields["password"] = "password is required"
	} else if len(password) < minPasswordLen {
		fields["password"] = "password must be at least 6 characters"
	}

	if confirmPassword != password {
		fields["confirmPassword"] = "passwords do not match"
	}

	if strings.TrimSpace(firstName) == "" {
		fields["firstName"] = "first name is required"
	}

	if len(fields) > 0 {
		return errors.NewValidationError("registration validation failed", fields)
	}
	return nil
}

// ValidateNoteTitle validates note title
func (v *Validator) ValidateNoteTitle(title string) error {
	title = strings.TrimSpace(title)

	if title == "" {
		return errors.NewValidationError("invalid note", map[string]string{"title": "title is required"})
	}

	if len(title) > maxTitleLength {
		return errors.NewValidationError("invalid note", map[string]string{"title": "title too long (max 100 characters)"})
	}

	return nil
}

// ValidateNoteContent validates note content
func (v *Validator) ValidateNoteContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.NewValidationError("invalid note", map[string]string{"content": "content is required"})
	}

	if len(content) > maxContentLength {
		return errors.NewValidationError("invalid note", map[string]string{"content": "content too long (max 5000 characters)"})
	}

	return nil
}

// ValidateTags checks the tag count after normalization
func (v *Validator) ValidateTags(tags []string) error {
	if len(NormalizeTags(tags)) > maxTags {
		return errors.NewValidationError("invalid note", map[string]string{"tags": "too many tags (max 10)"})
	}
	return nil
}

// ValidateColor accepts an empty color or a hex value
func (v *Validator) ValidateColor(color string) error {
	if color != "" && !colorRegex.MatchString(color) {
		return errors.NewValidationError("invalid note", map[string]string{"color": "color must be a hex value"})
	}
	return nil
}

// NormalizeTags trims each tag and drops empty entries, preserving
// order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}
