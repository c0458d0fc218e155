package middleware

import (
	"errors"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation limits.
const (
	// MaxShortNameLength is the maximum length for a recipe short name.
	MaxShortNameLength = 100

	// MinUsernameLength and MaxUsernameLength bound login names.
	MinUsernameLength = 2
	MaxUsernameLength = 32

	// MinPasswordLength and MaxPasswordLength bound passwords.
	// The upper bound keeps argon2 work per request predictable.
	MinPasswordLength = 8
	MaxPasswordLength = 128

	// MaxLinkURLLength is the maximum length for to-try links.
	MaxLinkURLLength = 2048

	// MaxMediaNameLength is the maximum length of an image file name.
	MaxMediaNameLength = 128
)

// Validation errors.
var (
	ErrShortNameEmpty     = errors.New("short name is required")
	ErrShortNameTooLong   = errors.New("short name exceeds maximum length")
	ErrShortNameInvalid   = errors.New("short name contains invalid characters")
	ErrShortNameReserved  = errors.New("short name is reserved")
	ErrUsernameInvalid    = errors.New("username must be 2-32 letters, digits, dots, dashes or underscores")
	ErrUsernameReserved   = errors.New("username is reserved")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrPasswordTooLong    = errors.New("password exceeds maximum length")
	ErrLinkURLTooLong     = errors.New("link URL exceeds maximum length")
	ErrLinkURLInvalid     = errors.New("link URL must be http or https")
	ErrMediaNameInvalid   = errors.New("image name is invalid")
	ErrMediaTypeForbidden = errors.New("image type is not allowed")
)

// ReservedShortNames are recipe short names that collide with item routes.
var ReservedShortNames = map[string]bool{
	"all_brief": true,
	"in_season": true,
	"category":  true,
	"tag":       true,
	"icon":      true,
	"search":    true,
	"add":       true,
	"edit":      true,
	"delete":    true,
}

// reservedUsernames cannot be registered.
var reservedUsernames = map[string]bool{
	"anonymous": true,
	"system":    true,
}

// MediaExtensions lists the accepted image file extensions.
var MediaExtensions = map[string]bool{
	".webp": true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var (
	validShortNamePattern = regexp.MustCompile(`^[a-z0-9äöü][a-z0-9äöü_-]*$`)
	validUsernamePattern  = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	validMediaNamePattern = regexp.MustCompile(`^[A-Za-z0-9äöüÄÖÜ._-]+$`)
)

// ValidateShortName validates a recipe short name used in URLs.
func ValidateShortName(name string) error {
	if name == "" {
		return ErrShortNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxShortNameLength {
		return ErrShortNameTooLong
	}
	if !validShortNamePattern.MatchString(name) {
		return ErrShortNameInvalid
	}
	if ReservedShortNames[name] {
		return ErrShortNameReserved
	}
	return nil
}

// ValidateUsername validates a login name for registration.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength ||
		!validUsernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	if reservedUsernames[strings.ToLower(username)] {
		return ErrUsernameReserved
	}
	return nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateLinkURL validates a to-try bookmark URL.
func ValidateLinkURL(url string) error {
	if len(url) > MaxLinkURLLength {
		return ErrLinkURLTooLong
	}

	lower := strings.ToLower(strings.TrimSpace(url))
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ErrLinkURLInvalid
	}
	for _, scheme := range []string{"javascript:", "data:", "vbscript:", "file:"} {
		if strings.Contains(lower, scheme) {
			return ErrLinkURLInvalid
		}
	}
	return nil
}

// ValidateMediaName validates an image file name. It must be a bare
// file name with an accepted extension, never a path.
func ValidateMediaName(name string) error {
	if name == "" || len(name) > MaxMediaNameLength || strings.Contains(name, "..") ||
		!validMediaNamePattern.MatchString(name) {
		return ErrMediaNameInvalid
	}
	if !MediaExtensions[strings.ToLower(path.Ext(name))] {
		return ErrMediaTypeForbidden
	}
	return nil
}
