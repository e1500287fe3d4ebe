package planning

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsForeignKeyViolation reports whether err came from a rejected goal or
// session reference. TranslateError covers postgres; older sqlite drivers
// only surface the message.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
