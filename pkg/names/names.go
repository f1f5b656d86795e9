package names

import (
	"strings"
	"unicode"

	"github.com/gridpro/gridpro/pkg/errors"
)

// MaxLength is the longest module name accepted. Spreadsheet applications
// cap sheet names well below this, so anything longer was not written by
// the host.
const MaxLength = 255

// Validate checks that the given embedded code name can be used as a key in
// the document and as a file name when the code is dumped to disk.
// Names must:
// 1) Be non-empty and at most MaxLength bytes.
// 2) Contain no path separators.
// 3) Contain no control characters.
// 4) Not be "." or "..".
func Validate(name string) error {
	if name == "" {
		return errors.NewFriendlyError("Embedded code names cannot be empty.")
	}

	if len(name) > MaxLength {
		return errors.NewFriendlyError("Embedded code name is %d characters long, "+
			"but the maximum is %d.", len(name), MaxLength)
	}

	if name == "." || name == ".." {
		return errors.NewFriendlyError("%q is not a valid embedded code name.", name)
	}

	if strings.ContainsAny(name, `/\`) {
		return errors.NewFriendlyError("Embedded code name %q cannot contain "+
			"path separators.", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.NewFriendlyError("Embedded code name %q cannot contain "+
				"control characters.", name)
		}
	}
	return nil
}
