package store

import "github.com/rahmah/go-bakery-store/internal/database"

// Intent selects how an upsert merges with an existing cart line.
type Intent int

const (
	// IntentAdd sums the requested quantity with the existing one.
	IntentAdd Intent = iota
	// IntentReplace uses the requested quantity as-is.
	IntentReplace
)

// ParseIntent maps the wire value to an Intent. "update" is accepted as a
// legacy alias for "replace". Unknown values are rejected rather than
// defaulted.
func ParseIntent(s string) (Intent, error) {
	switch s {
	case "add":
		return IntentAdd, nil
	case "replace", "update":
		return IntentReplace, nil
	}
	return 0, database.ErrInvalidIntent
}

func (i Intent) String() string {
	if i == IntentAdd {
		return "add"
	}
	return "replace"
}
