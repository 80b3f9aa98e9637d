package workspace

import "time"

// PlaceholderTitle is the title given to a note created with "new note".
func PlaceholderTitle(t time.Time) string {
	return "Note " + UpdatedLabel(t)
}

// ListDate formats a date for the note list, e.g. "Jan 2".
func ListDate(t time.Time) string {
	return t.Format("Jan 2")
}

// UpdatedLabel formats a timestamp with minutes, e.g. "Jan 2, 03:04 PM".
func UpdatedLabel(t time.Time) string {
	return t.Format("Jan 2, 03:04 PM")
}

// Truncate shortens text to max runes, appending "..." when cut.
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	return string(r[:max]) + "..."
}
