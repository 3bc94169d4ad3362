package activity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength bounds the display title shown in navigation UI.
const MaxTitleLength = 40

// Descriptor identifies one activity on the current page. Values are immutable.
type Descriptor struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TargetURL string `json:"target_url,omitempty"`
}

// NewDescriptor normalizes the id and title of a page-supplied activity.
func NewDescriptor(id, title, targetURL string) Descriptor {
	id = strings.TrimSpace(id)
	return Descriptor{
		ID:        id,
		Title:     DisplayTitle(id, title),
		TargetURL: strings.TrimSpace(targetURL),
	}
}

// DisplayTitle truncates title to MaxTitleLength runes, falling back to
// "Activity {id}" when the title is blank.
func DisplayTitle(id, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Sprintf("Activity %s", id)
	}
	if utf8.RuneCountInString(title) <= MaxTitleLength {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:MaxTitleLength-3])) + "..."
}
