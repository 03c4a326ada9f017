// Package model holds the data types shared by sources, the pane and the UI.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Item is one entry of the list. ID is the stable identity used to diff
// reloaded sources; Title and Body are what gets rendered.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// ErrEmptyID is returned by Validate for items without an ID.
var ErrEmptyID = errors.New("item has no id")

// Validate reports whether the item can be placed in a list.
func (i Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrEmptyID
	}
	return nil
}

// SameContent reports whether two items render identically.
func (i Item) SameContent(other Item) bool {
	return i.Title == other.Title && i.Body == other.Body
}

// DisplayTitle returns the title, falling back to the ID.
func (i Item) DisplayTitle() string {
	if t := strings.TrimSpace(i.Title); t != "" {
		return t
	}
	return i.ID
}

func (i Item) String() string {
	return fmt.Sprintf("%s: %s", i.ID, i.DisplayTitle())
}

// ValidateAll checks every item and rejects duplicate IDs.
func ValidateAll(items []Item) error {
	seen := make(map[string]int, len(items))
	for idx, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}
		if prev, ok := seen[it.ID]; ok {
			return fmt.Errorf("duplicate id %q at %d and %d", it.ID, prev, idx)
		}
		seen[it.ID] = idx
	}
	return nil
}
