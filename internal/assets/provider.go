// Package assets resolves deck names to the card identifiers available
// in that deck. The production provider scans a directory of image
// files; the game core only ever sees the resulting ID list.
package assets

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Provider looks up the cards belonging to a named deck. Lookups are
// local and synchronous; any failure is surfaced immediately and never
// retried.
type Provider interface {
	// DeckCards returns the ordered card IDs for deckName.
	DeckCards(deckName string) ([]string, error)
	// DeckNames returns the decks the provider knows about.
	DeckNames() ([]string, error)
}

// imageExtensions are the file types treated as cards.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// DirProvider serves decks from <root>/<deckName>/ on a filesystem.
// Card IDs are the image file names, sorted for a stable base order
// before the shuffle.
type DirProvider struct {
	fs   afero.Fs
	root string
}

// NewDirProvider creates a provider rooted at root on the OS filesystem.
func NewDirProvider(root string) *DirProvider {
	return NewDirProviderFs(afero.NewOsFs(), root)
}

// NewDirProviderFs creates a provider over an arbitrary filesystem,
// used by tests with an in-memory Fs.
func NewDirProviderFs(fs afero.Fs, root string) *DirProvider {
	return &DirProvider{fs: fs, root: root}
}

func (p *DirProvider) DeckCards(deckName string) ([]string, error) {
	// Deck names come from clients; refuse anything that could walk
	// out of the asset root.
	if deckName == "" || deckName != filepath.Base(deckName) {
		return nil, fmt.Errorf("invalid deck name %q", deckName)
	}

	dir := filepath.Join(p.root, deckName)
	entries, err := afero.ReadDir(p.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("reading deck %q: %w", deckName, err)
	}

	var cards []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if imageExtensions[ext] {
			cards = append(cards, entry.Name())
		}
	}

	sort.Strings(cards)
	return cards, nil
}

func (p *DirProvider) DeckNames() ([]string, error) {
	entries, err := afero.ReadDir(p.fs, p.root)
	if err != nil {
		return nil, fmt.Errorf("reading asset root %q: %w", p.root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}
