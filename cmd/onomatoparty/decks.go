package main

import (
	"fmt"

	"github.com/NicoPieee/onomatoparty2-server-clean/internal/assets"
)

// DecksCmd lists the decks found under the assets root
type DecksCmd struct {
	Root string `kong:"default='assets',help='Assets root directory'"`
}

func (c *DecksCmd) Run() error {
	provider := assets.NewDirProvider(c.Root)

	names, err := provider.DeckNames()
	if err != nil {
		return fmt.Errorf("failed to read assets root %s: %w", c.Root, err)
	}

	if len(names) == 0 {
		fmt.Println("no decks found")
		return nil
	}

	for _, name := range names {
		cards, err := provider.DeckCards(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%d cards\n", name, len(cards))
	}

	return nil
}
