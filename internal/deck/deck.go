// Package deck holds the per-room stack of card identifiers remaining
// to be drawn. Cards are opaque IDs resolved by the asset provider; the
// deck itself only knows order and exhaustion.
package deck

import rand "math/rand/v2"

// Deck is an ordered stack of card identifiers. Cards are drawn from
// the end; an exhausted deck ends the game.
type Deck struct {
	cards []string
}

// New copies cards and shuffles them with the provided generator.
// Empty and single-card decks are valid.
func New(cards []string, rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]string, len(cards))}
	copy(d.cards, cards)
	d.shuffle(rng)
	return d
}

// shuffle applies a Fisher-Yates shuffle in place.
func (d *Deck) shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card. The second return is false
// when the deck is empty.
func (d *Deck) Draw() (string, bool) {
	if len(d.cards) == 0 {
		return "", false
	}

	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// Remaining returns the number of cards left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true once every card has been drawn.
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Cards returns a snapshot of the remaining cards in draw order.
func (d *Deck) Cards() []string {
	out := make([]string, len(d.cards))
	copy(out, d.cards)
	return out
}
