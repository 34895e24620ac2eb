package holdem

import (
	"math/rand"
	"time"

	"github.com/wfunc/holdem-server/internal/errors"
)

// DeckSize 一副牌的张数
const DeckSize = 52

// Deck 一副牌，发出的牌不会再次出现
type Deck struct {
	cards []Card
	next  int
}

// NewDeck 创建洗好的52张牌
func NewDeck() *Deck {
	return NewDeckWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewDeckWithRand 使用指定随机源洗牌，便于复现
func NewDeckWithRand(r *rand.Rand) *Deck {
	cards := orderedCards()
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards}
}

// NewOrderedDeck 按给定顺序发牌，cards[0] 最先发出；不允许重复
func NewOrderedDeck(cards []Card) (*Deck, error) {
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Rank.Valid() || c.Suit > Spades {
			return nil, errors.Newf(errors.ErrInvalidCard, "非法的牌: %v", c)
		}
		if seen[c] {
			return nil, errors.Newf(errors.ErrInvalidCard, "重复的牌: %s", c)
		}
		seen[c] = true
	}
	return &Deck{cards: append([]Card(nil), cards...)}, nil
}

func orderedCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Draw 取出顶牌
func (d *Deck) Draw() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, errors.New(errors.ErrEmptyDeck)
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

// DrawN 连续取出n张牌
func (d *Deck) DrawN(n int) ([]Card, error) {
	if d.Remaining() < n {
		return nil, errors.Newf(errors.ErrEmptyDeck, "需要 %d 张，剩余 %d 张", n, d.Remaining())
	}
	out := make([]Card, n)
	for i := range out {
		out[i], _ = d.Draw()
	}
	return out, nil
}

// Burn 烧掉一张牌
func (d *Deck) Burn() error {
	_, err := d.Draw()
	return err
}

// Remaining 剩余张数
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
