package holdem

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/errors"
)

func TestParseCard(t *testing.T) {
	tests := []struct {
		in   string
		want Card
	}{
		{"As", Card{Ace, Spades}},
		{"td", Card{Ten, Diamonds}},
		{"10h", Card{Ten, Hearts}},
		{"2C", Card{Two, Clubs}},
		{"kh", Card{King, Hearts}},
	}
	for _, tt := range tests {
		got, err := ParseCard(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "A", "1s", "Ax", "Asd"} {
		_, err := ParseCard(bad)
		assert.True(t, errors.Is(err, errors.ErrInvalidCard), "应拒绝 %q", bad)
	}

	assert.Equal(t, "Td", Card{Ten, Diamonds}.String())
	assert.Equal(t, "As Kd 2c", FormatCards(MustParseCards("As Kd 2c")))
}

func TestCardJSON(t *testing.T) {
	data, err := json.Marshal([]Card{{Ace, Spades}, {Nine, Hearts}})
	require.NoError(t, err)
	assert.JSONEq(t, `["As","9h"]`, string(data))

	var cards []Card
	require.NoError(t, json.Unmarshal(data, &cards))
	assert.Equal(t, MustParseCards("As 9h"), cards)
}

func TestNewDeckIntegrity(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := NewDeck()
		require.Equal(t, DeckSize, d.Remaining())

		seen := make(map[Card]bool)
		for n := 1; n <= DeckSize; n++ {
			c, err := d.Draw()
			require.NoError(t, err)
			require.False(t, seen[c], "重复发出 %s", c)
			seen[c] = true
			require.Equal(t, DeckSize-n, d.Remaining())
		}
		assert.Len(t, seen, DeckSize)

		_, err := d.Draw()
		assert.True(t, errors.Is(err, errors.ErrEmptyDeck))
		assert.True(t, errors.Is(d.Burn(), errors.ErrEmptyDeck))
	}
}

func TestDeckWithSeedIsReproducible(t *testing.T) {
	a := NewDeckWithRand(rand.New(rand.NewSource(42)))
	b := NewDeckWithRand(rand.New(rand.NewSource(42)))

	ca, err := a.DrawN(10)
	require.NoError(t, err)
	cb, err := b.DrawN(10)
	require.NoError(t, err)
	assert.Equal(t, ca, cb)

	_, err = a.DrawN(43)
	assert.True(t, errors.Is(err, errors.ErrEmptyDeck))
	assert.Equal(t, 42, a.Remaining(), "DrawN失败时不应取牌")
}

func TestNewOrderedDeck(t *testing.T) {
	d, err := NewOrderedDeck(MustParseCards("As Kd 7c"))
	require.NoError(t, err)

	first, _ := d.Draw()
	assert.Equal(t, "As", first.String())
	require.NoError(t, d.Burn())
	last, _ := d.Draw()
	assert.Equal(t, "7c", last.String())

	_, err = NewOrderedDeck(MustParseCards("As Kd As"))
	assert.True(t, errors.Is(err, errors.ErrInvalidCard))

	_, err = NewOrderedDeck([]Card{{Rank: 1, Suit: Spades}})
	assert.True(t, errors.Is(err, errors.ErrInvalidCard))
}
