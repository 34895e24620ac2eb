package holdem

import (
	"math/rand"
	"testing"

	"github.com/paulhankin/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/holdem-server/internal/errors"
)

func mustEvaluate(t *testing.T, s string) HandRank {
	t.Helper()
	r, err := Evaluate(MustParseCards(s))
	require.NoError(t, err, s)
	return r
}

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name  string
		cards string
		cat   Category
		vals  [5]int
		desc  string
	}{
		{"皇家同花顺", "As Ks Qs Js Ts 2d 3c", StraightFlush, [5]int{14, 13, 12, 11, 10}, "Royal Flush"},
		{"A-5同花顺", "Ah 2h 3h 4h 5h Kd Kc", StraightFlush, [5]int{5, 4, 3, 2, 1}, "Straight Flush, Five high"},
		{"四条", "9c 9d 9h 9s Ad 2c 3c", FourOfAKind, [5]int{9, 9, 9, 9, 14}, "Four of a Kind, Nines"},
		{"葫芦", "Kc Kd Kh 5s 5d 2c 3h", FullHouse, [5]int{13, 13, 13, 5, 5}, "Full House, Kings over Fives"},
		{"两组三条组成葫芦", "Kc Kd Kh 5s 5d 5c 3h", FullHouse, [5]int{13, 13, 13, 5, 5}, "Full House, Kings over Fives"},
		{"同花取最大五张", "Ah 9h 7h 4h 2h Kh Qd", Flush, [5]int{14, 13, 9, 7, 4}, "Flush, Ace high"},
		{"顺子", "9c Td Jh Qs Kd 2c 2d", Straight, [5]int{13, 12, 11, 10, 9}, "Straight, King high"},
		{"A-5顺子", "Ac 2d 3h 4s 5d Kc 9d", Straight, [5]int{5, 4, 3, 2, 1}, "Straight, Five high"},
		{"三条", "7c 7d 7h As Kd 2c 3d", ThreeOfAKind, [5]int{7, 7, 7, 14, 13}, "Three of a Kind, Sevens"},
		{"两对取最大两对", "Jc Jd 4h 4s 2d 2c Ad", TwoPair, [5]int{11, 11, 4, 4, 14}, "Two Pair, Jacks and Fours"},
		{"一对", "6c 6d Ah Ks 9d 3c 2d", OnePair, [5]int{6, 6, 14, 13, 9}, "Pair of Sixes"},
		{"高牌", "Ac Jd 9h 7s 5d 3c 2d", HighCard, [5]int{14, 11, 9, 7, 5}, "High Card, Ace"},
		{"五张牌", "Ac Kd Qh Js 9d", HighCard, [5]int{14, 13, 12, 11, 9}, "High Card, Ace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustEvaluate(t, tt.cards)
			assert.Equal(t, tt.cat, r.Category)
			assert.Equal(t, tt.vals, r.Values)
			assert.Equal(t, tt.desc, r.Description)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(MustParseCards("As Ks Qs Js"))
	assert.True(t, errors.Is(err, errors.ErrInsufficientCards))

	_, err = Evaluate(MustParseCards("As Ks Qs Js Ts 9s 8s 7s"))
	assert.True(t, errors.Is(err, errors.ErrInvalidCard))

	_, err = Evaluate(MustParseCards("As As Qs Js Ts"))
	assert.True(t, errors.Is(err, errors.ErrInvalidCard))

	_, err = Evaluate([]Card{{Ace, Spades}, {King, Spades}, {Queen, Spades}, {Jack, Spades}, {Rank: 0, Suit: Spades}})
	assert.True(t, errors.Is(err, errors.ErrInvalidCard))
}

func TestEvaluateOrdering(t *testing.T) {
	t.Run("五高顺小于六高顺", func(t *testing.T) {
		wheel := mustEvaluate(t, "Ac 2d 3h 4s 5d")
		six := mustEvaluate(t, "2d 3h 4s 5d 6c")
		assert.Equal(t, -1, Compare(wheel, six))
	})

	t.Run("五高同花顺小于六高同花顺", func(t *testing.T) {
		wheel := mustEvaluate(t, "Ah 2h 3h 4h 5h")
		six := mustEvaluate(t, "2h 3h 4h 5h 6h")
		assert.Equal(t, -1, Compare(wheel, six))
	})

	t.Run("类别严格递增", func(t *testing.T) {
		ladder := []string{
			"Ac Jd 9h 7s 5d",
			"2c 2d 3h 4s 6d",
			"2c 2d 3h 3s 4d",
			"2c 2d 2h 3s 4d",
			"Ac 2d 3h 4s 5d",
			"2h 3h 4h 5h 7h",
			"2c 2d 2h 3s 3d",
			"2c 2d 2h 2s 3d",
			"Ah 2h 3h 4h 5h",
		}
		prev := mustEvaluate(t, ladder[0])
		for _, s := range ladder[1:] {
			r := mustEvaluate(t, s)
			assert.Greater(t, r.Value, prev.Value, "%s 应大于 %s", r.Description, prev.Description)
			assert.Equal(t, prev.Category+1, r.Category)
			prev = r
		}
	})

	t.Run("踢脚决定胜负", func(t *testing.T) {
		a := mustEvaluate(t, "Ac Ad Kh 9s 4d 3c 2h")
		b := mustEvaluate(t, "Ac Ad Kh 8s 4d 3c 2h")
		assert.Equal(t, 1, Compare(a, b))
	})

	t.Run("花色不影响牌力", func(t *testing.T) {
		a := mustEvaluate(t, "Ac Kd 9h 7s 4d 3c 2h")
		b := mustEvaluate(t, "Ad Kc 9s 7h 4c 3d 2s")
		assert.Equal(t, 0, Compare(a, b))
		assert.Equal(t, a, b)
	})

	t.Run("公共牌成牌时平局", func(t *testing.T) {
		a := mustEvaluate(t, "2c 3d Ts Js Qs Ks As")
		b := mustEvaluate(t, "4c 5d Ts Js Qs Ks As")
		assert.Equal(t, 0, Compare(a, b))
	})

	t.Run("第七张牌不参与比较", func(t *testing.T) {
		a := mustEvaluate(t, "Ac Kd Qh Js 9d 3c 2h")
		b := mustEvaluate(t, "Ac Kd Qh Js 9d 4c 2h")
		assert.Equal(t, 0, Compare(a, b))
	})
}

func toPokerCard(t *testing.T, c Card) poker.Card {
	t.Helper()
	suits := map[Suit]poker.Suit{
		Clubs:    poker.Club,
		Diamonds: poker.Diamond,
		Hearts:   poker.Heart,
		Spades:   poker.Spade,
	}
	rank := poker.Rank(c.Rank)
	if c.Rank == Ace {
		rank = poker.Rank(1)
	}
	pc, err := poker.MakeCard(suits[c.Suit], rank)
	require.NoError(t, err)
	return pc
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// 与 paulhankin/poker 的七张牌评估器对比随机牌面的相对大小
func TestEvaluateAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(20240601))

	for i := 0; i < 3000; i++ {
		d := NewDeckWithRand(rng)
		board, err := d.DrawN(5)
		require.NoError(t, err)
		holeA, _ := d.DrawN(2)
		holeB, _ := d.DrawN(2)

		a := append(append([]Card(nil), holeA...), board...)
		b := append(append([]Card(nil), holeB...), board...)

		ra, err := Evaluate(a)
		require.NoError(t, err)
		rb, err := Evaluate(b)
		require.NoError(t, err)

		var pa, pb [7]poker.Card
		for j := 0; j < 7; j++ {
			pa[j] = toPokerCard(t, a[j])
			pb[j] = toPokerCard(t, b[j])
		}
		want := sign(int(poker.Eval7(&pa)) - int(poker.Eval7(&pb)))

		require.Equal(t, want, Compare(ra, rb),
			"%s (%s) vs %s (%s)", FormatCards(a), ra.Description, FormatCards(b), rb.Description)
	}
}
