package holdem

import (
	"fmt"
	"sort"

	"github.com/wfunc/holdem-server/internal/errors"
)

// Category 牌型类别，数值越大越强
type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = map[Category]string{
	HighCard:      "High Card",
	OnePair:       "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
}

// String 牌型名称
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// HandRank 牌力评估结果
//
// Value 由类别和五个有序的关键点数编码：value = category，然后每个点数
// value = value*100 + v。A 通常记为 14，只有在 A-2-3-4-5 顺子中记为 1，
// 因此五高顺严格小于六高顺，且不同的五张牌组合不会编码成相同的值。
type HandRank struct {
	Category    Category `json:"category"`
	Value       int64    `json:"value"`
	Values      [5]int   `json:"values"`
	Description string   `json:"description"`
}

// Compare 比较两手牌，返回 -1/0/1
func Compare(a, b HandRank) int {
	switch {
	case a.Value > b.Value:
		return 1
	case a.Value < b.Value:
		return -1
	default:
		return 0
	}
}

// Evaluate 从5到7张牌中找出最大的五张牌组合
func Evaluate(cards []Card) (HandRank, error) {
	if len(cards) < 5 {
		return HandRank{}, errors.Newf(errors.ErrInsufficientCards, "只有 %d 张牌", len(cards))
	}
	if len(cards) > 7 {
		return HandRank{}, errors.Newf(errors.ErrInvalidCard, "最多7张牌，收到 %d 张", len(cards))
	}

	var counts [15]int
	var bySuit [4][]int
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Rank.Valid() || c.Suit > Spades {
			return HandRank{}, errors.Newf(errors.ErrInvalidCard, "非法的牌: %v", c)
		}
		if seen[c] {
			return HandRank{}, errors.Newf(errors.ErrInvalidCard, "重复的牌: %s", c)
		}
		seen[c] = true
		counts[c.Rank]++
		bySuit[c.Suit] = append(bySuit[c.Suit], int(c.Rank))
	}
	for s := range bySuit {
		sort.Sort(sort.Reverse(sort.IntSlice(bySuit[s])))
	}

	// 同花顺：逐个花色查找
	bestTop := 0
	for s := range bySuit {
		if len(bySuit[s]) < 5 {
			continue
		}
		if top := straightTop(bySuit[s]); top > bestTop {
			bestTop = top
		}
	}
	if bestTop > 0 {
		return build(StraightFlush, straightValues(bestTop)), nil
	}

	var quads, trips, pairs []int
	distinct := make([]int, 0, 7)
	for v := int(Ace); v >= int(Two); v-- {
		switch counts[v] {
		case 0:
			continue
		case 4:
			quads = append(quads, v)
		case 3:
			trips = append(trips, v)
		case 2:
			pairs = append(pairs, v)
		}
		distinct = append(distinct, v)
	}

	if len(quads) > 0 {
		q := quads[0]
		k := kickers(distinct, 1, q)
		return build(FourOfAKind, [5]int{q, q, q, q, k[0]}), nil
	}

	if len(trips) > 0 {
		t := trips[0]
		// 第二组三条也可以作为对子使用
		p := 0
		if len(trips) > 1 {
			p = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > p {
			p = pairs[0]
		}
		if p > 0 {
			return build(FullHouse, [5]int{t, t, t, p, p}), nil
		}
	}

	for s := range bySuit {
		if len(bySuit[s]) >= 5 {
			var vals [5]int
			copy(vals[:], bySuit[s][:5])
			return build(Flush, vals), nil
		}
	}

	if top := straightTop(distinct); top > 0 {
		return build(Straight, straightValues(top)), nil
	}

	if len(trips) > 0 {
		t := trips[0]
		k := kickers(distinct, 2, t)
		return build(ThreeOfAKind, [5]int{t, t, t, k[0], k[1]}), nil
	}

	if len(pairs) >= 2 {
		hi, lo := pairs[0], pairs[1]
		k := kickers(distinct, 1, hi, lo)
		return build(TwoPair, [5]int{hi, hi, lo, lo, k[0]}), nil
	}

	if len(pairs) == 1 {
		p := pairs[0]
		k := kickers(distinct, 3, p)
		return build(OnePair, [5]int{p, p, k[0], k[1], k[2]}), nil
	}

	var vals [5]int
	copy(vals[:], distinct[:5])
	return build(HighCard, vals), nil
}

// straightTop 返回降序点数中最大顺子的顶牌，没有顺子返回0
func straightTop(values []int) int {
	var present [15]bool
	for _, v := range values {
		present[v] = true
	}
	for top := int(Ace); top >= int(Six); top-- {
		if present[top] && present[top-1] && present[top-2] && present[top-3] && present[top-4] {
			return top
		}
	}
	if present[Ace] && present[Two] && present[Three] && present[Four] && present[Five] {
		return int(Five)
	}
	return 0
}

func straightValues(top int) [5]int {
	if top == int(Five) {
		return [5]int{5, 4, 3, 2, 1}
	}
	return [5]int{top, top - 1, top - 2, top - 3, top - 4}
}

// kickers 从降序的不同点数中取n个不在exclude里的点数
func kickers(distinct []int, n int, exclude ...int) []int {
	out := make([]int, 0, n)
	for _, v := range distinct {
		skip := false
		for _, e := range exclude {
			if v == e {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

func build(cat Category, vals [5]int) HandRank {
	value := int64(cat)
	for _, v := range vals {
		value = value*100 + int64(v)
	}
	return HandRank{
		Category:    cat,
		Value:       value,
		Values:      vals,
		Description: describe(cat, vals),
	}
}

var rankNames = map[int]string{
	2: "Two", 3: "Three", 4: "Four", 5: "Five", 6: "Six", 7: "Seven", 8: "Eight",
	9: "Nine", 10: "Ten", 11: "Jack", 12: "Queen", 13: "King", 14: "Ace",
}

func plural(v int) string {
	if v == 6 {
		return "Sixes"
	}
	return rankNames[v] + "s"
}

func describe(cat Category, v [5]int) string {
	switch cat {
	case StraightFlush:
		if v[0] == int(Ace) {
			return "Royal Flush"
		}
		return fmt.Sprintf("Straight Flush, %s high", rankNames[v[0]])
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", plural(v[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s over %s", plural(v[0]), plural(v[3]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankNames[v[0]])
	case Straight:
		return fmt.Sprintf("Straight, %s high", rankNames[v[0]])
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", plural(v[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", plural(v[0]), plural(v[2]))
	case OnePair:
		return fmt.Sprintf("Pair of %s", plural(v[0]))
	default:
		return fmt.Sprintf("High Card, %s", rankNames[v[0]])
	}
}
