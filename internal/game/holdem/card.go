package holdem

import (
	"strings"

	"github.com/wfunc/holdem-server/internal/errors"
)

// Suit 花色
type Suit uint8

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// Suits 全部花色
var Suits = [4]Suit{Clubs, Diamonds, Hearts, Spades}

const suitLetters = "cdhs"

// String 返回花色字母 c/d/h/s
func (s Suit) String() string {
	if int(s) >= len(suitLetters) {
		return "?"
	}
	return suitLetters[s : s+1]
}

// Rank 点数，2..14，A 为 14
type Rank uint8

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

const rankLetters = "23456789TJQKA"

// String 返回点数字符
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	i := int(r - Two)
	return rankLetters[i : i+1]
}

// Valid 点数是否合法
func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

// Card 一张牌，不可变值类型
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// NewCard 创建一张牌
func NewCard(rank Rank, suit Suit) (Card, error) {
	if !rank.Valid() || suit > Spades {
		return Card{}, errors.Newf(errors.ErrInvalidCard, "rank=%d suit=%d", rank, suit)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// String 两字符表示，例如 "As"、"Td"
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// MarshalText 序列化为两字符表示
func (c Card) MarshalText() ([]byte, error) {
	if !c.Rank.Valid() || c.Suit > Spades {
		return nil, errors.Newf(errors.ErrInvalidCard, "rank=%d suit=%d", c.Rank, c.Suit)
	}
	return []byte(c.String()), nil
}

// UnmarshalText 从两字符表示解析
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard 解析 "As"、"10h"、"td" 这类写法
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "10") {
		s = "T" + s[2:]
	}
	if len(s) != 2 {
		return Card{}, errors.Newf(errors.ErrInvalidCard, "无法解析: %q", s)
	}

	ri := strings.IndexByte(rankLetters, upper(s[0]))
	si := strings.IndexByte(suitLetters, lower(s[1]))
	if ri < 0 || si < 0 {
		return Card{}, errors.Newf(errors.ErrInvalidCard, "无法解析: %q", s)
	}
	return Card{Rank: Two + Rank(ri), Suit: Suit(si)}, nil
}

// ParseCards 解析空格分隔的多张牌
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards 解析失败时panic，用于测试和固定牌面
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards 以空格连接多张牌
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}
