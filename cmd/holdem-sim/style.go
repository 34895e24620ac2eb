package main

import (
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/holdem"
)

func printTitle() {
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Hold", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("em", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err != nil {
		return
	}
	pterm.Print(title)
}

// handPanel 一手牌的结果
func handPanel(r *game.HandResult) string {
	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)

	var b strings.Builder
	b.WriteString(pterm.Sprintfln("公共牌: %s", formatCards(r.Board)))
	b.WriteString(pterm.Sprintfln("底池: %d", r.Pot))

	ranks := make(map[string]holdem.ShowdownResult, len(r.Shown))
	for _, shown := range r.Shown {
		ranks[shown.PlayerID] = shown
	}
	for _, winner := range r.Winners {
		shown, ok := ranks[winner]
		if !r.Showdown || !ok {
			b.WriteString(pterm.Sprintfln("%s 赢得 %d，其他人弃牌", pterm.LightCyan(winner), r.Payouts[winner]))
			continue
		}
		b.WriteString(pterm.Sprintfln("%s 赢得 %d，%s %s",
			pterm.LightCyan(winner), r.Payouts[winner], formatCards(shown.Hole), shown.Rank.Description))
	}

	title := pterm.LightYellow(pterm.Sprintf("|HAND %d|", r.HandNumber))
	return pbox.WithTitle(title).WithTitleTopCenter().Sprint(b.String())
}

// standings 按筹码从多到少排列的结果表
func standings(snap *game.Snapshot) string {
	if snap == nil {
		return ""
	}
	seats := append([]game.SeatView(nil), snap.Seats...)
	sort.SliceStable(seats, func(i, j int) bool { return seats[i].Chips > seats[j].Chips })

	data := pterm.TableData{{"玩家", "筹码", "状态"}}
	for _, seat := range seats {
		status := pterm.LightGreen(string(seat.Status))
		if seat.Chips == 0 {
			status = pterm.LightRed("出局")
		}
		data = append(data, []string{seat.PlayerID, pterm.Sprint(seat.Chips), status})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return ""
	}
	return table
}

func formatCards(cards []holdem.Card) string {
	if len(cards) == 0 {
		return "-"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return pterm.BgGreen.Sprint(" " + strings.Join(parts, " ") + " ")
}
