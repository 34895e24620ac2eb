// holdem-sim 让随机策略的机器人在本地打若干手牌，用于检查引擎和观察牌局
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/wfunc/holdem-server/internal/config"
	"github.com/wfunc/holdem-server/internal/database"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/game/bot"
	"github.com/wfunc/holdem-server/internal/repository"
)

func main() {
	var (
		players    = flag.Int("players", 4, "机器人数量 (2-10)")
		chips      = flag.Int64("chips", 1000, "每名机器人的初始筹码")
		smallBlind = flag.Int64("sb", 5, "小盲")
		bigBlind   = flag.Int64("bb", 10, "大盲")
		hands      = flag.Int("hands", 50, "最多打多少手，<=0 表示打到只剩一人")
		seed       = flag.Int64("seed", 0, "随机种子，0 表示使用当前时间")
		dbPath     = flag.String("db", "", "SQLite 文件路径，设置后保存牌局记录")
		verbose    = flag.Bool("v", false, "逐手显示结果")
	)
	flag.Parse()

	if err := run(simOptions{
		players:    *players,
		chips:      *chips,
		smallBlind: *smallBlind,
		bigBlind:   *bigBlind,
		hands:      *hands,
		seed:       *seed,
		dbPath:     *dbPath,
		verbose:    *verbose,
	}); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

type simOptions struct {
	players    int
	chips      int64
	smallBlind int64
	bigBlind   int64
	hands      int
	seed       int64
	dbPath     string
	verbose    bool
}

func run(opts simOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printTitle()

	repo := game.NopRepository
	if opts.dbPath != "" {
		err := database.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: opts.dbPath, LogLevel: "silent"})
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.AutoMigrate(); err != nil {
			return err
		}
		repo = repository.NewManager(database.GetDB()).Recorder()
		pterm.Info.Printfln("牌局记录保存到 %s", opts.dbPath)
	}

	req := game.StartGameRequest{
		TableID:    "sim",
		SmallBlind: opts.smallBlind,
		BigBlind:   opts.bigBlind,
	}
	for i := 0; i < opts.players; i++ {
		req.Players = append(req.Players, game.PlayerSeat{
			PlayerID: fmt.Sprintf("bot-%d", i+1),
			Chips:    opts.chips,
		})
	}
	initial := opts.chips * int64(opts.players)

	results := &resultLog{}
	session, err := game.NewSession("", req, game.SessionConfig{
		Notifier:   results,
		Repository: repo,
	})
	if err != nil {
		return err
	}
	session.Start()
	defer session.Stop()

	spinner, _ := pterm.DefaultSpinner.Start("机器人正在打牌...")
	driver := &bot.Driver{Session: session, Policy: bot.NewRandom(opts.seed)}
	stats, err := driver.Run(ctx, opts.hands)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	spinner.Success(fmt.Sprintf("完成 %d 个动作，%d 个被拒绝", stats.Actions, stats.Rejected))

	final, err := session.Snapshot(ctx, "")
	if err != nil {
		// 游戏已经结束，使用最后一次广播的快照
		final = results.lastSnapshot()
	}

	if opts.verbose {
		for _, r := range results.hands() {
			pterm.Println(handPanel(r))
		}
	}
	pterm.Println(standings(final))
	if stats.GameEnded {
		pterm.Info.Printfln("牌局结束: %s", results.reason())
	}

	if final == nil {
		return fmt.Errorf("没有可用的牌局快照")
	}
	if total := final.TotalChips(); total != initial {
		return fmt.Errorf("筹码不守恒: 初始 %d，结束 %d", initial, total)
	}
	pterm.Success.Printfln("共 %d 手牌，筹码守恒 (%d)", len(results.hands()), initial)
	return nil
}

// resultLog 收集每手牌的结果。Broadcast 在会话goroutine上调用
type resultLog struct {
	mu      sync.Mutex
	results []*game.HandResult
	last    *game.Snapshot

	endReason string
}

func (l *resultLog) Broadcast(_ context.Context, _ string, event game.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if event.Snapshot != nil {
		l.last = event.Snapshot
	}
	if event.Type == game.EventRoundResult {
		if r, ok := event.Data.(*game.HandResult); ok {
			l.results = append(l.results, r)
		}
	}
	if event.Type == game.EventGameEnded {
		l.endReason = event.Message
	}
	return nil
}

func (l *resultLog) hands() []*game.HandResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*game.HandResult(nil), l.results...)
}

func (l *resultLog) lastSnapshot() *game.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *resultLog) reason() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endReason
}
