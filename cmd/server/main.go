package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/wfunc/holdem-server/internal/api"
	"github.com/wfunc/holdem-server/internal/config"
	"github.com/wfunc/holdem-server/internal/database"
	"github.com/wfunc/holdem-server/internal/errors"
	"github.com/wfunc/holdem-server/internal/game"
	"github.com/wfunc/holdem-server/internal/logger"
	"github.com/wfunc/holdem-server/internal/notifier"
	"github.com/wfunc/holdem-server/internal/repository"
	"github.com/wfunc/holdem-server/internal/utils"
	ws "github.com/wfunc/holdem-server/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	repos    *repository.Manager
	hub      *ws.Hub
	redis    *redis.Client
	sessions *game.SessionManager
	http     *http.Server

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath   = flag.String("config", "", "配置文件路径")
		envFile      = flag.String("env", ".env", "环境变量文件，不存在时忽略")
		showVersion  = flag.Bool("version", false, "显示版本信息")
		hashPassword = flag.String("hash-password", "", "输出操作员密码的 argon2id 哈希后退出")
		issueToken   = flag.String("issue-token", "", "为指定玩家签发访问令牌后退出")
		tokenRole    = flag.String("role", utils.RolePlayer, "签发令牌的角色 (player/operator)")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *hashPassword != "" {
		hash, err := utils.HashPassword(*hashPassword)
		if err != nil {
			fmt.Printf("生成哈希失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		os.Exit(0)
	}

	// .env 中的变量不覆盖已有的环境变量
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Printf("加载环境变量文件失败: %v\n", err)
		os.Exit(1)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	if *issueToken != "" {
		token, err := newJWTManager(cfg).GenerateAccessToken(*issueToken, *tokenRole)
		if err != nil {
			fmt.Printf("签发令牌失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	setupSystem(&cfg.System)

	server := NewServer(cfg)
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	server.WaitForShutdown()

	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动德州扑克服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if secret := s.cfg.Security.JWT.Secret; secret == "" || secret == "change-me" {
		generated, err := utils.GenerateRandomString(32)
		if err != nil {
			return errors.Wrap(err, errors.ErrUnknown, "生成JWT密钥失败")
		}
		s.cfg.Security.JWT.Secret = generated
		s.logger.Warn("未配置JWT密钥，已生成临时密钥，重启后令牌失效")
	}

	if err := s.initComponents(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "初始化组件失败")
	}

	if err := s.startServices(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动服务失败")
	}

	// 监听配置变化，只有日志级别可以热更新
	config.Watch(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
		s.logger.Info("配置已更新", zap.String("log_level", newCfg.Log.Level))
	})

	s.logger.Info("服务器启动成功", zap.String("http", s.http.Addr))
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() error {
	if err := s.initDatabase(); err != nil {
		return err
	}

	s.hub = ws.NewHub(logger.GetModuleLogger("websocket"))

	notifiers := notifier.Multi{ws.NewHubNotifier(s.hub), notifier.Log{}}
	if s.cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Redis.DialTimeout)
		client, err := notifier.NewRedisClient(ctx, s.cfg.Redis.Addr, s.cfg.Redis.Password, s.cfg.Redis.DB)
		cancel()
		if err != nil {
			return err
		}
		s.redis = client
		notifiers = append(notifiers, notifier.NewRedisNotifier(client, s.cfg.Redis.ChannelPrefix).
			SetPublishTimeout(s.cfg.Redis.PublishTimeout))
		s.logger.Info("Redis事件发布已启用", zap.String("addr", s.cfg.Redis.Addr))
	}

	poker := s.cfg.Poker
	s.sessions = game.NewSessionManager(game.ManagerConfig{
		Logger:       logger.GetModuleLogger("game"),
		Notifier:     notifiers,
		Repository:   s.repos.Recorder(),
		SmallBlind:   poker.SmallBlind,
		BigBlind:     poker.BigBlind,
		TurnTimeout:  poker.TurnTimeout,
		HandInterval: poker.HandInterval,
		MaxSessions:  poker.MaxSessions,
		MaxSeats:     poker.MaxSeats,
		MaxAborts:    poker.MaxAborts,
	})
	s.hub.SetMessageHandler(ws.NewGameMessageHandler(s.sessions, logger.GetModuleLogger("websocket")))

	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		DB:          database.GetDB(),
		Repos:       s.repos,
		Sessions:    s.sessions,
		Hub:         s.hub,
		JWT:         newJWTManager(s.cfg),
		Credentials: utils.Credentials(s.cfg.Security.Operators),
		WebSocket:   s.cfg.WebSocket,
		Logger:      logger.GetModuleLogger("api"),
	})

	s.http = &http.Server{
		Addr:         net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port)),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return nil
}

// initDatabase 初始化数据库，并把上次异常退出时未结束的牌局标记为结束
func (s *Server) initDatabase() error {
	if err := database.Init(&s.cfg.Database); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return errors.Wrap(err, errors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if !database.IsConnected() {
		return errors.New(errors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.repos = repository.NewManager(database.GetDB())
	n, err := s.repos.PokerGame().EndInterrupted(s.ctx, "服务重启")
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Warn("结束上次未完成的牌局", zap.Int64("count", n))
	}
	return nil
}

// startServices 启动服务
func (s *Server) startServices() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
		}
	}()
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	sig := <-sigCh
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器：先停止接收请求，再结束全部牌局，最后关闭连接和数据库
func (s *Server) Shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭超时", zap.Error(err))
	}

	// 进行中的手牌退还筹码并保存
	s.sessions.StopAll()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()

	if err := logger.Sync(); err != nil {
		fmt.Printf("同步日志失败: %v\n", err)
	}
	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("关闭Redis失败", zap.Error(err))
		}
	}

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}
}

func newJWTManager(cfg *config.Config) *utils.JWTManager {
	return utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(cfg.Security.JWT.RefreshHours)*time.Hour,
	)
}

// setupSystem 设置系统参数
func setupSystem(cfg *config.SystemConfig) {
	// 设置时区
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		}
	}

	// 设置最大处理器数
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("德州扑克服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
