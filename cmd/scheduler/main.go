package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/generator"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	if err := queue.DeclareQueues(ch); err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	publisher := queue.NewPublisher(cfg, ch)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	pingCtx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}

	/**********************************************
	 * 创建班次生成引擎
	 **********************************************/
	materializer := generator.NewMaterializer(repo, publisher)
	propagator := generator.NewPropagator(repo, repo, cfg.Scheduler.DefaultHorizonDays)
	engine := generator.NewEngine(cfg, repo, materializer, propagator)
	resolver := generator.NewResolver(repo, publisher, cfg.Email.AdminAddress)

	run := func() {
		ctx := context.Background()

		// 抢分布式锁，没抢到说明另一个实例（或管理员手动触发）正在跑。
		// 锁的过期时间兜底进程崩溃后锁无法释放的情况。
		lockExpiration := time.Duration(cfg.Scheduler.RunLockExpiration) * time.Second
		ok, err := rdb.SetNX(ctx, generator.RunLockKey, time.Now().UTC().Format(time.RFC3339), lockExpiration).Result()
		if err != nil {
			logger.Error("无法获取生成任务锁", "error", err)
			return
		}
		if !ok {
			logger.Info("另一个实例正在执行生成任务，本次跳过")
			return
		}
		defer func() {
			if err := rdb.Del(context.Background(), generator.RunLockKey).Err(); err != nil {
				logger.Error("无法释放生成任务锁", "error", err)
			}
		}()

		stats, err := engine.RunOnce(ctx)
		if err != nil {
			logger.Error("生成任务执行失败", "error", err)
			return
		}
		logger.Info("生成任务执行完成",
			"templates", stats.Templates,
			"created", stats.Created,
			"failed", stats.Failed,
		)

		if cfg.Scheduler.DedupWithEachRun {
			report, err := resolver.Run(time.Now().UTC())
			if err != nil {
				logger.Error("去重审计执行失败", "error", err)
				return
			}
			logger.Info("去重审计执行完成",
				"cancelled", len(report.CancelledShiftIDs),
				"conflicts", len(report.Conflicts),
			)
		}
	}

	/**********************************************
	 * 启动 cron
	 **********************************************/
	if cfg.Scheduler.RunOnStartup {
		run()
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.Scheduler.CronSpec, run); err != nil {
		logger.Error("无法注册 cron 任务", "error", err)
		return
	}
	c.Start()
	logger.Info("scheduler 已启动", "cron", cfg.Scheduler.CronSpec)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭 scheduler...")
	// Stop 返回的上下文会在正在执行的任务结束后完成
	<-c.Stop().Done()
	logger.Info("scheduler 已成功关闭")
}
