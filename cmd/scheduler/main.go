package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"group_task_scheduler/internal/app"
	"group_task_scheduler/internal/domain/calendar"
	"group_task_scheduler/internal/domain/notify"
	"group_task_scheduler/internal/infra/config"
	idb "group_task_scheduler/internal/infra/database"
	"group_task_scheduler/internal/infra/logger"
	"group_task_scheduler/internal/infra/scheduler"
	itg "group_task_scheduler/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Group Task Scheduler starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get().WithField("component", "main")
	log.WithFields(map[string]any{
		"environment": cfg.Environment,
		"workers":     cfg.RunnerWorkers,
	}).Info("Configuration loaded")

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize Repositories
	scheduleRepo := idb.NewPostgresScheduleRepository(db)
	executionRepo := idb.NewPostgresExecutionRepository(db)
	taskRepo := idb.NewPostgresTaskRepository(db)
	holidayRepo := idb.NewPostgresHolidayRepository(db)
	memberRepo := idb.NewPostgresMemberRepository(db)

	clock := app.SystemClock()

	// Warm the holiday calendar for this year and the next. An unreadable
	// holiday table is a setup-level failure: abort instead of silently
	// running with wrong business-day answers.
	cal := calendar.NewBusinessCalendar(holidayRepo, logger.Get().WithField("component", "calendar"))
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	year := clock.Now().Year()
	for _, y := range []int{year, year + 1} {
		if err := cal.WarmYear(warmCtx, y); err != nil {
			cancelWarm()
			log.WithError(err).Fatal("Could not warm holiday calendar")
		}
	}
	cancelWarm()

	// Initialize notification dispatcher (optional)
	var dispatcher notify.Dispatcher = notify.Nop{}
	if cfg.TelegramToken != "" && cfg.AnnounceChatID != 0 {
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			log.WithError(err).Fatal("Could not create Telegram bot")
		}
		dispatcher = itg.NewTelebotDispatcher(bot, cfg.AnnounceChatID)
		log.Info("Telegram task notifications enabled")
	} else {
		log.Info("Telegram task notifications disabled")
	}

	// Initialize Services
	dueDates := app.NewDueDateCalculator(cal)
	materializer := app.NewMaterializer(taskRepo, memberRepo, cal, dueDates,
		logger.Get().WithField("component", "materializer"))
	runner := app.NewRunner(scheduleRepo, executionRepo, materializer, dispatcher, clock,
		cfg.RunnerWorkers, logger.Get().WithField("component", "runner"))
	scheduleService := app.NewScheduleService(scheduleRepo, executionRepo, clock,
		logger.Get().WithField("component", "schedule_service"))

	if due, err := scheduleService.ListDueToday(context.Background()); err != nil {
		log.WithError(err).Warn("Could not list schedules due today")
	} else {
		log.WithField("due_today", len(due)).Info("Schedule service initialized")
	}

	// Initialize and start the cron scheduler
	taskScheduler := scheduler.NewTaskScheduler(runner, cal, clock,
		cfg.CronSpecDaily, cfg.CronSpecHolidayRefresh,
		logger.Get().WithField("component", "scheduler"))
	taskScheduler.Start()

	log.Info("Application setup complete")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	log.Info("Shutting down application...")
	taskScheduler.Stop()
	// db.Close() is handled by defer
	log.Info("Application shut down gracefully")
}
