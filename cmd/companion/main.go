package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/silvercare/companion/internal/api"
	"github.com/silvercare/companion/internal/caretaker"
	"github.com/silvercare/companion/internal/checkin"
	"github.com/silvercare/companion/internal/community"
	"github.com/silvercare/companion/internal/config"
	"github.com/silvercare/companion/internal/mood"
	"github.com/silvercare/companion/internal/session"
	"github.com/silvercare/companion/pkg/model"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	var logger *zap.Logger
	if cfg.Logging.Format == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("base_url", cfg.API.BaseURL),
		zap.Duration("timeout", cfg.API.Timeout),
	)

	store, err := session.Open(cfg.Storage.Path, logger)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}
	defer store.Close()

	client := api.New(cfg.API.BaseURL, cfg.API.Timeout, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down")
		cancel()
	}()

	app := &app{
		cfg:    cfg,
		store:  store,
		client: client,
		logger: logger,
		in:     bufio.NewScanner(os.Stdin),
	}
	app.run(ctx)
}

type app struct {
	cfg    *config.Config
	store  *session.Store
	client *api.Client
	logger *zap.Logger
	in     *bufio.Scanner
}

func (a *app) run(ctx context.Context) {
	fmt.Println("SilverCare Companion")
	fmt.Println("Commands: login, signup, checkin, chat, dashboard, logout, quit")

	for ctx.Err() == nil {
		fmt.Print("> ")
		if !a.in.Scan() {
			return
		}
		switch strings.TrimSpace(a.in.Text()) {
		case "login":
			a.login(ctx)
		case "signup":
			a.signup(ctx)
		case "checkin":
			a.checkIn(ctx)
		case "chat":
			a.chat(ctx)
		case "dashboard":
			a.dashboard(ctx)
		case "logout":
			a.logout()
		case "quit", "exit":
			return
		case "":
		default:
			fmt.Println("Unknown command")
		}
	}
}

func (a *app) prompt(label string) string {
	fmt.Print(label + ": ")
	if !a.in.Scan() {
		return ""
	}
	return strings.TrimSpace(a.in.Text())
}

func (a *app) login(ctx context.Context) {
	creds := api.Credentials{
		Email:    a.prompt("Email"),
		Password: a.prompt("Password"),
	}

	sess, err := a.client.Login(ctx, creds)
	if err != nil {
		fmt.Println("Login failed:", userMessage(err))
		return
	}
	if err := a.store.Save(sess); err != nil {
		a.logger.Error("failed to persist session", zap.Error(err))
	}
	fmt.Printf("Welcome back, %s!\n", sess.User.Name)
}

func (a *app) signup(ctx context.Context) {
	var sess *model.Session
	var err error

	switch a.prompt("Account type (elderly/caretaker)") {
	case "caretaker":
		sess, err = a.client.RegisterCaretaker(ctx, api.CaretakerSignup{
			Name:     a.prompt("Name"),
			Email:    a.prompt("Email"),
			Phone:    a.prompt("Phone"),
			Password: a.prompt("Password"),
		})
	default:
		sess, err = a.client.RegisterElderly(ctx, api.ElderlySignup{
			Name:        a.prompt("Name"),
			Email:       a.prompt("Email"),
			Phone:       a.prompt("Phone"),
			Password:    a.prompt("Password"),
			CaretakerID: a.prompt("Caretaker ID"),
		})
	}

	if err != nil {
		fmt.Println("Signup failed:", userMessage(err))
		return
	}
	if err := a.store.Save(sess); err != nil {
		a.logger.Error("failed to persist session", zap.Error(err))
	}
	fmt.Printf("Welcome, %s!\n", sess.User.Name)
}

func (a *app) logout() {
	if err := a.store.Clear(); err != nil {
		a.logger.Error("logout failed", zap.Error(err))
		return
	}
	fmt.Println("Logged out.")
}

// requireSession checks stored credentials before a protected flow, skipping
// the remote verify when the token is visibly expired.
func (a *app) requireSession(ctx context.Context) *model.Session {
	sess, err := a.store.Current()
	if err != nil || sess == nil {
		fmt.Println("Please log in first.")
		return nil
	}
	if a.store.TokenExpired(time.Now()) {
		fmt.Println("Your session has expired. Please log in again.")
		return nil
	}
	if valid, err := a.client.VerifyToken(ctx); err == nil && !valid {
		fmt.Println("Your session is no longer valid. Please log in again.")
		return nil
	}
	return sess
}

func (a *app) checkIn(ctx context.Context) {
	if a.requireSession(ctx) == nil {
		return
	}

	var analyzer checkin.Analyzer = mood.NewRemoteAnalyzer(a.client)
	if a.cfg.OpenAI.APIKey != "" {
		analyzer = mood.NewLLMAnalyzer(a.cfg.OpenAI.APIKey, a.cfg.OpenAI.Model, a.logger)
	}

	seq := checkin.NewSequencer(a.client, analyzer, a.store, checkin.Pacing{
		GreetingDelay: a.cfg.CheckIn.GreetingDelay,
		QuestionDelay: a.cfg.CheckIn.QuestionDelay,
	}, a.logger)

	greeting, prompt := seq.Start(ctx)
	fmt.Println(greeting)
	fmt.Println(prompt)

	for seq.Status() == checkin.StatusCollecting && ctx.Err() == nil {
		turn := seq.SubmitAnswer(ctx, a.prompt("You"))
		if turn == nil {
			continue
		}
		if !turn.Done {
			fmt.Println(turn.Prompt)
			continue
		}

		fmt.Println(turn.Message)
		if turn.Result != nil {
			printMoodResult(turn.Result)
		}
	}
}

func printMoodResult(result *model.MoodResult) {
	fmt.Printf("\nMood: %s (confidence: %s)\n", result.Mood, result.Confidence)
	if len(result.EmotionsDetected) > 0 {
		fmt.Printf("Emotions detected: %s\n", strings.Join(result.EmotionsDetected, ", "))
	}
	if result.Reason != "" {
		fmt.Println(result.Reason)
	}
	if result.Concerning() {
		fmt.Println("Recommended: music therapy, breathing exercises, or a chat with the community.")
	}
}

func (a *app) chat(ctx context.Context) {
	sess := a.requireSession(ctx)
	if sess == nil {
		return
	}

	sender := model.User{ID: sess.UserID, Name: "You"}
	if sess.User != nil {
		sender = *sess.User
	}

	chat := community.NewClient(a.client, a.cfg.Chat.PollInterval, sender, a.logger)
	if err := chat.InitialLoad(ctx); err != nil {
		fmt.Println("Could not load the community chat:", userMessage(err))
		return
	}

	chat.Start(ctx)
	defer chat.Stop()

	for _, msg := range chat.Messages() {
		printMessage(msg)
	}
	fmt.Println("Type a message, or /back to leave.")

	for ctx.Err() == nil {
		text := a.prompt("You")
		if text == "/back" {
			return
		}
		if _, err := chat.SendMessage(ctx, text); err != nil {
			switch err {
			case community.ErrEmptyMessage, community.ErrSendInFlight:
			default:
				fmt.Println("Message not sent:", userMessage(err))
			}
			continue
		}
		fmt.Printf("(%d members online)\n", chat.OnlineCount())
	}
}

func printMessage(msg model.ChatMessage) {
	fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("3:04 PM"), msg.SenderName, msg.Text)
}

func (a *app) dashboard(ctx context.Context) {
	sess := a.requireSession(ctx)
	if sess == nil {
		return
	}
	if sess.UserType != model.UserTypeCaretaker {
		fmt.Println("The dashboard is only available to caretakers.")
		return
	}

	svc := caretaker.NewService(a.client, a.logger)
	dashboard := svc.Dashboard(ctx)

	fmt.Printf("Dashboard for %s — %d elderly users\n", dashboard.Name, len(dashboard.ElderlyUsers))
	for _, user := range dashboard.ElderlyUsers {
		fmt.Printf("  %s (%d) — %s, last active %s\n", user.Name, user.Age, user.HealthStatus, user.LastActive)
	}
}

// userMessage strips the error down to the text meant for the screen.
func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
