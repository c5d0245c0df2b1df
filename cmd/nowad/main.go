package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	log "log/slog"

	"nowa/internal/audio"
	"nowa/internal/hub"
	"nowa/internal/intent"
	"nowa/internal/ipc"
	"nowa/internal/llm"
	"nowa/internal/notes"
	"nowa/internal/notify"
	"nowa/internal/proxy"
	"nowa/internal/sched"
	"nowa/internal/session"
	"nowa/internal/stt"
	"nowa/internal/sysmon"
	"nowa/internal/tts"
	"nowa/internal/weather"
	"nowa/internal/wol"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	addr := cli.StringP("addr", "a", ":5000", "Dashboard listen address")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address (optional)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	wakeWord := envOr("WAKE_WORD", "nowa")
	endWords := strings.Split(envOr("END_WORDS", "stop,koniec,zakończ,wyjdź"), ",")
	defaultCity := envOr("DEFAULT_CITY", "Szczecin")
	chimePath := envOr("CHIME_FILE", "beep.mp3")

	var httpClient *http.Client
	if *proxyAddr != "" {
		var err error
		httpClient, err = proxy.NewSocksClient(*proxyAddr)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", *proxyAddr, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded proxy")
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	whisper, err := stt.NewTranscriber(envOr("WHISPER_MODEL", "models/ggml-medium.bin"))
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	listener := stt.NewEngine(rec, whisper, stt.Options{
		Language:      "pl",
		InitialPrompt: wakeWord,
	})

	ducker := audio.NewDucker([]string{"nowad"}, 20)
	speech := tts.NewEngine(
		os.Getenv("ELEVENLABS_API_KEY"),
		os.Getenv("ELEVENLABS_VOICE_ID"),
		httpClient,
		audio.NewPlayer(),
		ducker,
	)
	// Keep the microphone from hearing the assistant's own voice.
	rec.Gate = func() bool { return !speech.Speaking() }

	noteStore := notes.NewStore(envOr("NOTES_FILE", "notes.json"))
	alarmStore := sched.NewAlarmStore(envOr("ALARMS_FILE", "alarms.json"))
	reminderStore := sched.NewReminderStore(envOr("REMINDERS_FILE", "reminders.json"))

	weatherClient := weather.NewClient(os.Getenv("OPENWEATHER_API_KEY"), defaultCity, httpClient)
	llmClient := llm.NewClient(os.Getenv("OPENROUTER_API_KEY"), httpClient)
	waker := wol.NewWaker(os.Getenv("COMPUTER_MAC"), envOr("BROADCAST_ADDRESS", "192.168.1.255"))

	dashboard := hub.New()

	dispatcher := &session.Dispatcher{
		Notes:     noteStore,
		Weather:   weatherClient,
		Waker:     waker,
		Completer: llmClient,
	}

	sess := session.New(
		session.Config{WakeWords: []string{wakeWord}},
		listener,
		speech,
		intent.NewRouter(endWords),
		dispatcher,
		dashboard,
	)

	chime := func() {
		if err := notify.Chime(chimePath); err != nil {
			log.Warn("chime failed", "err", err)
		}
	}

	dashboard.OnStartListening = func() {
		chime()
		sess.ForceListen()
	}
	dashboard.OnStopListening = sess.RequestStop
	dashboard.OnReadNotes = func() {
		speech.Speak(dispatcher.Respond(context.Background(), intent.Intent{Kind: intent.KindListNotes}))
	}

	if err := ipc.StartServer(func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case ipc.CmdListen:
			chime()
			sess.ForceListen()
		case ipc.CmdStop:
			sess.RequestStop()
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	monitor := &sysmon.Monitor{Notifier: dashboard}
	checker := sched.NewChecker(alarmStore, reminderStore, speech, dashboard)

	api := &hub.API{
		Hub:          dashboard,
		Notes:        noteStore,
		Alarms:       alarmStore,
		Reminders:    reminderStore,
		Weather:      weatherClient,
		Monitor:      monitor,
		SettingsPath: envOr("SETTINGS_FILE", "settings.json"),
	}

	log.Info("Boot up - successful")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(ctx) })
	g.Go(func() error { return checker.Run(ctx) })
	g.Go(func() error { return monitor.Run(ctx) })
	g.Go(func() error { return api.Serve(ctx, *addr) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("Shutting down", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}
