package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"carevo-bot/handler"
	"carevo-bot/internal/audio"
	"carevo-bot/internal/catalog"
	"carevo-bot/internal/dedupe"
	"carevo-bot/internal/integrations/gemini"
	"carevo-bot/internal/integrations/paramstore"
	"carevo-bot/internal/integrations/whatsapp"
	"carevo-bot/internal/repository"
	"carevo-bot/internal/session"
	"carevo-bot/internal/usecase"
)

func main() {
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	inLambda := os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	backend := envString("RECORD_BACKEND", repository.BackendFile)
	sessionsPath := envString("SESSIONS_FILE_LOCATION", defaultRecordPath("sessions", inLambda))
	messagesPath := envString("MESSAGES_FILE_LOCATION", defaultRecordPath("messages", inLambda))
	messagesSeed := envString("MESSAGES_SEED_LOCATION", filepath.Join(envString("LAMBDA_TASK_ROOT", "."), "messages.json"))
	recordTable := os.Getenv("RECORD_TABLE")
	audioDir := envString("AUDIO_FILES_LOCATION", "/tmp/audio_files")
	ffmpegPath := os.Getenv("FFMPEG_PATH")
	ttsVoice := os.Getenv("TTS_VOICE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	waVersion := envString("WA_VERSION", "v22.0")
	phoneNumberID := mustEnv("WA_PHONE_NUMBER_ID")
	recipient := os.Getenv("WA_RECIPIENT_WAID")
	dedupeWindow := envDuration("DEDUPE_WINDOW", dedupe.DefaultWindow)
	sendRate := envFloat("WA_SEND_RATE", 0)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	var dynamoClient *awsdynamodb.Client
	if backend == repository.BackendDynamoDB {
		dynamoClient = awsdynamodb.NewFromConfig(cfg)
	}
	if backend == repository.BackendFile && filepath.Clean(messagesPath) != filepath.Clean(messagesSeed) {
		// The deployment package is read-only; the writable copy starts from the bundled catalog.
		if err := seedRecord(ctx, messagesPath, messagesSeed); err != nil {
			slog.Error("failed to seed messages record", "path", messagesPath, "seed", messagesSeed, "err", err)
			os.Exit(1)
		}
	}
	sessionsRecord, err := repository.Open(backend, repository.Location{Path: sessionsPath, Name: "sessions"}, dynamoClient, recordTable)
	if err != nil {
		slog.Error("failed to open sessions record", "backend", backend, "err", err)
		os.Exit(1)
	}
	messagesRecord, err := repository.Open(backend, repository.Location{Path: messagesPath, Name: "messages"}, dynamoClient, recordTable)
	if err != nil {
		slog.Error("failed to open messages record", "backend", backend, "err", err)
		os.Exit(1)
	}

	geminiClient, err := gemini.NewClient(ssmClient, paramPrefix, gemini.WithVoice(ttsVoice))
	if err != nil {
		slog.Error("failed to create Gemini client", "err", err)
		os.Exit(1)
	}

	waOpts := []whatsapp.Option{whatsapp.WithVersion(waVersion), whatsapp.WithRecipient(recipient)}
	if sendRate > 0 {
		waOpts = append(waOpts, whatsapp.WithRateLimit(sendRate, 1))
	}
	waClient, err := whatsapp.NewClient(ssmClient, paramPrefix, phoneNumberID, waOpts...)
	if err != nil {
		slog.Error("failed to create WhatsApp client", "err", err)
		os.Exit(1)
	}

	// ---- Stores ----
	messages, err := catalog.New(messagesRecord)
	if err != nil {
		slog.Error("failed to create message catalog", "err", err)
		os.Exit(1)
	}
	if err := messages.Load(ctx); err != nil {
		slog.Error("failed to load message catalog", "err", err)
		os.Exit(1)
	}

	sessions, err := session.New(sessionsRecord, session.WithLanguages(messages))
	if err != nil {
		slog.Error("failed to create session store", "err", err)
		os.Exit(1)
	}
	if err := sessions.Load(ctx); err != nil {
		slog.Error("failed to load sessions", "err", err)
		os.Exit(1)
	}

	// ---- Audio ----
	encoder, err := audio.NewEncoder(audioDir, audio.WithFFmpeg(ffmpegPath))
	if err != nil {
		slog.Error("failed to create audio encoder", "err", err)
		os.Exit(1)
	}
	pipeline, err := audio.NewPipeline(geminiClient, encoder)
	if err != nil {
		slog.Error("failed to create audio pipeline", "err", err)
		os.Exit(1)
	}

	// ---- Use cases ----
	dispatcher, err := usecase.NewDispatcher(messages, pipeline, waClient, logger)
	if err != nil {
		slog.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}
	onboarding, err := usecase.NewOnboardingService(dispatcher, messages)
	if err != nil {
		slog.Error("failed to create onboarding service", "err", err)
		os.Exit(1)
	}
	bot, err := usecase.NewBot(dedupe.New(dedupeWindow), sessions, messages, onboarding, dispatcher, logger)
	if err != nil {
		slog.Error("failed to create bot", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(bot, ssmClient, strings.TrimRight(paramPrefix, "/")+"/verify-token", logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	slog.Info("carevo bot ready",
		"backend", backend,
		"sessions_path", sessionsPath,
		"messages_path", messagesPath,
		"sessions", len(sessions.List()),
		"languages", messages.Languages(),
	)
	lambda.Start(h.Handle)
}

// defaultRecordPath places file-backed records under /tmp on Lambda, the only
// writable directory there, and in the working directory otherwise.
func defaultRecordPath(name string, inLambda bool) string {
	if inLambda {
		return filepath.Join(os.TempDir(), name+".json")
	}
	return "./" + name + ".json"
}

func seedRecord(ctx context.Context, path, seed string) error {
	rec, err := repository.NewFileRecord(path)
	if err != nil {
		return err
	}
	return rec.Seed(ctx, seed)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func logLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
