package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	chromem "github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ragchat/ragchat/plugin/aiassist"
	"github.com/ragchat/ragchat/plugin/vectorstore"
	"github.com/ragchat/ragchat/server"
	"github.com/ragchat/ragchat/server/profile"
	"github.com/ragchat/ragchat/store"
	"github.com/ragchat/ragchat/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Chat session service with optional AI-generated replies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("addr", "", "bind address")
	flags.Int("port", 8080, "listen port")
	flags.String("data", ".", "data directory")
	flags.String("driver", "sqlite", "database driver: sqlite | mysql | postgres")
	flags.String("dsn", "", "database connection string")
	flags.String("api-key", "", "API key required in the X-API-Key header")
	flags.Int64("rate-limit-capacity", 10, "max tokens per client bucket")
	flags.Int64("rate-limit-refill-tokens", 10, "tokens added per refill interval")
	flags.Int64("rate-limit-refill-interval", 60, "refill interval in seconds")
	flags.Bool("ai-enabled", false, "enable the AI assistant")
	flags.String("ai-api-key", "", "AI service credential")
	flags.String("ai-base-url", "https://api.openai.com/v1", "AI service base URL")
	flags.String("ai-model", "meta-llama/Meta-Llama-3-8B-Instruct", "AI chat model")
	flags.Int64("ai-timeout", 10000, "AI request timeout in milliseconds")
	flags.String("ai-embeddings-model", "", "embeddings model enabling semantic message memory")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("ragchat")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Addr:                    viper.GetString("addr"),
		Port:                    viper.GetInt("port"),
		Data:                    viper.GetString("data"),
		Driver:                  viper.GetString("driver"),
		DSN:                     viper.GetString("dsn"),
		APIKey:                  viper.GetString("api-key"),
		RateLimitCapacity:       viper.GetInt64("rate-limit-capacity"),
		RateLimitRefillTokens:   viper.GetInt64("rate-limit-refill-tokens"),
		RateLimitRefillInterval: time.Duration(viper.GetInt64("rate-limit-refill-interval")) * time.Second,
		AIEnabled:               viper.GetBool("ai-enabled"),
		AIAPIKey:                viper.GetString("ai-api-key"),
		AIBaseURL:               viper.GetString("ai-base-url"),
		AIModel:                 viper.GetString("ai-model"),
		AITimeout:               time.Duration(viper.GetInt64("ai-timeout")) * time.Millisecond,
		AIEmbeddingsModel:       viper.GetString("ai-embeddings-model"),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func run(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}

	driver, err := db.NewDriver(p)
	if err != nil {
		return err
	}
	defer driver.Close()

	st := store.New(driver)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	assistant := aiassist.New(aiassist.Config{
		Enabled: p.AIEnabled,
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
		Model:   p.AIModel,
		Timeout: p.AITimeout,
	})

	var vs *vectorstore.Store
	if p.AIAPIKey != "" && p.AIEmbeddingsModel != "" {
		embedFn := chromem.NewEmbeddingFuncOpenAICompat(p.AIBaseURL, p.AIAPIKey, p.AIEmbeddingsModel, nil)
		vs, err = vectorstore.New(p.Data, embedFn)
		if err != nil {
			slog.Warn("semantic message memory disabled", "err", err)
			vs = nil
		}
	}

	srv := server.NewServer(p, st, assistant, vs)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server started", "addr", p.Addr, "port", p.Port, "driver", p.Driver)
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
