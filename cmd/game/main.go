package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/TacticalSearch/internal/config"
	"github.com/mitchelldurbincs/TacticalSearch/internal/search"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error) (empty to use config default)")
	games := flag.Int("games", -1, "Number of self-play games (-1 to use config default)")
	depth := flag.Int("depth", -1, "Search depth in turn boundaries (-1 to use config default)")
	seed := flag.Int64("seed", -1, "Scenario seed (-1 to use config default)")
	render := flag.Bool("render", false, "Print the board after every turn")
	watch := flag.Bool("watch", false, "Reload search settings when the config file changes")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := config.LoadEnvironmentConfig(os.Getenv("APP_ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment config: %v\n", err)
		os.Exit(1)
	}

	overrides := map[string]interface{}{}
	if *logLevel != "" {
		overrides["logging.level"] = *logLevel
	}
	if *games >= 0 {
		overrides["game.games"] = *games
	}
	if *depth >= 0 {
		overrides["search.max_depth"] = *depth
	}
	if *seed >= 0 {
		overrides["game.seed"] = *seed
	}
	for key, value := range overrides {
		if err := config.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid override %s: %v\n", key, err)
			os.Exit(1)
		}
	}

	cfg := config.Get()
	setupLogging(cfg.Logging)
	log.Info().
		Str("config_file", config.ConfigFilePath()).
		Int("games", cfg.Game.Games).
		Int("depth", cfg.Search.MaxDepth).
		Msg("Starting self-play")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up self-play")
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close self-play outputs")
		}
	}()
	runner.Render = *render

	if *watch && config.ConfigFilePath() != "" {
		config.WatchConfig(func(c *config.Config, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Ignoring invalid config change")
				return
			}
			ac, err := AgentConfigFrom(c.Search, c.Board)
			if err != nil {
				log.Warn().Err(err).Msg("Ignoring invalid search settings")
				return
			}
			runner.SetAgentConfig(ac)
			log.Info().Int("depth", ac.Search.MaxDepth).Msg("Search settings reloaded")
		})
	}

	summary, err := runner.Run(ctx)
	log.Info().
		Int("played", summary.Played).
		Int("red_wins", summary.Wins[0]).
		Int("blue_wins", summary.Wins[1]).
		Int("draws", summary.Draws).
		Int("leak_alerts", summary.LeakAlerts).
		Msg("Self-play finished")
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Self-play stopped")
		os.Exit(1)
	}
}

// AgentConfigFrom converts the search and board sections into agent settings.
func AgentConfigFrom(sc config.SearchConfig, bc config.BoardConfig) (search.AgentConfig, error) {
	orders, err := search.ParseOrders(sc.UnitOrders)
	if err != nil {
		return search.AgentConfig{}, err
	}
	return search.AgentConfig{
		Search: search.Config{
			MaxDepth:    sc.MaxDepth,
			NodeLimit:   sc.NodeLimit,
			TimeLimit:   time.Duration(sc.TimeLimitMS) * time.Millisecond,
			Orders:      orders,
			AttackPrune: sc.AttackPrune,
			MovePrune:   sc.MovePrune,
			RandomTies:  sc.RandomTies,
			TwoAttacks:  sc.TwoAttacks,
			Approach:    sc.Approach,
		},
		Workers:          sc.Workers,
		MaxActiveFriends: sc.MaxActiveFriends,
		MaxActiveEnemies: sc.MaxActiveEnemies,
		TurnSlices:       bc.TurnSlices,
		HistoryCapacity:  bc.HistoryCapacity,
		ShuffleIDs:       sc.ShuffleIDs,
		Seed:             sc.Seed,
	}, nil
}

func setupLogging(lc config.LoggingConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if lc.Format == "json" || os.Getenv("APP_ENV") == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
}
