// Command fetchschedule loads one day's schedule through the same pipeline as
// the worker and prints it as JSON. With -save, real games are also written to
// the database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"hitrivals/schedule/internal/client"
	"hitrivals/schedule/internal/config"
	"hitrivals/schedule/internal/models"
	"hitrivals/schedule/internal/repository"
	"hitrivals/schedule/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	leagueFlag := flag.String("league", "all", "league to fetch: mlb, nba or all")
	dateFlag := flag.String("date", "", "day to fetch as YYYYMMDD (default today)")
	mockFlag := flag.Bool("mock", false, "serve sample data without calling the API")
	saveFlag := flag.Bool("save", false, "upsert real games into the database")
	timeout := flag.Duration("timeout", time.Minute, "overall deadline")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *mockFlag {
		os.Setenv("MOCK_SCHEDULE_DATA", "true")
	}
	cfg := config.MustLoad()

	leagues, err := parseLeagues(*leagueFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -league")
	}

	day := time.Now().In(cfg.Location())
	if *dateFlag != "" {
		day, err = time.ParseInLocation("20060102", *dateFlag, cfg.Location())
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid -date, expected YYYYMMDD")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tank01 := client.NewClient(client.Config{
		APIKey:      cfg.Tank01APIKey,
		MLBBaseURL:  cfg.MLBBaseURL,
		MLBHost:     cfg.MLBAPIHost,
		NBABaseURL:  cfg.NBABaseURL,
		NBAHost:     cfg.NBAAPIHost,
		Timeout:     cfg.APITimeout,
		MaxAttempts: cfg.APIMaxAttempts,
		RetryDelay:  cfg.APIRetryDelay,
		Location:    cfg.Location(),
	})
	svc := schedule.NewService(tank01, schedule.Options{
		MockMode: cfg.UseMockData(),
		Location: cfg.Location(),
	})

	results := make([]schedule.Result, 0, len(leagues))
	if len(leagues) == len(models.Leagues) {
		both := svc.FetchBoth(ctx, day)
		for _, league := range models.Leagues {
			results = append(results, both[league])
		}
	} else {
		results = append(results, svc.FetchScheduleForDate(ctx, day, leagues[0]))
	}

	for _, res := range results {
		if res.Fallback {
			log.Warn().Str("league", res.League.String()).Msg(res.Warning)
		}
	}

	if *saveFlag {
		if err := save(ctx, cfg, results); err != nil {
			log.Fatal().Err(err).Msg("Failed to save games")
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		log.Fatal().Err(err).Msg("Failed to encode schedule")
	}
}

func parseLeagues(s string) ([]models.League, error) {
	if s == "" || s == "all" {
		return models.Leagues, nil
	}
	league, err := models.ParseLeague(s)
	if err != nil {
		return nil, err
	}
	return []models.League{league}, nil
}

// save upserts every non-fallback result. Sample data is never stored.
func save(ctx context.Context, cfg *config.Config, results []schedule.Result) error {
	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	for _, res := range results {
		if res.Source != schedule.SourceAPI {
			log.Info().Str("league", res.League.String()).Msg("Skipping sample data")
			continue
		}
		n, err := db.Games.UpsertMany(ctx, res.Games)
		if err != nil {
			return fmt.Errorf("saving %s games: %w", res.League, err)
		}
		log.Info().Str("league", res.League.String()).Int("saved", n).Msg("Games saved")
	}

	total, err := db.Games.Count(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("stored", total).Msg("Games in database")
	return nil
}
