package main

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_search/internal/adapters/memcache"
	"hotel_search/internal/adapters/observability"
	redisad "hotel_search/internal/adapters/redis"
	"hotel_search/internal/adapters/upstream"
	"hotel_search/internal/app"
	"hotel_search/internal/domain"
	"hotel_search/internal/shared"
	mysqlrepo "hotel_search/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	ids, err := propertyIDs(cfg, os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("reading property ids failed")
	}
	log.Info().
		Str("base", cfg.UpstreamBase).
		Int("workers", cfg.Workers).
		Int("ids", len(ids)).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	client, err := upstream.New(cfg.UpstreamBase, cfg.UpstreamKey, cfg.UpstreamRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upstream client")
	}
	// ids may repeat across the file and the arguments
	client.WithPayloadCache(memcache.New(time.Hour, 10*time.Minute), time.Hour)

	// evictions only matter when the API shares a Redis cache
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}
	ing := app.NewIngestionService(client, mysqlrepo.New(db), cache)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(hotelID int64) {
			defer wg.Done()
			defer sem.Release(1)

			if err := ing.IngestHotel(ctx, hotelID); err != nil {
				failed.Add(1)
				log.Warn().Int64("id", hotelID).Err(err).Msg("ingest failed")
				return
			}
			log.Info().Int64("id", hotelID).Msg("ingest ok")
		}(id)
	}

	wg.Wait()
	log.Info().Int("total", len(ids)).Int64("failed", failed.Load()).Msg("ingestion completed")
}

// propertyIDs reads INGEST_IDS_FILE, then appends ids given as arguments.
func propertyIDs(cfg shared.Config, args []string) ([]int64, error) {
	var ids []int64
	if cfg.IngestIDsFile != "" {
		fromFile, err := shared.ReadIDs(cfg.IngestIDsFile)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
