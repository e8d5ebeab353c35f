package shared

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	TxTimeout      time.Duration
	TxMaxWait      time.Duration
	UpstreamBase   string
	UpstreamKey    string
	UpstreamRPS    int
	Workers        int
	IngestIDsFile  string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
		}
		return def
	}
	secs := func(k string, def int) time.Duration { return time.Duration(atoi(k, def)) * time.Second }

	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ""),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/inventory?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", ""),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		CacheTTL:       secs("CACHE_TTL_SECONDS", 0),
		RequestTimeout: secs("REQUEST_TIMEOUT_SECONDS", 15),
		TxTimeout:      secs("TX_TIMEOUT_SECONDS", 30),
		TxMaxWait:      secs("TX_MAX_WAIT_SECONDS", 95),
		UpstreamBase:   env("UPSTREAM_BASE_URL", "https://content-api.cupid.travel/v3.0"),
		UpstreamKey:    env("UPSTREAM_API_KEY", ""),
		UpstreamRPS:    atoi("UPSTREAM_RPS", 5),
		Workers:        atoi("INGEST_WORKERS", 8),
		IngestIDsFile:  env("INGEST_IDS_FILE", ""),
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// ReadIDs parses one property id per line; blank lines and '#' comments are skipped.
func ReadIDs(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []int64
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		ids = append(ids, id)
	}
	return ids, sc.Err()
}
