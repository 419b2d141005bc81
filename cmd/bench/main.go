// README: Smoke and load runner for the fare API; executes HTTP/DB/Redis checks and prints results.
package main

import (
    "context"
    "flag"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

func main() {
    cfg := loadConfig()

    ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
    results := NewRunner(cfg).RunAll(ctx)
    cancel()

    sum := summarize(results)
    fmt.Println("\n== Summary ==")
    fmt.Println(sum)
    os.Exit(sum.exitCode(cfg.Strict))
}

// TripFixture is the itinerary used by the flow cases.
type TripFixture struct {
    Origin      string
    Destination string
    PickupDate  string
    PickupTime  string
}

type Config struct {
    BaseURL         string
    DSN             string
    RedisAddr       string
    MigrationsDir   string
    ApplyMigrations bool
    SeedWidgetKey   string
    SeedWidgetFile  string
    SubmitEmail     string
    Strict          bool
    Timeout         time.Duration
    Concurrency     int
    Duration        time.Duration
    Trip            TripFixture
}

func loadConfig() Config {
    var cfg Config
    flag.StringVar(&cfg.BaseURL, "base-url", envString("FARE_BENCH_BASE_URL", "http://localhost:8080"), "fare API base URL")
    flag.StringVar(&cfg.DSN, "dsn", os.Getenv("FARE_DB_DSN"), "Postgres DSN shared with the API (optional)")
    flag.StringVar(&cfg.RedisAddr, "redis", os.Getenv("FARE_REDIS_ADDR"), "route cache Redis address (optional)")
    flag.StringVar(&cfg.MigrationsDir, "migrations", envString("FARE_BENCH_MIGRATIONS", "migrations"), "directory of *.sql migrations")
    flag.BoolVar(&cfg.ApplyMigrations, "apply-migrations", envBool("FARE_BENCH_APPLY_MIGRATIONS"), "apply every migration before the checks")
    flag.StringVar(&cfg.SeedWidgetKey, "seed-widget", envString("FARE_WIDGET_KEY", "default"), "widget key written by the seed case")
    flag.StringVar(&cfg.SeedWidgetFile, "seed-file", os.Getenv("FARE_BENCH_SEED_FILE"), "TOML widget config to store under -seed-widget")
    flag.StringVar(&cfg.SubmitEmail, "submit-email", os.Getenv("FARE_BENCH_SUBMIT_EMAIL"), "send a real booking with this contact email and check the journal")
    flag.BoolVar(&cfg.Strict, "strict", envBool("FARE_BENCH_STRICT"), "treat PENDING cases as failures")
    flag.DurationVar(&cfg.Timeout, "timeout", envDuration("FARE_BENCH_TIMEOUT", time.Minute), "overall deadline")
    flag.IntVar(&cfg.Concurrency, "concurrency", envInt("FARE_BENCH_CONCURRENCY", 20), "workers for load and toggle cases")
    flag.DurationVar(&cfg.Duration, "duration", envDuration("FARE_BENCH_DURATION", 10*time.Second), "length of each load case")
    flag.StringVar(&cfg.Trip.Origin, "origin", envString("FARE_BENCH_ORIGIN", "Gare de Lyon, Paris"), "trip origin")
    flag.StringVar(&cfg.Trip.Destination, "destination", envString("FARE_BENCH_DESTINATION", "Aéroport d'Orly"), "trip destination")
    flag.StringVar(&cfg.Trip.PickupDate, "pickup-date", envString("FARE_BENCH_PICKUP_DATE", time.Now().AddDate(0, 0, 2).Format("2006-01-02")), "pickup date (YYYY-MM-DD)")
    flag.StringVar(&cfg.Trip.PickupTime, "pickup-time", envString("FARE_BENCH_PICKUP_TIME", "10:00"), "pickup time (HH:MM)")
    flag.Parse()
    cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
    return cfg
}

// Summary counts results by status.
type Summary struct {
    Pass, Fail, Pending, Skip int
}

func summarize(results []Result) Summary {
    var s Summary
    for _, r := range results {
        switch r.Status {
        case "PASS":
            s.Pass++
        case "FAIL":
            s.Fail++
        case "PENDING":
            s.Pending++
        case "SKIP":
            s.Skip++
        }
    }
    return s
}

func (s Summary) String() string {
    return fmt.Sprintf("PASS=%d FAIL=%d PENDING=%d SKIP=%d", s.Pass, s.Fail, s.Pending, s.Skip)
}

// exitCode is 1 when any case failed, or when strict and any case is pending.
func (s Summary) exitCode(strict bool) int {
    if s.Fail > 0 || (strict && s.Pending > 0) {
        return 1
    }
    return 0
}

func envString(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func envBool(key string) bool {
    v, _ := strconv.ParseBool(os.Getenv(key))
    return v
}

func envInt(key string, def int) int {
    if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
        return n
    }
    return def
}

func envDuration(key string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
        return d
    }
    return def
}
