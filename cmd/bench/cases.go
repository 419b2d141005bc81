// README: Smoke cases for the fare API; includes HTTP flow, DB, Redis, concurrency and throughput checks.
package main

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "os"
    "path/filepath"
    "regexp"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/redis/go-redis/v9"

    "fareflow/internal/modules/booking"
    "fareflow/internal/modules/fareconfig"
)

type Runner struct {
    cfg   Config
    httpc *http.Client
    db    *pgxpool.Pool
    redis *redis.Client
}

type Result struct {
    Name    string
    Status  string
    Latency time.Duration
    Note    string
}

type TestCase struct {
    Name  string
    Focus string
    Run   func(ctx context.Context, r *Runner) Result
}

// sessionState mirrors the fields of the session JSON the runner inspects.
type sessionState struct {
    ID        string `json:"id"`
    Resolved  bool   `json:"resolved"`
    Selection *struct {
        VehicleID string  `json:"vehicleId"`
        Total     float64 `json:"total"`
    } `json:"selection"`
    SelectedOptions []struct {
        ID string `json:"id"`
    } `json:"selectedOptions"`
}

type widgetConfig struct {
    DisplayMode string `json:"displayMode"`
    Vehicles    []struct {
        ID string `json:"id"`
    } `json:"vehicles"`
    Options []struct {
        ID string `json:"id"`
    } `json:"options"`
}

func NewRunner(cfg Config) *Runner {
    return &Runner{
        cfg:   cfg,
        httpc: &http.Client{Timeout: 10 * time.Second},
    }
}

func (r *Runner) RunAll(ctx context.Context) []Result {
    if r.cfg.DSN != "" {
        if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
            r.db = db
        }
    }
    if r.cfg.RedisAddr != "" {
        r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
    }

    tests := r.cases()
    results := make([]Result, 0, len(tests))

    for _, tc := range tests {
        res := tc.Run(ctx, r)
        res.Name = tc.Name
        results = append(results, res)
        fmt.Printf("%-7s %s", res.Status, tc.Name)
        if res.Latency > 0 {
            fmt.Printf(" (%s)", res.Latency)
        }
        if res.Note != "" {
            fmt.Printf(" - %s", res.Note)
        }
        fmt.Println()
    }

    if r.db != nil {
        r.db.Close()
    }
    if r.redis != nil {
        _ = r.redis.Close()
    }

    return results
}

func (r *Runner) cases() []TestCase {
    base := r.cfg.BaseURL
    return []TestCase{
        {
            Name:  "Env: Postgres connect",
            Focus: "widget_configs source reachable",
            Run: func(ctx context.Context, r *Runner) Result {
                if r.db == nil {
                    return Result{Status: "SKIP", Note: "db not configured"}
                }
                ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
                defer cancel()
                if err := r.db.Ping(ctx); err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Env: Redis connect",
            Focus: "route cache reachable",
            Run: func(ctx context.Context, r *Runner) Result {
                if r.redis == nil {
                    return Result{Status: "SKIP", Note: "redis not configured"}
                }
                ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
                defer cancel()
                if err := r.redis.Ping(ctx).Err(); err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Migration: apply (optional)",
            Focus: "apply every migration in order",
            Run: func(ctx context.Context, r *Runner) Result {
                if !r.cfg.ApplyMigrations {
                    return Result{Status: "SKIP", Note: "apply-migrations=false"}
                }
                if r.db == nil {
                    return Result{Status: "FAIL", Note: "db not configured"}
                }
                files, err := migrationFiles(r.cfg.MigrationsDir)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                for _, f := range files {
                    sql, err := os.ReadFile(f)
                    if err != nil {
                        return Result{Status: "FAIL", Note: err.Error()}
                    }
                    for _, stmt := range splitSQL(string(sql)) {
                        if _, err := r.db.Exec(ctx, stmt); err != nil {
                            return Result{Status: "FAIL", Note: filepath.Base(f) + ": " + err.Error()}
                        }
                    }
                }
                return Result{Status: "PASS", Note: fmt.Sprintf("files=%d", len(files))}
            },
        },
        {
            Name:  "Migration: tables exist",
            Focus: "widget_configs and bookings are present",
            Run: func(ctx context.Context, r *Runner) Result {
                if r.db == nil {
                    return Result{Status: "SKIP", Note: "db not configured"}
                }
                files, err := migrationFiles(r.cfg.MigrationsDir)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                for _, f := range files {
                    tables, err := extractTables(f)
                    if err != nil {
                        return Result{Status: "FAIL", Note: err.Error()}
                    }
                    for _, t := range tables {
                        var exists bool
                        err := r.db.QueryRow(ctx,
                            "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
                            t,
                        ).Scan(&exists)
                        if err != nil {
                            return Result{Status: "FAIL", Note: err.Error()}
                        }
                        if !exists {
                            return Result{Status: "FAIL", Note: "missing table: " + t}
                        }
                    }
                }
                return Result{Status: "PASS"}
            },
        },
        {
            Name:  "Seed: widget config row",
            Focus: "TOML file stored and read back through the widget store",
            Run: func(ctx context.Context, r *Runner) Result {
                return r.seedWidget(ctx)
            },
        },

        httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, []int{200}, nil),
        httpCaseMethod("Config: widget config", http.MethodGet, base+"/api/widget/config", nil, []int{200}, nil),
        httpCase("Session: create", base+"/api/sessions", nil, []int{201}, nil),
        httpCaseMethod("Session: unknown id -> 404", http.MethodGet, base+"/api/sessions/00000000-0000-4000-8000-000000000000", nil, []int{404}, nil),
        httpCaseMethod("Session: malformed id -> 400", http.MethodGet, base+"/api/sessions/not-an-id!", nil, []int{400}, nil),

        {
            Name:  "Route: missing pickup date -> 400",
            Focus: "input errors clear the price",
            Run: func(ctx context.Context, r *Runner) Result {
                id, err := r.createSession(ctx)
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                status, _, latency, err := r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/route", map[string]any{
                    "origin":      r.cfg.Trip.Origin,
                    "destination": r.cfg.Trip.Destination,
                })
                if err != nil {
                    return Result{Status: "FAIL", Note: err.Error()}
                }
                return expectStatus(status, latency, []int{400}, nil)
            },
        },
        {
            Name:  "Flow: resolve, toggle option, validate submit",
            Focus: "route -> price -> option -> 422 on empty form",
            Run: func(ctx context.Context, r *Runner) Result {
                return r.bookingFlow(ctx)
            },
        },
        {
            Name:  "Journal: submitted booking recorded",
            Focus: "valid submission leaves a sent or failed bookings row",
            Run: func(ctx context.Context, r *Runner) Result {
                return r.journaledBooking(ctx)
            },
        },
        {
            Name:  "Concurrency: parallel option toggles",
            Focus: "per-session serialization keeps options consistent",
            Run: func(ctx context.Context, r *Runner) Result {
                return concurrentToggle(ctx, r)
            },
        },

        {
            Name:  "Perf: widget config throughput",
            Focus: "GET /api/widget/config",
            Run: func(ctx context.Context, r *Runner) Result {
                return perfLoad(ctx, r, http.MethodGet, base+"/api/widget/config", nil)
            },
        },
        {
            Name:  "Perf: session create throughput",
            Focus: "POST /api/sessions",
            Run: func(ctx context.Context, r *Runner) Result {
                return perfLoad(ctx, r, http.MethodPost, base+"/api/sessions", nil)
            },
        },
    }
}

func (r *Runner) do(ctx context.Context, method, url string, body any) (int, []byte, time.Duration, error) {
    var reader io.Reader
    if body != nil {
        b, _ := json.Marshal(body)
        reader = strings.NewReader(string(b))
    }
    req, err := http.NewRequestWithContext(ctx, method, url, reader)
    if err != nil {
        return 0, nil, 0, err
    }
    req.Header.Set("Content-Type", "application/json")
    start := time.Now()
    resp, err := r.httpc.Do(req)
    if err != nil {
        return 0, nil, 0, err
    }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    return resp.StatusCode, b, time.Since(start), err
}

func (r *Runner) createSession(ctx context.Context) (string, error) {
    status, body, _, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/sessions", nil)
    if err != nil {
        return "", err
    }
    if status != http.StatusCreated {
        return "", fmt.Errorf("create session: status=%d", status)
    }
    var st sessionState
    if err := json.Unmarshal(body, &st); err != nil {
        return "", err
    }
    return st.ID, nil
}

func (r *Runner) widgetConfig(ctx context.Context) (widgetConfig, error) {
    var cfg widgetConfig
    status, body, _, err := r.do(ctx, http.MethodGet, r.cfg.BaseURL+"/api/widget/config", nil)
    if err != nil {
        return cfg, err
    }
    if status != http.StatusOK {
        return cfg, fmt.Errorf("widget config: status=%d", status)
    }
    return cfg, json.Unmarshal(body, &cfg)
}

func (r *Runner) resolve(ctx context.Context, id string) (int, sessionState, time.Duration, error) {
    var st sessionState
    status, body, latency, err := r.do(ctx, http.MethodPost, r.cfg.BaseURL+"/api/sessions/"+id+"/route", map[string]any{
        "origin":      r.cfg.Trip.Origin,
        "destination": r.cfg.Trip.Destination,
        "pickupDate":  r.cfg.Trip.PickupDate,
        "pickupTime":  r.cfg.Trip.PickupTime,
    })
    if err == nil && status == http.StatusOK {
        err = json.Unmarshal(body, &st)
    }
    return status, st, latency, err
}

// bookingFlow reports PENDING when the server has no maps key configured.
func (r *Runner) bookingFlow(ctx context.Context) Result {
    base := r.cfg.BaseURL
    wc, err := r.widgetConfig(ctx)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    id, err := r.createSession(ctx)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }

    status, st, latency, err := r.resolve(ctx, id)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if status == http.StatusServiceUnavailable {
        return Result{Status: "PENDING", Latency: latency, Note: "routing not configured"}
    }
    if status != http.StatusOK || !st.Resolved {
        return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("route status=%d", status)}
    }

    if wc.DisplayMode == "B" && len(wc.Vehicles) > 0 {
        status, _, _, err = r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/vehicle", map[string]any{"vehicleId": wc.Vehicles[0].ID})
        if err != nil || status != http.StatusOK {
            return Result{Status: "FAIL", Note: fmt.Sprintf("select vehicle status=%d err=%v", status, err)}
        }
    }

    if len(wc.Options) > 0 {
        status, body, _, err := r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/options/"+wc.Options[0].ID+"/toggle", nil)
        if err != nil || status != http.StatusOK {
            return Result{Status: "FAIL", Note: fmt.Sprintf("toggle status=%d err=%v", status, err)}
        }
        var toggled sessionState
        if err := json.Unmarshal(body, &toggled); err != nil {
            return Result{Status: "FAIL", Note: err.Error()}
        }
        if len(toggled.SelectedOptions) != 1 {
            return Result{Status: "FAIL", Note: "option not selected after toggle"}
        }
    }

    status, _, _, err = r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/submit", map[string]any{})
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    return expectStatus(status, latency, []int{422}, nil)
}

// seedWidget stores the -seed-file config under -seed-widget. The API reads it
// on its next start or SIGHUP.
func (r *Runner) seedWidget(ctx context.Context) Result {
    if r.cfg.SeedWidgetFile == "" {
        return Result{Status: "SKIP", Note: "seed-file not set"}
    }
    if r.db == nil {
        return Result{Status: "SKIP", Note: "db not configured"}
    }
    raw, err := fareconfig.LoadFile(r.cfg.SeedWidgetFile)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    store := fareconfig.NewStore(r.db)
    start := time.Now()
    if err := store.SaveRaw(ctx, r.cfg.SeedWidgetKey, raw); err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    got, err := store.LoadRaw(ctx, r.cfg.SeedWidgetKey)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if got.JSON != raw.JSON || len(got.Attributes) != len(raw.Attributes) {
        return Result{Status: "FAIL", Note: "stored config differs from file"}
    }
    return Result{Status: "PASS", Latency: time.Since(start), Note: "widget=" + r.cfg.SeedWidgetKey}
}

// journaledBooking submits a real booking and checks its journal row. The
// relay must be reachable for the API to return a reference.
func (r *Runner) journaledBooking(ctx context.Context) Result {
    if r.cfg.SubmitEmail == "" {
        return Result{Status: "SKIP", Note: "submit-email not set"}
    }
    if r.db == nil {
        return Result{Status: "SKIP", Note: "db not configured"}
    }
    base := r.cfg.BaseURL
    wc, err := r.widgetConfig(ctx)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    id, err := r.createSession(ctx)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    status, _, latency, err := r.resolve(ctx, id)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if status == http.StatusServiceUnavailable {
        return Result{Status: "PENDING", Latency: latency, Note: "routing not configured"}
    }
    if status != http.StatusOK {
        return Result{Status: "FAIL", Note: fmt.Sprintf("route status=%d", status)}
    }
    if wc.DisplayMode == "B" && len(wc.Vehicles) > 0 {
        status, _, _, err = r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/vehicle", map[string]any{"vehicleId": wc.Vehicles[0].ID})
        if err != nil || status != http.StatusOK {
            return Result{Status: "FAIL", Note: fmt.Sprintf("select vehicle status=%d err=%v", status, err)}
        }
    }

    status, body, latency, err := r.do(ctx, http.MethodPost, base+"/api/sessions/"+id+"/submit", booking.Form{
        Contact: booking.Contact{Name: "Fare Bench", Email: r.cfg.SubmitEmail, Phone: "+33 1 00 00 00 00", Notes: "bench run"},
        Consent: booking.Consent{Terms: true},
    })
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if status == http.StatusBadGateway {
        return Result{Status: "PENDING", Latency: latency, Note: "relay unavailable"}
    }
    if status != http.StatusCreated {
        return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("submit status=%d", status)}
    }
    var receipt booking.Receipt
    if err := json.Unmarshal(body, &receipt); err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }

    rec, err := booking.NewStore(r.db).Get(ctx, receipt.Reference)
    if err != nil {
        return Result{Status: "FAIL", Note: fmt.Sprintf("journal %s: %v", receipt.Reference, err)}
    }
    if rec.Status != booking.StatusSent {
        return Result{Status: "FAIL", Note: "journal status=" + string(rec.Status)}
    }
    return Result{Status: "PASS", Latency: latency, Note: "reference=" + string(receipt.Reference)}
}

func httpCase(name, url string, body any, okStatuses, pendingStatuses []int) TestCase {
    return httpCaseMethod(name, http.MethodPost, url, body, okStatuses, pendingStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses, pendingStatuses []int) TestCase {
    return TestCase{
        Name:  name,
        Focus: "HTTP API",
        Run: func(ctx context.Context, r *Runner) Result {
            status, _, latency, err := r.do(ctx, method, url, body)
            if err != nil {
                return Result{Status: "FAIL", Note: err.Error()}
            }
            return expectStatus(status, latency, okStatuses, pendingStatuses)
        },
    }
}

func expectStatus(status int, latency time.Duration, okStatuses, pendingStatuses []int) Result {
    note := fmt.Sprintf("status=%d", status)
    if contains(okStatuses, status) {
        return Result{Status: "PASS", Latency: latency, Note: note}
    }
    if contains(pendingStatuses, status) {
        return Result{Status: "PENDING", Latency: latency, Note: note}
    }
    return Result{Status: "FAIL", Latency: latency, Note: note}
}

// concurrentToggle flips the same option an even number of times in parallel;
// the option must end up unselected.
func concurrentToggle(ctx context.Context, r *Runner) Result {
    wc, err := r.widgetConfig(ctx)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if len(wc.Options) == 0 {
        return Result{Status: "SKIP", Note: "no options configured"}
    }
    id, err := r.createSession(ctx)
    if err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    url := r.cfg.BaseURL + "/api/sessions/" + id + "/options/" + wc.Options[0].ID + "/toggle"

    n := r.cfg.Concurrency
    if n%2 == 1 {
        n++
    }
    wg := sync.WaitGroup{}
    var mu sync.Mutex
    failed := 0
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            status, _, _, err := r.do(ctx, http.MethodPost, url, nil)
            if err != nil || status != http.StatusOK {
                mu.Lock()
                failed++
                mu.Unlock()
            }
        }()
    }
    wg.Wait()
    if failed > 0 {
        return Result{Status: "FAIL", Note: fmt.Sprintf("failed=%d (rate limit?)", failed)}
    }

    status, body, _, err := r.do(ctx, http.MethodGet, r.cfg.BaseURL+"/api/sessions/"+id, nil)
    if err != nil || status != http.StatusOK {
        return Result{Status: "FAIL", Note: fmt.Sprintf("get status=%d err=%v", status, err)}
    }
    var st sessionState
    if err := json.Unmarshal(body, &st); err != nil {
        return Result{Status: "FAIL", Note: err.Error()}
    }
    if len(st.SelectedOptions) != 0 {
        return Result{Status: "FAIL", Note: fmt.Sprintf("toggles=%d but option still selected", n)}
    }
    return Result{Status: "PASS", Note: fmt.Sprintf("toggles=%d", n)}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
    end := time.Now().Add(r.cfg.Duration)
    var count, errCount, limited int64
    var mu sync.Mutex
    wg := sync.WaitGroup{}

    for i := 0; i < r.cfg.Concurrency; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for time.Now().Before(end) && ctx.Err() == nil {
                status, _, _, err := r.do(ctx, method, url, payload)
                mu.Lock()
                switch {
                case err != nil:
                    errCount++
                case status == http.StatusTooManyRequests:
                    limited++
                default:
                    count++
                }
                mu.Unlock()
            }
        }()
    }
    wg.Wait()

    if count == 0 {
        return Result{Status: "FAIL", Note: fmt.Sprintf("no requests completed (limited=%d errors=%d)", limited, errCount)}
    }
    rps := float64(count) / r.cfg.Duration.Seconds()
    return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f limited=%d errors=%d", rps, limited, errCount)}
}

func contains(list []int, v int) bool {
    for _, i := range list {
        if i == v {
            return true
        }
    }
    return false
}

// migrationFiles lists dir's *.sql files in apply order.
func migrationFiles(dir string) ([]string, error) {
    files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
    if err != nil {
        return nil, err
    }
    if len(files) == 0 {
        return nil, fmt.Errorf("no migrations in %s", dir)
    }
    sort.Strings(files)
    return files, nil
}

func extractTables(path string) ([]string, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, err
    }
    re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
    matches := re.FindAllStringSubmatch(string(b), -1)
    tables := make([]string, 0, len(matches))
    for _, m := range matches {
        tables = append(tables, m[1])
    }
    return tables, nil
}

func splitSQL(sql string) []string {
    lines := strings.Split(sql, "\n")
    filtered := make([]string, 0, len(lines))
    for _, line := range lines {
        l := strings.TrimSpace(line)
        if strings.HasPrefix(l, "--") || l == "" {
            continue
        }
        filtered = append(filtered, line)
    }
    parts := strings.Split(strings.Join(filtered, "\n"), ";")
    stmts := make([]string, 0, len(parts))
    for _, p := range parts {
        if s := strings.TrimSpace(p); s != "" {
            stmts = append(stmts, s)
        }
    }
    return stmts
}
