package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"orbsim/internal/config"
	"orbsim/internal/engine"
	"orbsim/internal/fetch"
	"orbsim/internal/loader"
	"orbsim/internal/model"
	"orbsim/internal/recorder"
	"orbsim/internal/report"
	"orbsim/internal/runner"
	"orbsim/internal/saver"
	"orbsim/internal/scheduler"
	"orbsim/internal/session"
	"orbsim/internal/sizing"
	"orbsim/internal/volatility"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfgPath := flag.String("config", defaultConfigPath(), "path to YAML config")
	minuteCSV := flag.String("minute-csv", "", "intraday bar table (overrides config)")
	dailyCSV := flag.String("daily-csv", "", "daily bar table (overrides config)")
	symbolsArg := flag.String("symbols", "", "comma-separated symbol filter")
	startArg := flag.String("start", "", "first trading date, YYYY-MM-DD")
	endArg := flag.String("end", "", "last trading date, YYYY-MM-DD")
	outPath := flag.String("out", "", "trade table output path (overrides config)")
	format := flag.String("format", "", "output format: csv, json or parquet (overrides config)")
	workers := flag.Int("workers", 0, "parallel simulation workers (overrides config)")
	fetchDaily := flag.Bool("fetch-daily", false, "fetch daily bars from the configured data source before running")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if *minuteCSV != "" {
		cfg.Data.MinuteCSV = *minuteCSV
	}
	if *dailyCSV != "" {
		cfg.Data.DailyCSV = *dailyCSV
	}
	if *outPath != "" {
		cfg.Output.TradesPath = *outPath
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		log.Fatalf("[FATAL] load timezone %q: %v", cfg.Data.Timezone, err)
	}

	symbols := splitSymbols(*symbolsArg)

	if *fetchDaily {
		if err := fetchDailyBars(cfg, loc, symbols); err != nil {
			log.Fatalf("[FATAL] fetch daily bars: %v", err)
		}
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	run := func() {
		if err := runOnce(cfg, loc, symbols, *startArg, *endArg, rec); err != nil {
			log.Printf("[ERROR] run: %v", err)
		}
	}

	if cfg.Schedule.RefreshCron == "" {
		if err := runOnce(cfg, loc, symbols, *startArg, *endArg, rec); err != nil {
			log.Fatalf("[FATAL] run: %v", err)
		}
		return
	}

	// Scheduled mode: run now, then on the cron spec until interrupted.
	run()
	sched := scheduler.New(run)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		log.Fatalf("[FATAL] register refresh cron: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[INFO] shutdown signal received, stopping...")
}

func runOnce(cfg *config.Config, loc *time.Location, symbols []string, start, end string, rec recorder.Recorder) error {
	begin := time.Now()

	minuteBars, err := loader.LoadMinuteBars(cfg.Data.MinuteCSV, loc)
	if err != nil {
		return err
	}
	dailyBars, err := loader.LoadDailyBars(cfg.Data.DailyCSV, loc)
	if err != nil {
		return err
	}
	log.Printf("[INFO] loaded %d minute bars, %d daily bars", len(minuteBars), len(dailyBars))

	if len(symbols) > 0 {
		minuteBars = filterBars(minuteBars, symbols)
		dailyBars = filterDaily(dailyBars, symbols)
	}

	sessions := session.Frame(minuteBars, loc)
	sessions, err = filterDates(sessions, start, end, loc)
	if err != nil {
		return err
	}

	vol := volatility.BuildTable(dailyBars, cfg.Strategy.ATRLookback)

	params := engine.Params{
		OpeningRangeBars:   cfg.Strategy.OpeningRangeBars,
		ATRFraction:        cfg.ATRFraction(),
		TargetR:            cfg.TargetR(),
		CommissionPerShare: cfg.CommissionPerShare(),
		Sizing: sizing.Params{
			Equity:       cfg.Account.Equity,
			RiskFraction: cfg.Account.RiskFraction,
			MaxLeverage:  cfg.Account.MaxLeverage,
			MinShares:    cfg.Account.MinShares,
		},
	}

	led, stats := runner.Run(sessions, vol, params, cfg.Workers)
	log.Printf("[INFO] simulation done in %s: %s", time.Since(begin).Round(time.Millisecond), report.FormatStats(stats))

	sv, err := saver.New(cfg.Output.Format)
	if err != nil {
		return err
	}
	if err := sv.Save(led.Trades(), cfg.Output.TradesPath); err != nil {
		return fmt.Errorf("save trades: %w", err)
	}

	summary := led.Summarize()
	fmt.Print(report.FormatSummary(summary, cfg.Output.TradesPath))

	info := &recorder.RunInfo{
		Symbols:   strings.Join(symbols, ","),
		StartDate: start,
		EndDate:   end,
		Summary:   summary,
	}
	if err := rec.RecordRun(info, led.Trades()); err != nil {
		log.Printf("[ERROR] record run: %v", err)
	}
	return nil
}

// fetchDailyBars pulls daily history for the given symbols from the
// configured bar service and writes it to the daily CSV path.
func fetchDailyBars(cfg *config.Config, loc *time.Location, symbols []string) error {
	if cfg.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required for -fetch-daily")
	}
	if len(symbols) == 0 {
		return fmt.Errorf("-symbols is required for -fetch-daily")
	}

	tr := fetch.NewHTTPTransport(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, loc)
	svc := fetch.NewService(tr, 30*time.Second)
	defer svc.Close()

	// Enough history to seed the ATR window with margin for holidays.
	days := cfg.Strategy.ATRLookback*3 + 10

	var all []model.DailyBar
	for _, sym := range symbols {
		bars, err := svc.FetchDailyBars(context.Background(), sym, days)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", sym, err)
		}
		log.Printf("[INFO] fetched %d daily bars for %s", len(bars), sym)
		all = append(all, bars...)
	}
	return writeDailyCSV(cfg.Data.DailyCSV, all)
}

func writeDailyCSV(path string, bars []model.DailyBar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"symbol", "date", "open", "high", "low", "close"}); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			b.Symbol, b.Date.Format("2006-01-02"),
			formatF(b.Open), formatF(b.High), formatF(b.Low), formatF(b.Close),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func splitSymbols(arg string) []string {
	if arg == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(arg, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func filterBars(bars []model.Bar, symbols []string) []model.Bar {
	keep := symbolSet(symbols)
	out := bars[:0]
	for _, b := range bars {
		if keep[b.Symbol] {
			out = append(out, b)
		}
	}
	return out
}

func filterDaily(bars []model.DailyBar, symbols []string) []model.DailyBar {
	keep := symbolSet(symbols)
	out := bars[:0]
	for _, b := range bars {
		if keep[b.Symbol] {
			out = append(out, b)
		}
	}
	return out
}

func symbolSet(symbols []string) map[string]bool {
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}

func filterDates(sessions []model.Session, start, end string, loc *time.Location) ([]model.Session, error) {
	var startT, endT time.Time
	var err error
	if start != "" {
		if startT, err = time.ParseInLocation("2006-01-02", start, loc); err != nil {
			return nil, fmt.Errorf("bad -start date %q", start)
		}
	}
	if end != "" {
		if endT, err = time.ParseInLocation("2006-01-02", end, loc); err != nil {
			return nil, fmt.Errorf("bad -end date %q", end)
		}
	}
	out := sessions[:0]
	for _, s := range sessions {
		if !startT.IsZero() && s.Date.Before(startT) {
			continue
		}
		if !endT.IsZero() && s.Date.After(endT) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}
