package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lodyland/internal/collect"
	"lodyland/internal/content"
	"lodyland/internal/economy"
	"lodyland/internal/game"
	"lodyland/internal/progression"
	"lodyland/internal/rules"
	"lodyland/pkg/logger"
)

var (
	contentDir = flag.String("content", "", "content directory (empty uses embedded defaults)")
	numPlayers = flag.Int("players", 3, "number of simulated players per strategy")
	strategies = flag.String("strategies", "collector,trader,forager", "comma-separated list of strategies")
	hours      = flag.Float64("hours", 24, "simulated play time per player, in hours")
	tick       = flag.Duration("tick", time.Second, "simulation step")
	seed       = flag.Int64("seed", 1, "base random seed")
	dailyCoins = flag.Int64("daily-coins", 50, "daily reward coins")
	concurrent = flag.Bool("concurrent", true, "simulate players concurrently")
	reportFile = flag.String("report", "", "write the JSON report to this file")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	showCaller = flag.Bool("show-caller", false, "show caller information in logs")
)

// Strategy decides what a simulated player does besides collecting
type Strategy string

const (
	// Collector only unlocks tiles and collects
	Collector Strategy = "collector"
	// Trader also sells surplus stock and buys shop cards
	Trader Strategy = "trader"
	// Forager works land slots with the best tool it has
	Forager Strategy = "forager"
)

// PlayerResult is the end state of one simulated player
type PlayerResult struct {
	Strategy   Strategy           `json:"strategy"`
	Seed       int64              `json:"seed"`
	Level      int                `json:"level"`
	XP         float64            `json:"xp"`
	Coins      int64              `json:"coins"`
	Diamonds   int64              `json:"diamonds"`
	Collects   int                `json:"collects"`
	Stock      map[string]float64 `json:"stock"`
	Cards      map[string]int     `json:"cards"`
	LevelTimes map[int]float64    `json:"level_minutes"`
}

// StrategySummary averages the results of one strategy
type StrategySummary struct {
	Players      int             `json:"players"`
	AvgLevel     float64         `json:"avg_level"`
	AvgCoins     float64         `json:"avg_coins"`
	AvgCollects  float64         `json:"avg_collects"`
	LevelMinutes map[int]float64 `json:"avg_level_minutes"`
}

// Report is the simulator output
type Report struct {
	GeneratedAt time.Time                     `json:"generated_at"`
	Hours       float64                       `json:"hours"`
	Strategies  map[Strategy]*StrategySummary `json:"strategies"`
	Players     []PlayerResult                `json:"players"`
	Insights    []string                      `json:"insights"`
}

func main() {
	flag.Parse()
	logger.InitLoggers(logger.ParseLevel(*logLevel), *showCaller)
	log := logger.SimLogger

	reg, err := loadContent(*contentDir)
	if err != nil {
		log.Fatal("Failed to load content: %v", err)
	}
	for _, warning := range reg.Warnings() {
		logger.ContentLogger.Warn("%s", warning)
	}

	var plan []Strategy
	for _, s := range strings.Split(*strategies, ",") {
		switch st := Strategy(strings.TrimSpace(s)); st {
		case Collector, Trader, Forager:
			plan = append(plan, st)
		default:
			log.Fatal("Unknown strategy %q", s)
		}
	}
	if *numPlayers < 1 || len(plan) == 0 {
		log.Fatal("Need at least one player and one strategy")
	}

	duration := time.Duration(*hours * float64(time.Hour))
	log.Info("Simulating %d players x %d strategies for %s", *numPlayers, len(plan), duration)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []PlayerResult
	)
	run := func(st Strategy, s int64) {
		res := newSimPlayer(reg, st, s).run(duration, *tick)
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		log.Debug("%s #%d finished at level %d", st, s, res.Level)
	}
	for i, st := range plan {
		for p := 0; p < *numPlayers; p++ {
			s := *seed + int64(i*(*numPlayers)+p)
			if *concurrent {
				wg.Add(1)
				go func(st Strategy, s int64) {
					defer wg.Done()
					run(st, s)
				}(st, s)
			} else {
				run(st, s)
			}
		}
	}
	wg.Wait()

	report := buildReport(results, *hours)
	printReport(report)
	if *reportFile != "" {
		if err := saveReport(report, *reportFile); err != nil {
			log.Error("Failed to save report: %v", err)
		}
	}
}

func loadContent(dir string) (*content.Registry, error) {
	loader, err := content.NewLoader(true)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return loader.LoadDefaults()
	}
	return loader.LoadDir(dir)
}

// simPlayer drives the engines for one player on a virtual clock
type simPlayer struct {
	reg      *content.Registry
	strategy Strategy
	seed     int64
	state    *game.PlayerState
	engine   *collect.Engine
	tiles    []*game.Tile
	slots    map[string]*game.LandSlot
	extra    map[string]int
	start    time.Time
	now      time.Time
	collects int
	levels   map[int]float64
}

func newSimPlayer(reg *content.Registry, st Strategy, seed int64) *simPlayer {
	p := game.NewPlayer(fmt.Sprintf("%s-%d", st, seed))
	state := game.NewPlayerState(p, nil, map[string]int{"land_forest": 1})
	prog := progression.NewEngine(reg)
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return &simPlayer{
		reg:      reg,
		strategy: st,
		seed:     seed,
		state:    state,
		engine:   collect.NewEngine(reg, prog, rand.New(rand.NewSource(seed)), collect.DefaultConfig()),
		slots:    make(map[string]*game.LandSlot),
		extra:    make(map[string]int),
		start:    start,
		now:      start,
		levels:   make(map[int]float64),
	}
}

func (s *simPlayer) run(duration, step time.Duration) PlayerResult {
	end := s.start.Add(duration)
	var nextPlan time.Time
	for ; s.now.Before(end); s.now = s.now.Add(step) {
		if !s.state.Player.ClaimedOn(s.now) {
			s.state.Player.RecordDailyClaim(s.now)
			s.state.Player.Coins += *dailyCoins
		}
		if !s.now.Before(nextPlan) {
			s.plan()
			nextPlan = s.now.Add(time.Minute)
		}
		s.collectReady()
	}

	p := s.state.Player
	stock := make(map[string]float64)
	for k, v := range s.state.StockSnapshot() {
		stock[k] = economy.RoundStock(v)
	}
	cards := make(map[string]int)
	for _, oc := range s.state.OwnedCards() {
		cards[oc.Key] = oc.Qty
	}
	return PlayerResult{
		Strategy:   s.strategy,
		Seed:       s.seed,
		Level:      p.Level,
		XP:         economy.Round4(p.XP),
		Coins:      p.Coins,
		Diamonds:   p.Diamonds,
		Collects:   s.collects,
		Stock:      stock,
		Cards:      cards,
		LevelTimes: s.levels,
	}
}

// plan unlocks tiles and, depending on the strategy, trades
func (s *simPlayer) plan() {
	have := make(map[string]bool, len(s.tiles))
	for _, t := range s.tiles {
		have[t.Resource] = true
	}
	facts := s.state.Player.Facts()
	for _, res := range s.reg.Resources() {
		if !res.Enabled || have[res.Key] || s.state.Player.Level < res.UnlockMinLevel {
			continue
		}
		if !rules.Evaluate(facts, res.UnlockRules).Passed {
			continue
		}
		s.tiles = append(s.tiles, &game.Tile{ID: int64(len(s.tiles) + 1), Resource: res.Key})
	}

	if s.strategy != Trader {
		return
	}
	for _, res := range s.reg.Resources() {
		// keep a small reserve for card prices
		if qty := s.state.Stock(res.Key); qty >= 21 {
			sell := math.Floor(qty - 20)
			s.state.RemoveStock(res.Key, sell)
			s.state.Player.Coins += int64(sell) * res.BaseSellPrice
		}
	}
	for _, card := range s.reg.Cards() {
		s.tryBuy(card)
	}
}

func (s *simPlayer) tryBuy(card *content.Card) {
	if !card.Shop.Enabled || card.Shop.Expired(s.now) {
		return
	}
	if card.MaxOwned > 0 && s.state.CardQty(card.Key) >= card.MaxOwned {
		return
	}
	if !rules.Evaluate(s.state.Player.Facts(), card.BuyRules).Passed {
		return
	}
	price := card.Price()
	p := s.state.Player
	if p.Coins < price.Coins || p.Diamonds < price.Diamonds {
		return
	}
	for res, need := range price.Resources {
		if s.state.Stock(res) < need {
			return
		}
	}
	p.SpendCoins(price.Coins)
	p.SpendDiamonds(price.Diamonds)
	for res, need := range price.Resources {
		s.state.RemoveStock(res, need)
	}
	s.state.AddCard(card.Key, 1)
	logger.SimLogger.Debug("%s bought %s at level %d", p.Name, card.Key, p.Level)
}

func (s *simPlayer) collectReady() {
	for _, tile := range s.tiles {
		if !tile.Ready(s.now) {
			continue
		}
		res, _ := s.reg.Resource(tile.Resource)
		out, err := s.engine.CollectTile(s.now, tile, s.state, res)
		if err == nil {
			s.record(out)
		}
	}
	if s.strategy != Forager {
		return
	}
	for _, land := range s.reg.Lands() {
		if !collect.HasLandAccess(s.reg, land, s.state) {
			continue
		}
		tool := bestTool(land)
		for i := 0; i < land.Slots+s.extra[land.Key]; i++ {
			key := fmt.Sprintf("%s/%d", land.Key, i)
			slot, ok := s.slots[key]
			if !ok {
				slot = &game.LandSlot{Land: land.Key, Slot: i}
				s.slots[key] = slot
			}
			if !slot.Ready(s.now) {
				continue
			}
			out, err := s.engine.CollectLandSlot(s.now, collect.LandRequest{
				Land:       land,
				Slot:       i,
				Tool:       tool,
				ExtraSlots: s.extra[land.Key],
				SlotState:  slot,
			}, s.state)
			if err == nil {
				s.record(out)
			}
		}
		if cost := land.SlotCost(s.extra[land.Key]); s.state.Player.SpendDiamonds(cost) {
			s.extra[land.Key]++
		}
	}
}

func (s *simPlayer) record(out *collect.Outcome) {
	s.collects++
	if out.Progress.LeveledUp {
		minutes := s.now.Sub(s.start).Minutes()
		for lvl := out.Progress.OldLevel + 1; lvl <= out.Progress.NewLevel; lvl++ {
			s.levels[lvl] = minutes
		}
	}
}

// bestTool picks the tool with the longest cooldown, which carries the
// richest loot table in stock content
func bestTool(land *content.Land) string {
	best, bestCD := "", -1.0
	names := make([]string, 0, len(land.Tools))
	for name := range land.Tools {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if cd := land.Tools[name].CooldownSeconds; cd > bestCD {
			best, bestCD = name, cd
		}
	}
	return best
}

func buildReport(results []PlayerResult, hours float64) *Report {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Strategy != results[j].Strategy {
			return results[i].Strategy < results[j].Strategy
		}
		return results[i].Seed < results[j].Seed
	})
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Hours:       hours,
		Strategies:  make(map[Strategy]*StrategySummary),
		Players:     results,
	}

	reached := make(map[Strategy]map[int]int)
	for _, r := range results {
		sum, ok := report.Strategies[r.Strategy]
		if !ok {
			sum = &StrategySummary{LevelMinutes: make(map[int]float64)}
			report.Strategies[r.Strategy] = sum
			reached[r.Strategy] = make(map[int]int)
		}
		sum.Players++
		sum.AvgLevel += float64(r.Level)
		sum.AvgCoins += float64(r.Coins)
		sum.AvgCollects += float64(r.Collects)
		for lvl, minutes := range r.LevelTimes {
			sum.LevelMinutes[lvl] += minutes
			reached[r.Strategy][lvl]++
		}
	}
	for st, sum := range report.Strategies {
		n := float64(sum.Players)
		sum.AvgLevel /= n
		sum.AvgCoins /= n
		sum.AvgCollects /= n
		for lvl := range sum.LevelMinutes {
			sum.LevelMinutes[lvl] /= float64(reached[st][lvl])
		}
	}
	report.Insights = insights(report)
	return report
}

func insights(report *Report) []string {
	strategies := make([]string, 0, len(report.Strategies))
	for st := range report.Strategies {
		strategies = append(strategies, string(st))
	}
	sort.Strings(strategies)

	var out []string
	best, bestLevel := "", -1.0
	for _, st := range strategies {
		if sum := report.Strategies[Strategy(st)]; sum.AvgLevel > bestLevel {
			best, bestLevel = st, sum.AvgLevel
		}
	}
	if best != "" {
		out = append(out, fmt.Sprintf("%s progressed fastest, average level %.1f", best, bestLevel))
	}
	for _, st := range strategies {
		sum := report.Strategies[Strategy(st)]
		if minutes, ok := sum.LevelMinutes[1]; ok && minutes > 60 {
			out = append(out, fmt.Sprintf("%s needs %.0f minutes for level 1", st, minutes))
		}
		if sum.AvgCollects == 0 {
			out = append(out, fmt.Sprintf("%s never collected anything", st))
		}
	}
	return out
}

func printReport(report *Report) {
	log := logger.SimLogger
	strategies := make([]string, 0, len(report.Strategies))
	for st := range report.Strategies {
		strategies = append(strategies, string(st))
	}
	sort.Strings(strategies)

	log.Info("=== Balance report (%.1f simulated hours) ===", report.Hours)
	for _, st := range strategies {
		sum := report.Strategies[Strategy(st)]
		log.Info("%-10s players=%d avg_level=%.2f avg_coins=%.0f avg_collects=%.0f",
			st, sum.Players, sum.AvgLevel, sum.AvgCoins, sum.AvgCollects)
		levels := make([]int, 0, len(sum.LevelMinutes))
		for lvl := range sum.LevelMinutes {
			levels = append(levels, lvl)
		}
		sort.Ints(levels)
		for _, lvl := range levels {
			log.Info("    level %d after %.1f min", lvl, sum.LevelMinutes[lvl])
		}
	}
	for _, line := range report.Insights {
		log.Info("* %s", line)
	}
}

func saveReport(report *Report, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.SimLogger.Info("Report saved to %s", filename)
	return nil
}
