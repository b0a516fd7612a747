package console

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/hunter-console/internal/model"
)

func TestDefaultFilterAdmitsEverything(t *testing.T) {
	f := NewFilterState()
	entries := []model.LogEntry{
		{Source: "nmap", Severity: model.SeverityDebug, Message: "a"},
		{Source: "backend", Severity: model.SeverityError, Message: "b"},
		{Source: "celery", Kind: model.KindCommand, Message: "c"},
		{Source: "unknown-source", Kind: model.KindSuccess, Message: "d"},
	}
	if got := len(VisibleLogs(entries, f)); got != len(entries) {
		t.Errorf("default state must admit all %d entries, got %d", len(entries), got)
	}
}

func TestSourceToggleIsSubtractive(t *testing.T) {
	// 规约场景：关掉 nmap 后只剩 nikto
	c := New(10, nil)
	c.Logs.Append(model.LogEntry{Source: "nmap", Message: "scan"})
	c.Logs.Append(model.LogEntry{Source: "nikto", Message: "probe"})

	c.ToggleSourceFilter("nmap")
	visible := c.VisibleLogs()
	if len(visible) != 1 || visible[0].Source != "nikto" {
		t.Fatalf("expected only the nikto entry, got %d entries", len(visible))
	}

	c.ToggleSourceFilter("nmap") // 再翻回来
	if got := len(c.VisibleLogs()); got != 2 {
		t.Errorf("re-enabling the source must restore the entry, got %d", got)
	}
}

func TestTabNarrowsBySourceSet(t *testing.T) {
	entries := []model.LogEntry{
		{Source: "nmap", Message: "a"},
		{Source: "backend", Message: "b"},
		{Source: "celery", Message: "c"},
		{Source: "NIKTO", Message: "d"}, // 来源大小写不敏感
	}
	f := NewFilterState()
	f.ActiveTab = TabTools
	got := VisibleLogs(entries, f)
	if len(got) != 2 {
		t.Fatalf("tools tab should admit nmap and nikto only, got %d", len(got))
	}
	for _, e := range got {
		if lower := strings.ToLower(e.Source); lower != "nmap" && lower != "nikto" {
			t.Errorf("unexpected source %q in tools tab", e.Source)
		}
	}
}

func TestLevelFilterUsesClosedVocabulary(t *testing.T) {
	entries := []model.LogEntry{
		{Source: "nmap", Severity: model.SeverityInfo, Kind: model.KindCommand, Message: "cmd"},
		{Source: "nmap", Severity: model.SeverityInfo, Message: "plain"},
	}
	f := NewFilterState()
	f.LevelFilters["command"] = false
	got := VisibleLogs(entries, f)
	if len(got) != 1 || got[0].Message != "plain" {
		t.Fatalf("command-kind entry must be dropped via 'command' level, got %d", len(got))
	}
}

func TestSearchMatchesMessageSourceAndRaw(t *testing.T) {
	entries := []model.LogEntry{
		{Source: "nmap", Message: "port 80 open"},
		{Source: "nikto", Message: "nothing", Raw: `{"port":443}`},
		{Source: "sqlmap", Message: "irrelevant"},
	}
	f := NewFilterState()
	f.SearchQuery = "PORT"
	got := VisibleLogs(entries, f)
	if len(got) != 2 {
		t.Fatalf("search must match message and raw payload, got %d", len(got))
	}
}

// referenceFilter 逐阶段独立实现的暴力参照，用于合取性质对拍
func referenceFilter(entries []model.LogEntry, f FilterState) []model.LogEntry {
	passTab := func(e model.LogEntry) bool {
		if f.ActiveTab == TabUnified || f.ActiveTab == "" {
			return true
		}
		allowed := tabSources[f.ActiveTab]
		_, in := allowed[strings.ToLower(e.Source)]
		return in
	}
	passSource := func(e model.LogEntry) bool {
		enabled, ok := f.SourceFilters[strings.ToLower(e.Source)]
		return !ok || enabled
	}
	passLevel := func(e model.LogEntry) bool {
		enabled, ok := f.LevelFilters[e.FilterLevel()]
		return !ok || enabled
	}
	passSearch := func(e model.LogEntry) bool {
		q := strings.ToLower(strings.TrimSpace(f.SearchQuery))
		if q == "" {
			return true
		}
		return strings.Contains(strings.ToLower(e.Message), q) ||
			strings.Contains(strings.ToLower(e.Source), q) ||
			strings.Contains(strings.ToLower(e.Raw), q)
	}
	var out []model.LogEntry
	for _, e := range entries {
		if passTab(e) && passSource(e) && passLevel(e) && passSearch(e) {
			out = append(out, e)
		}
	}
	return out
}

func TestFilterConjunctionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sources := []string{"nmap", "nikto", "backend", "celery", "worker", "sqlmap", "api", "database", "misc"}
	severities := []model.Severity{model.SeverityDebug, model.SeverityInfo, model.SeverityWarning, model.SeverityError}
	kinds := []model.EntryKind{model.KindMessage, model.KindSuccess, model.KindCommand}
	tabs := []Tab{TabUnified, TabBackend, TabCelery, TabTools}
	words := []string{"port", "open", "timeout", "target", "injected", "done"}

	for round := 0; round < 200; round++ {
		entries := make([]model.LogEntry, rng.Intn(30))
		for i := range entries {
			entries[i] = model.LogEntry{
				Source:   sources[rng.Intn(len(sources))],
				Severity: severities[rng.Intn(len(severities))],
				Kind:     kinds[rng.Intn(len(kinds))],
				Message:  words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))],
			}
			if rng.Intn(3) == 0 {
				entries[i].Raw = words[rng.Intn(len(words))]
			}
		}
		f := NewFilterState()
		f.ActiveTab = tabs[rng.Intn(len(tabs))]
		for _, s := range sources {
			if rng.Intn(4) == 0 {
				f.SourceFilters[s] = false
			}
		}
		for _, l := range model.FilterLevels {
			if rng.Intn(4) == 0 {
				f.LevelFilters[l] = false
			}
		}
		if rng.Intn(2) == 0 {
			f.SearchQuery = words[rng.Intn(len(words))]
		}

		got := VisibleLogs(entries, f)
		want := referenceFilter(entries, f)
		if len(got) != len(want) {
			t.Fatalf("round %d: got %d visible, reference says %d", round, len(got), len(want))
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("round %d: entry %d diverges from reference", round, i)
			}
		}
	}
}

func TestLogViewMemoization(t *testing.T) {
	store := NewLogStore(100)
	view := NewLogView(store)
	store.Append(model.LogEntry{Source: "nmap", Message: "a"})

	f := NewFilterState()
	first := view.Visible(f)
	second := view.Visible(f)
	// 同一 (过滤状态, 版本) 必须命中缓存，返回同一切片
	if len(first) != 1 || len(second) != 1 {
		t.Fatal("both calls should see the single entry")
	}
	if &first[0] != &second[0] {
		t.Error("unchanged state+version should return the cached slice")
	}

	store.Append(model.LogEntry{Source: "nikto", Message: "b"})
	third := view.Visible(f)
	if len(third) != 2 {
		t.Error("store version change must invalidate the cache")
	}

	f2 := NewFilterState()
	f2.SearchQuery = "a"
	fourth := view.Visible(f2)
	if len(fourth) != 1 || fourth[0].Message != "a" {
		t.Error("filter state change must invalidate the cache")
	}
}

func TestFilterStateKeyCanonical(t *testing.T) {
	a, b := NewFilterState(), NewFilterState()
	a.SourceFilters["nmap"] = false
	a.SourceFilters["nikto"] = false
	b.SourceFilters["nikto"] = false
	b.SourceFilters["nmap"] = false
	b.LevelFilters["DEBUG"] = true // 显式开着等价于没设
	if a.Key() == "" || a.Key() != b.Key() {
		t.Errorf("equivalent states must share a key: %q vs %q", a.Key(), b.Key())
	}
}
