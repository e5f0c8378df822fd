package agentloop

import (
	"regexp"
	"strings"
	"sync"
)

// Expert names the fixed set of MoE experts the loop classifies each
// turn into. Each carries a tool-name allow-list and a system-prompt
// addendum.
type Expert string

const (
	ExpertFileOps     Expert = "file_ops"
	ExpertDevTools     Expert = "dev_tools"
	ExpertMacOSApps    Expert = "macos_apps"
	ExpertWebResearch  Expert = "web_research"
	ExpertGeneral      Expert = "general"
)

// AllExperts is the fixed expert set, in a stable order used for
// prefetcher fallback and warmup.
var AllExperts = []Expert{ExpertFileOps, ExpertDevTools, ExpertMacOSApps, ExpertWebResearch, ExpertGeneral}

// ExpertProfile pairs an Expert with its allow-listed tools and prompt
// addendum.
type ExpertProfile struct {
	Expert         Expert
	ToolAllowList  []string
	PromptAddendum string
}

var defaultProfiles = map[Expert]ExpertProfile{
	ExpertFileOps: {
		Expert:         ExpertFileOps,
		ToolAllowList:  []string{"read_file", "write_file", "list_directory", "search_files"},
		PromptAddendum: "Favor minimal, targeted filesystem operations. Always confirm a path exists before writing to it.",
	},
	ExpertDevTools: {
		Expert:         ExpertDevTools,
		ToolAllowList:  []string{"run_command", "run_tests", "git_diff", "git_commit"},
		PromptAddendum: "Prefer running the narrowest test or command that validates the change under discussion.",
	},
	ExpertMacOSApps: {
		Expert:         ExpertMacOSApps,
		ToolAllowList:  []string{"open_app", "send_apple_event", "screenshot"},
		PromptAddendum: "Only drive applications that are already running unless the user explicitly asks to launch one.",
	},
	ExpertWebResearch: {
		Expert:         ExpertWebResearch,
		ToolAllowList:  []string{"web_search", "fetch_url"},
		PromptAddendum: "Cite the source URL for any fact pulled from a fetched page.",
	},
	ExpertGeneral: {
		Expert:         ExpertGeneral,
		ToolAllowList:  nil, // no allow-list restriction
		PromptAddendum: "",
	},
}

// heuristics used by classifyExpert, grounded on simple keyword/regex
// tagging rather than a second model call.
var (
	fileRegex    = regexp.MustCompile(`(?i)\b(file|directory|folder|read|write|path)\b`)
	devRegex     = regexp.MustCompile(`(?i)\b(test|build|compile|git|commit|run|command|lint)\b`)
	macRegex     = regexp.MustCompile(`(?i)\b(app|application|screenshot|finder|safari|mail\.app)\b`)
	webRegex     = regexp.MustCompile(`(?i)\b(search|browse|url|website|fetch)\b`)
	codeFenceRe  = regexp.MustCompile("```")
)

// classifyExpert tags the pending user turn into one of AllExperts.
// First matching heuristic wins, in the fixed priority order below;
// unmatched text falls back to ExpertGeneral.
func classifyExpert(userText string) Expert {
	text := strings.ToLower(strings.TrimSpace(userText))
	if text == "" {
		return ExpertGeneral
	}
	switch {
	case devRegex.MatchString(text) || codeFenceRe.MatchString(text):
		return ExpertDevTools
	case fileRegex.MatchString(text):
		return ExpertFileOps
	case macRegex.MatchString(text):
		return ExpertMacOSApps
	case webRegex.MatchString(text):
		return ExpertWebResearch
	default:
		return ExpertGeneral
	}
}

// WarmupCache precomputes tool-definition schemas per expert once at
// startup and shares them immutably thereafter.
type WarmupCache struct {
	schemas map[Expert][]ToolSchema
}

// NewWarmupCache builds a cache by filtering allTools against each
// expert's allow-list. A nil allow-list (ExpertGeneral) keeps every
// tool.
func NewWarmupCache(allTools []ToolSchema) *WarmupCache {
	cache := &WarmupCache{schemas: make(map[Expert][]ToolSchema, len(AllExperts))}
	for _, expert := range AllExperts {
		profile := defaultProfiles[expert]
		if profile.ToolAllowList == nil {
			cache.schemas[expert] = allTools
			continue
		}
		allowed := make(map[string]bool, len(profile.ToolAllowList))
		for _, name := range profile.ToolAllowList {
			allowed[name] = true
		}
		var filtered []ToolSchema
		for _, t := range allTools {
			if allowed[t.Name] {
				filtered = append(filtered, t)
			}
		}
		cache.schemas[expert] = filtered
	}
	return cache
}

// ToolsFor returns the precomputed, immutable schema slice for expert.
func (c *WarmupCache) ToolsFor(expert Expert) []ToolSchema {
	return c.schemas[expert]
}

// Prefetcher maintains an expert->expert transition count matrix and
// predicts likely successors, so the warmup cache and prompt optimizer
// can precompute ahead of the next classification.
type Prefetcher struct {
	mu          sync.Mutex
	transitions map[Expert]map[Expert]int
}

func NewPrefetcher() *Prefetcher {
	return &Prefetcher{transitions: make(map[Expert]map[Expert]int)}
}

// Record notes one observed from->to expert transition.
func (p *Prefetcher) Record(from, to Expert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.transitions[from]
	if !ok {
		row = make(map[Expert]int)
		p.transitions[from] = row
	}
	row[to]++
}

// PredictNext returns the top-n successors to current by observed
// transition count, falling back to {FileOps, DevTools} when current
// has no recorded transitions.
func (p *Prefetcher) PredictNext(current Expert, n int) []Expert {
	p.mu.Lock()
	defer p.mu.Unlock()

	row := p.transitions[current]
	if len(row) == 0 {
		fallback := []Expert{ExpertFileOps, ExpertDevTools}
		if n < len(fallback) {
			return fallback[:n]
		}
		return fallback
	}

	type pair struct {
		expert Expert
		count  int
	}
	pairs := make([]pair, 0, len(row))
	for e, c := range row {
		pairs = append(pairs, pair{e, c})
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j-1].count < pairs[j].count; j-- {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}
	if n > len(pairs) {
		n = len(pairs)
	}
	out := make([]Expert, n)
	for i := 0; i < n; i++ {
		out[i] = pairs[i].expert
	}
	return out
}
