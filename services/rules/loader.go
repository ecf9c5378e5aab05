package rules

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"aod-backend/lib/configutil"
)

// Loader reads rule files from a directory and caches them for the
// process lifetime. Rule files are json5, named <domain>.<platform>.json5;
// a <domain>.<platform>.local.json5 overlay merges over the base file the
// same way service configs do.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*MappingRule
}

func NewLoader(dir string) *Loader {
	return &Loader{
		dir:   dir,
		cache: map[string]*MappingRule{},
	}
}

func cacheKey(domain, platform string) string {
	return domain + "." + platform
}

func (l *Loader) ruleFile(domain, platform string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s.%s.json5", domain, platform))
}

// Load returns the rule for (domain, platform), reading and validating
// it on first use. ErrRuleNotFound when no file exists, *ParseError when
// the file is malformed.
func (l *Loader) Load(domain, platform string) (*MappingRule, error) {
	key := cacheKey(domain, platform)

	l.mu.RLock()
	rule, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return rule, nil
	}

	rule, err := l.read(domain, platform)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// another goroutine may have won the race; keep its copy so
	// concurrent callers observe a single rule instance
	if cached, ok := l.cache[key]; ok {
		return cached, nil
	}
	l.cache[key] = rule
	return rule, nil
}

func (l *Loader) read(domain, platform string) (*MappingRule, error) {
	file := l.ruleFile(domain, platform)

	rule, err := configutil.ReadConfig[MappingRule](file)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrRuleNotFound, domain, platform)
	}
	if err != nil {
		return nil, &ParseError{File: file, Reason: err.Error()}
	}

	err = Validate(file, &rule)
	if err != nil {
		return nil, err
	}
	if rule.Domain != domain || rule.PlatformName != platform {
		return nil, &ParseError{
			File: file,
			Reason: fmt.Sprintf(
				"declares (%s, %s) but file name says (%s, %s)",
				rule.Domain, rule.PlatformName, domain, platform,
			),
		}
	}

	return &rule, nil
}

// Reload re-reads every rule file in the directory and atomically swaps
// the cache. Readers either see the old rule set or the new one, never a
// mix. A single bad file fails the whole reload and keeps the old cache.
func (l *Loader) Reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return err
	}

	fresh := map[string]*MappingRule{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json5") {
			continue
		}
		if strings.HasSuffix(name, ".local.json5") {
			continue
		}

		parts := strings.Split(strings.TrimSuffix(name, ".json5"), ".")
		if len(parts) != 2 {
			slog.Warn("skipping rule file with unexpected name", "file", name)
			continue
		}

		rule, err := l.read(parts[0], parts[1])
		if err != nil {
			return err
		}
		fresh[cacheKey(parts[0], parts[1])] = rule
	}

	l.mu.Lock()
	l.cache = fresh
	l.mu.Unlock()

	slog.Info("reloaded mapping rules", "count", len(fresh))
	return nil
}

// Cached lists the (domain, platform) keys currently in the cache.
func (l *Loader) Cached() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.cache))
	for k := range l.cache {
		keys = append(keys, k)
	}
	return keys
}
