package rules

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Well-known document names inside the rules directory.
const (
	regexFile     = "patterns.yml"
	posFile       = "pos_patterns.yml"
	confusionFile = "confusion.yml"
	termsFile     = "terms.yml"
	whitelistFile = "whitelist.txt"
	lexiconFile   = "dict_core.txt"
)

// Store loads declarative rule documents into immutable compiled
// snapshots. Loading is lazy and idempotent: the first Snapshot call
// compiles everything once, later calls return the cached pointer.
// Reloads build a complete new snapshot and swap it atomically, so
// in-flight scans keep reading the snapshot they captured.
type Store struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex // serializes snapshot builds
	snap    atomic.Pointer[Snapshot]
	version atomic.Int64

	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore creates a rule store over the given directory. The directory
// may be empty or missing; built-in defaults cover absent documents.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Snapshot returns the current compiled view, building it on first use.
// Concurrent first access compiles exactly once.
func (s *Store) Snapshot() *Snapshot {
	if snap := s.snap.Load(); snap != nil {
		return snap
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.snap.Load(); snap != nil {
		return snap
	}
	snap := s.build()
	s.snap.Store(snap)
	return snap
}

// Invalidate discards the cached snapshot and compiles a fresh one. New
// scans observe the new snapshot immediately; scans already running keep
// the one they captured.
func (s *Store) Invalidate() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.build()
	s.snap.Store(snap)
	return snap
}

// Watch reloads the store whenever a rule document changes on disk.
// Events are debounced so editors that write multiple times per save
// trigger a single rebuild.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rules watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch rules directory %s: %w", s.dir, err)
	}
	s.watcher = watcher

	go func() {
		var timer *time.Timer
		reload := make(chan struct{}, 1)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case <-reload:
				snap := s.Invalidate()
				s.logger.Info("Rule documents reloaded",
					zap.Int64("version", snap.Version),
					zap.Int("regex_rules", len(snap.RegexRules)),
					zap.Int("pos_patterns", len(snap.POSPatterns)),
					zap.Int("diagnostics", len(snap.Diagnostics)))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Rules watcher error", zap.Error(err))
			case <-s.stop:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// build compiles every category into one snapshot. A document-level
// parse failure empties that category and marks it unavailable; a bad
// entry inside a valid document is skipped and recorded, never fatal.
func (s *Store) build() *Snapshot {
	snap := &Snapshot{
		Version:     s.version.Add(1),
		unavailable: make(map[Category]error),
	}

	s.loadRegexRules(snap)
	s.loadPOSPatterns(snap)
	s.loadConfusion(snap)
	s.loadTerms(snap)
	snap.Whitelist = s.loadWordList(snap, CategoryWhitelist, whitelistFile, defaultWhitelist)
	snap.Words = s.loadWordList(snap, CategoryLexicon, lexiconFile, defaultWords)

	s.logger.Info("Rule snapshot compiled",
		zap.Int64("version", snap.Version),
		zap.Int("regex_rules", len(snap.RegexRules)),
		zap.Int("pos_patterns", len(snap.POSPatterns)),
		zap.Int("confusion_chars", len(snap.Confusion)),
		zap.Int("terms", len(snap.Terms)),
		zap.Int("whitelist_words", len(snap.Whitelist)),
		zap.Int("lexicon_words", len(snap.Words)),
		zap.Int("skipped_entries", len(snap.Diagnostics)))
	return snap
}

func (s *Store) loadRegexRules(snap *Snapshot) {
	raw := defaultRegexRules()
	path := filepath.Join(s.dir, regexFile)
	if data, err := os.ReadFile(path); err == nil {
		var doc struct {
			Rules []RawRule `yaml:"rules"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			snap.unavailable[CategoryRegex] = fmt.Errorf("failed to parse %s: %w", regexFile, err)
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryRegex, Source: regexFile, Message: err.Error(),
			})
			s.logger.Error("Regex rule document unreadable, category disabled",
				zap.String("file", path), zap.Error(err))
			return
		}
		raw = doc.Rules
	}
	for _, r := range raw {
		if r.Kind != "" && !strings.EqualFold(r.Kind, "regex") {
			continue
		}
		rule, err := compileRegexRule(r)
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryRegex, Source: regexFile, Entry: r.ID, Message: err.Error(),
			})
			s.logger.Warn("Skipping invalid regex rule", zap.String("rule", r.ID), zap.Error(err))
			continue
		}
		snap.RegexRules = append(snap.RegexRules, rule)
	}
}

func (s *Store) loadPOSPatterns(snap *Snapshot) {
	raw := defaultPOSPatterns()
	path := filepath.Join(s.dir, posFile)
	if data, err := os.ReadFile(path); err == nil {
		var doc struct {
			Rules []RawPOSPattern `yaml:"rules"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			snap.unavailable[CategoryPOS] = fmt.Errorf("failed to parse %s: %w", posFile, err)
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryPOS, Source: posFile, Message: err.Error(),
			})
			s.logger.Error("POS rule document unreadable, category disabled",
				zap.String("file", path), zap.Error(err))
			return
		}
		raw = doc.Rules
	}
	for _, r := range raw {
		pattern, err := compilePOSPattern(r)
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryPOS, Source: posFile, Entry: r.ID, Message: err.Error(),
			})
			s.logger.Warn("Skipping invalid POS pattern", zap.String("rule", r.ID), zap.Error(err))
			continue
		}
		snap.POSPatterns = append(snap.POSPatterns, pattern)
	}
}

func (s *Store) loadConfusion(snap *Snapshot) {
	snap.Confusion = defaultConfusion()
	path := filepath.Join(s.dir, confusionFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var doc struct {
		Confusion map[string][]rawAlt `yaml:"confusion"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		snap.unavailable[CategoryConfusion] = fmt.Errorf("failed to parse %s: %w", confusionFile, err)
		snap.Confusion = map[rune][]Alt{}
		snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
			Category: CategoryConfusion, Source: confusionFile, Message: err.Error(),
		})
		s.logger.Error("Confusion document unreadable, category disabled",
			zap.String("file", path), zap.Error(err))
		return
	}
	table := make(map[rune][]Alt, len(doc.Confusion))
	for key, rawAlts := range doc.Confusion {
		kr := []rune(key)
		if len(kr) != 1 {
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryConfusion, Source: confusionFile, Entry: key,
				Message: "key is not a single character",
			})
			continue
		}
		var alts []Alt
		for _, ra := range rawAlts {
			alt, err := ra.compile()
			if err != nil {
				snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
					Category: CategoryConfusion, Source: confusionFile, Entry: key, Message: err.Error(),
				})
				continue
			}
			if alt.Char == kr[0] {
				continue
			}
			alts = append(alts, alt)
		}
		if len(alts) > 0 {
			table[kr[0]] = alts
		}
	}
	snap.Confusion = table
}

func (s *Store) loadTerms(snap *Snapshot) {
	raw := defaultTerms()
	path := filepath.Join(s.dir, termsFile)
	if data, err := os.ReadFile(path); err == nil {
		var doc struct {
			Terms []RawTerm `yaml:"terms"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			snap.unavailable[CategoryTerms] = fmt.Errorf("failed to parse %s: %w", termsFile, err)
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryTerms, Source: termsFile, Message: err.Error(),
			})
			s.logger.Error("Terms document unreadable, category disabled",
				zap.String("file", path), zap.Error(err))
			return
		}
		raw = doc.Terms
	}
	for _, r := range raw {
		term, err := compileTerm(r)
		if err != nil {
			snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
				Category: CategoryTerms, Source: termsFile, Entry: r.Term, Message: err.Error(),
			})
			s.logger.Warn("Skipping invalid term rule", zap.String("term", r.Term), zap.Error(err))
			continue
		}
		snap.Terms = append(snap.Terms, term)
	}
}

// loadWordList reads a flat one-word-per-line file; # starts a comment.
func (s *Store) loadWordList(snap *Snapshot, cat Category, name string, fallback func() map[string]struct{}) map[string]struct{} {
	path := filepath.Join(s.dir, name)
	file, err := os.Open(path)
	if err != nil {
		return fallback()
	}
	defer file.Close()

	words := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		snap.unavailable[cat] = fmt.Errorf("failed to read %s: %w", name, err)
		snap.Diagnostics = append(snap.Diagnostics, Diagnostic{
			Category: cat, Source: name, Message: err.Error(),
		})
		s.logger.Error("Word list unreadable, category disabled",
			zap.String("file", path), zap.Error(err))
		return map[string]struct{}{}
	}
	return words
}
