// Package suggest proposes field values and saved searches for a partial query.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/panjf2000/ants/v2"

	"github.com/risseraka/matchmakr/index"
	"github.com/risseraka/matchmakr/internal/indexing"
	"github.com/risseraka/matchmakr/internal/logging"
	"github.com/risseraka/matchmakr/internal/normalize"
	"github.com/risseraka/matchmakr/model"
	"github.com/risseraka/matchmakr/services"
)

// MaxPartial is the number of partial matches kept per field.
const MaxPartial = 3

// ErrCounterRequired is returned by NewService when no Counter is given.
var ErrCounterRequired = errors.New("suggest: counter is required")

// Counter evaluates a query and returns its hit count.
type Counter interface {
	Count(ctx context.Context, ds *indexing.Dataset, query model.Query) (int, error)
}

// Item is a field value with the number of profiles holding it.
type Item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Group lists the suggested values of one field.
type Group struct {
	Field model.Field `json:"field"`
	Items []Item      `json:"items"`
}

func (g Group) top() int {
	if len(g.Items) == 0 {
		return 0
	}
	return g.Items[0].Count
}

// SavedItem is a saved search matching the input, with its live count.
type SavedItem struct {
	Key         string      `json:"key"`
	Description string      `json:"description,omitempty"`
	Query       model.Query `json:"query"`
	Count       int         `json:"count"`
}

// Combined merges every saved search whose key the input contains.
type Combined struct {
	Title string   `json:"title"`
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// Searches holds the saved-search cross-references.
type Searches struct {
	Including  []SavedItem `json:"including"`
	IncludedIn *Combined   `json:"includedIn,omitempty"`
}

// Result is the outcome of Suggest.
type Result struct {
	Exact   []Group  `json:"exact"`
	Partial []Group  `json:"partial"`
	Search  Searches `json:"search"`
}

// Service computes suggestions. Live counts of saved searches run on a shared worker pool.
type Service struct {
	saved   services.SavedSearchReader
	counter Counter
	pool    *ants.Pool
	logger  *logging.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithPoolSize sets the number of workers evaluating live counts.
func WithPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewService creates a suggestion Service. saved may be nil, which disables
// saved-search cross-referencing.
func NewService(saved services.SavedSearchReader, counter Counter, opts ...Option) (*Service, error) {
	if counter == nil {
		return nil, ErrCounterRequired
	}

	s := &Service{
		saved:   saved,
		counter: counter,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	if s.pool == nil {
		size := runtime.NumCPU() / 2
		if err := WithPoolSize(size)(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Release stops the worker pool.
func (s *Service) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Suggest returns exact and partial field hits for text, and the saved searches it relates to.
func (s *Service) Suggest(ctx context.Context, ds *indexing.Dataset, text string) (*Result, error) {
	input := normalize.Normalize(text)
	result := &Result{
		Exact:   []Group{},
		Partial: []Group{},
		Search:  Searches{Including: []SavedItem{}},
	}
	if input == "" || ds == nil {
		return result, nil
	}

	result.Exact, result.Partial = fieldSuggestions(ds, input)

	if s.saved == nil {
		return result, nil
	}
	all, err := s.saved.GetAll(ctx)
	if err != nil {
		s.logger.Warn("saved searches unavailable for suggestions", "error", err)
		return result, nil
	}

	including, includedIn := crossReference(all, input)
	if err := s.countAll(ctx, ds, including, includedIn); err != nil {
		return nil, err
	}

	sort.SliceStable(including, func(i, j int) bool {
		return including[i].Count > including[j].Count
	})
	result.Search.Including = including
	result.Search.IncludedIn = includedIn
	return result, nil
}

func fieldSuggestions(ds *indexing.Dataset, input string) (exact, partial []Group) {
	exact, partial = []Group{}, []Group{}
	for _, f := range model.SuggestFields {
		m := ds.Maps[f]
		if m == nil {
			continue
		}
		key := index.Key(f, input)
		if e, ok := m.Entry(key); ok {
			exact = append(exact, Group{Field: f, Items: []Item{{Name: e.Name, Count: e.Count}}})
		}

		var items []Item
		for _, e := range m.Filter(key) {
			if e.Name == key {
				continue
			}
			items = append(items, Item{Name: e.Name, Count: e.Count})
			if len(items) == MaxPartial {
				break
			}
		}
		if len(items) > 0 {
			partial = append(partial, Group{Field: f, Items: items})
		}
	}

	byTop := func(groups []Group) {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].top() > groups[j].top() })
	}
	byTop(exact)
	byTop(partial)
	return exact, partial
}

// crossReference splits saved searches into those the input matches and the
// merged entry of those whose key the input contains.
func crossReference(all []model.SavedSearch, input string) ([]SavedItem, *Combined) {
	inputTokens := keyTokens(input)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	including := []SavedItem{}
	var includedKeys []string
	for _, saved := range all {
		key := normalize.Normalize(saved.Key)
		tokens := keyTokens(saved.Key)
		if key == "" {
			continue
		}

		if strings.Contains(key, input) ||
			containsAllTokens(tokens, inputTokens) ||
			strings.Contains(serialize(saved.Query), input) {
			including = append(including, SavedItem{
				Key:         saved.Key,
				Description: saved.Description,
				Query:       saved.Query,
			})
			continue
		}
		if strings.Contains(input, key) || containsAllTokens(inputTokens, tokens) {
			includedKeys = append(includedKeys, saved.Key)
		}
	}

	if len(includedKeys) == 0 {
		return including, nil
	}
	return including, &Combined{Title: strings.Join(includedKeys, " & "), Keys: includedKeys}
}

// countAll fills the live counts, one pool task per count.
func (s *Service) countAll(ctx context.Context, ds *indexing.Dataset, including []SavedItem, includedIn *Combined) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	submit := func(query model.Query, dst *int) {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			n, err := s.counter.Count(ctx, ds, query)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			*dst = n
		}
		if err := s.pool.Submit(task); err != nil {
			s.logger.Debug("worker pool rejected count, running inline", "error", err)
			task()
		}
	}

	for i := range including {
		submit(model.Query{model.FieldSavedSearch: {including[i].Key}}, &including[i].Count)
	}
	if includedIn != nil {
		submit(model.Query{model.FieldSavedSearch: includedIn.Keys}, &includedIn.Count)
	}
	wg.Wait()
	return firstErr
}

// keyTokens splits s on anything but letters and digits and normalizes each part.
func keyTokens(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := normalize.Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// containsAllTokens reports whether every token of needles is a substring of some token of haystack.
func containsAllTokens(haystack, needles []string) bool {
	if len(needles) == 0 || len(haystack) == 0 {
		return false
	}
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if strings.Contains(h, n) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func serialize(q model.Query) string {
	data, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return normalize.Normalize(string(data))
}
