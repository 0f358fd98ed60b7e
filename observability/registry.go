package observability

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	observers = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	}
	mutex sync.RWMutex
)

// GetObserver resolves the observers named in configuration. names is a
// comma-separated list; more than one name resolves to a MultiObserver in
// list order, with repeats ignored. "noop" and "slog" are always available;
// others, such as a PrometheusObserver, are added with RegisterObserver.
func GetObserver(names string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	var (
		resolved MultiObserver
		seen     = make(map[string]bool)
	)
	for name := range strings.SplitSeq(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		obs, exists := observers[name]
		if !exists {
			return nil, fmt.Errorf("unknown observer: %s", name)
		}
		resolved = append(resolved, obs)
	}

	switch len(resolved) {
	case 0:
		return nil, fmt.Errorf("no observer named in %q", names)
	case 1:
		return resolved[0], nil
	default:
		return resolved, nil
	}
}

// RegisterObserver adds or replaces a named observer. Observers already
// resolved by a Manager are not affected.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
