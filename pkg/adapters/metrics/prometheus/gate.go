package prometheus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// EnsureRegistered checks that every name in required is registered in g as
// "<prefix>_<name>". The error lists every missing metric and all registered
// metric names.
func EnsureRegistered(g prometheus.Gatherer, prefix string, required []string) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	registered := make(map[string]struct{}, len(families))
	for _, mf := range families {
		registered[mf.GetName()] = struct{}{}
	}

	var missing []string
	for _, name := range required {
		if _, ok := registered[fmt.Sprintf("%s_%s", prefix, name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	return fmt.Errorf("required metrics have not been registered: %s (registered: %s)",
		strings.Join(missing, ", "), strings.Join(names, ", "))
}
