// The process-wide no-multi-stop customer registry. These customers must
// ride alone: their lines are never combined with another customer's on one
// truck. The isolation itself is structural (customer is always part of the
// group key); the registry exists so route planning and the API can report
// and manage the set.

package plan

import (
	"strings"
	"sync"

	"github.com/samber/lo"
)

// defaultNoMultiStopCustomers is the operational seed list.
var defaultNoMultiStopCustomers = []string{
	"Sabre Tubular Structures",
	"GamTex",
	"Cmcr Fort Worth",
	"Ozark Steel LLC",
	"Gachman Metals & Recycling Co",
	"Sabre",
	"Sabre - Kennedale",
	"Sabre Industries",
	"Sabre Southbridge Plate STP",
	"Petrosmith Equipment LP",
	"W&W AFCO STEEL",
	"Red Dot Corporation",
}

// CustomerRegistry is a replaceable set of no-multi-stop customer names.
// Matching is case-insensitive and whitespace-trimmed. Goroutine-safe.
type CustomerRegistry struct {
	mu    sync.RWMutex
	names []string
	index map[string]bool
}

// NewCustomerRegistry creates a registry seeded with the operational
// default list.
func NewCustomerRegistry() *CustomerRegistry {
	r := &CustomerRegistry{}
	r.Replace(defaultNoMultiStopCustomers)
	return r
}

// NoMultiStop is the process-wide registry used when a job config does not
// carry its own customer set.
var NoMultiStop = NewCustomerRegistry()

// Contains reports whether the customer must ride alone.
func (r *CustomerRegistry) Contains(customer string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index[canonicalCustomer(customer)]
}

// Snapshot returns the current customer names in their configured form.
func (r *CustomerRegistry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Replace swaps the whole set. Duplicate and blank entries are discarded.
func (r *CustomerRegistry) Replace(customers []string) {
	cleaned := lo.Uniq(lo.FilterMap(customers, func(c string, _ int) (string, bool) {
		c = strings.TrimSpace(c)
		return c, c != ""
	}))
	index := make(map[string]bool, len(cleaned))
	for _, c := range cleaned {
		index[canonicalCustomer(c)] = true
	}
	r.mu.Lock()
	r.names = cleaned
	r.index = index
	r.mu.Unlock()
}

func canonicalCustomer(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// noMultiStopSet resolves the effective set for one job: the per-job
// override when present, otherwise the process-wide registry.
func noMultiStopSet(cfg Config) *CustomerRegistry {
	if cfg.NoMultiStop == nil {
		return NoMultiStop
	}
	r := &CustomerRegistry{}
	r.Replace(cfg.NoMultiStop)
	return r
}
