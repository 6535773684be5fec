// Package cottypes maintains a registry of known CoT type codes and
// their human-readable names, used by cotexplainer to produce
// operator-facing diagnostics. The bridge's classification mapping
// does not consult it; it validates type strings with cot.ParseCotType.
package cottypes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/NERVsystems/takbridge/ctxlog"
)

// Type represents a CoT type code with its metadata.
type Type struct {
	Name        string // e.g. "a-f-G-E-X-N"
	FullName    string // e.g. "Gnd/Equip/Nbc Equipment"
	Description string // e.g. "NBC EQUIPMENT"

	fullNameUpper    string
	descriptionUpper string
}

// Catalog is a registry of CoT types with lookup and search functions.
// Full catalog completeness (the entire MIL-STD-2525 type space) is an
// explicit Non-goal; Catalog is seeded with a working subset plus
// whatever an application registers via Upsert.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{types: make(map[string]Type)}
}

// GetType returns the Type for the given name.
func (c *Catalog) GetType(ctx context.Context, name string) (Type, error) {
	logger := ctxlog.LoggerFromContext(ctx)
	if name == "" {
		return Type{}, fmt.Errorf("empty type name")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[name]
	if !ok {
		logger.Debug("type not found", "name", name)
		return Type{}, fmt.Errorf("unknown type: %s", name)
	}
	return t, nil
}

// Upsert adds or updates a type in the catalog.
func (c *Catalog) Upsert(ctx context.Context, name string, t Type) error {
	logger := ctxlog.LoggerFromContext(ctx)
	if name == "" {
		return fmt.Errorf("empty type name")
	}
	t.fullNameUpper = strings.ToUpper(t.FullName)
	t.descriptionUpper = strings.ToUpper(t.Description)

	c.mu.Lock()
	_, exists := c.types[name]
	c.types[name] = t
	c.mu.Unlock()

	logger.Debug("catalog upsert", "name", name, "updated", exists)
	return nil
}

// GetAllTypes returns all registered types.
func (c *Catalog) GetAllTypes() []Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Type, 0, len(c.types))
	for _, t := range c.types {
		out = append(out, t)
	}
	return out
}

// FindByDescription returns types whose Description contains desc
// (case-insensitive). Empty desc returns all types.
func (c *Catalog) FindByDescription(desc string) []Type {
	if desc == "" {
		return c.GetAllTypes()
	}
	desc = strings.ToUpper(desc)
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Type
	for _, t := range c.types {
		if strings.Contains(t.descriptionUpper, desc) {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the exact match for pattern, or all types whose name has
// pattern as a prefix if no exact match exists.
func (c *Catalog) Find(pattern string) []Type {
	if pattern == "" {
		return c.GetAllTypes()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.types[pattern]; ok {
		return []Type{t}
	}
	var out []Type
	for name, t := range c.types {
		if strings.HasPrefix(name, pattern) {
			out = append(out, t)
		}
	}
	return out
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// Default returns the process-wide catalog, seeded with SeedTypes on
// first use.
func Default() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewCatalog()
		ctx := context.Background()
		for _, t := range SeedTypes {
			_ = defaultCatalog.Upsert(ctx, t.Name, t)
		}
	})
	return defaultCatalog
}
