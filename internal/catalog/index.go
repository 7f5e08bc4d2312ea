package catalog

import "strings"

// Index is the read-only lookup from lowercase canonical item name to
// menu item, built once at startup by flattening the catalog sections.
type Index struct {
	items map[string]MenuItem
	names []string // insertion order, for deterministic iteration
}

// NewIndex flattens sections into the flat name index. An empty or
// malformed catalog yields an empty index; lookups then simply miss.
func NewIndex(biz *Business) *Index {
	idx := &Index{items: make(map[string]MenuItem)}
	if biz == nil {
		return idx
	}
	for _, section := range biz.MenuSections {
		for _, item := range section.Items {
			if item.Name == "" {
				continue
			}
			key := strings.ToLower(item.Name)
			if _, exists := idx.items[key]; !exists {
				idx.names = append(idx.names, key)
			}
			idx.items[key] = item
		}
	}
	return idx
}

// Lookup returns the item for a lowercase canonical name.
func (idx *Index) Lookup(nameLower string) (MenuItem, bool) {
	item, ok := idx.items[nameLower]
	return item, ok
}

// Names returns the lowercase item names in catalog order.
func (idx *Index) Names() []string {
	return idx.names
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return len(idx.items)
}
