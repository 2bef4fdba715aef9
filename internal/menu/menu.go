// Package menu serves the restaurant's static menu content.
package menu

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed menu.json
var menuJSON []byte

// Dish is a menu item. Price is in whole DH.
type Dish struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// Category groups dishes under a stable key ("entrees-froides").
type Category struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Items []Dish `json:"items"`
}

// Menu is the full card in display order.
type Menu struct {
	Currency   string     `json:"currency"`
	Categories []Category `json:"categories"`
}

// Load decodes the embedded menu.
func Load() (*Menu, error) {
	return Parse(menuJSON)
}

// MustLoad is Load for package initialisation in binaries.
func MustLoad() *Menu {
	m, err := Load()
	if err != nil {
		panic(err)
	}
	return m
}

// Parse decodes menu JSON and rejects duplicate keys, since dishes are
// identified by (category key, dish name).
func Parse(data []byte) (*Menu, error) {
	var m Menu
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("menu: decode: %w", err)
	}
	seenCat := make(map[string]struct{}, len(m.Categories))
	for _, c := range m.Categories {
		if _, dup := seenCat[c.Key]; dup {
			return nil, fmt.Errorf("menu: duplicate category %q", c.Key)
		}
		seenCat[c.Key] = struct{}{}
		seenDish := make(map[string]struct{}, len(c.Items))
		for _, d := range c.Items {
			if _, dup := seenDish[d.Name]; dup {
				return nil, fmt.Errorf("menu: duplicate dish %q in %q", d.Name, c.Key)
			}
			seenDish[d.Name] = struct{}{}
		}
	}
	return &m, nil
}

// Category returns the category with the given key.
func (m *Menu) Category(key string) (Category, bool) {
	for _, c := range m.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// Lookup finds a dish by category key and name.
func (m *Menu) Lookup(category, name string) (Dish, bool) {
	c, ok := m.Category(category)
	if !ok {
		return Dish{}, false
	}
	for _, d := range c.Items {
		if d.Name == name {
			return d, true
		}
	}
	return Dish{}, false
}

// DefaultCategory is the first category, shown when none is requested.
func (m *Menu) DefaultCategory() Category {
	if len(m.Categories) == 0 {
		return Category{}
	}
	return m.Categories[0]
}
