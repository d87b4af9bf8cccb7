package profile

import (
	"log/slog"
	"maps"
	"strings"
)

// DefaultCategories maps business categories to profiles.
func DefaultCategories() map[string]Key {
	return map[string]Key{
		"general":     Message,
		"mensajes":    Message,
		"informacion": Message,
		"promociones": Jingle,
		"ofertas":     Jingle,
		"publicidad":  Jingle,
		"emergencias": Emergency,
		"evacuacion":  Emergency,
		"seguridad":   Emergency,
		"avisos":      Announcement,
		"anuncios":    Announcement,
		"eventos":     Announcement,
		"ambiente":    Background,
		"musica":      Background,
		"podcast":     Podcast,
		"entrevistas": Podcast,
	}
}

// Catalog resolves profiles. It is read-only once built and safe for concurrent use.
type Catalog struct {
	profiles   map[Key]Profile
	categories map[string]Key
}

// NewCatalog builds a catalog from the built-in profiles and category mapping.
// Extra mappings (category name to profile name) extend or override the defaults; unknown profile names are skipped.
func NewCatalog(extra map[string]string) *Catalog {
	profiles := make(map[Key]Profile, len(Keys))
	for _, key := range Keys {
		profiles[key] = definition(key)
	}

	categories := DefaultCategories()

	for category, profileName := range extra {
		key, ok := ParseKey(profileName)
		if !ok {
			slog.Warn("ignoring category mapping to unknown profile", "category", category, "profile", profileName)

			continue
		}

		categories[normalize(category)] = key
	}

	return &Catalog{profiles: profiles, categories: categories}
}

// Get returns the profile for a key, falling back to message.
func (c *Catalog) Get(key Key) Profile {
	if profile, ok := c.profiles[key]; ok {
		return profile
	}

	return c.profiles[Message]
}

// Lookup returns the profile for a profile name, falling back to message. It never fails.
func (c *Catalog) Lookup(name string) Profile {
	key, _ := ParseKey(name)

	return c.Get(key)
}

// ByCategory resolves a business category, falling back to message.
func (c *Catalog) ByCategory(category string) Profile {
	key, _ := c.category(category)

	return c.Get(key)
}

// Categories returns a copy of the category mapping.
func (c *Catalog) Categories() map[string]Key {
	return maps.Clone(c.categories)
}

// All lists the profiles in key order.
func (c *Catalog) All() []Profile {
	all := make([]Profile, 0, len(Keys))
	for _, key := range Keys {
		all = append(all, c.profiles[key])
	}

	return all
}

func (c *Catalog) category(name string) (Key, bool) {
	key, ok := c.categories[normalize(name)]
	if !ok {
		return Message, false
	}

	return key, true
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
