// Package filters turns raw query criteria into GORM scopes over the recipe
// and ingredient catalogs.
//
// Scopes returned together are ANDed by GORM. The tag scope is a single IN
// subquery, so several selected tags are ORed and a recipe carrying more than
// one of them is still returned once.
package filters

import (
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"gorm.io/gorm"
)

type Scope = func(*gorm.DB) *gorm.DB

// IngredientFilter matches ingredient names by case-insensitive prefix.
type IngredientFilter struct {
	Name string
}

func (f IngredientFilter) Scope() Scope {
	prefix := strings.ToLower(strings.TrimSpace(f.Name))
	return func(db *gorm.DB) *gorm.DB {
		if prefix == "" {
			return db
		}
		pattern := escapeLike(prefix) + "%"
		if db.Dialector.Name() == "postgres" {
			return db.Where(`ingredients.name ILIKE ? ESCAPE '\'`, pattern)
		}
		// SQLite's LOWER only folds ASCII, so non-Latin names match here
		// only when stored in lower case.
		return db.Where(`LOWER(ingredients.name) LIKE ? ESCAPE '\'`, pattern)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// TagsField validates a multi-valued tag slug input against known slugs.
type TagsField struct {
	Required bool
	Choices  []string
}

// Clean returns the distinct slugs in input order.
func (f TagsField) Clean(values []string) ([]string, error) {
	cleaned := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		cleaned = append(cleaned, v)
	}

	if len(cleaned) == 0 {
		if f.Required {
			return nil, apperr.Required("tags")
		}
		return nil, nil
	}

	allowed := make(map[string]bool, len(f.Choices))
	for _, c := range f.Choices {
		allowed[c] = true
	}
	for _, v := range cleaned {
		if !allowed[v] {
			return nil, apperr.InvalidChoice("tags", v)
		}
	}
	return cleaned, nil
}

// ParseTriState reads boolean query flags. Anything other than 1/0/true/false
// means the flag is unset.
func ParseTriState(raw string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true":
		v = true
	case "0", "false":
		v = false
	default:
		return nil
	}
	return &v
}

// ParseAuthor parses the author query value. Existence of the user is the
// caller's concern.
func ParseAuthor(raw string) (*uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, apperr.InvalidChoice("author", raw)
	}
	id := uint(n)
	return &id, nil
}

// RawRecipeQuery is the recipe filter input as it arrives on the wire.
type RawRecipeQuery struct {
	Tags             []string
	Author           string
	IsFavorited      string
	IsInShoppingCart string
}

// RecipeCriteria is a validated recipe filter. Nil fields do not filter.
type RecipeCriteria struct {
	Tags             []string
	AuthorID         *uint
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// Scopes returns the predicates for c, to be ANDed in order.
func (c RecipeCriteria) Scopes(viewer relations.Viewer) []Scope {
	scopes := make([]Scope, 0, 4)
	if len(c.Tags) > 0 {
		scopes = append(scopes, tagsScope(c.Tags))
	}
	if c.AuthorID != nil {
		authorID := *c.AuthorID
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("recipes.author_id = ?", authorID)
		})
	}
	if c.IsFavorited != nil {
		scopes = append(scopes, membershipScope("favorites", viewer, *c.IsFavorited))
	}
	if c.IsInShoppingCart != nil {
		scopes = append(scopes, membershipScope("shopping_carts", viewer, *c.IsInShoppingCart))
	}
	return scopes
}

func tagsScope(slugs []string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", slugs)
		return db.Where("recipes.id IN (?)", sub)
	}
}

// membershipScope restricts recipes to those the viewer has (want=true) or
// has not (want=false) put into table. Anonymous viewers have no entries.
func membershipScope(table string, viewer relations.Viewer, want bool) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if !viewer.Authenticated() {
			if want {
				return db.Where("1 = 0")
			}
			return db
		}
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table(table).
			Select("recipe_id").
			Where("user_id = ?", viewer.ID)
		if want {
			return db.Where("recipes.id IN (?)", sub)
		}
		return db.Where("recipes.id NOT IN (?)", sub)
	}
}
