package filters

import (
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func ingredientNames(t *testing.T, db *gorm.DB, f IngredientFilter) []string {
	t.Helper()
	var names []string
	err := db.Model(&models.Ingredient{}).Scopes(f.Scope()).Order("name").Pluck("name", &names).Error
	require.NoError(t, err)
	return names
}

func TestIngredientFilterPrefix(t *testing.T) {
	db := testutil.NewDB(t)
	for _, name := range []string{"Salt", "salmon", "Sugar", "Basil", "50% cream", "5 spice"} {
		testutil.CreateIngredient(t, db, name, "g")
	}

	assert.Equal(t, []string{"Salt", "salmon"}, ingredientNames(t, db, IngredientFilter{Name: "SAL"}))
	assert.Equal(t, []string{"Sugar"}, ingredientNames(t, db, IngredientFilter{Name: "su"}))
	assert.Empty(t, ingredientNames(t, db, IngredientFilter{Name: "xyz"}))
	assert.Len(t, ingredientNames(t, db, IngredientFilter{Name: ""}), 6)
	// wildcards in the prefix are literal
	assert.Equal(t, []string{"50% cream"}, ingredientNames(t, db, IngredientFilter{Name: "50%"}))
	assert.Empty(t, ingredientNames(t, db, IngredientFilter{Name: "%"}))
	assert.Empty(t, ingredientNames(t, db, IngredientFilter{Name: "_"}))
}

func TestIngredientFilterOnlyReturnsMatchingPrefixes(t *testing.T) {
	db := testutil.NewDB(t)
	all := []string{"Apple", "apricot", "Avocado", "banana", "Bacon", "cherry"}
	for _, name := range all {
		testutil.CreateIngredient(t, db, name, "pcs")
	}

	for _, p := range []string{"a", "AP", "b", "ba", "c", "Cher", "d", ""} {
		got := ingredientNames(t, db, IngredientFilter{Name: p})
		want := 0
		for _, name := range all {
			if strings.HasPrefix(strings.ToLower(name), strings.ToLower(p)) {
				want++
			}
		}
		assert.Len(t, got, want, "prefix %q", p)
		for _, name := range got {
			assert.True(t, strings.HasPrefix(strings.ToLower(name), strings.ToLower(p)), "prefix %q matched %q", p, name)
		}
	}
}

func TestTagsFieldClean(t *testing.T) {
	choices := []string{"breakfast", "lunch", "dinner"}

	t.Run("optional empty", func(t *testing.T) {
		got, err := TagsField{Choices: choices}.Clean(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("required empty", func(t *testing.T) {
		_, err := TagsField{Required: true, Choices: choices}.Clean([]string{" "})
		require.Error(t, err)
		ae := apperr.From(err)
		assert.Equal(t, "required", ae.Code)
		assert.Equal(t, "tags", ae.Field)
	})

	t.Run("invalid choice carries value", func(t *testing.T) {
		_, err := TagsField{Choices: choices}.Clean([]string{"lunch", "brunch"})
		require.Error(t, err)
		ae := apperr.From(err)
		assert.Equal(t, apperr.KindValidation, ae.Kind)
		assert.Equal(t, "invalid_choice", ae.Code)
		assert.Equal(t, "brunch", ae.Value)
	})

	t.Run("dedupes", func(t *testing.T) {
		got, err := TagsField{Choices: choices}.Clean([]string{"lunch", "dinner", "lunch"})
		require.NoError(t, err)
		assert.Equal(t, []string{"lunch", "dinner"}, got)
	})
}

func TestParseTriState(t *testing.T) {
	tr, fl := true, false
	tests := map[string]*bool{
		"1": &tr, "true": &tr, "TRUE": &tr,
		"0": &fl, "false": &fl, "False": &fl,
		"": nil, "yes": nil, "2": nil,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseTriState(raw), "raw %q", raw)
	}
}

func TestParseAuthor(t *testing.T) {
	id, err := ParseAuthor("")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseAuthor("7")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, uint(7), *id)

	for _, raw := range []string{"abc", "0", "-3"} {
		_, err = ParseAuthor(raw)
		ae := apperr.From(err)
		assert.Equal(t, "invalid_choice", ae.Code, raw)
		assert.Equal(t, "author", ae.Field, raw)
	}
}

type catalog struct {
	db                     *gorm.DB
	alice, bob             *models.User
	soup, salad, pie, stew *models.Recipe
}

func seedCatalog(t *testing.T) *catalog {
	t.Helper()
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice@example.com", "alice", "pw")
	bob := testutil.CreateUser(t, db, "bob@example.com", "bob", "pw")
	breakfast := testutil.CreateTag(t, db, "breakfast")
	lunch := testutil.CreateTag(t, db, "lunch")
	dinner := testutil.CreateTag(t, db, "dinner")

	c := &catalog{
		db:    db,
		alice: alice,
		bob:   bob,
		soup:  testutil.CreateRecipe(t, db, alice, "Soup", lunch, dinner),
		salad: testutil.CreateRecipe(t, db, alice, "Salad", lunch),
		pie:   testutil.CreateRecipe(t, db, bob, "Pie", breakfast),
		stew:  testutil.CreateRecipe(t, db, bob, "Stew"),
	}
	require.NoError(t, db.Create(&models.Favorite{UserID: alice.ID, RecipeID: c.pie.ID}).Error)
	require.NoError(t, db.Create(&models.ShoppingCart{UserID: alice.ID, RecipeID: c.soup.ID}).Error)
	require.NoError(t, db.Create(&models.ShoppingCart{UserID: alice.ID, RecipeID: c.stew.ID}).Error)
	return c
}

func (c *catalog) names(t *testing.T, crit RecipeCriteria, viewer relations.Viewer) []string {
	t.Helper()
	var names []string
	err := c.db.Model(&models.Recipe{}).Scopes(crit.Scopes(viewer)...).Order("recipes.name").Pluck("recipes.name", &names).Error
	require.NoError(t, err)
	return names
}

func boolPtr(b bool) *bool { return &b }

func TestRecipeCriteriaTags(t *testing.T) {
	c := seedCatalog(t)
	anon := relations.Anonymous()

	assert.Equal(t, []string{"Pie", "Salad", "Soup", "Stew"}, c.names(t, RecipeCriteria{}, anon))
	assert.Equal(t, []string{"Salad", "Soup"}, c.names(t, RecipeCriteria{Tags: []string{"lunch"}}, anon))
	// OR across slugs, Soup appears once although it has both lunch and dinner
	assert.Equal(t, []string{"Pie", "Salad", "Soup"}, c.names(t, RecipeCriteria{Tags: []string{"lunch", "dinner", "breakfast"}}, anon))
	assert.Equal(t, []string{"Soup"}, c.names(t, RecipeCriteria{Tags: []string{"dinner"}}, anon))
}

func TestRecipeCriteriaAuthorAndTags(t *testing.T) {
	c := seedCatalog(t)
	anon := relations.Anonymous()

	assert.Equal(t, []string{"Pie", "Stew"}, c.names(t, RecipeCriteria{AuthorID: &c.bob.ID}, anon))
	assert.Equal(t, []string{"Pie"}, c.names(t, RecipeCriteria{AuthorID: &c.bob.ID, Tags: []string{"breakfast", "lunch"}}, anon))
	assert.Empty(t, c.names(t, RecipeCriteria{AuthorID: &c.alice.ID, Tags: []string{"breakfast"}}, anon))
}

func TestRecipeCriteriaFlags(t *testing.T) {
	c := seedCatalog(t)
	alice := relations.Viewer{ID: c.alice.ID}
	bob := relations.Viewer{ID: c.bob.ID}

	assert.Equal(t, []string{"Pie"}, c.names(t, RecipeCriteria{IsFavorited: boolPtr(true)}, alice))
	assert.Equal(t, []string{"Salad", "Soup", "Stew"}, c.names(t, RecipeCriteria{IsFavorited: boolPtr(false)}, alice))
	assert.Equal(t, []string{"Soup", "Stew"}, c.names(t, RecipeCriteria{IsInShoppingCart: boolPtr(true)}, alice))
	assert.Equal(t, []string{"Stew"}, c.names(t, RecipeCriteria{IsInShoppingCart: boolPtr(true), AuthorID: &c.bob.ID}, alice))
	assert.Empty(t, c.names(t, RecipeCriteria{IsFavorited: boolPtr(true)}, bob))
	assert.Empty(t, c.names(t, RecipeCriteria{IsFavorited: boolPtr(true), IsInShoppingCart: boolPtr(true)}, alice))
}

func TestRecipeCriteriaFlagsAnonymous(t *testing.T) {
	c := seedCatalog(t)
	anon := relations.Anonymous()

	assert.Empty(t, c.names(t, RecipeCriteria{IsFavorited: boolPtr(true)}, anon))
	assert.Empty(t, c.names(t, RecipeCriteria{IsInShoppingCart: boolPtr(true)}, anon))
	assert.Len(t, c.names(t, RecipeCriteria{IsFavorited: boolPtr(false)}, anon), 4)
	assert.Len(t, c.names(t, RecipeCriteria{IsInShoppingCart: boolPtr(false)}, anon), 4)
}

func TestIngredientFilterFoldsUnicodePrefix(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateIngredient(t, db, "молоко", "мл")
	testutil.CreateIngredient(t, db, "мука", "г")

	assert.Equal(t, []string{"молоко"}, ingredientNames(t, db, IngredientFilter{Name: "МОЛ"}))
}

func TestIngredientFilterUsesILikeOnPostgres(t *testing.T) {
	pg, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=127.0.0.1 user=foodgram dbname=foodgram sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	var found []models.Ingredient
	stmt := pg.Model(&models.Ingredient{}).Scopes(IngredientFilter{Name: "Мол"}.Scope()).Find(&found).Statement

	assert.Contains(t, stmt.SQL.String(), "ingredients.name ILIKE $1")
	assert.NotContains(t, stmt.SQL.String(), "LOWER(")
	require.Len(t, stmt.Vars, 1)
	assert.Equal(t, "мол%", stmt.Vars[0])
}
