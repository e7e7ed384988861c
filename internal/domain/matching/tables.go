package matching

import "strings"

// Tables holds the static synonym, taxonomy, unit, and spelling data consumed
// by feature extraction and scoring.  Read-only after construction; a single
// instance is shared by every extractor and scorer in the process.
type Tables struct {
	// brandAliases maps canonical brand -> aliases (canonical form excluded).
	brandAliases map[string][]string
	// categoryAliases maps canonical category -> aliases.
	categoryAliases map[string][]string
	// categoryParents links related categories (symmetric), e.g. dairy and
	// beverages.  Scored at 0.6 by the category signal.
	categoryParents map[string][]string
	// unitAliases maps every accepted unit spelling to its canonical unit.
	unitAliases map[string]string
	// unitToOunces converts a canonical unit to the common base unit.
	unitToOunces map[string]float64
	// spellCorrections maps common misspellings to the intended token.
	spellCorrections map[string]string

	// brandScan and categoryScan are the flattened term lists used for
	// longest-match scanning, sorted by descending term length.
	brandScan    []scanTerm
	categoryScan []scanTerm
}

type scanTerm struct {
	term      string
	canonical string
}

// DefaultTables returns the built-in grocery vocabulary.
func DefaultTables() *Tables {
	t := &Tables{
		brandAliases: map[string][]string{
			"great value":   {"gv", "greatvalue"},
			"kirkland":      {"kirkland signature", "ks"},
			"trader joe's":  {"trader joes", "tj", "tjs"},
			"kroger":        {"kroger brand"},
			"365":           {"365 everyday value", "365 whole foods"},
			"market pantry": {"marketpantry"},
			"good & gather": {"good and gather", "good gather"},
			"coca-cola":     {"coca cola", "coke"},
			"pepsi":         {"pepsi-cola", "pepsi cola"},
			"heinz":         {},
			"kraft":         {},
			"tide":          {},
			"cheerios":      {},
			"oreo":          {"oreos"},
			"lay's":         {"lays"},
			"doritos":       {},
			"philadelphia":  {"philly cream cheese"},
			"ben & jerry's": {"ben and jerrys", "ben & jerrys"},
		},
		categoryAliases: map[string][]string{
			"dairy":     {"milk", "cheese", "yogurt", "butter", "cream"},
			"produce":   {"fruit", "fruits", "vegetable", "vegetables", "veggies"},
			"bakery":    {"bread", "bagel", "bagels", "pastry", "pastries", "bun", "buns"},
			"meat":      {"beef", "pork", "chicken", "turkey", "steak", "sausage"},
			"seafood":   {"fish", "shrimp", "salmon", "tuna"},
			"beverages": {"drink", "drinks", "soda", "juice", "water", "coffee", "tea"},
			"snacks":    {"chips", "crackers", "cookies", "candy", "chocolate", "popcorn"},
			"frozen":    {"ice cream", "frozen food", "frozen meals"},
			"pantry":    {"canned", "pasta", "rice", "cereal", "sauce", "condiments"},
			"household": {"detergent", "paper towels", "cleaning", "soap"},
		},
		categoryParents: map[string][]string{
			"dairy":     {"beverages"},
			"beverages": {"dairy"},
			"snacks":    {"pantry"},
			"pantry":    {"snacks"},
			"frozen":    {"meat", "seafood"},
			"meat":      {"frozen"},
			"seafood":   {"frozen"},
		},
		unitAliases: map[string]string{
			"oz": "oz", "ounce": "oz", "ounces": "oz",
			"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
			"gal": "gal", "gallon": "gal", "gallons": "gal",
			"ml": "ml", "milliliter": "ml", "milliliters": "ml",
			"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
			"kg": "kg", "kilogram": "kg", "kilograms": "kg",
			"g": "g", "gram": "g", "grams": "g",
			"ct": "ct", "count": "ct", "pk": "ct", "pack": "ct", "packs": "ct",
		},
		unitToOunces: map[string]float64{
			"oz":  1,
			"lb":  16,
			"gal": 128,
			"l":   33.814,
			"ml":  0.033814,
			"kg":  35.274,
			"g":   0.035274,
			// Counts have no mass; factor 1 keeps count-vs-count comparisons
			// meaningful while cross-unit pairs score near zero.
			"ct": 1,
		},
		spellCorrections: map[string]string{
			"choclate":  "chocolate",
			"chocolat":  "chocolate",
			"tomatoe":   "tomato",
			"bananna":   "banana",
			"brocoli":   "broccoli",
			"letuce":    "lettuce",
			"yoghurt":   "yogurt",
			"cofee":     "coffee",
			"ceral":     "cereal",
			"detergant": "detergent",
		},
	}
	t.buildScanLists()
	return t
}

// buildScanLists flattens the alias maps into descending-length term lists so
// extraction can do a longest-match scan with a single pass.
func (t *Tables) buildScanLists() {
	t.brandScan = flattenAliases(t.brandAliases)
	t.categoryScan = flattenAliases(t.categoryAliases)
}

func flattenAliases(aliases map[string][]string) []scanTerm {
	var terms []scanTerm
	for canonical, list := range aliases {
		terms = append(terms, scanTerm{term: canonical, canonical: canonical})
		for _, a := range list {
			terms = append(terms, scanTerm{term: a, canonical: canonical})
		}
	}
	// Insertion sort by descending length; the lists are small and built once.
	for i := 1; i < len(terms); i++ {
		for j := i; j > 0 && len(terms[j].term) > len(terms[j-1].term); j-- {
			terms[j], terms[j-1] = terms[j-1], terms[j]
		}
	}
	return terms
}

// CorrectToken returns the corrected spelling of tok, or tok unchanged.
func (t *Tables) CorrectToken(tok string) string {
	if fixed, ok := t.spellCorrections[tok]; ok {
		return fixed
	}
	return tok
}

// CanonicalUnit resolves a unit spelling to its canonical form.
func (t *Tables) CanonicalUnit(unit string) (string, bool) {
	u, ok := t.unitAliases[strings.ToLower(unit)]
	return u, ok
}

// ToOunces converts a quantity in the given canonical unit to ounces.
func (t *Tables) ToOunces(size float64, unit string) (float64, bool) {
	factor, ok := t.unitToOunces[unit]
	if !ok {
		return 0, false
	}
	return size * factor, true
}

// BrandsRelated reports whether a and b name the same brand through the
// synonym table (either is the canonical form or an alias of the other).
func (t *Tables) BrandsRelated(a, b string) bool {
	return aliasRelated(t.brandAliases, a, b)
}

// CategoriesRelated reports whether a and b are linked via the category
// synonym table.
func (t *Tables) CategoriesRelated(a, b string) bool {
	return aliasRelated(t.categoryAliases, a, b)
}

func aliasRelated(aliases map[string][]string, a, b string) bool {
	if list, ok := aliases[a]; ok {
		for _, alias := range list {
			if alias == b {
				return true
			}
		}
	}
	if list, ok := aliases[b]; ok {
		for _, alias := range list {
			if alias == a {
				return true
			}
		}
	}
	return false
}

// CategoriesLinked reports whether a and b are related through the fixed
// parent/child relation table.
func (t *Tables) CategoriesLinked(a, b string) bool {
	for _, rel := range t.categoryParents[a] {
		if rel == b {
			return true
		}
	}
	for _, rel := range t.categoryParents[b] {
		if rel == a {
			return true
		}
	}
	return false
}
