// Package projection maps eligible products to the records rendered by the
// catalog front end: compact cards for the list and a detail record with
// ordered spec rows and collapsible groups.
package projection

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/HerbHall/byggekatalog/internal/facet"
	"github.com/HerbHall/byggekatalog/internal/rules"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Group titles in the detail view.
const (
	GroupData       = "Data"
	GroupFeatures   = "Funktioner"
	GroupComponents = "Komponenter"
	GroupOtherSpecs = "Øvrige specifikationer"
)

// priority is the fixed display order of the primary spec rows.
var priority = []struct {
	key   string
	label string
}{
	{models.SpecFireRequirement, "Brandkrav"},
	{models.SpecFireResistance, "Brandmodstand"},
	{models.SpecFireSection, "Brandsektion"},
	{models.SpecTopFloorHeight, "Højde øverste etage"},
	{models.SpecSpan, "Spændvidde"},
	{models.SpecMinFloors, "Min. etager"},
	{models.SpecMaxFloors, "Max. etager"},
	{models.SpecMaxLength, "Max længde"},
	{models.SpecTotalThickness, "Samlet tykkelse"},
	{models.SpecWeight, "Vægt"},
}

func isPriority(key string) bool {
	for _, p := range priority {
		if p.key == key {
			return true
		}
	}
	return false
}

// Row is one labelled value.
type Row struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Group is a secondary, collapsible block of the detail view. It holds
// either rows or free-text items.
type Group struct {
	Title       string   `json:"title"`
	Rows        []Row    `json:"rows,omitempty"`
	Items       []string `json:"items,omitempty"`
	Collapsible bool     `json:"collapsible"`
}

// CardView is the list representation of a product.
type CardView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	Image            string   `json:"image,omitempty"`
	Price            string   `json:"price"`
	Badges           []string `json:"badges,omitempty"`
	Meta             string   `json:"meta,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// DetailView is the full representation of a product.
type DetailView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	LongDescription  string   `json:"longDescription,omitempty"`
	Image            string   `json:"image,omitempty"`
	Price            string   `json:"price"`
	Badges           []string `json:"badges,omitempty"`
	Specs            []Row    `json:"specs"`
	Groups           []Group  `json:"groups,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Card projects p for the product list. Warnings are shown in short form.
func Card(p models.Product, warnings []rules.Warning) CardView {
	return CardView{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Image:            p.Image,
		Price:            FormatPrice(p.Price),
		Badges:           append([]string(nil), p.Anvendelse...),
		Meta:             meta(p),
		Warnings:         rules.ShortWarnings(warnings),
	}
}

func meta(p models.Product) string {
	parts := make([]string, 0, 2)
	if len(p.Anvendelse) > 0 {
		parts = append(parts, strings.Join(p.Anvendelse, ", "))
	}
	if v, ok := p.Specs.Get(models.SpecWeight); ok && !v.IsEmpty() {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, " • ")
}

// Detail projects p for the detail view. The usage-specific fire class is
// shown when c selects a usage.
func Detail(p models.Product, warnings []rules.Warning, c facet.Criteria) DetailView {
	d := DetailView{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		LongDescription:  p.LongDescription,
		Image:            p.Image,
		Price:            FormatPrice(p.Price),
		Badges:           append([]string(nil), p.Anvendelse...),
		Specs:            make([]Row, 0, len(priority)+1),
		Warnings:         rules.LongWarnings(warnings),
	}

	for _, pr := range priority {
		if v, ok := p.Specs.Get(pr.key); ok && !v.IsEmpty() {
			d.Specs = append(d.Specs, Row{Key: pr.key, Label: pr.label, Value: v.String()})
		}
	}

	if usage, ok := c.Usage(); ok {
		if fc, ok := p.FireClassFor(usage); ok {
			d.Specs = append(d.Specs, Row{
				Key:   facet.KeyFireClass,
				Label: "Brandklasse (" + usage + ")",
				Value: fc,
			})
		}
	}

	if rows := fieldRows(p.Data, nil); len(rows) > 0 {
		d.Groups = append(d.Groups, Group{Title: GroupData, Rows: rows, Collapsible: true})
	}
	if items := nonEmpty(p.Features); len(items) > 0 {
		d.Groups = append(d.Groups, Group{Title: GroupFeatures, Items: items, Collapsible: true})
	}
	if items := nonEmpty(p.Components); len(items) > 0 {
		d.Groups = append(d.Groups, Group{Title: GroupComponents, Items: items, Collapsible: true})
	}
	if rows := fieldRows(p.Specs, isPriority); len(rows) > 0 {
		d.Groups = append(d.Groups, Group{Title: GroupOtherSpecs, Rows: rows, Collapsible: true})
	}

	return d
}

func fieldRows(f models.Fields, skip func(string) bool) []Row {
	var rows []Row
	for _, k := range f.Keys() {
		if skip != nil && skip(k) {
			continue
		}
		v, _ := f.Get(k)
		if v.IsEmpty() {
			continue
		}
		rows = append(rows, Row{Key: k, Label: Label(k), Value: v.String()})
	}
	return rows
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Label turns a spec or data key into a display label. Acronyms such as
// "REI" pass through; "luftlydKlasse" becomes "Luftlyd Klasse" and
// "fire_rating" becomes "Fire rating".
func Label(key string) string {
	if isAcronym(key) {
		return key
	}

	var b strings.Builder
	var prev rune
	for i, r := range key {
		if r == '_' {
			r = ' '
		}
		if i > 0 && unicode.IsUpper(r) && prev != ' ' && !unicode.IsUpper(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}

	s := strings.TrimSpace(b.String())
	first, size := utf8.DecodeRuneInString(s)
	if first == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(first)) + s[size:]
}

func isAcronym(key string) bool {
	if utf8.RuneCountInString(key) < 2 {
		return false
	}
	letters := 0
	for _, r := range key {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 0
}

// FormatPrice renders a price in Danish kroner ("1.234,50 kr."). An unset
// price renders empty.
func FormatPrice(p models.Price) string {
	if !p.Set {
		return ""
	}
	return message.NewPrinter(language.Danish).Sprintf("%.2f kr.", p.Amount)
}

// CountLabel renders the result count ("1 produkt", "3 produkter").
func CountLabel(n int) string {
	if n == 1 {
		return "1 produkt"
	}
	return strconv.Itoa(n) + " produkter"
}
