// Package importer reads and writes the Excel (and ZIP with media) files used to
// bulk load companies, contacts and testimonials, and exports lists to Excel.
package importer

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Import kinds
const (
	KindCompanies    = "companies"
	KindContacts     = "contacts"
	KindTestimonials = "testimonials"
)

// Field is one documented column of an import file
type Field struct {
	Key      string
	Required bool
	Synonyms []string
	Example  string
}

// Headers accepted for each kind. Matching ignores case, accents and punctuation.
var Schemas = map[string][]Field{
	KindCompanies: {
		{Key: "name", Required: true, Synonyms: []string{"nom", "company", "entreprise", "societe", "raison_sociale", "client"}, Example: "Globex SAS"},
		{Key: "legal_id", Synonyms: []string{"siret", "siren", "vat", "tva", "numero_tva"}, Example: "732 829 320 00074"},
		{Key: "type", Synonyms: []string{"categorie", "category"}, Example: "CLIENT"},
		{Key: "industry", Synonyms: []string{"secteur", "sector"}, Example: "Software"},
		{Key: "email", Synonyms: []string{"e_mail", "mail", "courriel"}, Example: "contact@globex.example"},
		{Key: "phone", Synonyms: []string{"telephone", "tel"}, Example: "+33 1 23 45 67 89"},
		{Key: "website", Synonyms: []string{"site", "site_web", "site_internet", "url"}, Example: "https://globex.example"},
		{Key: "address", Synonyms: []string{"adresse"}, Example: "12 rue de la Paix"},
		{Key: "city", Synonyms: []string{"ville"}, Example: "Paris"},
		{Key: "country", Synonyms: []string{"pays"}, Example: "France"},
	},
	KindContacts: {
		{Key: "company", Required: true, Synonyms: []string{"company_name", "entreprise", "societe", "client"}, Example: "Globex SAS"},
		{Key: "first_name", Required: true, Synonyms: []string{"firstname", "prenom"}, Example: "Marie"},
		{Key: "last_name", Required: true, Synonyms: []string{"lastname", "nom", "nom_de_famille"}, Example: "Curie"},
		{Key: "email", Synonyms: []string{"e_mail", "mail", "courriel"}, Example: "marie.curie@globex.example"},
		{Key: "phone", Synonyms: []string{"telephone", "tel", "mobile"}, Example: "+33 6 12 34 56 78"},
		{Key: "job_title", Synonyms: []string{"title", "poste", "fonction"}, Example: "CTO"},
		{Key: "primary", Synonyms: []string{"is_primary", "principal", "contact_principal"}, Example: "yes"},
	},
	KindTestimonials: {
		{Key: "company", Required: true, Synonyms: []string{"company_name", "entreprise", "societe", "client"}, Example: "Globex SAS"},
		{Key: "contact_name", Required: true, Synonyms: []string{"contact", "nom_du_contact", "author", "auteur"}, Example: "Marie Curie"},
		{Key: "contact_title", Synonyms: []string{"poste", "fonction", "title"}, Example: "CTO"},
		{Key: "content", Required: true, Synonyms: []string{"contenu", "temoignage", "testimonial", "texte", "text"}, Example: "A reliable partner."},
		{Key: "rating", Synonyms: []string{"note", "score"}, Example: "5"},
		{Key: "published", Synonyms: []string{"is_published", "publie"}, Example: "yes"},
		{Key: "media_file", Synonyms: []string{"media", "fichier", "file", "photo", "video"}, Example: "marie.jpg"},
	},
}

// IsValidKind reports whether kind has an import schema
func IsValidKind(kind string) bool {
	_, ok := Schemas[kind]
	return ok
}

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeader lowercases a header, strips accents and the required marker,
// and collapses everything that is not a letter or digit into single underscores.
// "Prénom*" becomes "prenom" and "Raison sociale" becomes "raison_sociale".
func NormalizeHeader(h string) string {
	folded, _, err := transform.String(foldAccents, h)
	if err != nil {
		folded = h
	}
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}

// MatchColumns maps field keys to column indexes in a header row and lists the
// required fields that are missing. The first matching column wins.
func MatchColumns(fields []Field, header []string) (map[string]int, []string) {
	names := lo.Map(header, func(h string, _ int) string { return NormalizeHeader(h) })
	columns := make(map[string]int, len(fields))
	var missing []string
	for _, f := range fields {
		accepted := append([]string{f.Key}, f.Synonyms...)
		idx := -1
		for i, n := range names {
			if n != "" && lo.Contains(accepted, n) && !lo.Contains(lo.Values(columns), i) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			columns[f.Key] = idx
		} else if f.Required {
			missing = append(missing, f.Key)
		}
	}
	return columns, missing
}
