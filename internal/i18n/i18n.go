// Package i18n holds the bilingual label catalog used on rendered documents.
package i18n

import "strings"

type Lang string

const (
	English Lang = "en"
	Arabic  Lang = "ar"
)

// Normalize maps a free-form language value ("AR", "ar-EG", ...) to a
// supported Lang, defaulting to English.
func Normalize(v string) Lang {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.IndexAny(v, "-_,;"); i > 0 {
		v = v[:i]
	}
	if v == "ar" {
		return Arabic
	}
	return English
}

// RTL reports whether the language renders right-to-left.
func (l Lang) RTL() bool { return l == Arabic }

var catalog = map[Lang]map[string]string{
	English: {
		"title.quotation":          "Quotation",
		"title.commercial_invoice": "Commercial Invoice",
		"title.proforma":           "Proforma Invoice",
		"client":                   "Client",
		"date":                     "Date",
		"document_no":              "Document #",
		"item":                     "Item",
		"qty":                      "Qty",
		"unit_price":               "Unit Price",
		"line_total":               "Total",
		"subtotal":                 "Subtotal",
		"discount":                 "Discount",
		"tax":                      "Tax",
		"grand_total":              "Grand Total",
		"notes":                    "Notes",
		"currency":                 "Currency",
	},
	Arabic: {
		"title.quotation":          "عرض سعر",
		"title.commercial_invoice": "فاتورة تجارية",
		"title.proforma":           "فاتورة مبدئية",
		"client":                   "العميل",
		"date":                     "التاريخ",
		"document_no":              "رقم المستند",
		"item":                     "البيان",
		"qty":                      "الكمية",
		"unit_price":               "سعر الوحدة",
		"line_total":               "الإجمالي",
		"subtotal":                 "المجموع الفرعي",
		"discount":                 "الخصم",
		"tax":                      "الضريبة",
		"grand_total":              "الإجمالي الكلي",
		"notes":                    "ملاحظات",
		"currency":                 "العملة",
	},
}

// T returns the translation for code in lang. Unknown languages fall back to
// English; unknown codes fall back to the code itself.
func T(lang Lang, code string) string {
	m, ok := catalog[lang]
	if !ok {
		m = catalog[English]
	}
	if s, ok := m[code]; ok {
		return s
	}
	if lang != English {
		if s, ok := catalog[English][code]; ok {
			return s
		}
	}
	return code
}

// Title returns the page title for a document kind ("quotation",
// "commercial_invoice", "proforma").
func Title(lang Lang, kind string) string {
	return T(lang, "title."+kind)
}
