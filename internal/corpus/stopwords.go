// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package corpus

// spanishStopWords is the Spanish stop word list applied during
// tokenization. Function words carry no topical signal and would
// otherwise dominate the vocabulary by raw frequency.
var spanishStopWords = map[string]struct{}{}

func init() {
	words := []string{
		"a", "al", "algo", "algunas", "algunos", "ante", "antes", "como",
		"con", "contra", "cual", "cuando", "de", "del", "desde", "donde",
		"durante", "e", "el", "ella", "ellas", "ellos", "en", "entre",
		"era", "erais", "eran", "eras", "eres", "es", "esa", "esas", "ese",
		"eso", "esos", "esta", "estaba", "estabais", "estaban", "estabas",
		"estad", "estada", "estadas", "estado", "estados", "estamos",
		"estando", "estar", "estas", "este", "esto", "estos", "estoy",
		"fue", "fueron", "fui", "fuimos", "ha", "habia", "había", "habéis",
		"haber", "habida", "habidas", "habido", "habidos", "habiendo",
		"han", "has", "hasta", "hay", "haya", "hayamos", "hayan", "hayas",
		"he", "hemos", "hube", "hubo", "la", "las", "le", "les", "lo",
		"los", "me", "mi", "mis", "mucho", "muchos", "muy", "más", "mía",
		"mías", "mío", "míos", "nada", "ni", "no", "nos", "nosotras",
		"nosotros", "nuestra", "nuestras", "nuestro", "nuestros", "o",
		"os", "otra", "otras", "otro", "otros", "para", "pero", "poco",
		"por", "porque", "que", "quien", "quienes", "qué", "se", "sea",
		"seamos", "sean", "seas", "ser", "si", "sido", "siendo", "sin",
		"sobre", "sois", "somos", "son", "soy", "su", "sus", "suya",
		"suyas", "suyo", "suyos", "sí", "también", "tanto", "te",
		"tendremos", "tendrá", "tendrán", "tener", "tenga", "tengamos",
		"tengan", "tengas", "tengo", "tenido", "ti", "tiene", "tienen",
		"tienes", "todo", "todos", "tu", "tus", "tuve", "tuvo", "tuya",
		"tuyas", "tuyo", "tuyos", "tú", "un", "una", "uno", "unos",
		"vosotras", "vosotros", "vuestra", "vuestras", "vuestro",
		"vuestros", "y", "ya", "yo", "él", "éramos",
	}
	for _, w := range words {
		spanishStopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether the given lowercase token is a Spanish stop word.
func IsStopWord(token string) bool {
	_, ok := spanishStopWords[token]
	return ok
}
