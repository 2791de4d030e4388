package printing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	wordsUnits = []string{
		"zero", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove",
		"dez", "onze", "doze", "treze", "quatorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove",
	}
	wordsTens     = []string{"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa"}
	wordsHundreds = []string{"", "cento", "duzentos", "trezentos", "quatrocentos", "quinhentos", "seiscentos", "setecentos", "oitocentos", "novecentos"}
)

// moneyInWords spells a BRL amount in Portuguese, as printed on receipts.
// Example: 1250.75 -> "mil duzentos e cinquenta reais e setenta e cinco centavos"
func moneyInWords(v any) string {
	d := toDecimal(v).Abs().Round(2)
	reais := d.IntPart()
	centavos := d.Sub(decimal.NewFromInt(reais)).Shift(2).IntPart()

	var parts []string
	if reais > 0 {
		unit := " reais"
		if reais == 1 {
			unit = " real"
		} else if reais%1_000_000 == 0 {
			unit = " de reais"
		}
		parts = append(parts, spellInteger(reais)+unit)
	}
	if centavos > 0 {
		unit := " centavos"
		if centavos == 1 {
			unit = " centavo"
		}
		parts = append(parts, spellInteger(centavos)+unit)
	}
	if len(parts) == 0 {
		return "zero real"
	}
	return strings.Join(parts, " e ")
}

// spellInteger spells 0 <= n < 10^12
func spellInteger(n int64) string {
	if n == 0 {
		return wordsUnits[0]
	}

	type group struct {
		value    int64
		singular string
		plural   string
	}
	groups := []group{
		{n / 1_000_000_000 % 1000, "bilhão", "bilhões"},
		{n / 1_000_000 % 1000, "milhão", "milhões"},
		{n / 1000 % 1000, "mil", "mil"},
		{n % 1000, "", ""},
	}

	lastGroup := 0
	for i, g := range groups {
		if g.value != 0 {
			lastGroup = i
		}
	}

	var words []string
	for i, g := range groups {
		if g.value == 0 {
			continue
		}
		var w string
		switch {
		case g.singular == "":
			w = spellHundreds(g.value)
		case g.singular == "mil" && g.value == 1:
			w = "mil"
		case g.value == 1:
			w = "um " + g.singular
		default:
			w = spellHundreds(g.value) + " " + g.plural
		}

		// The last group joins with "e" when it is below a hundred or a round hundred
		if i == lastGroup && len(words) > 0 && (g.value < 100 || g.value%100 == 0) {
			words = append(words, "e")
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

// spellHundreds spells 1 <= n <= 999
func spellHundreds(n int64) string {
	if n == 100 {
		return "cem"
	}
	var words []string
	if h := n / 100; h > 0 {
		words = append(words, wordsHundreds[h])
	}
	rest := n % 100
	switch {
	case rest == 0:
	case rest < 20:
		words = append(words, wordsUnits[rest])
	default:
		tens := wordsTens[rest/10]
		if rest%10 != 0 {
			tens += " e " + wordsUnits[rest%10]
		}
		words = append(words, tens)
	}
	return strings.Join(words, " e ")
}
