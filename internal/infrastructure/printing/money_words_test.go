package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoneyInWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "zero real"},
		{"0.01", "um centavo"},
		{"0.50", "cinquenta centavos"},
		{"1", "um real"},
		{"2.50", "dois reais e cinquenta centavos"},
		{"15", "quinze reais"},
		{"21", "vinte e um reais"},
		{"100", "cem reais"},
		{"101", "cento e um reais"},
		{"999.99", "novecentos e noventa e nove reais e noventa e nove centavos"},
		{"1000", "mil reais"},
		{"1005", "mil e cinco reais"},
		{"1100", "mil e cem reais"},
		{"1250.75", "mil duzentos e cinquenta reais e setenta e cinco centavos"},
		{"2040.40", "dois mil e quarenta reais e quarenta centavos"},
		{"1000000", "um milhão de reais"},
		{"2500000", "dois milhões e quinhentos mil reais"},
		{"1001000", "um milhão e mil reais"},
		{"1234567", "um milhão duzentos e trinta e quatro mil quinhentos e sessenta e sete reais"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, moneyInWords(tt.amount))
		})
	}
}
