package loan

import (
	"time"

	"github.com/biblioteca/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DaysLate counts whole calendar days from due to effective, never negative.
// Time of day is ignored: returning any time on the due date is on time.
func DaysLate(due, effective time.Time) int {
	days := civilDay(effective) - civilDay(due)
	if days < 0 {
		return 0
	}
	return int(days)
}

// CalculateFine returns daysLate × loanValue × penaltyRate, rounded to cents
func CalculateFine(due, effective time.Time, loanValue valueobject.Money, penaltyRate decimal.Decimal) valueobject.Money {
	days := DaysLate(due, effective)
	if days == 0 || !loanValue.IsPositive() || !penaltyRate.IsPositive() {
		return valueobject.Zero(loanValue.Currency())
	}
	return loanValue.Multiply(penaltyRate).MultiplyByInt(int64(days)).Round(2)
}

// civilDay maps t to a day number using its own calendar date
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
