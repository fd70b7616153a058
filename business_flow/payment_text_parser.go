package businessflow

import (
	"regexp"
	"strings"

	"github.com/amirphl/betting-settlement/utils"
	"github.com/shopspring/decimal"
)

var (
	amountPattern   = regexp.MustCompile(`Tk\.?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
	fromPattern     = regexp.MustCompile(`(?:from|Customer|Sender)\s*:?\s*(?:A/C:\s*)?([0-9X*]{3,14})`)
	trxIDPattern    = regexp.MustCompile(`(?:TrxID|TxnID|TxnId)\s*:?\s*([A-Za-z0-9]+)`)
	dateTimePattern = regexp.MustCompile(
		`(\d{2}/\d{2}/\d{4})\s+(\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AaPp][Mm])?)` +
			`|(\d{2}-[A-Za-z]{3}-\d{4})\s+(\d{1,2}:\d{2}(?::\d{2})?(?:\s?[AaPp][Mm])?)`,
	)
)

// ParsedPaymentText holds the fields extracted from a provider notification.
// Every field is independently optional; From uses utils.PaymentTextNotExist when absent.
type ParsedPaymentText struct {
	Amount *decimal.Decimal `json:"amount"`
	From   string           `json:"from"`
	TrxID  *string          `json:"trxID"`
	Date   *string          `json:"date"`
	Time   *string          `json:"time"`
}

// Complete reports whether all five fields were found
func (p ParsedPaymentText) Complete() bool {
	return p.Amount != nil && p.From != "" && p.From != utils.PaymentTextNotExist &&
		p.TrxID != nil && p.Date != nil && p.Time != nil
}

// ParseTransactionText extracts amount, sender, trxID, date and time from free-form SMS text.
// It never fails: unmatched fields stay nil.
func ParseTransactionText(text string) ParsedPaymentText {
	parsed := ParsedPaymentText{From: utils.PaymentTextNotExist}

	if m := amountPattern.FindStringSubmatch(text); m != nil {
		if amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			parsed.Amount = &amount
		}
	}

	if m := fromPattern.FindStringSubmatch(text); m != nil {
		parsed.From = m[1]
	}

	if m := trxIDPattern.FindStringSubmatch(text); m != nil {
		parsed.TrxID = utils.ToPtr(m[1])
	}

	if m := dateTimePattern.FindStringSubmatch(text); m != nil {
		switch {
		case m[1] != "":
			parsed.Date = utils.ToPtr(m[1])
			parsed.Time = utils.ToPtr(strings.TrimSpace(m[2]))
		case m[3] != "":
			parsed.Date = utils.ToPtr(m[3])
			parsed.Time = utils.ToPtr(strings.TrimSpace(m[4]))
		}
	}

	return parsed
}
