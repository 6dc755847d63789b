// Package receipt renders finalized invoices as plain-text thermal receipts.
package receipt

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"go-udhar-pos/internal/model"

	"github.com/shopspring/decimal"
)

// Width is the character width of an 80mm thermal roll.
const Width = 42

// StoreInfo is the shop identity printed in the header.
type StoreInfo struct {
	Name    string
	Address string
	Phone   string
}

type Renderer struct {
	info StoreInfo
	loc  *time.Location
}

func NewRenderer(info StoreInfo, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{info: info, loc: loc}
}

// PaymentLabel is the customer-facing name of a payment mode.
func PaymentLabel(t model.PaymentType) string {
	switch t {
	case model.PaymentCredit:
		return "Udhar"
	case model.PaymentPartial:
		return "Adha Udhar"
	default:
		return "Cash"
	}
}

// FormatAmount renders money with two decimals and thousands separators.
func FormatAmount(v float64) string {
	s := decimal.NewFromFloat(v).Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Render writes the receipt for inv to w.
func (r *Renderer) Render(w io.Writer, inv model.Invoice) error {
	var b bytes.Buffer
	rule := strings.Repeat("-", Width)
	date := inv.Date.In(r.loc)

	center(&b, strings.ToUpper(r.info.Name))
	if r.info.Address != "" {
		center(&b, r.info.Address)
	}
	if r.info.Phone != "" {
		center(&b, "Tel: "+r.info.Phone)
	}
	b.WriteString(rule + "\n")

	pair(&b, fmt.Sprintf("Inv #: %d", inv.ID), "Date: "+date.Format("02/01/2006"))
	salesman := inv.UserName
	if salesman == "" {
		salesman = "Owner"
	}
	pair(&b, "Salesman: "+salesman, date.Format("3:04 PM"))
	if inv.Customer.Name != "" {
		b.WriteString("Customer: " + inv.Customer.Name + "\n")
		if inv.Customer.Phone != "" {
			b.WriteString("Phone: " + inv.Customer.Phone + "\n")
		}
	}

	if inv.PaymentType != model.PaymentCash {
		b.WriteString("\n")
		center(&b, "[ TYPE: "+strings.ToUpper(PaymentLabel(inv.PaymentType))+" ]")
	}

	b.WriteString(rule + "\n")
	pair(&b, "Item Description", "Amount")
	b.WriteString(rule + "\n")
	for _, item := range inv.Items {
		pair(&b, item.Name, FormatAmount(item.LineTotal()))
		b.WriteString(fmt.Sprintf("  %s x %d @ %s\n", item.UnitLabel, item.Units, FormatAmount(item.PricePerBase)))
	}
	b.WriteString(rule + "\n")

	pair(&b, "Total Amount:", "Rs "+FormatAmount(inv.Total))
	pair(&b, "Paid Received:", "Rs "+FormatAmount(inv.Paid))
	if inv.Remaining > 0 {
		pair(&b, "Remaining (Udhar):", "Rs "+FormatAmount(inv.Remaining))
		if inv.DueDate != nil {
			pair(&b, "Due Date:", inv.DueDate.In(r.loc).Format("02/01/2006"))
		}
	}

	b.WriteString(rule + "\n")
	center(&b, "No Return - No Exchange")
	center(&b, "Thank you for visiting!")

	_, err := w.Write(b.Bytes())
	return err
}

// String renders the receipt into a string.
func (r *Renderer) String(inv model.Invoice) string {
	var b bytes.Buffer
	_ = r.Render(&b, inv)
	return b.String()
}

func center(b *bytes.Buffer, s string) {
	if pad := (Width - utf8.RuneCountInString(s)) / 2; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s + "\n")
}

// pair writes left and right on one line, falling back to two lines when
// they do not fit.
func pair(b *bytes.Buffer, left, right string) {
	lw, rw := utf8.RuneCountInString(left), utf8.RuneCountInString(right)
	gap := Width - lw - rw
	if gap < 1 {
		b.WriteString(left + "\n")
		b.WriteString(strings.Repeat(" ", max(Width-rw, 0)) + right + "\n")
		return
	}
	b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
}
