package extractor

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"golang-ledger-reconciler/internal/models"
	"golang-ledger-reconciler/internal/money"
	"golang-ledger-reconciler/internal/parsers"
	"golang-ledger-reconciler/pkg/errors"
	"golang-ledger-reconciler/pkg/logger"
)

// DropReason says why a row did not become a record.
type DropReason string

const (
	DropStatus      DropReason = "status"
	DropVoucher     DropReason = "voucher"
	DropDuplicate   DropReason = "duplicate"
	DropInvalidDate DropReason = "invalid_date"
)

// Options are the run-wide switches applied on top of a rule.
type Options struct {
	ExcludeVouchers bool
	// VoucherKeywords replaces DefaultVoucherKeywords when non-empty.
	VoucherKeywords []string
	// Lenient enables lenient column resolution for every rule.
	Lenient bool
	Logger  logger.Logger
}

// Result is the isolated output of one file. Records holds the sales, then
// one fee line per row with a positive extra fee.
type Result struct {
	File        string
	RuleID      string
	Records     []models.TransactionRecord
	Fees        []models.FeeEntry
	RowsRead    int
	RowsKept    int
	RowsDropped map[DropReason]int
}

// columns holds the resolved columns of one file; absent ones are nil.
type columns map[Logical]*parsers.ColumnRef

func (c columns) value(t *parsers.RawTable, row int, l Logical) string {
	ref := c[l]
	if ref == nil {
		return ""
	}
	return t.Cell(row, *ref)
}

// Extract runs the rule's pipeline over one table. A missing date or gross
// column returns a missing-column error; a panic is recovered into an
// extraction error. Either way the caller skips the file.
func Extract(t *parsers.RawTable, rule *Rule, opts Options) (res *Result, err error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("extractor").WithFields(logger.Fields{"file": t.Name, "rule": rule.ID})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic during extraction: %v", r)
			res = nil
			err = errors.ReconciliationError(errors.CodeExtractionFailed, "extract "+t.Name, fmt.Errorf("panic: %v", r)).
				WithContext("file", t.Name).
				WithContext("rule", rule.ID)
		}
	}()

	cols, err := resolveColumns(t, rule, opts.Lenient || rule.Lenient)
	if err != nil {
		return nil, err
	}

	res = &Result{
		File:        t.Name,
		RuleID:      rule.ID,
		RowsRead:    len(t.Rows),
		RowsDropped: make(map[DropReason]int),
	}

	if rule.FeesOnly {
		extractFeesOnly(t, rule, cols, res)
	} else {
		extractRecords(t, rule, cols, opts, res)
	}

	log.WithFields(logger.Fields{
		"rows_read":    res.RowsRead,
		"rows_kept":    res.RowsKept,
		"rows_dropped": res.RowsDropped,
		"fees":         len(res.Fees),
	}).Info("Extracted file")
	return res, nil
}

// resolveColumns resolves every logical column the rule declares. Only the
// date and gross columns (and net, for fees-only rules) are required.
func resolveColumns(t *parsers.RawTable, rule *Rule, lenient bool) (columns, error) {
	cols := make(columns)
	for l, syn := range rule.Columns {
		if ref, ok := parsers.Resolve(t, syn, lenient); ok {
			ref := ref
			cols[l] = &ref
		}
	}
	for _, extra := range rule.ExtraFees {
		if ref, ok := parsers.Resolve(t, extra.Column, lenient); ok {
			ref := ref
			cols[extraLogical(extra)] = &ref
		}
	}

	required := []Logical{rule.dateLogical(), ColGross}
	if rule.FeesOnly {
		required = append(required, ColNet)
	}
	for _, l := range required {
		if cols[l] == nil {
			syn := rule.Synonyms(l)
			closest, _ := parsers.SuggestColumn(t, syn)
			return nil, errors.MissingColumnError(t.Name, string(l), syn, closest).
				WithContext("rule", rule.ID)
		}
	}
	return cols, nil
}

func extraLogical(extra ExtraFee) Logical {
	return Logical("extra:" + extra.Note)
}

func extractRecords(t *parsers.RawTable, rule *Rule, cols columns, opts Options, res *Result) {
	allow, deny := rule.StatusAllow, rule.StatusDeny
	if len(allow) == 0 {
		allow = DefaultStatusAllow
	}
	if len(deny) == 0 {
		deny = DefaultStatusDeny
	}
	vouchers := opts.VoucherKeywords
	if len(vouchers) == 0 {
		vouchers = DefaultVoucherKeywords
	}
	dedup := cols[ColCard] != nil && cols[ColAuth] != nil && !rule.GrossIsInstallment
	seen := make(map[string]bool)

	strategy := rule.FeeStrategy
	if strategy == FeeAuto {
		switch {
		case cols[ColFee] != nil:
			strategy = FeeColumn
		case cols[ColNet] != nil:
			strategy = FeeGrossMinusNet
		default:
			strategy = FeeNone
		}
	}
	if strategy == FeeColumn && cols[ColFee] == nil {
		strategy = FeeNone
	}
	if strategy == FeeGrossMinusNet && cols[ColNet] == nil {
		strategy = FeeNone
	}

	fees := newFeeBook(rule.Name, rule.FeeNote, rule.FeeGranularity)
	extras := make([]*feeBook, len(rule.ExtraFees))
	for i, extra := range rule.ExtraFees {
		extras[i] = newFeeBook(rule.Name, extra.Note, rule.FeeGranularity)
	}

	var feeLines []models.TransactionRecord
	for row := range t.Rows {
		status := cols.value(t, row, ColStatus)
		if cols[ColStatus] != nil && !statusAccepted(status, allow, deny) {
			res.RowsDropped[DropStatus]++
			continue
		}

		brand := cols.value(t, row, ColBrand)
		if opts.ExcludeVouchers && cols[ColBrand] != nil && matchesVoucher(brand, vouchers) {
			res.RowsDropped[DropVoucher]++
			continue
		}

		card := cols.value(t, row, ColCard)
		if (card == "" || card == "-") && rule.CardFallback != "" {
			card = cols.value(t, row, rule.CardFallback)
		}
		if dedup {
			auth := cols.value(t, row, ColAuth)
			if card != "" && auth != "" {
				key := card + "\x00" + auth
				if seen[key] {
					res.RowsDropped[DropDuplicate]++
					continue
				}
				seen[key] = true
			}
		}

		date, err := models.ParseDate(cols.value(t, row, rule.dateLogical()))
		if err != nil {
			res.RowsDropped[DropInvalidDate]++
			continue
		}

		gross := money.Normalize(cols.value(t, row, ColGross), false)
		fee := decimal.Zero
		var net decimal.Decimal
		hasNet := cols[ColNet] != nil
		if hasNet {
			net = money.Normalize(cols.value(t, row, ColNet), false)
		}

		switch strategy {
		case FeeColumn:
			fee = money.Normalize(cols.value(t, row, ColFee), true)
			fees.add(date, fee)
		case FeeGrossMinusNet:
			diff := gross.Sub(net)
			fees.addDaily(date, diff)
			if diff.IsPositive() {
				fee = diff
			}
		}
		if !hasNet {
			net = gross.Sub(fee)
		}

		for i, extra := range rule.ExtraFees {
			ref := cols[extraLogical(extra)]
			if ref == nil {
				continue
			}
			amount := money.Normalize(t.Cell(row, *ref), true)
			extras[i].add(date, amount)
			if amount.IsPositive() {
				feeLines = append(feeLines, models.TransactionRecord{
					Date:        date,
					Gross:       decimal.Zero,
					Fee:         amount,
					Net:         amount.Neg(),
					Source:      rule.Name + " (" + t.Name + ")",
					Operator:    rule.Name,
					Status:      status,
					Brand:       brand,
					Description: extra.Note + " - " + rule.Name,
					Kind:        models.KindFee,
				})
			}
		}

		res.Records = append(res.Records, models.TransactionRecord{
			Date:        date,
			Gross:       gross,
			Fee:         fee,
			Net:         net,
			Source:      rule.Name + " (" + t.Name + ")",
			Operator:    rule.Name,
			Status:      status,
			Brand:       brand,
			CardID:      card,
			Description: rule.recordDescription(),
		})
		res.RowsKept++
	}

	// Fee lines follow the file's sales in the consolidated export.
	res.Records = append(res.Records, feeLines...)
	res.Fees = append(res.Fees, fees.entries()...)
	for _, e := range extras {
		res.Fees = append(res.Fees, e.entries()...)
	}
}

// extractFeesOnly books gross minus net per payment date and emits no records.
func extractFeesOnly(t *parsers.RawTable, rule *Rule, cols columns, res *Result) {
	fees := newFeeBook(rule.Name, rule.FeeNote, GranularityDay)
	for row := range t.Rows {
		date, err := models.ParseDate(cols.value(t, row, rule.dateLogical()))
		if err != nil {
			res.RowsDropped[DropInvalidDate]++
			continue
		}
		gross := money.Normalize(cols.value(t, row, ColGross), false)
		net := money.Normalize(cols.value(t, row, ColNet), false)
		fees.addDaily(date, gross.Sub(net))
		res.RowsKept++
	}
	res.Fees = fees.entries()
}

// statusInflection is how many letters may follow an allow term, enough for
// gender and plural endings ("aprovad" → "aprovadas").
const statusInflection = 2

// statusAccepted rejects any status containing a deny term, then accepts
// one where an allow term appears as a word.
func statusAccepted(status string, allow, deny []string) bool {
	s := parsers.Fold(status)
	for _, d := range deny {
		if fd := parsers.Fold(d); fd != "" && strings.Contains(s, fd) {
			return false
		}
	}
	for _, a := range allow {
		if containsWord(s, parsers.Fold(a), isAlnum, statusInflection) {
			return true
		}
	}
	return false
}

// matchesVoucher compares folded text; keywords of three letters or fewer
// must match a whole word.
func matchesVoucher(brand string, keywords []string) bool {
	b := parsers.Fold(brand)
	if b == "" {
		return false
	}
	for _, k := range keywords {
		fk := parsers.Fold(k)
		if fk == "" {
			continue
		}
		if len(fk) > 3 {
			if strings.Contains(b, fk) {
				return true
			}
		} else if containsWord(b, fk, isAlnum, 0) {
			return true
		}
	}
	return false
}

// feeBook accumulates fees either for the whole file, dated on the first
// valid date seen, or per day in first-seen order.
type feeBook struct {
	origin      string
	note        string
	granularity FeeGranularity

	fileDate  time.Time
	fileTotal decimal.Decimal
	days      []time.Time
	perDay    map[string]decimal.Decimal
}

func newFeeBook(origin, note string, granularity FeeGranularity) *feeBook {
	return &feeBook{
		origin:      origin,
		note:        note,
		granularity: granularity,
		perDay:      make(map[string]decimal.Decimal),
	}
}

// add books an explicit fee according to the granularity.
func (b *feeBook) add(date time.Time, amount decimal.Decimal) {
	if b.granularity == GranularityDay {
		b.addDaily(date, amount)
		return
	}
	if b.fileDate.IsZero() {
		b.fileDate = date
	}
	b.fileTotal = b.fileTotal.Add(amount)
}

// addDaily books an amount on its own day regardless of granularity.
func (b *feeBook) addDaily(date time.Time, amount decimal.Decimal) {
	key := models.DateKey(date)
	if _, ok := b.perDay[key]; !ok {
		b.days = append(b.days, date)
	}
	b.perDay[key] = b.perDay[key].Add(amount)
}

// entries returns the strictly positive totals.
func (b *feeBook) entries() []models.FeeEntry {
	var out []models.FeeEntry
	if !b.fileDate.IsZero() && b.fileTotal.IsPositive() {
		out = append(out, models.FeeEntry{Date: b.fileDate, Amount: b.fileTotal, Origin: b.origin, Note: b.note})
	}
	for _, day := range b.days {
		if total := b.perDay[models.DateKey(day)]; total.IsPositive() {
			out = append(out, models.FeeEntry{Date: day, Amount: total, Origin: b.origin, Note: b.note})
		}
	}
	return out
}
