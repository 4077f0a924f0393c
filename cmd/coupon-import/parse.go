package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/coupon"
)

// Recognised CSV columns. Only code, discount_type, discount_value and
// expiry_date are mandatory.
const (
	colCode          = "code"
	colDiscountType  = "discount_type"
	colDiscountValue = "discount_value"
	colMinPurchase   = "min_purchase"
	colMaxDiscount   = "max_discount"
	colExpiryDate    = "expiry_date"
	colMaxUsage      = "max_usage"
)

var requiredColumns = []string{colCode, colDiscountType, colDiscountValue, colExpiryDate}

// rowError describes a record that could not be turned into a draft.
type rowError struct {
	Line   int
	Reason string
}

func (e *rowError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Reason
}

// columns maps a header name to its record index.
type columns map[string]int

func parseHeader(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.TrimPrefix(name, "\ufeff")
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}
	return cols, nil
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		// Date-only expiries stay valid for the whole day.
		return t.Add(24*time.Hour - time.Second), nil
	}
	return time.Parse(time.RFC3339, s)
}

// parseRecord converts one CSV record into a coupon draft.
func parseRecord(cols columns, record []string, line int) (coupon.Draft, error) {
	fail := func(reason string) (coupon.Draft, error) {
		return coupon.Draft{}, &rowError{Line: line, Reason: reason}
	}

	d := coupon.Draft{
		Code:         coupon.NormalizeCode(cols.get(record, colCode)),
		DiscountType: coupon.DiscountType(strings.ToLower(cols.get(record, colDiscountType))),
	}
	if d.Code == "" {
		return fail("empty code")
	}

	var err error
	if d.DiscountValue, err = decimal.NewFromString(cols.get(record, colDiscountValue)); err != nil {
		return fail("invalid discount_value")
	}
	if v := cols.get(record, colMinPurchase); v != "" {
		if d.MinPurchase, err = decimal.NewFromString(v); err != nil {
			return fail("invalid min_purchase")
		}
	}
	if v := cols.get(record, colMaxDiscount); v != "" {
		maxDiscount, err := decimal.NewFromString(v)
		if err != nil {
			return fail("invalid max_discount")
		}
		d.MaxDiscount = decimal.NewNullDecimal(maxDiscount)
	}
	if d.ExpiryDate, err = parseExpiry(cols.get(record, colExpiryDate)); err != nil {
		return fail("invalid expiry_date")
	}
	if v := cols.get(record, colMaxUsage); v != "" {
		if d.MaxUsage, err = strconv.Atoi(v); err != nil {
			return fail("invalid max_usage")
		}
	}
	return d, nil
}

// openInput opens path, decompressing it when it ends in .gz.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}

	gz, err := pgzip.NewReader(bufio.NewReader(f))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	return &gzipFile{Reader: gz, file: f}, nil
}

type gzipFile struct {
	*pgzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// streamDrafts reads a CSV coupon file and calls fn for each valid row and
// bad for each row that fails to parse.
func streamDrafts(ctx context.Context, r io.Reader, fn func(coupon.Draft) error, bad func(error)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return errors.Wrap(err, "read header")
	}
	cols, err := parseHeader(header)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				bad(&rowError{Line: perr.Line, Reason: perr.Err.Error()})
				continue
			}
			return errors.Wrap(err, "read record")
		}
		line, _ := cr.FieldPos(0)

		d, err := parseRecord(cols, record, line)
		if err != nil {
			bad(err)
			continue
		}
		if err := fn(d); err != nil {
			return err
		}
	}
}
