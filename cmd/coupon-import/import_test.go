package main

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/storage/memory"
)

const header = "code,discount_type,discount_value,min_purchase,max_discount,expiry_date,max_usage\n"

func TestParseRecord(t *testing.T) {
	cols, err := parseHeader(strings.Split("Code, Discount_Type,discount_value,min_purchase,max_discount,expiry_date,max_usage", ","))
	require.NoError(t, err)

	tests := []struct {
		name    string
		record  string
		check   func(t *testing.T, d coupon.Draft)
		wantErr string
	}{
		{
			name:   "percentage with cap",
			record: " save20 ,Percentage,20,100,50,2030-01-31,10",
			check: func(t *testing.T, d coupon.Draft) {
				assert.Equal(t, "SAVE20", d.Code)
				assert.Equal(t, coupon.DiscountPercentage, d.DiscountType)
				assert.True(t, d.DiscountValue.Equal(decimal.NewFromInt(20)))
				assert.True(t, d.MinPurchase.Equal(decimal.NewFromInt(100)))
				require.True(t, d.MaxDiscount.Valid)
				assert.True(t, d.MaxDiscount.Decimal.Equal(decimal.NewFromInt(50)))
				assert.Equal(t, time.Date(2030, 1, 31, 23, 59, 59, 0, time.UTC), d.ExpiryDate)
				assert.Equal(t, 10, d.MaxUsage)
			},
		},
		{
			name:   "flat with optional columns blank",
			record: "FLAT50,flat,50,,,2030-01-31T12:00:00Z,",
			check: func(t *testing.T, d coupon.Draft) {
				assert.Equal(t, coupon.DiscountFlat, d.DiscountType)
				assert.True(t, d.MinPurchase.IsZero())
				assert.False(t, d.MaxDiscount.Valid)
				assert.Equal(t, 0, d.MaxUsage)
			},
		},
		{name: "empty code", record: " ,flat,5,,,2030-01-01,", wantErr: "line 2: empty code"},
		{name: "bad value", record: "X,flat,five,,,2030-01-01,", wantErr: "invalid discount_value"},
		{name: "bad expiry", record: "X,flat,5,,,31/01/2030,", wantErr: "invalid expiry_date"},
		{name: "bad usage", record: "X,flat,5,,,2030-01-01,many", wantErr: "invalid max_usage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseRecord(cols, strings.Split(tt.record, ","), 2)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}

func TestParseHeader_MissingColumn(t *testing.T) {
	_, err := parseHeader([]string{"code", "discount_type", "discount_value"})
	require.ErrorContains(t, err, "expiry_date")
}

func TestStreamDrafts(t *testing.T) {
	input := header +
		"A1,flat,5,,,2030-01-01,\n" +
		"A2,flat,oops,,,2030-01-01,\n" +
		"A3,percentage,10,,,2030-01-01,\n"

	var codes []string
	var bad []error
	err := streamDrafts(context.Background(), strings.NewReader(input),
		func(d coupon.Draft) error {
			codes = append(codes, d.Code)
			return nil
		},
		func(err error) { bad = append(bad, err) },
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A3"}, codes)
	require.Len(t, bad, 1)
	assert.EqualError(t, bad[0], "line 3: invalid discount_value")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	if !strings.HasSuffix(name, ".gz") {
		_, err = f.WriteString(content)
		require.NoError(t, err)
		return path
	}
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestImporter(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "first.csv.gz", header+
		"SAVE10,percentage,10,,,2030-01-01,\n"+
		"FLAT5,flat,5,,,2030-01-01,\n"+
		"save10,percentage,15,,,2030-01-01,\n"+
		"TOOMUCH,percentage,150,,,2030-01-01,\n")
	second := writeFile(t, dir, "second.csv", header+
		"FLAT5,flat,7,,,2030-01-01,\n"+
		"EXISTING,flat,1,,,2030-01-01,\n"+
		"NEW1,flat,3,,,2030-01-01,\n"+
		"broken,flat\n")

	repo := memory.New().Coupons()
	ctx := context.Background()
	_, err := coupon.NewService(repo).Create(ctx, coupon.Draft{
		Code:          "EXISTING",
		DiscountType:  coupon.DiscountFlat,
		DiscountValue: decimal.NewFromInt(1),
		ExpiryDate:    time.Now().AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	imp := newImporter(repo, 1000, 0.001)
	require.NoError(t, imp.importFiles(ctx, []string{first, second}))

	s := &imp.stats
	assert.EqualValues(t, 7, s.read.Load())
	assert.EqualValues(t, 1, s.invalid.Load())
	assert.EqualValues(t, 3, s.created.Load())
	assert.EqualValues(t, 2, s.duplicate.Load())
	assert.EqualValues(t, 1, s.existing.Load())
	assert.EqualValues(t, 1, s.rejected.Load())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestImporter_MissingFile(t *testing.T) {
	imp := newImporter(memory.New().Coupons(), 10, 0.01)
	err := imp.importFiles(context.Background(), []string{filepath.Join(t.TempDir(), "absent.csv")})
	require.ErrorContains(t, err, "absent.csv")
}
