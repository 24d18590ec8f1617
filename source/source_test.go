package source

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	pq "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/schema"
)

const rentalsCSV = `instant,dteday,temp,humidity,windspeed,total_count
1,2011-01-01,0.34,0.80,0.16,985
2,2011-01-02,0.36,0.69,0.24,801
3,2011-01-03,n/a,0.43,0.24,1349
4,2011-01-04,0.20,0.59,0.16
`

func writeFile(t *testing.T, name, content string) Location {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	loc, err := ParseLocation(path)
	require.NoError(t, err)
	return loc
}

// ─── Location ───────────────────────────────────────────────

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("s3://bucket/exports/orders.parquet")
	require.NoError(t, err)
	assert.Equal(t, SchemeS3, loc.Scheme)
	assert.Equal(t, "bucket", loc.Bucket)
	assert.Equal(t, "exports/orders.parquet", loc.Key)
	assert.Equal(t, FormatParquet, loc.Format())
	assert.Equal(t, "s3://bucket/exports/orders.parquet", loc.String())

	loc, err = ParseLocation("data/all_data.csv")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(loc.Path))
	assert.Equal(t, FormatCSV, loc.Format())
	assert.Equal(t, "all_data.csv", loc.Base())

	_, err = ParseLocation("s3://bucket")
	assert.Error(t, err)
	_, err = ParseLocation("  ")
	assert.Error(t, err)
}

// ─── CSV ────────────────────────────────────────────────────

func TestLoad_CSV(t *testing.T) {
	loc := writeFile(t, "rentals.csv", rentalsCSV)

	frame, err := Load(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len(), "short row skipped")
	assert.Equal(t, []string{"instant", "dteday", "temp", "humidity", "windspeed", "total_count"}, frame.ColumnNames())
	assert.Equal(t, []string{"dteday"}, frame.DateKeys())
	assert.True(t, math.IsNaN(frame.Measure(2, "temp")))
	assert.Equal(t, 1349.0, frame.Measure(2, "total_count"))
	assert.Equal(t, time.Date(2011, 1, 2, 0, 0, 0, 0, time.UTC), frame.Date(1, "dteday"))

	s, err := schema.Detect(frame)
	require.NoError(t, err)
	assert.Equal(t, engine.ProfileRentals, s.Profile)
}

func TestLoad_HeaderOnly(t *testing.T) {
	loc := writeFile(t, "empty.csv", "temp,humidity\n")
	_, err := Load(context.Background(), loc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")

	loc = writeFile(t, "blank.csv", "")
	_, err = Load(context.Background(), loc)
	assert.ErrorContains(t, err, "no data rows")
}

func TestLoad_NotFound(t *testing.T) {
	loc, err := ParseLocation(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)

	_, err = Load(context.Background(), loc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, loc, nf.Location)
}

func TestCatalog_CSV(t *testing.T) {
	loc := writeFile(t, "rentals.csv", rentalsCSV)
	cat, err := NewLoader().Catalog(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "rentals.csv", cat.Name)
	assert.Equal(t, engine.ProfileRentals, cat.Profile)
	assert.Equal(t, 1, cat.Column("temp").NullCount)
}

// ─── Parquet ────────────────────────────────────────────────

type orderRow struct {
	OrderID     int64   `parquet:"order_id"`
	CustomerID  string  `parquet:"customer_id"`
	OrderDate   string  `parquet:"order_date"`
	Shipped     int32   `parquet:"shipped,date"`
	ProductName string  `parquet:"product_name"`
	ProductType string  `parquet:"product_type"`
	QuantityX   int32   `parquet:"quantity_x"`
	TotalPrice  float64 `parquet:"total_price"`
	Gender      string  `parquet:"gender"`
	AgeGroup    string  `parquet:"age_group"`
	State       string  `parquet:"state"`
	IsMember    bool    `parquet:"is_member"`
}

func TestLoad_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.parquet")
	rows := []orderRow{
		{1001, "C-17", "2021-01-05", 18632, "Runner X", "Shoes", 2, 120.5, "M", "Adults", "CA", true},
		{1002, "C-22", "2021-02-11", 18670, "Tote", "Bags", 1, 30, "F", "Youth", "NY", false},
	}
	require.NoError(t, pq.WriteFile(path, rows))

	loc, err := ParseLocation(path)
	require.NoError(t, err)
	frame, err := Load(context.Background(), loc)
	require.NoError(t, err)
	require.Equal(t, 2, frame.Len())

	kinds := map[string]engine.Kind{}
	for _, c := range frame.Columns() {
		kinds[c.Name] = c.Kind
	}
	assert.Equal(t, engine.KindDimension, kinds["order_id"])
	assert.Equal(t, engine.KindDate, kinds["order_date"], "date strings promoted")
	assert.Equal(t, engine.KindDate, kinds["shipped"])
	assert.Equal(t, engine.KindMeasure, kinds["quantity_x"])
	assert.Equal(t, engine.KindDimension, kinds["is_member"])

	assert.Equal(t, "1001", frame.Dimension(0, "order_id"))
	assert.Equal(t, 120.5, frame.Measure(0, "total_price"))
	assert.Equal(t, time.Date(2021, 2, 11, 0, 0, 0, 0, time.UTC), frame.Date(1, "order_date"))
	assert.Equal(t, time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC), frame.Date(0, "shipped"))
	assert.Equal(t, "false", frame.Dimension(1, "is_member"))

	s, err := schema.Detect(frame)
	require.NoError(t, err)
	assert.Equal(t, engine.ProfileOrders, s.Profile)
}

// ─── S3 ─────────────────────────────────────────────────────

type fakeS3 struct {
	objects map[string]string
	calls   int
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.calls++
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestLoad_S3(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"lake/rentals.csv": rentalsCSV}}
	loader := NewLoader(WithS3Client(client))

	loc, err := ParseLocation("s3://lake/rentals.csv")
	require.NoError(t, err)
	frame, err := loader.Load(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())

	loc, err = ParseLocation("s3://lake/missing.csv")
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), loc)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ─── Cache ──────────────────────────────────────────────────

func TestCache(t *testing.T) {
	ctx := context.Background()
	loc := writeFile(t, "rentals.csv", rentalsCSV)
	cache := NewCache(nil)

	first, err := cache.Get(ctx, loc)
	require.NoError(t, err)
	again, err := cache.Get(ctx, loc)
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.NoError(t, os.WriteFile(loc.Path, []byte(rentalsCSV+"5,2011-01-05,0.22,0.50,0.10,1600\n"), 0o644))
	stale, err := cache.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, 3, stale.Len(), "no implicit reload")

	fresh, err := cache.Reload(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Len())

	cache.Invalidate(loc)
	assert.Equal(t, 0, cache.Len())
	reloaded, err := cache.Get(ctx, loc)
	require.NoError(t, err)
	assert.NotSame(t, fresh, reloaded)
}

func TestCache_FailuresNotCached(t *testing.T) {
	client := &fakeS3{objects: map[string]string{}}
	cache := NewCache(NewLoader(WithS3Client(client)))
	loc, err := ParseLocation("s3://lake/rentals.csv")
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), loc)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, cache.Len())

	client.objects["lake/rentals.csv"] = rentalsCSV
	frame, err := cache.Get(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, 2, client.calls)
}

func TestCache_ConcurrentGet(t *testing.T) {
	loc := writeFile(t, "rentals.csv", rentalsCSV)
	cache := NewCache(nil)

	var wg sync.WaitGroup
	frames := make([]*engine.Frame, 8)
	for i := range frames {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := cache.Get(context.Background(), loc)
			assert.NoError(t, err)
			frames[i] = f
		}(i)
	}
	wg.Wait()

	final, err := cache.Get(context.Background(), loc)
	require.NoError(t, err)
	for _, f := range frames {
		require.NotNil(t, f)
		assert.Equal(t, final.Len(), f.Len())
	}
}

// ─── Watch ──────────────────────────────────────────────────

func TestWatch_ReloadsOnWrite(t *testing.T) {
	defer func(d time.Duration) { watchDebounce = d }(watchDebounce)
	watchDebounce = 20 * time.Millisecond

	loc := writeFile(t, "rentals.csv", rentalsCSV)
	cache := NewCache(nil)
	frame, err := cache.Get(context.Background(), loc)
	require.NoError(t, err)
	require.Equal(t, 3, frame.Len())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, cache, loc) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(loc.Path, []byte(rentalsCSV+"5,2011-01-05,0.22,0.50,0.10,1600\n"), 0o644))

	assert.Eventually(t, func() bool {
		f, err := cache.Get(context.Background(), loc)
		return err == nil && f.Len() == 4
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_RejectsS3(t *testing.T) {
	loc, err := ParseLocation("s3://lake/rentals.csv")
	require.NoError(t, err)
	assert.Error(t, Watch(context.Background(), NewCache(nil), loc))
}
