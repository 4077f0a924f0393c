package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/furniture-store/internal/app"
	"github.com/xenking/furniture-store/internal/domain/coupon"
)

const (
	defaultExpected = 1_000_000
	defaultFPR      = 0.001
	progressEvery   = 10_000
)

type options struct {
	storage  app.StorageConfig
	expected uint
	fpr      float64
	dryRun   bool
	files    []string
}

// stats counts import outcomes. Fields are updated from several goroutines.
type stats struct {
	read      atomic.Int64
	invalid   atomic.Int64
	created   atomic.Int64
	duplicate atomic.Int64
	existing  atomic.Int64
	rejected  atomic.Int64
}

func main() {
	var opts options
	flag.StringVar(&opts.storage.Driver, "driver", app.DriverPostgres, "storage driver: postgres or mongo")
	flag.StringVar(&opts.storage.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.storage.MongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGO_URI env)")
	flag.StringVar(&opts.storage.MongoDatabase, "mongo-database", "storefront", "MongoDB database name")
	flag.UintVar(&opts.expected, "expected", defaultExpected, "expected number of distinct codes, sizes the dedup filter")
	flag.Float64Var(&opts.fpr, "fpr", defaultFPR, "dedup filter false positive rate")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "import into an in-memory store instead")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: coupon-import [flags] FILE.csv[.gz]...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.files = flag.Args()

	if opts.storage.DatabaseURL == "" {
		opts.storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.storage.MongoURI == "" {
		opts.storage.MongoURI = os.Getenv("MONGO_URI")
	}
	if len(opts.files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, opts options) error {
	for _, f := range opts.files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	switch {
	case opts.dryRun:
		opts.storage = app.StorageConfig{Driver: app.DriverMemory}
	case opts.storage.Driver == app.DriverPostgres && opts.storage.DatabaseURL == "":
		return errors.New("database URL is required: set --database-url or DATABASE_URL")
	case opts.storage.Driver == app.DriverMongo && opts.storage.MongoURI == "":
		return errors.New("mongo URI is required: set --mongo-uri or MONGO_URI")
	}

	slog.Info("connecting to storage", slog.String("driver", opts.storage.Driver))
	store, err := app.OpenStorage(ctx, opts.storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() { _ = store.Close(context.WithoutCancel(ctx)) }()

	imp := newImporter(store.Coupons, opts.expected, opts.fpr)
	if err := imp.importFiles(ctx, opts.files); err != nil {
		return err
	}

	s := &imp.stats
	slog.Info("import summary",
		slog.Int64("read", s.read.Load()),
		slog.Int64("invalid", s.invalid.Load()),
		slog.Int64("created", s.created.Load()),
		slog.Int64("duplicate", s.duplicate.Load()),
		slog.Int64("existing", s.existing.Load()),
		slog.Int64("rejected", s.rejected.Load()),
	)
	return nil
}

// importer parses files concurrently and writes drafts from a single
// goroutine, so the dedup filter needs no locking.
type importer struct {
	repo   coupon.Repository
	svc    *coupon.Service
	filter *bloom.BloomFilter
	stats  stats
}

func newImporter(repo coupon.Repository, expected uint, fpr float64) *importer {
	return &importer{
		repo:   repo,
		svc:    coupon.NewService(repo),
		filter: bloom.NewWithEstimates(expected, fpr),
	}
}

func (imp *importer) importFiles(ctx context.Context, files []string) error {
	drafts := make(chan coupon.Draft, 1024)

	g, gctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(gctx)
	for _, f := range files {
		readers.Go(func() error {
			return imp.readFile(rctx, f, drafts)
		})
	}

	g.Go(func() error {
		defer close(drafts)
		return readers.Wait()
	})
	g.Go(func() error {
		for d := range drafts {
			if err := imp.write(gctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

func (imp *importer) readFile(ctx context.Context, path string, out chan<- coupon.Draft) error {
	rc, err := openInput(path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	var count int64
	err = streamDrafts(ctx, rc, func(d coupon.Draft) error {
		count++
		if n := imp.stats.read.Add(1); n%progressEvery == 0 {
			slog.Info("import progress", slog.Int64("rows", n))
		}
		select {
		case out <- d:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, func(err error) {
		imp.stats.invalid.Add(1)
		slog.Warn("skipping row", slog.String("file", path), slog.String("error", err.Error()))
	})
	if err != nil {
		return errors.Wrapf(err, "import %s", path)
	}

	slog.Info("file parsed", slog.String("file", path), slog.Int64("rows", count))
	return nil
}

// write creates d unless its code was already imported. A filter miss means
// the code is new to this run; a hit is confirmed against the store.
func (imp *importer) write(ctx context.Context, d coupon.Draft) error {
	code := coupon.NormalizeCode(d.Code)
	if imp.filter.TestOrAddString(code) {
		_, err := imp.repo.FindByCode(ctx, code)
		switch {
		case err == nil:
			imp.stats.duplicate.Add(1)
			return nil
		case !errors.Is(err, coupon.ErrNotFound):
			return errors.Wrapf(err, "find coupon %s", code)
		}
	}

	_, err := imp.svc.Create(ctx, d)
	var verr *coupon.ValidationError
	switch {
	case err == nil:
		imp.stats.created.Add(1)
	case errors.Is(err, coupon.ErrCodeTaken):
		imp.stats.existing.Add(1)
	case errors.As(err, &verr):
		imp.stats.rejected.Add(1)
		slog.Warn("rejected coupon", slog.String("code", code), slog.String("error", err.Error()))
	default:
		return errors.Wrapf(err, "create coupon %s", code)
	}
	return nil
}
