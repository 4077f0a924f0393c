package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/app"
	"github.com/xenking/furniture-store/internal/domain/auth"
	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/product"
)

//go:embed seed/products.json
var defaultProducts []byte

type productJSON struct {
	Title            string          `json:"title"`
	Slug             string          `json:"slug"`
	Description      string          `json:"description"`
	Brand            string          `json:"brand"`
	Price            decimal.Decimal `json:"price"`
	Category         string          `json:"category"`
	Images           []string        `json:"images"`
	Material         string          `json:"material"`
	Style            string          `json:"style"`
	Colors           []string        `json:"colors"`
	AssemblyRequired bool            `json:"assemblyRequired"`
	Stock            int             `json:"stock"`
	Tags             []string        `json:"tags"`
	Rating           float64         `json:"rating"`
}

type options struct {
	storage      app.StorageConfig
	productsFile string
	apiKey       string
	apiKeyPepper string
	jwtSecret    string
	tokenUser    string
	tokenRole    string
	tokenTTL     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.storage.Driver, "driver", app.DriverPostgres, "storage driver: postgres or mongo")
	flag.StringVar(&opts.storage.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.storage.MongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGO_URI env)")
	flag.StringVar(&opts.storage.MongoDatabase, "mongo-database", "storefront", "MongoDB database name")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to products JSON file (defaults to the built-in catalog)")
	flag.StringVar(&opts.apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_AUTH_API_KEY_PEPPER env)")
	flag.StringVar(&opts.jwtSecret, "jwt-secret", "", "secret for minting a customer token (or SHOP_AUTH_JWT_SECRET env)")
	flag.StringVar(&opts.tokenUser, "token-user", "", "mint an access token for this user id and print it")
	flag.StringVar(&opts.tokenRole, "token-role", auth.RoleCustomer, "role of the minted token")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the minted token")
	flag.Parse()

	opts.storage.DatabaseURL = firstNonEmpty(opts.storage.DatabaseURL, os.Getenv("DATABASE_URL"))
	opts.storage.MongoURI = firstNonEmpty(opts.storage.MongoURI, os.Getenv("MONGO_URI"))
	opts.apiKey = firstNonEmpty(opts.apiKey, os.Getenv("SHOP_SEED_API_KEY"))
	opts.apiKeyPepper = firstNonEmpty(opts.apiKeyPepper, os.Getenv("SHOP_AUTH_API_KEY_PEPPER"))
	opts.jwtSecret = firstNonEmpty(opts.jwtSecret, os.Getenv("SHOP_AUTH_JWT_SECRET"))

	if err := opts.validate(); err != nil {
		slog.Error("invalid options", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (o *options) validate() error {
	switch o.storage.Driver {
	case app.DriverPostgres:
		if o.storage.DatabaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
	case app.DriverMongo:
		if o.storage.MongoURI == "" {
			return errors.New("mongo URI is required: set --mongo-uri or MONGO_URI")
		}
	default:
		return errors.Errorf("driver %q cannot be seeded", o.storage.Driver)
	}
	if o.apiKey == "" {
		return errors.New("API key is required: set --api-key or SHOP_SEED_API_KEY")
	}
	if o.tokenUser != "" && o.jwtSecret == "" {
		return errors.New("JWT secret is required to mint a token")
	}
	return nil
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to storage", slog.String("driver", opts.storage.Driver))

	store, err := app.OpenStorage(ctx, opts.storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() { _ = store.Close(context.WithoutCancel(ctx)) }()

	data := defaultProducts
	if opts.productsFile != "" {
		if data, err = os.ReadFile(opts.productsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}

	if err := seedProducts(ctx, product.NewCatalog(store.Products), data); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, coupon.NewService(store.Coupons), time.Now()); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, store.APIKeys, opts.apiKey, opts.apiKeyPepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	if opts.tokenUser != "" {
		token, err := auth.NewTokens([]byte(opts.jwtSecret)).Issue(opts.tokenUser, opts.tokenRole, opts.tokenTTL)
		if err != nil {
			return errors.Wrap(err, "mint token")
		}
		slog.Info("minted access token", slog.String("user", opts.tokenUser), slog.String("role", opts.tokenRole))
		fmt.Println(token)
	}
	return nil
}

// seedProducts creates every product whose slug is not yet taken. Entries
// without a slug are keyed by their title so reruns stay idempotent.
func seedProducts(ctx context.Context, catalog *product.Catalog, data []byte) error {
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("seeding products", slog.Int("count", len(products)))

	var created int
	for _, p := range products {
		slug := p.Slug
		if slug == "" {
			slug = p.Title
		}

		np, err := catalog.Create(ctx, product.Draft{
			Title:            p.Title,
			Slug:             slug,
			Description:      p.Description,
			Brand:            p.Brand,
			Price:            p.Price,
			CategoryID:       p.Category,
			Images:           p.Images,
			Material:         p.Material,
			Style:            p.Style,
			Colors:           p.Colors,
			AssemblyRequired: p.AssemblyRequired,
			Stock:            p.Stock,
			Tags:             p.Tags,
			Rating:           p.Rating,
		})
		if errors.Is(err, product.ErrSlugTaken) {
			slog.Info("product exists, skipping", slog.String("slug", product.Slugify(slug)))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create product %q", p.Title)
		}
		created++
		slog.Info("created product", slog.String("id", np.ID), slog.String("slug", np.Slug))
	}

	slog.Info("products seeded", slog.Int("created", created), slog.Int("skipped", len(products)-created))
	return nil
}

func seedCoupons(ctx context.Context, svc *coupon.Service, now time.Time) error {
	expiry := now.AddDate(1, 0, 0)
	drafts := []coupon.Draft{
		{
			Code:          "WELCOME10",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(150)),
			ExpiryDate:    expiry,
		},
		{
			Code:          "FLAT100",
			DiscountType:  coupon.DiscountFlat,
			DiscountValue: decimal.NewFromInt(100),
			MinPurchase:   decimal.NewFromInt(1000),
			ExpiryDate:    expiry,
			MaxUsage:      500,
		},
	}

	for _, d := range drafts {
		c, err := svc.Create(ctx, d)
		if errors.Is(err, coupon.ErrCodeTaken) {
			slog.Info("coupon exists, skipping", slog.String("code", d.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create coupon %s", d.Code)
		}
		slog.Info("created coupon", slog.String("code", c.Code), slog.String("type", string(c.DiscountType)))
	}
	return nil
}

func seedAPIKey(ctx context.Context, store auth.Store, apiKey, pepper string) error {
	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashAPIKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := store.SaveAPIKey(ctx, info); err != nil {
		return errors.Wrap(err, "save default API key")
	}

	slog.Info("saved API key", slog.String("id", info.ID), slog.String("name", info.Name))
	return nil
}
