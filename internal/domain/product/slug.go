package product

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/gosimple/slug"
)

// fallbackSlug is used when a title has no sluggable characters.
const fallbackSlug = "product"

// Slugify converts s into a lower-case, URL-safe slug.
func Slugify(s string) string {
	v := slug.Make(s)
	if v == "" {
		return fallbackSlug
	}
	return v
}

// SlugChecker reports whether a slug is already in use.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// UniqueSlug derives a slug from title that is not used by any product.
// Collisions are resolved by appending -1, -2, ... to the base slug.
func UniqueSlug(ctx context.Context, checker SlugChecker, title string) (string, error) {
	base := Slugify(title)
	candidate := base
	for n := 1; ; n++ {
		exists, err := checker.SlugExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrapf(err, "check slug %q", candidate)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}
