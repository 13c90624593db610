package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/TimurManjosov/goconfigurator/internal/rules"
	"github.com/cespare/xxhash/v2"
)

// SupportedVersions is the range of catalog document versions this build reads.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

// ReservedKeyPrefix marks keys reserved for internal selection markers.
const ReservedKeyPrefix = "__"

var (
	ErrInvalidCatalog     = errors.New("invalid catalog")
	ErrUnsupportedVersion = errors.New("unsupported catalog version")
)

var supportedVersions = mustConstraint(SupportedVersions)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Snapshot is an immutable, validated catalog. It is safe for concurrent use.
type Snapshot struct {
	Version  string
	ETag     string
	LoadedAt time.Time

	products []Product
	byID     map[string]int
	bySlug   map[string]int
	groups   []OptionGroup
	options  []Option
	rules    *rules.Set
}

// NewSnapshot validates doc and builds a snapshot from it.
//
// Validation covers the document version, unique keys, references from options
// to groups and sub-sections, non-negative prices and rates, and rule
// compilation. The first problem found is returned wrapped in ErrInvalidCatalog
// (or ErrUnsupportedVersion).
func NewSnapshot(doc Document) (*Snapshot, error) {
	if err := checkVersion(doc.Version); err != nil {
		return nil, err
	}

	s := &Snapshot{
		Version:  doc.Version,
		LoadedAt: time.Now().UTC(),
		byID:     make(map[string]int, len(doc.Products)),
		bySlug:   make(map[string]int, len(doc.Products)),
	}

	for i, p := range doc.Products {
		if err := validateProduct(i, p); err != nil {
			return nil, err
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %q", ErrInvalidCatalog, p.ID)
		}
		if p.Slug != "" {
			if _, dup := s.bySlug[p.Slug]; dup {
				return nil, fmt.Errorf("%w: duplicate product slug %q", ErrInvalidCatalog, p.Slug)
			}
			s.bySlug[p.Slug] = len(s.products)
		}
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}

	groups := make(map[string]OptionGroup, len(doc.Groups))
	for i, g := range doc.Groups {
		g.Kind = NormalizeKind(g.Kind)
		if err := validateGroup(i, g); err != nil {
			return nil, err
		}
		if _, dup := groups[g.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate group key %q", ErrInvalidCatalog, g.Key)
		}
		groups[g.Key] = g
		s.groups = append(s.groups, g)
	}

	seen := make(map[string]struct{}, len(doc.Options))
	for i, o := range doc.Options {
		if err := validateOption(i, o, groups); err != nil {
			return nil, err
		}
		if _, dup := seen[o.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate option key %q", ErrInvalidCatalog, o.Key)
		}
		seen[o.Key] = struct{}{}
		s.options = append(s.options, o)
	}

	set, err := rules.Compile(doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	s.rules = set
	s.groups = NewIndex(s.groups, nil).Groups()

	etag, err := fingerprint(doc)
	if err != nil {
		return nil, err
	}
	s.ETag = etag
	return s, nil
}

func checkVersion(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: version is required", ErrUnsupportedVersion)
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnsupportedVersion, v, err)
	}
	if !supportedVersions.Check(ver) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, ver, SupportedVersions)
	}
	return nil
}

func validateProduct(i int, p Product) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: product[%d]: id is required", ErrInvalidCatalog, i)
	case p.Type == "":
		return fmt.Errorf("%w: product %q: type is required", ErrInvalidCatalog, p.ID)
	case p.BasePrice.IsNegative():
		return fmt.Errorf("%w: product %q: base price must not be negative", ErrInvalidCatalog, p.ID)
	case p.TaxRate.IsNegative():
		return fmt.Errorf("%w: product %q: tax rate must not be negative", ErrInvalidCatalog, p.ID)
	}
	return nil
}

func validateGroup(i int, g OptionGroup) error {
	if g.Key == "" {
		return fmt.Errorf("%w: group[%d]: key is required", ErrInvalidCatalog, i)
	}
	if !g.Kind.Valid() {
		return fmt.Errorf("%w: group %q: unknown kind %q", ErrInvalidCatalog, g.Key, g.Kind)
	}
	if err := validateBounds(g.Min, g.Max); err != nil {
		return fmt.Errorf("%w: group %q: %v", ErrInvalidCatalog, g.Key, err)
	}
	subs := make(map[string]struct{}, len(g.SubSections))
	for _, sub := range g.SubSections {
		if sub.Key == "" {
			return fmt.Errorf("%w: group %q: sub-section key is required", ErrInvalidCatalog, g.Key)
		}
		if _, dup := subs[sub.Key]; dup {
			return fmt.Errorf("%w: group %q: duplicate sub-section %q", ErrInvalidCatalog, g.Key, sub.Key)
		}
		subs[sub.Key] = struct{}{}
		if err := validateBounds(sub.Min, sub.Max); err != nil {
			return fmt.Errorf("%w: group %q sub-section %q: %v", ErrInvalidCatalog, g.Key, sub.Key, err)
		}
	}
	return nil
}

func validateBounds(lo, hi *int) error {
	if lo != nil && *lo < 0 {
		return fmt.Errorf("min must not be negative")
	}
	if hi != nil && *hi < 0 {
		return fmt.Errorf("max must not be negative")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("min %d exceeds max %d", *lo, *hi)
	}
	return nil
}

func validateOption(i int, o Option, groups map[string]OptionGroup) error {
	if o.Key == "" {
		return fmt.Errorf("%w: option[%d]: key is required", ErrInvalidCatalog, i)
	}
	if strings.HasPrefix(o.Key, ReservedKeyPrefix) {
		return fmt.Errorf("%w: option %q: keys starting with %q are reserved", ErrInvalidCatalog, o.Key, ReservedKeyPrefix)
	}
	g, ok := groups[o.GroupKey]
	if !ok {
		return fmt.Errorf("%w: option %q: unknown group %q", ErrInvalidCatalog, o.Key, o.GroupKey)
	}
	if o.SubKey != "" {
		if _, ok := g.SubSection(o.SubKey); !ok {
			return fmt.Errorf("%w: option %q: unknown sub-section %q in group %q", ErrInvalidCatalog, o.Key, o.SubKey, g.Key)
		}
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: option %q: price must not be negative", ErrInvalidCatalog, o.Key)
	}
	if o.TaxRate != nil && o.TaxRate.IsNegative() {
		return fmt.Errorf("%w: option %q: tax rate must not be negative", ErrInvalidCatalog, o.Key)
	}
	if q := o.Quantity; q != nil {
		if g.Kind != KindMulti {
			return fmt.Errorf("%w: option %q: quantity rules need a MULTI group", ErrInvalidCatalog, o.Key)
		}
		if q.Min < 0 || q.Max < 0 || q.Step < 0 {
			return fmt.Errorf("%w: option %q: quantity bounds must not be negative", ErrInvalidCatalog, o.Key)
		}
		if q.Max != 0 && q.Min > q.Max {
			return fmt.Errorf("%w: option %q: quantity min %d exceeds max %d", ErrInvalidCatalog, o.Key, q.Min, q.Max)
		}
	}
	return nil
}

// fingerprint hashes the canonical JSON form of doc into a weak ETag.
func fingerprint(doc Document) (string, error) {
	blob, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint catalog: %w", err)
	}
	return fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(blob)), nil
}

// Product looks a product up by id, then by slug.
func (s *Snapshot) Product(idOrSlug string) (Product, bool) {
	if i, ok := s.byID[idOrSlug]; ok {
		return s.products[i], true
	}
	if i, ok := s.bySlug[idOrSlug]; ok {
		return s.products[i], true
	}
	return Product{}, false
}

// Products returns all products in document order.
func (s *Snapshot) Products() []Product { return s.products }

// Groups returns all option groups in display order.
func (s *Snapshot) Groups() []OptionGroup { return s.groups }

// Options returns all options, active or not, in document order.
func (s *Snapshot) Options() []Option { return s.options }

// Rules returns the compiled active rules.
func (s *Snapshot) Rules() *rules.Set { return s.rules }
