// Package applicability narrows catalog options and groups to those that
// apply to a given product.
package applicability

import (
	"slices"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
)

// Filter returns the options eligible for product, in input order.
//
// An option is eligible when it is active and its applicability, if any, is
// satisfied: a non-empty product-type list must contain the product's type, and
// a non-empty model-key list must contain the product's slug, id or model_key
// attribute. Both lists must hold when both are set.
func Filter(options []catalog.Option, product catalog.Product) []catalog.Option {
	out := make([]catalog.Option, 0, len(options))
	for _, o := range options {
		if Applies(o, product) {
			out = append(out, o)
		}
	}
	return out
}

// Applies reports whether a single option is eligible for product.
func Applies(o catalog.Option, product catalog.Product) bool {
	if !o.Active {
		return false
	}
	a := o.Applicability
	if a == nil {
		return true
	}
	if len(a.ProductTypes) > 0 && !slices.Contains(a.ProductTypes, product.Type) {
		return false
	}
	if len(a.ModelKeys) > 0 && !matchesModel(a.ModelKeys, product) {
		return false
	}
	return true
}

func matchesModel(keys []string, product catalog.Product) bool {
	for _, candidate := range []string{product.Slug, product.ID, product.ModelKey()} {
		if candidate != "" && slices.Contains(keys, candidate) {
			return true
		}
	}
	return false
}

// Groups returns the groups offered for product: those without a product-type
// restriction and those listing the product's type.
func Groups(groups []catalog.OptionGroup, product catalog.Product) []catalog.OptionGroup {
	out := make([]catalog.OptionGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.ProductTypes) == 0 || slices.Contains(g.ProductTypes, product.Type) {
			out = append(out, g)
		}
	}
	return out
}
