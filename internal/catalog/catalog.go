// Package catalog holds the static product and plan offering. Prices are in
// FCFA and match the published rates; they change rarely enough that a code
// deploy is an acceptable update path.
package catalog

import "github.com/ecoh2o/portal/internal/domain"

// Product is a water product available for one-off orders.
type Product struct {
	ID    string
	Name  string
	Price int
}

// Plan is a recurring waste-collection plan.
type Plan struct {
	Name      string
	Frequency string
	Price     int
}

var products = []Product{
	{ID: "bidon-20l", Name: "Bidon 20L", Price: 1500},
	{ID: "bidon-10l", Name: "Bidon 10L", Price: 800},
	{ID: "pack-6", Name: "Pack 6 bouteilles 1.5L", Price: 2000},
	{ID: "citerne-1000l", Name: "Citerne 1000L", Price: 25000},
	{ID: "citerne-5000l", Name: "Citerne 5000L", Price: 100000},
}

var plans = []Plan{
	{Name: "Hebdomadaire", Frequency: "/mois", Price: 8000},
	{Name: "Bi-hebdomadaire", Frequency: "/mois", Price: 15000},
	{Name: "Premium", Frequency: "/mois", Price: 25000},
}

// Products returns all water products.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// Plans returns all waste-collection plans.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

// ProductByID looks up a water product, returning domain.ErrNotFound for
// unknown ids.
func ProductByID(id string) (Product, error) {
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, domain.ErrNotFound
}

// PlanByName looks up a waste plan, returning domain.ErrNotFound for unknown
// names.
func PlanByName(name string) (Plan, error) {
	for _, p := range plans {
		if p.Name == name {
			return p, nil
		}
	}
	return Plan{}, domain.ErrNotFound
}

// Total computes the order total for a product and quantity.
func Total(p Product, quantity int) int {
	return p.Price * quantity
}
