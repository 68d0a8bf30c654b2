// Package cleaner normalizes column names and fills missing values for each
// source entity. It is a pure transform: row counts never change and the
// input frames are not modified.
package cleaner

import (
	"fmt"
	"sort"

	"dmart/internal/etlerr"
	"dmart/internal/frame"
	"dmart/internal/loader"
	"dmart/internal/transformer"
	"dmart/internal/transformer/builtin"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("cleaner")

// Source column names mapped to their canonical names, per entity.
var (
	ProductRenames = map[string]string{
		"Product ID":   "product_id",
		"Sub-Category": "sub_category",
		"Product Name": "product_name",
	}
	SalesRenames = map[string]string{
		"Order Line":  "order_line",
		"Order ID":    "order_id",
		"Order Date":  "order_date",
		"Ship Date":   "ship_date",
		"Ship Mode":   "ship_mode",
		"Customer ID": "customer_id",
		"Product ID":  "product_id",
	}
	CustomerRenames = map[string]string{
		"Customer ID":   "customer_id",
		"Customer Name": "customer_name",
		"Postal Code":   "postal_code",
	}
)

// Fill values.
const (
	UnknownProduct = "Unknown"
	MissingAge     = 0
)

// Options tunes the cleaner.
type Options struct {
	// StrictFill reports a fill value that does not fit its column instead of
	// skipping it.
	StrictFill bool
}

// Cleaner holds the per-entity transform chains.
type Cleaner struct {
	product  transformer.Chain
	sales    transformer.Chain
	customer transformer.Chain
}

// New builds a Cleaner.
func New(opt Options) *Cleaner {
	return &Cleaner{
		product: transformer.Chain{
			builtin.Rename{Mapping: ProductRenames},
			builtin.FillString{Value: UnknownProduct},
			verifyRenamed(ProductRenames),
		},
		sales: transformer.Chain{
			builtin.Rename{Mapping: SalesRenames},
			builtin.FillNumeric{Value: 0},
			verifyRenamed(SalesRenames),
		},
		customer: transformer.Chain{
			builtin.Rename{Mapping: CustomerRenames},
			builtin.FillColumns{Values: map[string]any{"Age": MissingAge}, Strict: opt.StrictFill},
			verifyRenamed(CustomerRenames),
		},
	}
}

// Product cleans the product dataset.
func (c *Cleaner) Product(in *frame.Frame) (*frame.Frame, error) { return c.apply(c.product, in) }

// Sales cleans the sales dataset.
func (c *Cleaner) Sales(in *frame.Frame) (*frame.Frame, error) { return c.apply(c.sales, in) }

// Customer cleans the customer dataset.
func (c *Cleaner) Customer(in *frame.Frame) (*frame.Frame, error) { return c.apply(c.customer, in) }

// Clean cleans all three datasets.
func (c *Cleaner) Clean(ds loader.Datasets) (loader.Datasets, error) {
	var (
		out loader.Datasets
		err error
	)
	if out.Products, err = c.Product(ds.Products); err != nil {
		return loader.Datasets{}, err
	}
	if out.Sales, err = c.Sales(ds.Sales); err != nil {
		return loader.Datasets{}, err
	}
	if out.Customers, err = c.Customer(ds.Customers); err != nil {
		return loader.Datasets{}, err
	}
	return out, nil
}

func (c *Cleaner) apply(chain transformer.Chain, in *frame.Frame) (*frame.Frame, error) {
	if in == nil {
		return nil, fmt.Errorf("cleaner: nil frame")
	}
	out, err := chain.Apply(in)
	if err != nil {
		return nil, err
	}
	if out.Len() != in.Len() {
		return nil, fmt.Errorf("cleaner: entity=%s row count changed %d -> %d", in.Name(), in.Len(), out.Len())
	}
	log.Infof("cleaner: entity=%s rows=%d columns=%v", out.Name(), out.Len(), out.Names())
	return out, nil
}

// verifyRenamed fails when a source name from mapping is still present.
func verifyRenamed(mapping map[string]string) transformer.Transformer {
	sources := make([]string, 0, len(mapping))
	for from := range mapping {
		sources = append(sources, from)
	}
	sort.Strings(sources)
	return transformer.Func(func(in *frame.Frame) (*frame.Frame, error) {
		for _, from := range sources {
			if in.Has(from) {
				return nil, &etlerr.SchemaError{
					Stage:   etlerr.StageClean,
					Entity:  in.Name(),
					Column:  from,
					Message: "source column survived renaming",
				}
			}
		}
		return in, nil
	})
}
