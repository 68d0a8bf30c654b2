// Package analysis defines the fixed catalogue of aggregation queries run over
// the enriched sales dataset, the aggregate functions they use and the Report
// values they produce. Execution lives in the engine packages; this package
// owns the semantics every engine must agree on:
//
//   - count(col) counts non-null values; sum and avg ignore nulls; sum or avg
//     over zero non-null values is null.
//   - A null grouping key forms its own group.
//   - Full-table reports are ordered by key ascending with nulls first.
//   - Top-1 picks the highest value, then the smallest key, nulls last.
package analysis

import (
	"fmt"

	"dmart/internal/etlerr"
	"dmart/internal/frame"
)

// Func is an aggregate function.
type Func string

const (
	Sum           Func = "sum"
	Count         Func = "count"
	Avg           Func = "avg"
	CountDistinct Func = "count_distinct"
)

// Selection says which rows of the grouped result a report keeps.
type Selection int

const (
	// Table keeps every group.
	Table Selection = iota
	// Top keeps the group with the highest value.
	Top
	// Scalar aggregates the whole dataset into one row.
	Scalar
)

func (s Selection) String() string {
	switch s {
	case Top:
		return "top"
	case Scalar:
		return "scalar"
	default:
		return "table"
	}
}

// Query is one aggregation over full_data.
type Query struct {
	Number int
	Name   string
	// Title is the heading printed above the report.
	Title string
	// Summary prefixes the one-line rendering of a Top report.
	Summary string
	// GroupBy is empty for Scalar queries.
	GroupBy string
	Func    Func
	Column  string
	Alias   string
	Select  Selection
}

// Columns returns the report column names.
func (q Query) Columns() []string {
	if q.Select == Scalar {
		return []string{q.Alias}
	}
	return []string{q.GroupBy, q.Alias}
}

// ValueKind returns the kind of the aggregate given the input column kind.
func (q Query) ValueKind(in frame.Kind) frame.Kind {
	switch q.Func {
	case Sum:
		if in == frame.Int {
			return frame.Int
		}
		return frame.Float
	case Avg:
		return frame.Float
	default:
		return frame.Int
	}
}

// Options tunes the catalogue.
type Options struct {
	// DistinctProducts makes products_by_region count distinct product ids.
	DistinctProducts bool
}

// Catalogue returns the ten queries in report order.
func Catalogue(opt Options) []Query {
	regionFunc := Count
	if opt.DistinctProducts {
		regionFunc = CountDistinct
	}
	return []Query{
		{Number: 1, Name: "total_sales_by_category", Title: "Total sales for each product category",
			GroupBy: "sub_category", Func: Sum, Column: "Sales", Alias: "total_sales", Select: Table},
		{Number: 2, Name: "top_customer_by_purchases", Title: "Customer with the highest number of purchases",
			Summary: "Customer with highest purchases",
			GroupBy: "customer_id", Func: Count, Column: "order_id", Alias: "purchase_count", Select: Top},
		{Number: 3, Name: "average_discount", Title: "Average discount given on sales across all products",
			Func: Avg, Column: "Discount", Alias: "average_discount", Select: Scalar},
		{Number: 4, Name: "products_by_region", Title: "Unique products sold in each region",
			GroupBy: "Region", Func: regionFunc, Column: "product_id", Alias: "unique_products", Select: Table},
		{Number: 5, Name: "total_profit_by_state", Title: "Total profit generated in each state",
			GroupBy: "State", Func: Sum, Column: "Profit", Alias: "total_profit", Select: Table},
		{Number: 6, Name: "top_category_by_sales", Title: "Product sub-category with the highest sales",
			Summary: "Sub-category with highest sales",
			GroupBy: "sub_category", Func: Sum, Column: "Sales", Alias: "total_sales", Select: Top},
		{Number: 7, Name: "average_age_by_segment", Title: "Average age of customers in each segment",
			GroupBy: "Segment", Func: Avg, Column: "Age", Alias: "average_age", Select: Table},
		{Number: 8, Name: "orders_by_ship_mode", Title: "Orders shipped in each shipping mode",
			GroupBy: "ship_mode", Func: Count, Column: "order_id", Alias: "total_orders", Select: Table},
		{Number: 9, Name: "quantity_by_city", Title: "Total quantity of products sold in each city",
			GroupBy: "City", Func: Sum, Column: "Quantity", Alias: "total_quantity", Select: Table},
		{Number: 10, Name: "top_segment_by_profit", Title: "Customer segment with the highest profit margin",
			Summary: "Customer segment with highest profit margin",
			GroupBy: "Segment", Func: Sum, Column: "Profit", Alias: "total_profit", Select: Top},
	}
}

// Validate checks that every column the queries read exists in full and that
// sum/avg read numeric columns. It runs before any query so a schema problem
// never yields a partial set of reports.
func Validate(full *frame.Frame, queries []Query) error {
	for _, q := range queries {
		if q.Select != Scalar {
			if !full.Has(q.GroupBy) {
				return missing(full, q, q.GroupBy)
			}
		}
		c, ok := full.Column(q.Column)
		if !ok {
			return missing(full, q, q.Column)
		}
		if (q.Func == Sum || q.Func == Avg) && !c.Kind.Numeric() && hasValues(full, q.Column) {
			return &etlerr.SchemaError{
				Stage:   etlerr.StageAnalyze,
				Entity:  full.Name(),
				Column:  q.Column,
				Message: fmt.Sprintf("query %d (%s) needs a numeric column, got %s", q.Number, q.Name, c.Kind),
			}
		}
	}
	return nil
}

func missing(full *frame.Frame, q Query, col string) error {
	return &etlerr.SchemaError{
		Stage:   etlerr.StageAnalyze,
		Entity:  full.Name(),
		Column:  col,
		Message: fmt.Sprintf("column not found (query %d %s)", q.Number, q.Name),
	}
}

func hasValues(f *frame.Frame, col string) bool {
	j, _ := f.Index(col)
	for i := 0; i < f.Len(); i++ {
		if f.Value(i, j) != nil {
			return true
		}
	}
	return false
}
