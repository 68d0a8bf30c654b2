package loader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dmart/internal/datasource"
	"dmart/internal/datasource/httpds"
	"dmart/internal/etlerr"
	pcsv "dmart/internal/parser/csv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	productCSV  = "Product ID,Sub-Category,Product Name\nP1,Chairs,Chair A\n"
	salesCSV    = "Order ID,Order Line,Customer ID,Product ID,Sales,Quantity,Discount,Profit,Region\nO1,1,C1,P1,100,2,0.1,20,West\n"
	customerCSV = "Customer ID,Customer Name,Segment,Age,Postal Code\nC1,Ann,Consumer,30,04240\n"
)

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newTestLoader(dir string) *Loader {
	p := pcsv.NewParser(pcsv.Options{TrimSpace: true, StringColumns: []string{"Product ID", "Customer ID", "Order ID", "Postal Code"}})
	return New(Resolve(dir, "Product.csv", "Sales.csv", "Customer.csv"), p)
}

func TestLoad_ReadsAllThree(t *testing.T) {
	t.Parallel()

	dir := writeInputs(t, map[string]string{
		"Product.csv":  productCSV,
		"Sales.csv":    salesCSV,
		"Customer.csv": customerCSV,
	})

	ds, err := newTestLoader(dir).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Product, ds.Products.Name())
	assert.Equal(t, 1, ds.Products.Len())
	assert.Equal(t, 9, ds.Sales.Width())
	assert.Equal(t, 1, ds.Customers.Len())

	age, ok := ds.Customers.Column("Age")
	require.True(t, ok)
	assert.Equal(t, "integer", age.Kind.String())
	assert.Equal(t, "04240", ds.Customers.Value(0, 4))
}

func TestLoad_MissingFileIsDataAccessError(t *testing.T) {
	t.Parallel()

	dir := writeInputs(t, map[string]string{
		"Product.csv": productCSV,
		"Sales.csv":   salesCSV,
	})

	_, err := newTestLoader(dir).Load(context.Background())
	require.Error(t, err)

	var dae *etlerr.DataAccessError
	require.True(t, errors.As(err, &dae), "got %T: %v", err, err)
	assert.Equal(t, Customer, dae.Entity)
	assert.Equal(t, filepath.Join(dir, "Customer.csv"), dae.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, etlerr.StageLoad, etlerr.StageOf(err))
}

func TestLoad_MalformedFileIsDataAccessError(t *testing.T) {
	t.Parallel()

	dir := writeInputs(t, map[string]string{
		"Product.csv":  productCSV,
		"Sales.csv":    "Order ID,Sales\nO1,1,extra\n",
		"Customer.csv": customerCSV,
	})

	_, err := newTestLoader(dir).Load(context.Background())
	var dae *etlerr.DataAccessError
	require.True(t, errors.As(err, &dae), "got %v", err)
	assert.Equal(t, Sales, dae.Entity)
	assert.Contains(t, err.Error(), "parse")
}

// blockingSource never yields data until its context is canceled.
type blockingSource struct{ path string }

func (b blockingSource) Path() string { return b.path }

func (b blockingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if strings.HasSuffix(b.path, "Sales.csv") {
		return nil, errors.New("disk on fire")
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// Not parallel: swaps the package-level source constructor.
func TestLoad_FirstFailureCancelsOthers(t *testing.T) {
	prev := openSourceFn
	openSourceFn = func(path string) datasource.Source { return blockingSource{path: path} }
	t.Cleanup(func() { openSourceFn = prev })

	_, err := newTestLoader("/nowhere").Load(context.Background())
	require.Error(t, err)

	var dae *etlerr.DataAccessError
	require.True(t, errors.As(err, &dae))
	assert.Equal(t, Sales, dae.Entity, "the first failure is reported, not the cancellations")
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestResolve_URLBase(t *testing.T) {
	t.Parallel()

	p := Resolve("https://example.com/exports/", "Product.csv", "Sales.csv", "Customer.csv")
	assert.Equal(t, "https://example.com/exports/Sales.csv", p.Sales)

	p = Resolve("/srv/dmart", "Product.csv", "Sales.csv", "Customer.csv")
	assert.Equal(t, filepath.Join("/srv/dmart", "Customer.csv"), p.Customer)
}

func TestLoad_FromHTTP(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/data/Product.csv":  productCSV,
		"/data/Sales.csv":    salesCSV,
		"/data/Customer.csv": customerCSV,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	l := newTestLoader(srv.URL + "/data").WithHTTP(httpds.NewClient(httpds.Config{}))
	ds, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Sales.Len())

	_, err = newTestLoader(srv.URL + "/missing").Load(context.Background())
	var dae *etlerr.DataAccessError
	require.ErrorAs(t, err, &dae)
	var se *httpds.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
}
