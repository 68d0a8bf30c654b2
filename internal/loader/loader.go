// Package loader reads the three source datasets into frames. The files are
// read concurrently; the first failure cancels the others and is returned as
// an etlerr.DataAccessError naming the entity and path.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"dmart/internal/datasource"
	"dmart/internal/datasource/file"
	"dmart/internal/datasource/httpds"
	"dmart/internal/etlerr"
	"dmart/internal/frame"
	"dmart/internal/parser"

	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"
)

var log = logging.MustGetLogger("loader")

// Entity names, also used as frame names.
const (
	Product  = "product"
	Sales    = "sales"
	Customer = "customer"
)

// Datasets holds the loaded (or cleaned) source frames.
type Datasets struct {
	Products  *frame.Frame
	Sales     *frame.Frame
	Customers *frame.Frame
}

// Paths names the input file of each entity.
type Paths struct {
	Product  string
	Sales    string
	Customer string
}

// Resolve joins dir with each file name. dir may be an http(s) base URL.
func Resolve(dir, product, sales, customer string) Paths {
	join := filepath.Join
	if httpds.IsURL(dir) {
		join = func(elem ...string) string { return httpds.Join(elem[0], elem[1]) }
	}
	return Paths{
		Product:  join(dir, product),
		Sales:    join(dir, sales),
		Customer: join(dir, customer),
	}
}

// openSourceFn is a test seam for swapping the file source.
var openSourceFn = func(path string) datasource.Source { return file.NewLocal(path) }

// Loader reads the three entities with a shared parser.
type Loader struct {
	paths  Paths
	parser parser.Parser
	remote *httpds.Client
}

// New returns a Loader for paths. p must be safe for concurrent use.
func New(paths Paths, p parser.Parser) *Loader {
	return &Loader{paths: paths, parser: p, remote: httpds.NewClient(httpds.Config{})}
}

// WithHTTP replaces the client used for http(s) paths. Call it before Load.
func (l *Loader) WithHTTP(c *httpds.Client) *Loader {
	l.remote = c
	return l
}

func (l *Loader) source(path string) datasource.Source {
	if !httpds.IsURL(path) {
		return openSourceFn(path)
	}
	return httpds.NewRemote(l.remote, path)
}

// Load reads all three datasets. It has no side effects beyond the reads.
func (l *Loader) Load(ctx context.Context) (Datasets, error) {
	var ds Datasets
	g, gctx := errgroup.WithContext(ctx)

	jobs := []struct {
		entity string
		path   string
		dst    **frame.Frame
	}{
		{Product, l.paths.Product, &ds.Products},
		{Sales, l.paths.Sales, &ds.Sales},
		{Customer, l.paths.Customer, &ds.Customers},
	}
	for _, j := range jobs {
		g.Go(func() error {
			f, err := l.loadOne(gctx, j.entity, j.path)
			if err != nil {
				return err
			}
			*j.dst = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Datasets{}, err
	}
	return ds, nil
}

func (l *Loader) loadOne(ctx context.Context, entity, path string) (*frame.Frame, error) {
	start := time.Now()
	src := l.source(path)
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, &etlerr.DataAccessError{Stage: etlerr.StageLoad, Entity: entity, Path: src.Path(), Err: err}
	}
	defer rc.Close()

	f, err := l.parser.Parse(entity, rc)
	if err != nil {
		return nil, &etlerr.DataAccessError{
			Stage:  etlerr.StageLoad,
			Entity: entity,
			Path:   src.Path(),
			Err:    fmt.Errorf("parse: %w", err),
		}
	}
	log.Infof("loader: entity=%s path=%s rows=%d cols=%d dur=%s",
		entity, src.Path(), f.Len(), f.Width(), time.Since(start).Truncate(time.Millisecond))
	for _, c := range f.Columns() {
		log.Debugf("loader: entity=%s column=%q kind=%s", entity, c.Name, c.Kind)
	}
	return f, nil
}
