package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vcabral19/json-placeholder-elt/internal/domain"
)

// DefaultPathTemplate lays processed files out as
// <kind>/<YYYY-MM-DD>/<HH>/processed_<kind>_<ts>.csv under the output root.
const DefaultPathTemplate = "{kind}/{partition}/processed_{kind}_{ts}.csv"

// KindSpec describes one output projection kind.
type KindSpec struct {
	Kind domain.Kind
	// Fields is the header and the cell order of every row.
	Fields []string
	// PathTemplate is relative to the output root and may use {kind},
	// {partition} and {ts}. Empty means DefaultPathTemplate.
	PathTemplate string
	// Dedupe keeps only the first projection per Key within one batch.
	Dedupe bool
}

// RelPath returns the file path for a batch, relative to the output root.
func (k KindSpec) RelPath(partition string, ts int64) string {
	tmpl := k.PathTemplate
	if tmpl == "" {
		tmpl = DefaultPathTemplate
	}
	r := strings.NewReplacer(
		"{kind}", string(k.Kind),
		"{partition}", partition,
		"{ts}", strconv.FormatInt(ts, 10),
	)
	return filepath.FromSlash(r.Replace(tmpl))
}

// Path returns the file path for a batch under outputDir.
func (k KindSpec) Path(outputDir, partition string, ts int64) string {
	return filepath.Join(outputDir, k.RelPath(partition, ts))
}

// Registry is the ordered set of kinds every batch must produce.
type Registry struct {
	specs []KindSpec
	index map[domain.Kind]int
}

// NewRegistry validates specs and keeps them in the given order.
func NewRegistry(specs ...KindSpec) (*Registry, error) {
	r := &Registry{index: make(map[domain.Kind]int, len(specs))}
	for _, spec := range specs {
		if spec.Kind == "" {
			return nil, fmt.Errorf("kind name is required")
		}
		if len(spec.Fields) == 0 {
			return nil, fmt.Errorf("kind %s: fields are required", spec.Kind)
		}
		if _, dup := r.index[spec.Kind]; dup {
			return nil, fmt.Errorf("kind %s registered twice", spec.Kind)
		}
		r.index[spec.Kind] = len(r.specs)
		r.specs = append(r.specs, spec)
	}
	return r, nil
}

// DefaultRegistry registers the company and user projections.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		KindSpec{Kind: domain.KindCompany, Fields: domain.CompanyFields, Dedupe: true},
		KindSpec{Kind: domain.KindUser, Fields: domain.UserFields},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Kinds returns the registered specs in registration order.
func (r *Registry) Kinds() []KindSpec {
	out := make([]KindSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

func (r *Registry) Lookup(kind domain.Kind) (KindSpec, bool) {
	i, ok := r.index[kind]
	if !ok {
		return KindSpec{}, false
	}
	return r.specs[i], true
}
