package telemetry

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

type registryImpl struct {
	values *xsync.MapOf[string, *NamedValue]
}

// NewRegistry creates the default IStore implementation. It is safe for
// concurrent use by the caller and any number of endpoint service loops.
func NewRegistry() IStore {
	return &registryImpl{
		values: xsync.NewMapOf[string, *NamedValue](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (r *registryImpl) Register(v *NamedValue) error {
	if _, loaded := r.values.LoadOrStore(v.Name(), v); loaded {
		return NewError(RetCDuplicateName, fmt.Sprintf("cannot register two values with the same name %q", v.Name()))
	}
	return nil
}

func (r *registryImpl) Lookup(name string) (*NamedValue, bool) {
	return r.values.Load(name)
}

func (r *registryImpl) Get(name string) (any, bool) {
	v, ok := r.values.Load(name)
	if !ok || !v.Access().Readable() {
		return nil, false
	}
	return v.Load(), true
}

func (r *registryImpl) Names() []string {
	names := make([]string, 0, r.values.Size())
	r.values.Range(func(name string, v *NamedValue) bool {
		if v.Access().Readable() {
			names = append(names, name)
		}
		return true
	})
	return names
}

func (r *registryImpl) Snapshot() map[string]any {
	snapshot := make(map[string]any, r.values.Size())
	r.values.Range(func(name string, v *NamedValue) bool {
		if v.Access().Readable() {
			snapshot[name] = v.Load()
		}
		return true
	})
	return snapshot
}

func (r *registryImpl) Len() int {
	return r.values.Size()
}
