package ops

import (
	"errors"

	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/resource"
)

// scope tracks every native object created by one operation so that all
// of them are released when the operation returns, whatever the path.
type scope struct {
	resources *resource.Manager
	live      []*resource.Managed[engine.Object]
	created   int
}

func newScope(resources *resource.Manager) *scope {
	return &scope{resources: resources}
}

// adopt tracks o. If tracking fails, o is released immediately.
func (s *scope) adopt(o engine.Object, err error) (*resource.Managed[engine.Object], error) {
	if err != nil {
		return nil, err
	}
	r, err := resource.Track(s.resources, o)
	if err != nil {
		_ = o.Release()
		return nil, err
	}
	s.live = append(s.live, r)
	s.created++
	return r, nil
}

// drop disposes r early and forgets it.
func (s *scope) drop(r *resource.Managed[engine.Object]) error {
	for i, l := range s.live {
		if l == r {
			s.live = append(s.live[:i], s.live[i+1:]...)
			break
		}
	}
	return r.Dispose()
}

// close disposes everything still alive.
func (s *scope) close() error {
	var errs []error
	for _, r := range s.live {
		if err := r.Dispose(); err != nil && !errors.Is(err, resource.ErrAlreadyDisposed) {
			errs = append(errs, err)
		}
	}
	s.live = nil
	return errors.Join(errs...)
}
