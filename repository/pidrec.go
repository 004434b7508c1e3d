package repository

import (
	"context"
	"slices"

	"github.com/inframed/inframed/signal"
)

// span locates one signal's records inside PidRec.data. n == 0 means the
// patient has no records of the signal.
type span struct {
	off, n int32
}

// PidRec holds all requested signals of one patient in a single buffer. It
// is immutable and may be shared between goroutines.
type PidRec struct {
	Pid   int32
	repo  *Repository
	data  []byte
	spans []span // by catalog serial
}

func (p *PidRec) size() int64 {
	return int64(len(p.data)) + 8*int64(len(p.spans)) + 64
}

// Get returns the records of signal sid; false when the patient has none or
// sid was not requested.
func (p *PidRec) Get(sid int) (signal.Values, bool) {
	serial, typ, err := p.repo.signal(sid)
	if err != nil || serial >= len(p.spans) {
		return signal.Values{Type: typ}, false
	}
	s := p.spans[serial]
	if s.n == 0 {
		return signal.Values{Type: typ}, false
	}
	return signal.Values{Type: typ, Data: p.data[s.off : s.off+s.n : s.off+s.n]}, true
}

// Signals returns the ids of the signals the patient has records of, in
// ascending order.
func (p *PidRec) Signals() []int {
	var out []int
	for serial, s := range p.spans {
		if s.n > 0 {
			out = append(out, p.repo.serials.SID(serial))
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of records of signal sid.
func (p *PidRec) Len(sid int) int {
	v, _ := p.Get(sid)
	return v.Len()
}

// PidRec reads the patient's records of the given signals into one buffer,
// or of every cataloged signal when sids is empty. Complete records are
// served from and added to the cache.
func (r *Repository) PidRec(ctx context.Context, pid int32, sids ...int) (*PidRec, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	all := len(sids) == 0
	if all {
		if r.cache != nil {
			if rec, ok := r.cache.Get(pid); ok {
				return rec, nil
			}
		}
		sids = r.serials.SIDs()
	}

	rec := &PidRec{Pid: pid, repo: r, spans: make([]span, r.serials.Len())}
	for _, sid := range sids {
		serial, _, err := r.signal(sid)
		if err != nil {
			return nil, err
		}
		if rec.spans[serial].n > 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := r.read(ctx, pid, serial, sid)
		if err != nil {
			return nil, err
		}
		if len(b) == 0 {
			continue
		}
		rec.spans[serial] = span{off: int32(len(rec.data)), n: int32(len(b))}
		rec.data = append(rec.data, b...)
	}

	if all && r.cache != nil {
		r.cache.Set(pid, rec)
	}
	return rec, nil
}
