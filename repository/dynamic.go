package repository

import (
	"fmt"

	"github.com/inframed/inframed/signal"
)

// DynamicRec layers editable versions over a PidRec. Every signal starts
// with all versions reading the base record; Set gives one version its own
// copy and leaves the base and the other versions untouched. Cleaning and
// feature pipelines use versions for alternative treatments of the same
// patient, for example one per prediction time.
//
// A DynamicRec is not safe for concurrent use.
type DynamicRec struct {
	Pid  int32
	base *PidRec
	n    int

	// versions[sid][v] is the data version v reads, when set.
	versions map[int][]*versionData
}

type versionData struct {
	values signal.Values
}

// NewDynamicRec returns a record with n versions over base.
func NewDynamicRec(base *PidRec, n int) *DynamicRec {
	return &DynamicRec{
		Pid:      base.Pid,
		base:     base,
		n:        max(n, 1),
		versions: make(map[int][]*versionData),
	}
}

// Versions returns the number of versions.
func (d *DynamicRec) Versions() int { return d.n }

func (d *DynamicRec) check(sid, version int) error {
	if version < 0 || version >= d.n {
		return fmt.Errorf("%w: %d of %d", ErrVersion, version, d.n)
	}
	if _, _, err := d.base.repo.signal(sid); err != nil {
		return err
	}
	return nil
}

// Get returns the records version sees for signal sid.
func (d *DynamicRec) Get(sid, version int) (signal.Values, error) {
	if err := d.check(sid, version); err != nil {
		return signal.Values{}, err
	}
	if vs := d.versions[sid]; vs != nil && vs[version] != nil {
		return vs[version].values, nil
	}
	v, _ := d.base.Get(sid)
	return v, nil
}

// Edited reports whether version has its own data for sid.
func (d *DynamicRec) Edited(sid, version int) bool {
	vs := d.versions[sid]
	return version >= 0 && version < len(vs) && vs[version] != nil
}

// Set replaces the records version sees for signal sid. recs is encoded
// into a new buffer, so the caller may reuse it.
func (d *DynamicRec) Set(sid, version int, recs []signal.Record) error {
	if err := d.check(sid, version); err != nil {
		return err
	}
	_, typ, _ := d.base.repo.signal(sid)
	v := &versionData{values: signal.Values{Type: typ, Data: signal.Encode(typ, nil, recs)}}
	d.slot(sid)[version] = v
	return nil
}

// SetAll replaces the records of signal sid in every version. The versions
// share one buffer until one of them is Set again.
func (d *DynamicRec) SetAll(sid int, recs []signal.Record) error {
	if err := d.Set(sid, 0, recs); err != nil {
		return err
	}
	vs := d.slot(sid)
	for i := 1; i < d.n; i++ {
		vs[i] = vs[0]
	}
	return nil
}

// Point makes version dst read whatever version src reads for signal sid.
func (d *DynamicRec) Point(sid, src, dst int) error {
	if err := d.check(sid, src); err != nil {
		return err
	}
	if err := d.check(sid, dst); err != nil {
		return err
	}
	vs := d.versions[sid]
	if vs == nil || vs[src] == nil {
		if vs != nil {
			vs[dst] = nil
		}
		return nil
	}
	vs[dst] = vs[src]
	return nil
}

// Reset drops every edit of signal sid.
func (d *DynamicRec) Reset(sid int) {
	delete(d.versions, sid)
}

func (d *DynamicRec) slot(sid int) []*versionData {
	vs := d.versions[sid]
	if vs == nil {
		vs = make([]*versionData, d.n)
		d.versions[sid] = vs
	}
	return vs
}
