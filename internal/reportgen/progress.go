package reportgen

import "io"

// ProgressFunc receives upload progress as a whole percentage. Values are
// monotonically non-decreasing and end at 100 on a completed upload.
type ProgressFunc func(pct int)

// progressReader counts bytes read from the wrapped reader and reports
// percentage milestones. Callbacks never repeat or go backwards even if
// the underlying reader over-reports.
type progressReader struct {
	r       io.Reader
	total   int64
	read    int64
	lastPct int
	fn      ProgressFunc
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, lastPct: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report()
	}
	if err == io.EOF {
		p.finish()
	}
	return n, err
}

func (p *progressReader) report() {
	if p.fn == nil || p.total <= 0 {
		return
	}
	pct := int(p.read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct > p.lastPct {
		p.lastPct = pct
		p.fn(pct)
	}
}

// finish guarantees a terminal 100 even for empty or size-unknown inputs.
func (p *progressReader) finish() {
	if p.fn == nil || p.lastPct >= 100 {
		return
	}
	p.lastPct = 100
	p.fn(100)
}
