package storage

import (
	"io"
	"sync/atomic"
)

// ProgressReader counts bytes read through it and reports each whole-percent change.
type ProgressReader struct {
	r          io.Reader
	total      int64
	read       atomic.Int64
	lastPct    int
	onProgress func(read, total int64, pct int)
}

// NewProgressReader wraps r. onProgress may be nil.
func NewProgressReader(r io.Reader, total int64, onProgress func(read, total int64, pct int)) *ProgressReader {
	return &ProgressReader{r: r, total: total, lastPct: -1, onProgress: onProgress}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		read := p.read.Add(int64(n))
		p.report(read)
	}
	return n, err
}

// BytesRead returns how many bytes have passed through the reader.
func (p *ProgressReader) BytesRead() int64 {
	return p.read.Load()
}

func (p *ProgressReader) report(read int64) {
	if p.onProgress == nil || p.total <= 0 {
		return
	}
	pct := int(read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct == p.lastPct {
		return
	}
	p.lastPct = pct
	p.onProgress(read, p.total, pct)
}
