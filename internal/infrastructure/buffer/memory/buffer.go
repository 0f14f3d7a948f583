package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

// DefaultQuota is the maximum UTF-8 size of all chunks held for one document.
const DefaultQuota int64 = 100 << 20

type session struct {
	mu     sync.Mutex
	chunks map[int]string
	total  int64
	closed bool
}

// Buffer reassembles chunked uploads in memory. Sessions for different
// documents never share a lock.
type Buffer struct {
	quota    int64
	sessions sync.Map // document id -> *session
}

func New(quota int64) *Buffer {
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Buffer{quota: quota}
}

func (b *Buffer) Quota() int64 {
	return b.quota
}

// Pending reports the number of documents currently being assembled.
func (b *Buffer) Pending() int {
	n := 0
	b.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// AddChunk stores data at index for documentID. When isLast is set and the
// session stays within quota it returns every held chunk concatenated in
// ascending index order and drops the session.
func (b *Buffer) AddChunk(ctx context.Context, documentID string, index int, data string, isLast bool) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if index < 0 {
		return "", false, domain.WrapError(domain.ErrInvalidInput, "add chunk", fmt.Errorf("%w: %d", domain.ErrInvalidChunkIndex, index))
	}

	for {
		s := b.session(documentID)
		text, done, retry, err := b.apply(s, documentID, index, data, isLast)
		if retry {
			continue
		}
		return text, done, err
	}
}

func (b *Buffer) session(documentID string) *session {
	if v, ok := b.sessions.Load(documentID); ok {
		return v.(*session)
	}
	v, _ := b.sessions.LoadOrStore(documentID, &session{chunks: make(map[int]string)})
	return v.(*session)
}

// apply mutates s under its lock. retry is true when s was finalized by a
// concurrent caller after we looked it up.
func (b *Buffer) apply(s *session, documentID string, index int, data string, isLast bool) (text string, done, retry bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, true, nil
	}

	old, existed := s.chunks[index]
	s.chunks[index] = data
	delta := int64(len(data))
	if existed {
		delta -= int64(len(old))
	}
	s.total += delta

	if s.total > b.quota {
		size := s.total
		b.discard(documentID, s)
		return "", false, false, domain.WrapError(
			domain.ErrInvalidInput,
			"add chunk",
			fmt.Errorf("%w: document %s holds %d bytes, limit %d", domain.ErrQuotaExceeded, documentID, size, b.quota),
		)
	}

	if !isLast {
		return "", false, false, nil
	}

	text = s.concat()
	b.discard(documentID, s)
	return text, true, false, nil
}

// discard must be called with s.mu held.
func (b *Buffer) discard(documentID string, s *session) {
	s.closed = true
	s.chunks = nil
	s.total = 0
	b.sessions.CompareAndDelete(documentID, s)
}

func (s *session) concat() string {
	indexes := make([]int, 0, len(s.chunks))
	for i := range s.chunks {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	var sb strings.Builder
	sb.Grow(int(s.total))
	for _, i := range indexes {
		sb.WriteString(s.chunks[i])
	}
	return sb.String()
}
