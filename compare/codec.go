package compare

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Request is the task descriptor sent to a comparison executor: which strategy
// to run, the search term, and the declaration values of one document.
// It carries plain data only so it can cross into any execution context.
type Request struct {
	Strategy string
	Term     string
	Contexts []string
}

// Size returns the encoded length of r in bytes.
func (r Request) Size() int {
	size := ord.String.Size(r.Strategy) + ord.String.Size(r.Term) + varint.Int.Size(len(r.Contexts))
	for _, c := range r.Contexts {
		size += ord.String.Size(c)
	}
	return size
}

// MarshalRequest serializes a Request to bytes.
func MarshalRequest(r Request) []byte {
	buf := make([]byte, r.Size())
	n := ord.String.Marshal(r.Strategy, buf)
	n += ord.String.Marshal(r.Term, buf[n:])
	n += varint.Int.Marshal(len(r.Contexts), buf[n:])
	for _, c := range r.Contexts {
		n += ord.String.Marshal(c, buf[n:])
	}
	return buf
}

// UnmarshalRequest deserializes a Request from bytes.
func UnmarshalRequest(data []byte) (Request, error) {
	var r Request
	strategy, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return r, fmt.Errorf("%w: strategy: %w", ErrMalformedRequest, err)
	}
	term, m, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return r, fmt.Errorf("%w: term: %w", ErrMalformedRequest, err)
	}
	n += m
	count, m, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return r, fmt.Errorf("%w: context count: %w", ErrMalformedRequest, err)
	}
	n += m
	// Every encoded string takes at least one byte.
	if count < 0 || count > len(data)-n {
		return r, fmt.Errorf("%w: context count %d", ErrMalformedRequest, count)
	}
	contexts := make([]string, count)
	for i := range contexts {
		contexts[i], m, err = ord.String.Unmarshal(data[n:])
		if err != nil {
			return r, fmt.Errorf("%w: context %d: %w", ErrMalformedRequest, i, err)
		}
		n += m
	}
	r.Strategy = strategy
	r.Term = term
	r.Contexts = contexts
	return r, nil
}
