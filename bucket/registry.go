package bucket

import "fmt"

// New creates an empty bucket of the given kind.
func New(kind Kind, opts ...Option) (Bucket, error) {
	switch kind {
	case KindBruteForce:
		return NewBruteForce(opts...)
	case KindIVF:
		return NewIVF(opts...), nil
	case KindIVFReference:
		return newIVFReference(opts...)
	case KindSketch:
		return NewSketch(opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}
