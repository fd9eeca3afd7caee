package style

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Identifier grammar:
//
//	neo-<segment>(~<segment>)*
//	segment := <kind>--<prop>-<value>(_<prop>-<value>)*
const (
	Prefix          = "neo-"
	effectSeparator = "~"
	kindSeparator   = "--"
	propertySep     = "_"
	keyValueSep     = "-"
)

// ErrMalformedIdentifier is returned by DecodeStrict.
var ErrMalformedIdentifier = errors.New("malformed style identifier")

// IsIdentifier reports whether id carries the neo- prefix.
func IsIdentifier(id string) bool {
	return strings.HasPrefix(id, Prefix)
}

// Encode returns the canonical identifier for s. An empty style encodes to
// the bare prefix.
func (s *Style) Encode() string {
	var b strings.Builder
	b.WriteString(Prefix)
	for i, e := range s.effects {
		if i > 0 {
			b.WriteString(effectSeparator)
		}
		b.WriteString(e.kind.Key())
		b.WriteString(kindSeparator)
		for j, p := range e.props {
			if j > 0 {
				b.WriteString(propertySep)
			}
			b.WriteString(p.Key())
			b.WriteString(keyValueSep)
			b.WriteString(e.value(p))
		}
	}
	return b.String()
}

// Decode parses an identifier. It never fails: identifiers come from URL
// paths, and anything it cannot understand is dropped. A missing prefix
// yields an empty style, an unknown kind or empty segment is skipped, and
// an unknown, disallowed or unparsable property is left out of its effect.
// A known kind without a property block becomes an effect with no
// properties.
func Decode(id string) *Style {
	s, _ := decode(id, false)
	return s
}

// DecodeStrict parses an identifier and reports the first problem that
// Decode would have silently dropped.
func DecodeStrict(id string) (*Style, error) {
	return decode(id, true)
}

// Canonical returns the identifier Decode(id) encodes back to. It equals id
// for every identifier produced by Encode.
func Canonical(id string) string {
	return Decode(id).Encode()
}

func decode(id string, strict bool) (*Style, error) {
	s := New()
	if !IsIdentifier(id) {
		if strict {
			return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedIdentifier, Prefix)
		}
		return s, nil
	}

	body := strings.TrimPrefix(id, Prefix)
	if body == "" {
		return s, nil
	}

	for _, segment := range strings.Split(body, effectSeparator) {
		e, err := decodeSegment(segment, strict)
		if err != nil {
			if strict {
				return nil, err
			}
			continue
		}
		s.put(e)
	}
	return s, nil
}

// decodeSegment parses "kind--prop-value_prop-value". In lenient mode only
// segment-level problems are returned; property problems drop the
// property.
func decodeSegment(segment string, strict bool) (Effect, error) {
	if segment == "" {
		return Effect{}, fmt.Errorf("%w: empty segment", ErrMalformedIdentifier)
	}

	kindKey, block, hasBlock := strings.Cut(segment, kindSeparator)
	kind, ok := KindFromKey(kindKey)
	if !ok {
		return Effect{}, fmt.Errorf("%w: unknown effect %q", ErrMalformedIdentifier, kindKey)
	}

	e := Effect{kind: kind}
	if !hasBlock {
		if strict {
			return Effect{}, fmt.Errorf("%w: effect %q has no properties", ErrMalformedIdentifier, kindKey)
		}
		return e, nil
	}
	if block == "" {
		return e, nil
	}

	for _, pair := range strings.Split(block, propertySep) {
		p, v, err := decodeProperty(kind, pair)
		if err != nil {
			if strict {
				return Effect{}, err
			}
			continue
		}
		e = e.set(p, v)
	}
	return e, nil
}

func decodeProperty(kind Kind, pair string) (Property, int, error) {
	key, raw, _ := strings.Cut(pair, keyValueSep)
	p, ok := PropertyFromKey(key)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown property %q", ErrMalformedIdentifier, key)
	}
	if !kind.Allows(p) {
		return 0, 0, fmt.Errorf("%w: %s does not take %s", ErrMalformedIdentifier, kind.Label(), p.Name())
	}

	if p == PropAnchor {
		a, ok := AnchorFromKey(raw)
		if !ok {
			return 0, 0, fmt.Errorf("%w: unknown anchor %q", ErrMalformedIdentifier, raw)
		}
		return p, int(a), nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, 0, fmt.Errorf("%w: %s value %q is not a non-negative integer", ErrMalformedIdentifier, p.Name(), raw)
	}
	return p, v, nil
}
