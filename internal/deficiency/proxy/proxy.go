// Package proxy computes which mirrored inspection attributes of a stored
// deficient item are stale.
package proxy

import (
	"fmt"
	"reflect"

	"propcheck/internal/deficiency/models"
	"propcheck/internal/platform/config"
)

// Delta maps attribute name to its new value. An empty Delta means no write.
type Delta map[string]any

func (d Delta) IsEmpty() bool {
	return len(d) == 0
}

// Apply merges the delta into di.
func (d Delta) Apply(di *models.DeficientItem) error {
	for name, value := range d {
		attr, ok := attributes[name]
		if !ok {
			return fmt.Errorf("unknown proxy attribute %q", name)
		}
		if !attr.set(di, value) {
			return fmt.Errorf("proxy attribute %q: unexpected value type %T", name, value)
		}
	}
	return nil
}

// Syncer diffs an expected deficient item against its stored counterpart,
// limited to a whitelist of proxy attributes.
type Syncer struct {
	whitelist []string
}

// New validates the whitelist against the known proxy attributes.
func New(rules *config.Rules) (*Syncer, error) {
	if rules == nil {
		return nil, fmt.Errorf("rules are required")
	}
	whitelist := make([]string, 0, len(rules.ProxyAttributes))
	for _, name := range rules.ProxyAttributes {
		if _, ok := attributes[name]; !ok {
			return nil, fmt.Errorf("unknown proxy attribute %q", name)
		}
		// Last-updated date is never diffed directly: it may only move forward.
		if name == AttrItemDataLastUpdatedDate {
			continue
		}
		whitelist = append(whitelist, name)
	}
	return &Syncer{whitelist: whitelist}, nil
}

// Diff returns the attributes of current that differ from expected.
func (s *Syncer) Diff(expected, current *models.DeficientItem) Delta {
	delta := Delta{}
	for _, name := range s.whitelist {
		attr := attributes[name]
		want := attr.get(expected)
		if !equal(want, attr.get(current)) {
			delta[name] = want
		}
	}

	if latest := latestAdminEdit(expected); latest > current.ItemDataLastUpdatedDate {
		delta[AttrItemDataLastUpdatedDate] = latest
	}

	if current.ItemScore != 0 {
		guardScore(delta, current.ItemScore)
	}
	return delta
}

// guardScore keeps a stored non-zero score from being lost: a zero score in
// the delta is replaced by the stored one and any other write carries the
// score explicitly. A delta left holding only the unchanged score is a no-op.
func guardScore(delta Delta, stored float64) {
	if v, ok := delta[AttrItemScore].(float64); ok && v == 0 {
		delta[AttrItemScore] = stored
	}
	if len(delta) == 0 {
		return
	}
	if _, ok := delta[AttrItemScore]; !ok {
		delta[AttrItemScore] = stored
	}
	if len(delta) == 1 && delta[AttrItemScore] == stored {
		delete(delta, AttrItemScore)
	}
}

func latestAdminEdit(di *models.DeficientItem) int64 {
	var latest int64
	for _, edit := range di.ItemAdminEdits {
		latest = max(latest, edit.EditDate)
	}
	return latest
}

// equal treats absent and empty values as the same "no value".
func equal(a, b any) bool {
	if isEmpty(a) && isEmpty(b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice {
		return rv.Len() == 0
	}
	return rv.IsZero()
}
