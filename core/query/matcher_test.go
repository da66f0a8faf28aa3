package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMatcher(t *testing.T) {
	m := NewMatcher(nil)
	assert.NotNil(t, m)
	assert.NotNil(t, m.predicates)
	assert.NotNil(t, m.logger)

	m = NewMatcher(zap.NewNop())
	assert.NotNil(t, m)
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(nil)
	tags := Tags{
		Key("host"):       "a",
		Path("tag", "dc"): "eu",
		Key("shard"):      "3",
	}

	tests := []struct {
		name     string
		cond     *Condition
		expected bool
	}{
		{"nil matches everything", nil, true},
		{"equal", Equals(Key("host"), "a"), true},
		{"not equal", Equals(Key("host"), "b"), false},
		{"missing tag", Equals(Key("rack"), "1"), false},
		{"namespace matters", Equals(Key("dc"), "eu"), false},
		{"namespaced", Equals(Path("tag", "dc"), "eu"), true},
		{"number formatted", Equals(Key("shard"), 3), true},
		{"and", Equals(Key("host"), "a").And(Equals(Path("tag", "dc"), "eu")), true},
		{"and fails", Equals(Key("host"), "a").And(Equals(Path("tag", "dc"), "us")), false},
		{"or", Equals(Key("host"), "b").Or(Equals(Path("tag", "dc"), "eu")), true},
		{"or fails", Equals(Key("host"), "b").Or(Equals(Path("tag", "dc"), "us")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := m.Match(tt.cond, tags)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestMatcher_InvalidCondition(t *testing.T) {
	m := NewMatcher(nil)
	_, err := m.Match(Equals(Key("a"), "b").Or(nil), Tags{})
	assert.ErrorIs(t, err, ErrInvalidCondition)

	_, err = m.Filter(Equals(Key("a"), "b").And(nil), []Tags{{Key("a"): "b"}})
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestMatcher_RegisterPredicate(t *testing.T) {
	m := NewMatcher(nil)
	m.RegisterPredicate("label", func(tagValue string, want any) bool {
		return strings.EqualFold(tagValue, FormatValue(want))
	})
	assert.Contains(t, m.predicates, "label")

	ok, err := m.Match(Equals(Path("label", "env"), "PROD"), Tags{Path("label", "env"): "prod"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match(Equals(Key("env"), "PROD"), Tags{Key("env"): "prod"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatcher_Filter(t *testing.T) {
	m := NewMatcher(nil)
	series := []Tags{
		{Key("host"): "a"},
		{Key("host"): "b"},
		{Key("host"): "c"},
	}

	matched, err := m.Filter(Equals(Key("host"), "a").Or(Equals(Key("host"), "c")), series)
	require.NoError(t, err)
	assert.Equal(t, []Tags{series[0], series[2]}, matched)

	matched, err = m.Filter(Equals(Key("host"), "z"), series)
	require.NoError(t, err)
	assert.Empty(t, matched)
}
