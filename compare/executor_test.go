package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCodec(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		req := Request{
			Strategy: StrategyBitap,
			Term:     "äpfel",
			Contexts: []string{"apple pie", "", "Äpfel und Birnen"},
		}
		data := MarshalRequest(req)
		assert.Len(t, data, req.Size())

		got, err := UnmarshalRequest(data)
		require.NoError(t, err)
		assert.Equal(t, req, got)
	})

	t.Run("no contexts", func(t *testing.T) {
		got, err := UnmarshalRequest(MarshalRequest(Request{Strategy: StrategyExact, Term: "x"}))
		require.NoError(t, err)
		assert.Empty(t, got.Contexts)
	})

	t.Run("truncated payload", func(t *testing.T) {
		data := MarshalRequest(Request{Strategy: StrategyBitap, Term: "apple", Contexts: []string{"apple pie"}})
		_, err := UnmarshalRequest(data[:len(data)-3])
		assert.ErrorIs(t, err, ErrMalformedRequest)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := UnmarshalRequest(nil)
		assert.ErrorIs(t, err, ErrMalformedRequest)
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	t.Run("builtins", func(t *testing.T) {
		assert.Equal(t, []string{"bitap", "bitap0", "bitap1", "contains", "exact", "startsWith"}, reg.Names())
		fn, err := reg.Lookup(DefaultStrategy)
		require.NoError(t, err)
		assert.Positive(t, fn("aple", "apple"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := reg.Lookup("soundex")
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})

	t.Run("register custom", func(t *testing.T) {
		require.NoError(t, reg.Register("length", func(term, context string) float64 {
			if len(term) == len(context) {
				return 1
			}
			return 0
		}))
		fn, err := reg.Lookup("length")
		require.NoError(t, err)
		assert.Equal(t, 1.0, fn("abc", "xyz"))
	})

	t.Run("invalid registrations", func(t *testing.T) {
		assert.ErrorIs(t, reg.Register("", Exact), ErrEmptyStrategyName)
		assert.ErrorIs(t, reg.Register("nil", nil), ErrNilStrategy)
		assert.ErrorIs(t, reg.Register(StrategyExact, Exact), ErrStrategyExists)
	})
}

func TestSimpleStrategies(t *testing.T) {
	assert.Equal(t, 1.0, Contains("PLE", "apple"))
	assert.Zero(t, Contains("plea", "apple"))
	assert.Equal(t, 1.0, StartsWith("APP", "apple"))
	assert.Zero(t, StartsWith("ple", "apple"))
	assert.Equal(t, 1.0, Exact("Apple", "aPPLE"))
	assert.Zero(t, Exact("apple", "apple pie"))
}

func TestExecutor(t *testing.T) {
	reg := NewRegistry()

	t.Run("scores every context", func(t *testing.T) {
		exec, err := NewExecutor(reg, StrategyContains)
		require.NoError(t, err)
		defer exec.Close()

		out, err := exec.Execute(MarshalRequest(Request{
			Strategy: StrategyContains,
			Term:     "pie",
			Contexts: []string{"apple pie", "apple tart", "PIE"},
		}))
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0, 1}, out)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := NewExecutor(reg, "missing")
		assert.ErrorIs(t, err, ErrUnknownStrategy)
	})

	t.Run("strategy mismatch", func(t *testing.T) {
		exec, err := NewExecutor(reg, StrategyExact)
		require.NoError(t, err)
		_, err = exec.Execute(MarshalRequest(Request{Strategy: StrategyContains, Term: "a"}))
		assert.ErrorIs(t, err, ErrStrategyMismatch)
	})

	t.Run("malformed payload", func(t *testing.T) {
		exec, err := NewExecutor(reg, StrategyExact)
		require.NoError(t, err)
		_, err = exec.Execute([]byte{0xff})
		assert.ErrorIs(t, err, ErrMalformedRequest)
	})
}

func TestAnyMatchAndBest(t *testing.T) {
	assert.False(t, AnyMatch(nil))
	assert.False(t, AnyMatch([]float64{0, 0}))
	assert.True(t, AnyMatch([]float64{0, 0.2}))

	idx, score := Best([]float64{0.2, 0.7, 0.7, 0.1})
	assert.Equal(t, 1, idx)
	assert.Equal(t, 0.7, score)

	idx, score = Best([]float64{0, 0})
	assert.Equal(t, -1, idx)
	assert.Zero(t, score)
}
