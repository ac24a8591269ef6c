package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCount(t *testing.T, expected ...int64) (*InventoryCount, []uuid.UUID) {
	t.Helper()
	c, err := NewInventoryCount("CNT-2024-01", time.Now(), uuid.New())
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(expected))
	for i, e := range expected {
		ids[i] = uuid.New()
		require.NoError(t, c.AddItem(ids[i], decimal.NewFromInt(e)))
	}
	c.ClearDomainEvents()
	return c, ids
}

func TestNewInventoryCount(t *testing.T) {
	t.Run("creates pending count", func(t *testing.T) {
		c, err := NewInventoryCount(" CNT-1 ", time.Time{}, uuid.New())

		require.NoError(t, err)
		assert.Equal(t, "CNT-1", c.Reference)
		assert.Equal(t, CountStatusPending, c.Status)
		assert.False(t, c.CountDate.IsZero())
		require.Len(t, c.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInventoryCountCreated, c.GetDomainEvents()[0].EventType())
	})

	t.Run("fails with empty reference", func(t *testing.T) {
		_, err := NewInventoryCount("", time.Now(), uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Count reference cannot be empty")
	})

	t.Run("fails without creator", func(t *testing.T) {
		_, err := NewInventoryCount("CNT-1", time.Now(), uuid.Nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestInventoryCount_AddItem(t *testing.T) {
	c, ids := newTestCount(t, 10)

	t.Run("rejects duplicate product", func(t *testing.T) {
		err := c.AddItem(ids[0], decimal.NewFromInt(3))
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("rejects negative expected quantity", func(t *testing.T) {
		err := c.AddItem(uuid.New(), decimal.NewFromInt(-1))
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})
}

func TestComputeVariance(t *testing.T) {
	tests := []struct {
		name      string
		expected  int64
		actual    int64
		variance  int64
		pct       string
		undefined bool
	}{
		{"shortfall", 100, 92, -8, "-8", false},
		{"surplus", 80, 90, 10, "12.5", false},
		{"exact", 50, 50, 0, "0", false},
		{"both zero", 0, 0, 0, "0", false},
		{"found stock with nothing expected", 0, 7, 7, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, pct, undefined := ComputeVariance(decimal.NewFromInt(tt.expected), decimal.NewFromInt(tt.actual))

			assert.True(t, v.Equal(decimal.NewFromInt(tt.variance)))
			assert.Equal(t, tt.undefined, undefined)
			if tt.undefined {
				assert.Nil(t, pct)
				return
			}
			require.NotNil(t, pct)
			assert.True(t, pct.Equal(decimal.RequireFromString(tt.pct)), "got %s", pct)
		})
	}

	t.Run("rounds to four places", func(t *testing.T) {
		_, pct, _ := ComputeVariance(decimal.NewFromInt(3), decimal.NewFromInt(2))
		require.NotNil(t, pct)
		assert.Equal(t, "-33.3333", pct.String())
	})
}

func TestInventoryCount_Lifecycle(t *testing.T) {
	c, ids := newTestCount(t, 100, 40)

	require.NoError(t, c.RecordActual(ids[0], decimal.NewFromInt(92)))
	assert.Equal(t, CountStatusInProgress, c.Status, "recording on a pending count starts it")

	item := c.Item(ids[0])
	require.NotNil(t, item)
	assert.True(t, item.Variance.Equal(decimal.NewFromInt(-8)))
	assert.True(t, item.VariancePercentage.Equal(decimal.NewFromInt(-8)))

	err := c.Complete()
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
	assert.Equal(t, []uuid.UUID{ids[1]}, c.UncountedProducts())

	require.NoError(t, c.RecordActual(ids[1], decimal.NewFromInt(40)))
	require.NoError(t, c.Complete())
	assert.Equal(t, CountStatusCompleted, c.Status)
	assert.NotNil(t, c.CompletedAt)

	require.NoError(t, c.RecordActual(ids[1], decimal.NewFromInt(41)), "completed counts can still be corrected")
	assert.True(t, c.Item(ids[1]).Variance.Equal(decimal.NewFromInt(1)))

	t.Run("unknown product", func(t *testing.T) {
		err := c.RecordActual(uuid.New(), decimal.NewFromInt(1))
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("negative actual", func(t *testing.T) {
		err := c.RecordActual(ids[0], decimal.NewFromInt(-1))
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})
}

func completedCount(t *testing.T, expected, actual []int64) (*InventoryCount, []uuid.UUID) {
	t.Helper()
	c, ids := newTestCount(t, expected...)
	for i, a := range actual {
		require.NoError(t, c.RecordActual(ids[i], decimal.NewFromInt(a)))
	}
	require.NoError(t, c.Complete())
	c.ClearDomainEvents()
	return c, ids
}

func TestInventoryCount_Reconcile(t *testing.T) {
	by := uuid.New()

	t.Run("approved variances become stock effects", func(t *testing.T) {
		c, ids := completedCount(t, []int64{100, 40, 10}, []int64{92, 45, 10})
		override := decimal.NewFromInt(-5)

		effects, err := c.Reconcile([]Decision{
			{ProductID: ids[0], Approve: true, ReasonCode: "SHRINKAGE"},
			{ProductID: ids[1], Approve: true, OverrideQuantity: &override, ReasonCode: "RECOUNT"},
			{ProductID: ids[2], Approve: true, ReasonCode: "OK"},
		}, by)

		require.NoError(t, err)
		require.Len(t, effects, 2)
		assert.True(t, effects[0].Delta.Equal(decimal.NewFromInt(-8)))
		assert.Equal(t, "SHRINKAGE", effects[0].ReasonCode)
		assert.True(t, effects[1].Delta.Equal(override))
		assert.Equal(t, CountStatusReconciled, c.Status)
		assert.Equal(t, by, *c.ReconciledBy)
		assert.True(t, c.Item(ids[1]).Decision.Overridden)
		require.Len(t, c.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInventoryCountReconciled, c.GetDomainEvents()[0].EventType())
	})

	t.Run("rejected items keep stock", func(t *testing.T) {
		c, ids := completedCount(t, []int64{100}, []int64{92})

		effects, err := c.Reconcile([]Decision{{ProductID: ids[0], Approve: false, ReasonCode: "RECOUNT_LATER"}}, by)

		require.NoError(t, err)
		assert.Empty(t, effects)
		assert.False(t, c.Item(ids[0]).Decision.Approved)
		assert.True(t, c.Item(ids[0]).Decision.AppliedQuantity.IsZero())
	})

	t.Run("missing reason fails without changes", func(t *testing.T) {
		c, ids := completedCount(t, []int64{100, 40}, []int64{92, 40})

		_, err := c.Reconcile([]Decision{
			{ProductID: ids[0], Approve: true, ReasonCode: "SHRINKAGE"},
			{ProductID: ids[1], Approve: false, ReasonCode: ""},
		}, by)

		assert.True(t, errors.Is(err, shared.ErrMissingReason))
		assert.Equal(t, CountStatusCompleted, c.Status)
		assert.Nil(t, c.Item(ids[0]).Decision)
	})

	t.Run("every item needs a decision", func(t *testing.T) {
		c, ids := completedCount(t, []int64{100, 40}, []int64{92, 40})

		_, err := c.Reconcile([]Decision{{ProductID: ids[0], Approve: true, ReasonCode: "SHRINKAGE"}}, by)

		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		assert.Equal(t, CountStatusCompleted, c.Status)
	})

	t.Run("only completed counts reconcile", func(t *testing.T) {
		c, ids := newTestCount(t, 10)
		_, err := c.Reconcile([]Decision{{ProductID: ids[0], Approve: true, ReasonCode: "X"}}, by)
		assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
	})

	t.Run("reconciled count is frozen", func(t *testing.T) {
		c, ids := completedCount(t, []int64{10}, []int64{10})
		_, err := c.Reconcile([]Decision{{ProductID: ids[0], Approve: true, ReasonCode: "OK"}}, by)
		require.NoError(t, err)

		err = c.RecordActual(ids[0], decimal.NewFromInt(3))
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		_, err = c.Reconcile([]Decision{{ProductID: ids[0], Approve: true, ReasonCode: "OK"}}, by)
		assert.True(t, errors.Is(err, shared.ErrInvalidStateTransition))
	})
}
