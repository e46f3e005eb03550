package fifo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
)

// TestQueueOrder 测试各后端先进先出以及队列之间相互隔离.
func TestQueueOrder(t *testing.T) {
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "fifo.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	backends := map[fifo.Type]any{
		fifo.TypeMemory: nil,
		fifo.TypeDB:     db,
	}

	for typ, cfg := range backends {
		t.Run(string(typ), func(t *testing.T) {
			q, err := fifo.New(ctx, typ, "deletion", cfg)
			require.NoError(t, err)

			other, err := fifo.New(ctx, typ, "other", cfg)
			require.NoError(t, err)

			_, err = q.PopFront(ctx)
			require.ErrorIs(t, err, fifo.ErrEmpty)

			for _, v := range []string{"a", "b", "c"} {
				require.NoError(t, q.PushBack(ctx, []byte(v)))
			}

			require.NoError(t, other.PushBack(ctx, []byte("z")))

			n, err := q.Size(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			for _, want := range []string{"a", "b", "c"} {
				got, err := q.PopFront(ctx)
				require.NoError(t, err)
				assert.Equal(t, want, string(got))
			}

			_, err = q.PopFront(ctx)
			require.ErrorIs(t, err, fifo.ErrEmpty)

			n, err = other.Size(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}
