package tr

import (
	"context"
	"testing"

	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/stretchr/testify/require"
)

func TestTxFromCtx_Missing(t *testing.T) {
	_, err := TxFromCtx(context.Background())
	require.ErrorIs(t, err, e.ErrTransactionNotFound)
}

func TestTxFromCtx_IgnoresForeignKeys(t *testing.T) {
	ctx := context.WithValue(context.Background(), "tx", "not a tx") //nolint:staticcheck

	_, err := TxFromCtx(ctx)
	require.ErrorIs(t, err, e.ErrTransactionNotFound)
}
