package tx

import (
	"errors"
	"testing"

	"github.com/calehh/hac-dao/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalUnknownType(t *testing.T) {
	_, err := UnmarshalDAOTx([]byte(`{"version":1,"type":99,"nonce":0,"tx":{}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnsupportedTxType))
	_, code, _ := types.ABCIInfo(err)
	assert.Equal(t, types.ErrUnsupportedTxType.Code(), code)

	_, err = UnmarshalDAOTx([]byte(`not json`))
	assert.True(t, errors.Is(err, types.ErrUnsupportedTxType))
}
