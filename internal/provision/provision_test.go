package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
)

func TestLiveKitRoomProvisioner(t *testing.T) {
	p := NewLiveKitRoomProvisioner()

	handle, err := p.Provision(context.Background(), queue.ProvisionTask{ShiftID: "tpl_tpl_1_1767452400"})
	require.NoError(t, err)
	require.Equal(t, "shift_tpl_tpl_1_1767452400", handle)

	// 同一个班次重试得到同一个句柄
	again, err := p.Provision(context.Background(), queue.ProvisionTask{ShiftID: "tpl_tpl_1_1767452400"})
	require.NoError(t, err)
	require.Equal(t, handle, again)

	_, err = p.Provision(context.Background(), queue.ProvisionTask{})
	require.Error(t, err)
}
