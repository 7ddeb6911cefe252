package provision

import (
	"context"
	"fmt"

	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/queue"
)

// Provisioner 是视频会议室开通方的接口。真正的开通由外部服务完成，
// 这里只约定输入输出：成功时返回一个不透明的会议室句柄，
// 由 worker 回填到班次上。
type Provisioner interface {
	Provision(ctx context.Context, task queue.ProvisionTask) (string, error)
}

// LiveKitRoomProvisioner 按班次 ID 派生会议室名，
// 房间本身由 LiveKit 在第一个参与者加入时按名字自动创建。
type LiveKitRoomProvisioner struct{}

func NewLiveKitRoomProvisioner() *LiveKitRoomProvisioner {
	return &LiveKitRoomProvisioner{}
}

func (p *LiveKitRoomProvisioner) Provision(_ context.Context, task queue.ProvisionTask) (string, error) {
	if task.ShiftID == "" {
		return "", fmt.Errorf("开通任务缺少班次 ID")
	}
	return fmt.Sprintf("shift_%s", task.ShiftID), nil
}
