package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-engine/backend/internal/domain"
)

const (
	// ProvisionQueueName 承载会议室开通的后续任务
	ProvisionQueueName = "provision_queue"
	// EmailQueueName 承载发给管理员的邮件
	EmailQueueName = "email_queue"
)

// ProvisionTask 是物化成功后发给开通 worker 的消息。
// 开通失败不会回滚班次创建，worker 把消息重新入队等待重试。
type ProvisionTask struct {
	ShiftID        string    `json:"shiftID"`
	StartAt        time.Time `json:"startAt"`
	EndAt          time.Time `json:"endAt"`
	ParticipantIDs []string  `json:"participantIDs"`
}

type Publisher struct {
	cfg *config.Config
	ch  *amqp.Channel
}

func NewPublisher(cfg *config.Config, ch *amqp.Channel) *Publisher {
	return &Publisher{
		cfg: cfg,
		ch:  ch,
	}
}

// DeclareQueues 声明本服务用到的所有持久化队列。
func DeclareQueues(ch *amqp.Channel) error {
	for _, name := range []string{ProvisionQueueName, EmailQueueName} {
		if _, err := ch.QueueDeclare(
			name,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *Publisher) PublishProvisionTask(task ProvisionTask) error {
	return p.publish(ProvisionQueueName, task)
}

func (p *Publisher) PublishMailMessage(msg domain.MailMessage) error {
	return p.publish(EmailQueueName, msg)
}
