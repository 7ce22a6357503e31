package web

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Bus 是进程内渲染总线：每个客户端一个 topic，每个 WebSocket 连接一个订阅者。
// 发布会阻塞到全部订阅者确认，token 的生成节奏因此跟随页面写出节奏。
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus 创建渲染总线。
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            16,
			BlockPublishUntilSubscriberAck: true,
		}, NewWatermillLogger(logger)),
	}
}

func clientTopic(clientID string) string {
	return "client." + clientID
}

// Publish 把帧投递给客户端的全部连接；没有连接时直接丢弃。
func (b *Bus) Publish(clientID string, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "encode frame")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", frame.Type)
	return errors.Wrap(b.pubsub.Publish(clientTopic(clientID), msg), "publish frame")
}

// Subscribe 订阅客户端 topic，ctx 取消时通道关闭。
// 消费方处理完每条消息后必须 Ack，否则发布方会一直阻塞。
func (b *Bus) Subscribe(ctx context.Context, clientID string) (<-chan *message.Message, error) {
	ch, err := b.pubsub.Subscribe(ctx, clientTopic(clientID))
	if err != nil {
		return nil, errors.Wrap(err, "subscribe client topic")
	}
	return ch, nil
}

// Close 关闭总线，阻塞中的发布与订阅都会返回。
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger 将 watermill 日志转到 zerolog。
type watermillLogger struct {
	logger zerolog.Logger
}

// NewWatermillLogger 返回基于 zerolog 的 watermill.LoggerAdapter。
func NewWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return watermillLogger{logger: logger.With().Str("component", "watermill").Logger()}
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{logger: l.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}
