package mq

import (
	"context"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/advstorage/pkg/configs"
)

const (
	drainTimeout   = 30 * time.Second
	flusherTimeout = 10 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsOptions 连接选项.认证优先级：JWT、NKey、用户名密码.
func natsOptions(cfg *configs.MQConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.Common.ClientID),
		nc.MaxReconnects(cfg.Common.MaxReconnects),
		nc.ReconnectWait(time.Duration(cfg.Common.ReconnectWait) * time.Second),
		nc.PingInterval(time.Duration(cfg.Common.PingInterval) * time.Second),
		nc.ReconnectBufSize(cfg.Common.BufferSize),
		nc.DrainTimeout(drainTimeout),
		nc.FlusherTimeout(flusherTimeout),
		nc.RetryOnFailedConnect(true),
	}

	switch {
	case cfg.NATS.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.NATS.JWT, cfg.NATS.NKey))
	case cfg.NATS.NKey != "":
		opts = append(opts, nc.Nkey(cfg.NATS.NKey, nil))
	case cfg.Common.User != "":
		opts = append(opts, nc.UserInfo(cfg.Common.User, cfg.Common.Password))
	}

	return opts
}

func jetStreamConfig(cfg *configs.MQConfig) nats.JetStreamConfig {
	if !cfg.NATS.JetStreamEnabled {
		return nats.JetStreamConfig{Disabled: true}
	}

	return nats.JetStreamConfig{
		AutoProvision: cfg.NATS.JetStreamAutoProvision,
		TrackMsgId:    cfg.NATS.JetStreamTrackMsgID,
		AckAsync:      cfg.NATS.JetStreamAckAsync,
		DurablePrefix: cfg.NATS.JetStreamDurablePrefix,
	}
}

// natsURL 配置了集群地址时优先使用.
func natsURL(cfg *configs.MQConfig) string {
	if len(cfg.NATS.ClusterURLs) > 0 {
		return strings.Join(cfg.NATS.ClusterURLs, ",")
	}

	return cfg.Common.URL
}

// natsFactory 创建 NATS 发布者与订阅者，事件主题直接作为 subject.
func natsFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	opts := natsOptions(cfg)
	js := jetStreamConfig(cfg)
	marshaler := &nats.JSONMarshaler{}
	url := natsURL(cfg)

	logger.Info("connecting to nats", watermill.LogFields{
		"url":       url,
		"jetstream": cfg.NATS.JetStreamEnabled,
	})

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Unmarshaler: marshaler,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, err
	}

	return pub, sub, nil
}
