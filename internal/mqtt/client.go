package mqtt

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/knx-usb/internal/config"
)

var (
	ErrAlreadyRunning = errors.New("mqtt client already running")
	ErrNotRunning     = errors.New("mqtt client not running")
	ErrNotConnected   = errors.New("mqtt broker not connected")
)

const connectTimeout = 10 * time.Second

// Client paho MQTT 客户端封装
// 发布解码帧到 <prefix>/frames/<code>，订阅 <prefix>/send 注入发送。
type Client struct {
	cfg    cfgpkg.MQTTConfig
	logger *zap.Logger

	mu      sync.RWMutex
	cli     paho.Client
	running bool
}

// New 创建 MQTT 客户端，Start 之前不建立连接
func New(cfg cfgpkg.MQTTConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}
}

// FrameTopic 帧发布主题
func FrameTopic(prefix, code string) string {
	return fmt.Sprintf("%s/frames/%s", prefix, code)
}

// SendTopic 发送注入主题
func SendTopic(prefix string) string {
	return prefix + "/send"
}

// Start 连接 broker，阻塞至连接成功或超时
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrAlreadyRunning
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.cfg.Broker)
	opts.SetClientID(c.cfg.ClientID)
	opts.SetUsername(c.cfg.Username)
	opts.SetPassword(c.cfg.Password)
	opts.SetKeepAlive(c.cfg.KeepAlive)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(paho.Client) {
		c.logger.Info("mqtt connected", zap.String("broker", c.cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.logger.Error("mqtt connection lost", zap.Error(err))
	})

	cli := paho.NewClient(opts)
	tok := cli.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect %s: timeout", c.cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.Broker, err)
	}

	c.cli = cli
	c.running = true
	c.logger.Info("mqtt client started",
		zap.String("broker", c.cfg.Broker),
		zap.String("client_id", c.cfg.ClientID))
	return nil
}

// Stop 断开连接
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
	c.running = false
	c.logger.Info("mqtt client stopped")
}

// Running 返回客户端是否已启动
func (c *Client) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Connected 返回是否已连上 broker
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running && c.cli != nil && c.cli.IsConnected()
}

// PublishFrame 发布一条解码帧到 <prefix>/frames/<code>
func (c *Client) PublishFrame(code string, body []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.running {
		return ErrNotRunning
	}
	if c.cli == nil || !c.cli.IsConnected() {
		return ErrNotConnected
	}

	topic := FrameTopic(c.cfg.TopicPrefix, code)
	tok := c.cli.Publish(topic, c.cfg.QoS, false, body)
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SubscribeSend 订阅 <prefix>/send，消息载荷为十六进制编码的 EMI 报文
func (c *Client) SubscribeSend(fn func(payload []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNotRunning
	}
	if c.cli == nil || !c.cli.IsConnected() {
		return ErrNotConnected
	}

	topic := SendTopic(c.cfg.TopicPrefix)
	tok := c.cli.Subscribe(topic, c.cfg.QoS, func(_ paho.Client, m paho.Message) {
		raw, err := hex.DecodeString(strings.TrimSpace(string(m.Payload())))
		if err != nil {
			c.logger.Warn("ignore malformed send message",
				zap.String("topic", m.Topic()), zap.Error(err))
			return
		}
		fn(raw)
	})
	if err := tok.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.logger.Info("mqtt send topic subscribed", zap.String("topic", topic))
	return nil
}
