package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Env  string `mapstructure:"env" yaml:"env"`
}

// DeviceConfig HID 设备连接配置
type DeviceConfig struct {
	Path           string        `mapstructure:"path" yaml:"path"`
	ChunkSize      int           `mapstructure:"chunkSize" yaml:"chunkSize"`
	Reconnect      bool          `mapstructure:"reconnect" yaml:"reconnect"`
	ReconnectDelay time.Duration `mapstructure:"reconnectDelay" yaml:"reconnectDelay"`
	MaxRetries     int           `mapstructure:"maxRetries" yaml:"maxRetries"` // 0 表示不限次数
	FrameRate      float64       `mapstructure:"frameRate" yaml:"frameRate"`   // 入站帧限流，0 不限
	FrameBurst     int           `mapstructure:"frameBurst" yaml:"frameBurst"`
}

// MonitorConfig 总线监视配置
type MonitorConfig struct {
	CodeMapFile  string        `mapstructure:"codeMapFile" yaml:"codeMapFile"`   // cEMI 消息码映射文件，空用内置默认
	PollInterval time.Duration `mapstructure:"pollInterval" yaml:"pollInterval"` // 总线状态轮询间隔，0 关闭
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable" yaml:"enable"`
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// MQTTConfig 总线帧桥接到 MQTT 的配置
type MQTTConfig struct {
	Enable      bool          `mapstructure:"enable" yaml:"enable"`
	Broker      string        `mapstructure:"broker" yaml:"broker"`
	ClientID    string        `mapstructure:"clientId" yaml:"clientId"`
	Username    string        `mapstructure:"username" yaml:"username"`
	Password    string        `mapstructure:"password" yaml:"password"`
	TopicPrefix string        `mapstructure:"topicPrefix" yaml:"topicPrefix"`
	QoS         byte          `mapstructure:"qos" yaml:"qos"`
	KeepAlive   time.Duration `mapstructure:"keepAlive" yaml:"keepAlive"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	MQTT    MQTTConfig    `mapstructure:"mqtt" yaml:"mqtt"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 KNXUSB_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("KNXUSB_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 KNXUSB_，并将点号替换为下划线
	v.SetEnvPrefix("KNXUSB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "knx-busmon")
	v.SetDefault("app.env", "dev")

	v.SetDefault("device.path", "/dev/hidraw0")
	v.SetDefault("device.chunkSize", 64)
	v.SetDefault("device.reconnect", true)
	v.SetDefault("device.reconnectDelay", "3s")
	v.SetDefault("device.maxRetries", 0)
	v.SetDefault("device.frameRate", 0)
	v.SetDefault("device.frameBurst", 0)

	v.SetDefault("monitor.codeMapFile", "")
	v.SetDefault("monitor.pollInterval", "0s")

	v.SetDefault("http.enable", true)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/knx-busmon.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.broker", "tcp://127.0.0.1:1883")
	v.SetDefault("mqtt.clientId", "knx-busmon")
	v.SetDefault("mqtt.topicPrefix", "knx")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.keepAlive", "30s")
}
