package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/knx-usb/internal/config"
)

func TestTopicShaping(t *testing.T) {
	assert.Equal(t, "knx/frames/L_Data.ind", FrameTopic("knx", "L_Data.ind"))
	assert.Equal(t, "knx/frames/0x42", FrameTopic("knx", "0x42"))
	assert.Equal(t, "home/bus/frames/L_Data.con", FrameTopic("home/bus", "L_Data.con"))
	assert.Equal(t, "knx/send", SendTopic("knx"))
}

func TestPublishBeforeStart(t *testing.T) {
	c := New(cfgpkg.MQTTConfig{TopicPrefix: "knx"}, zap.NewNop())

	assert.False(t, c.Running())
	assert.False(t, c.Connected())

	err := c.PublishFrame("L_Data.ind", []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotRunning)

	err = c.SubscribeSend(func([]byte) {})
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	c := New(cfgpkg.MQTTConfig{}, nil)
	c.Stop()
}
