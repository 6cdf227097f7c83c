// internal/bridge/mqtt/client.go
package mqtt

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/tamzrod/modbus-io/internal/poller"
)

const (
	keepAliveSeconds = 20
	subscribeTimeout = 10 * time.Second
	publishTimeout   = 2 * time.Second

	TopicSnapshot    = "input_output"
	TopicWriteOutput = "write_digital_output"
	TopicWriteInput  = "write_digital_input"
)

// ErrNotStarted is returned by Publish before Start.
var ErrNotStarted = errors.New("mqtt: client not started")

// Commander executes channel commands. *command.Handler satisfies it.
type Commander interface {
	SetChannel(dir poller.Direction, channel int, value bool) error
}

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// Client bridges snapshots and commands over one autopaho connection.
// It is a poller.Sink.
type Client struct {
	prefix   string
	commands map[string]poller.Direction
	cmd      Commander
	logger   *log.Logger

	config autopaho.ClientConfig

	mu   sync.RWMutex
	conn *autopaho.ConnectionManager

	// respond is swapped in tests.
	respond func(ctx context.Context, p *paho.Publish) error
}

func New(cfg Config, cmd Commander, logger *log.Logger) (*Client, error) {
	addr, err := url.Parse(cfg.Broker)
	if err != nil {
		return nil, errors.Wrap(err, "mqtt: parse broker")
	}

	mc := &Client{
		prefix: cfg.TopicPrefix,
		commands: map[string]poller.Direction{
			cfg.TopicPrefix + "/" + TopicWriteOutput: poller.Outputs,
			cfg.TopicPrefix + "/" + TopicWriteInput:  poller.Inputs,
		},
		cmd:    cmd,
		logger: logger,
	}
	mc.respond = mc.publish

	mc.config = autopaho.ClientConfig{
		ServerUrls:     []*url.URL{addr},
		KeepAlive:      keepAliveSeconds,
		OnConnectionUp: mc.onConnUp,
		OnConnectError: mc.onConnError,
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				mc.onPublishReceived,
			},
			OnClientError:      mc.onConnError,
			OnServerDisconnect: mc.onSrvDisconnect,
		},
	}

	return mc, nil
}

// Start opens the managed connection. autopaho keeps reconnecting on its own
// until ctx is cancelled; Start does not wait for the first connection.
func (mc *Client) Start(ctx context.Context) error {
	cm, err := autopaho.NewConnection(ctx, mc.config)
	if err != nil {
		return errors.Wrap(err, "mqtt: new connection")
	}

	mc.mu.Lock()
	mc.conn = cm
	mc.mu.Unlock()
	return nil
}

// Stop disconnects gracefully.
func (mc *Client) Stop(ctx context.Context) error {
	cm := mc.connection()
	if cm == nil {
		return nil
	}
	return cm.Disconnect(ctx)
}

// Publish sends one snapshot as JSON to <prefix>/input_output.
func (mc *Client) Publish(s poller.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "mqtt: encode snapshot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	return mc.publish(ctx, &paho.Publish{
		Topic:   mc.prefix + "/" + TopicSnapshot,
		QoS:     0,
		Payload: payload,
	})
}

func (mc *Client) publish(ctx context.Context, p *paho.Publish) error {
	cm := mc.connection()
	if cm == nil {
		return ErrNotStarted
	}
	if _, err := cm.Publish(ctx, p); err != nil {
		return errors.Wrapf(err, "mqtt: publish %s", p.Topic)
	}
	return nil
}

func (mc *Client) connection() *autopaho.ConnectionManager {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.conn
}

func (mc *Client) onConnUp(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
	mc.logger.Info("connected to MQTT broker")

	subs := make([]paho.SubscribeOptions, 0, len(mc.commands))
	for topic := range mc.commands {
		subs = append(subs, paho.SubscribeOptions{
			QoS:   1,
			Topic: topic,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()

	if _, err := cm.Subscribe(ctx, &paho.Subscribe{Subscriptions: subs}); err != nil {
		mc.logger.Error("failed to subscribe to command topics", "err", err)
	}
}

func (mc *Client) onConnError(err error) {
	mc.logger.Error("mqtt error", "err", err)
}

func (mc *Client) onSrvDisconnect(d *paho.Disconnect) {
	mc.logger.Info("disconnected from MQTT broker", "reason", d.ReasonCode)
}

func (mc *Client) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	if _, ok := mc.commands[pr.Packet.Topic]; !ok {
		return false, nil
	}
	go mc.handle(pr.Packet)
	return true, nil
}
