// Package transport broadcasts and receives the fixed-size binary control
// frames over MQTT. Delivery is best effort (QoS 0): the master's liveness
// timeout, not the transport, is the correctness backstop.
package transport

import (
	"context"
	"fmt"
	"net/url"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"code.siemens.com/pv-string-controller/common"
)

const (
	statusTopic  = "pvsc/status"
	commandTopic = "pvsc/command"
)

var framesDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pvsc_frames_discarded_total",
	Help: "Received frames dropped at the transport boundary.",
}, []string{"reason"})

// Connector is the MQTT transport adapter shared by master and nodes.
type Connector struct {
	cfg       *common.Config
	cliCfg    autopaho.ClientConfig
	conn      *autopaho.ConnectionManager
	router    *paho.StandardRouter
	statusCh  chan common.NodeStatus
	commandCh chan common.MasterCommand
}

func NewConnector(cfg *common.Config) (*Connector, error) {
	u, err := url.Parse(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("invalid broker url: %w", err)
	}

	c := Connector{cfg: cfg, router: paho.NewStandardRouter()}

	c.cliCfg = autopaho.ClientConfig{
		BrokerUrls: []*url.URL{u},
		KeepAlive:  20,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			log.Info().Str("comp", "transport").Msg("mqtt connection up")
		},
		OnConnectError: func(err error) {
			log.Error().Str("comp", "transport").Err(err).Msg("mqtt connect failed")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: cfg.Id,
			Router:   c.router,
			OnClientError: func(err error) {
				log.Error().Str("comp", "transport").Err(err).Msg("mqtt client error")
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				if d.Properties != nil {
					log.Warn().Str("comp", "transport").Str("reason", d.Properties.ReasonString).Msg("server disconnect")
				} else {
					log.Warn().Str("comp", "transport").Uint8("code", d.ReasonCode).Msg("server disconnect")
				}
			},
		},
	}

	return &c, nil
}

func (c *Connector) Open(ctx context.Context) error {
	conn, err := autopaho.NewConnection(ctx, c.cliCfg)
	if err != nil {
		return err
	}

	if err = conn.AwaitConnection(ctx); err != nil {
		return err
	}

	c.conn = conn
	return nil
}

func (c *Connector) Close() {
	if c.conn != nil {
		c.conn.Disconnect(context.Background())
	}
}

// PublishStatus sends a node status frame to the master.
func (c *Connector) PublishStatus(ctx context.Context, status common.NodeStatus) error {
	payload, err := status.MarshalBinary()
	if err != nil {
		return err
	}
	return c.publish(ctx, statusTopic, payload)
}

// BroadcastCommand sends a master command frame to all nodes.
func (c *Connector) BroadcastCommand(ctx context.Context, cmd common.MasterCommand) error {
	payload, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}
	return c.publish(ctx, commandTopic, payload)
}

func (c *Connector) publish(ctx context.Context, topic string, payload []byte) error {
	_, err := c.conn.Publish(ctx, &paho.Publish{
		QoS:     0,
		Topic:   topic,
		Payload: payload,
	})
	return err
}

// SubscribeStatus delivers validated node status frames. The receive handler
// runs on the MQTT client's goroutine and must stay non-blocking: frames are
// size- and id-checked, then handed over with replace-or-drop semantics.
func (c *Connector) SubscribeStatus(ctx context.Context) (<-chan common.NodeStatus, error) {
	c.statusCh = make(chan common.NodeStatus, c.cfg.Master.NumNodes)

	c.router.RegisterHandler(statusTopic, func(p *paho.Publish) {
		var status common.NodeStatus
		if err := status.UnmarshalBinary(p.Payload); err != nil {
			framesDiscarded.WithLabelValues("size").Inc()
			return
		}
		if status.NodeId < 1 || int(status.NodeId) > c.cfg.Master.NumNodes {
			framesDiscarded.WithLabelValues("node_id").Inc()
			return
		}
		select {
		case c.statusCh <- status:
		default:
			framesDiscarded.WithLabelValues("backpressure").Inc()
		}
	})

	if err := c.subscribe(ctx, statusTopic); err != nil {
		return nil, err
	}
	return c.statusCh, nil
}

// SubscribeCommands delivers master command frames to a node.
func (c *Connector) SubscribeCommands(ctx context.Context) (<-chan common.MasterCommand, error) {
	c.commandCh = make(chan common.MasterCommand, 4)

	c.router.RegisterHandler(commandTopic, func(p *paho.Publish) {
		var cmd common.MasterCommand
		if err := cmd.UnmarshalBinary(p.Payload); err != nil {
			framesDiscarded.WithLabelValues("size").Inc()
			return
		}
		select {
		case c.commandCh <- cmd:
		default:
			framesDiscarded.WithLabelValues("backpressure").Inc()
		}
	})

	if err := c.subscribe(ctx, commandTopic); err != nil {
		return nil, err
	}
	return c.commandCh, nil
}

func (c *Connector) subscribe(ctx context.Context, topic string) error {
	_, err := c.conn.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 0}},
	})
	return err
}
