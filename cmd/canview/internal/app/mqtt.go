package app

import (
	"context"
	"fmt"
	"net"

	"github.com/eclipse/paho.golang/packets"
	"github.com/eclipse/paho.golang/paho"
)

// MQTTSink publishes records as JSON on <topic>/<ecu>/<message>.
type MQTTSink struct {
	client *paho.Client
	topic  string
}

// DialMQTT connects to the broker named in cfg.
func DialMQTT(ctx context.Context, cfg Config, logger Logger) (*MQTTSink, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.MQTTBroker)
	if err != nil {
		return nil, fmt.Errorf("dial broker %s: %w", cfg.MQTTBroker, err)
	}
	logger.Debugf("connected to broker %s", cfg.MQTTBroker)

	client := paho.NewClient(paho.ClientConfig{
		Conn: packets.NewThreadSafeConn(conn),
	})

	ca, err := client.Connect(ctx, &paho.Connect{
		KeepAlive:  30,
		ClientID:   cfg.MQTTClientID,
		CleanStart: true,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	if ca.ReasonCode != 0 {
		_ = conn.Close()
		reason := ""
		if ca.Properties != nil {
			reason = ca.Properties.ReasonString
		}
		return nil, fmt.Errorf("mqtt connect to %s refused: %d - %s", cfg.MQTTBroker, ca.ReasonCode, reason)
	}

	logger.Infof("publishing decoded frames to %s under %s", cfg.MQTTBroker, cfg.MQTTTopic)
	return &MQTTSink{client: client, topic: cfg.MQTTTopic}, nil
}

func (s *MQTTSink) Publish(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.client.Publish(ctx, &paho.Publish{
		Topic:   mqttTopic(s.topic, rec),
		QoS:     0,
		Payload: payload,
	})
	return err
}

func (s *MQTTSink) Close() error {
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

func mqttTopic(base string, rec Record) string {
	return base + "/" + rec.Ecu + "/" + rec.Message
}
