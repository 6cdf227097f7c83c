// internal/bridge/mqtt/commands.go
package mqtt

import (
	"context"
	"encoding/json"

	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"
)

// Request is the payload of a write command.
type Request struct {
	Channel *int  `json:"channel"`
	Value   *bool `json:"value"`
}

// Response is published back after each command.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handle runs one command and publishes the outcome.
func (mc *Client) handle(p *paho.Publish) {
	resp := mc.execute(p)

	payload, err := json.Marshal(resp)
	if err != nil {
		mc.logger.Error("encode command response", "err", err)
		return
	}

	out := &paho.Publish{
		Topic:   p.Topic + "/response",
		QoS:     p.QoS,
		Payload: payload,
	}
	if p.Properties != nil && p.Properties.ResponseTopic != "" {
		out.Topic = p.Properties.ResponseTopic
		out.Properties = &paho.PublishProperties{
			CorrelationData: p.Properties.CorrelationData,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := mc.respond(ctx, out); err != nil {
		mc.logger.Error("publish command response", "topic", out.Topic, "err", err)
	}
}

func (mc *Client) execute(p *paho.Publish) Response {
	dir, ok := mc.commands[p.Topic]
	if !ok {
		return Response{Error: errors.Errorf("unknown command topic %q", p.Topic).Error()}
	}

	var req Request
	if err := json.Unmarshal(p.Payload, &req); err != nil {
		return Response{Error: errors.Wrap(err, "decode request").Error()}
	}
	if req.Channel == nil || req.Value == nil {
		return Response{Error: "request needs channel and value"}
	}

	if err := mc.cmd.SetChannel(dir, *req.Channel, *req.Value); err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Success: true}
}
