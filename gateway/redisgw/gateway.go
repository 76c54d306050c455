// Package redisgw bridges an external wire protocol, carried over Redis
// pub/sub channels, into hub bus messages and back. It is a collaborator at
// the bus boundary: inbound frames become conventionally-typed property
// reports, and the gateway itself subscribes to the bus to push outbound
// device commands onto the wire.
package redisgw

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xhab"
	"github.com/trickstertwo/xlog"
)

// Bus event types crossing the gateway boundary.
const (
	// EventPropertyReported is published for each inbound frame.
	EventPropertyReported = "gateway.event.property_reported"
	// EventCommand is the bus-side type the gateway subscribes to; matched
	// messages are marshaled onto the egress channel.
	EventCommand = "device.event.command"
)

// Frame is the wire-level JSON shape on both channels. The stable key
// convention (device/property identifiers as explicit fields) is what lets
// unrelated subsystems filter on gateway traffic.
type Frame struct {
	Device   string `json:"device"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}

// BusAPI is the slice of the bus the gateway uses.
type BusAPI interface {
	Publish(msg xhab.Message) error
	Subscribe(uid string, filter xhab.Message, cb xhab.Callback) (string, error)
	Unsubscribe(uid string) error
}

// Gateway pumps frames between the wire and the bus.
type Gateway struct {
	cfg    Config
	bus    BusAPI
	client *redis.Client
	logger *xlog.Logger

	subUID    string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New connects to the broker and returns a stopped gateway; Start begins
// pumping. Connection failures surface here, not at first use.
func New(cfg Config, bus BusAPI, logger *xlog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = xlog.Default()
	}
	client := cfg.client()

	pctx, pcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer pcancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisgw: broker unreachable: %w", err)
	}

	return &Gateway{cfg: cfg, bus: bus, client: client, logger: logger}, nil
}

// Start subscribes to bus command traffic and launches the ingress pump.
func (g *Gateway) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	uid, err := g.bus.Subscribe("", xhab.Message{xhab.TypeKey: EventCommand}, g.onCommand(runCtx))
	if err != nil {
		cancel()
		return err
	}
	g.subUID = uid

	sub := g.client.Subscribe(runCtx, g.cfg.IngressChannel)
	g.wg.Add(1)
	go g.ingressPump(runCtx, sub)
	return nil
}

// ingressPump translates inbound frames into bus messages until ctx ends.
func (g *Gateway) ingressPump(ctx context.Context, sub *redis.PubSub) {
	defer g.wg.Done()
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			g.handleFrame([]byte(m.Payload))
		}
	}
}

func (g *Gateway) handleFrame(payload []byte) {
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		g.logger.Warn().Err(err).Msg("redisgw: malformed ingress frame")
		return
	}
	if err := g.bus.Publish(IngressMessage(f)); err != nil {
		g.logger.Warn().Err(err).Msg("redisgw: publish failed")
	}
}

// IngressMessage maps a wire frame onto the bus key convention.
func IngressMessage(f Frame) xhab.Message {
	return xhab.Message{
		xhab.TypeKey: EventPropertyReported,
		"device":     f.Device,
		"property":   f.Property,
		"value":      f.Value,
	}
}

// EgressFrame maps a bus command message onto the wire shape. ok is false
// when the message lacks the device field.
func EgressFrame(msg xhab.Message) (Frame, bool) {
	dev, _ := msg["device"].(string)
	if dev == "" {
		return Frame{}, false
	}
	prop, _ := msg["property"].(string)
	return Frame{Device: dev, Property: prop, Value: msg["value"]}, true
}

// onCommand returns the bus callback pushing command messages to the wire.
func (g *Gateway) onCommand(ctx context.Context) xhab.Callback {
	return func(msg xhab.Message) {
		f, ok := EgressFrame(msg)
		if !ok {
			g.logger.Warn().Str("event", msg.Type()).Msg("redisgw: command without device field")
			return
		}
		payload, err := json.Marshal(f)
		if err != nil {
			g.logger.Warn().Err(err).Msg("redisgw: marshal command")
			return
		}
		if err := g.client.Publish(ctx, g.cfg.EgressChannel, payload).Err(); err != nil {
			g.logger.Warn().Err(err).Msg("redisgw: egress publish failed")
		}
	}
}

// Close unsubscribes from the bus, stops the pump, and closes the client.
func (g *Gateway) Close() error {
	var err error
	g.closeOnce.Do(func() {
		if g.subUID != "" {
			_ = g.bus.Unsubscribe(g.subUID)
		}
		if g.cancel != nil {
			g.cancel()
		}
		g.wg.Wait()
		err = g.client.Close()
	})
	return err
}
