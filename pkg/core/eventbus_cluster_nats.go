package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/grainstate/pkg/core/concurrency"
	"github.com/nats-io/nats.go"
)

// ClusterNATSConfig configures a NATS-backed EventBus for clustered hosts,
// used when actor.Adapter is configured with a stream namespace and the
// host runs more than one process (spec.md 4.E / section 6 pub/sub
// collaborator).
type ClusterNATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://127.0.0.1:4222".
	URL string
	// Prefix is prepended to all subjects. Default: "grainstate".
	Prefix string
	// Name is an optional NATS connection name.
	Name string
	// RequestTimeout is the default timeout used by Request when timeout==0.
	RequestTimeout time.Duration
	// ExecutorConfig controls bounded handler execution for inbound messages.
	ExecutorConfig concurrency.ExecutorConfig
}

// NewClusterEventBusNATS connects to NATS and returns a clustered EventBus.
//
// Address mapping:
//   - Publish: <prefix>.pub.<address>  (fan-out)
//   - Send:    <prefix>.send.<address> (queue group: one consumer wins)
//   - Request: <prefix>.req.<address>  (queue group, reply via NATS inbox)
func NewClusterEventBusNATS(ctx context.Context, cfg ClusterNATSConfig) (EventBus, error) {
	if ctx == nil {
		return nil, fmt.Errorf("core: ctx cannot be nil")
	}
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "grainstate"
	}
	reqTimeout := cfg.RequestTimeout
	if reqTimeout <= 0 {
		reqTimeout = 5 * time.Second
	}
	execCfg := cfg.ExecutorConfig
	if execCfg.Workers == 0 && execCfg.QueueSize == 0 {
		execCfg = concurrency.DefaultExecutorConfig()
		execCfg.Workers = 16
		execCfg.QueueSize = 4096
	}

	nc, err := nats.Connect(url, func(o *nats.Options) error {
		if cfg.Name != "" {
			o.Name = cfg.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &clusterNATSEventBus{
		ctx:            ctx,
		nc:             nc,
		prefix:         prefix,
		requestTimeout: reqTimeout,
		executor:       concurrency.NewExecutor(ctx, execCfg),
		logger:         NewDefaultLogger(),
	}, nil
}

type clusterNATSEventBus struct {
	ctx context.Context
	nc  *nats.Conn

	prefix         string
	requestTimeout time.Duration

	executor concurrency.Executor
	logger   Logger
}

func (eb *clusterNATSEventBus) Publish(address string, body interface{}) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if err := ValidateBody(body); err != nil {
		return err
	}
	data, err := encodeBody(body)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: eb.subjectPub(address), Data: data, Header: nats.Header{}}
	if rid := GetRequestID(eb.ctx); rid != "" {
		msg.Header.Set("X-Request-ID", rid)
	}
	return eb.nc.PublishMsg(msg)
}

func (eb *clusterNATSEventBus) Send(address string, body interface{}) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	if err := ValidateBody(body); err != nil {
		return err
	}
	data, err := encodeBody(body)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: eb.subjectSend(address), Data: data, Header: nats.Header{}}
	if rid := GetRequestID(eb.ctx); rid != "" {
		msg.Header.Set("X-Request-ID", rid)
	}
	return eb.nc.PublishMsg(msg)
}

func (eb *clusterNATSEventBus) Request(address string, body interface{}, timeout time.Duration) (Message, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	if err := ValidateBody(body); err != nil {
		return nil, err
	}
	if err := ValidateTimeout(timeout); err != nil {
		return nil, err
	}
	data, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = eb.requestTimeout
	}
	msg := &nats.Msg{Subject: eb.subjectReq(address), Data: data, Header: nats.Header{}}
	if rid := GetRequestID(eb.ctx); rid != "" {
		msg.Header.Set("X-Request-ID", rid)
	}
	resp, err := eb.nc.RequestMsg(msg, timeout)
	if err != nil {
		return nil, err
	}
	h := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			h[k] = v[0]
		}
	}
	return &clusterNATSMessage{body: resp.Data, headers: h, eb: eb}, nil
}

func (eb *clusterNATSEventBus) Consumer(address string) Consumer {
	if err := ValidateAddress(address); err != nil {
		// Invalid address here is a programmer error, not a runtime condition.
		panic(err)
	}
	return &clusterNATSConsumer{address: address, eb: eb, completion: make(chan struct{})}
}

func (eb *clusterNATSEventBus) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = eb.executor.Shutdown(ctx)
	_ = eb.nc.Drain()
	eb.nc.Close()
	return nil
}

func (eb *clusterNATSEventBus) subjectPub(address string) string { return eb.prefix + ".pub." + address }
func (eb *clusterNATSEventBus) subjectSend(address string) string {
	return eb.prefix + ".send." + address
}
func (eb *clusterNATSEventBus) subjectReq(address string) string { return eb.prefix + ".req." + address }

type clusterNATSConsumer struct {
	address string
	eb      *clusterNATSEventBus

	mu         sync.Mutex
	handler    MessageHandler
	subs       []*nats.Subscription
	completion chan struct{}
	registered bool
}

func (c *clusterNATSConsumer) Handler(handler MessageHandler) Consumer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	if c.registered {
		return c
	}
	c.registered = true

	if sub, err := c.eb.nc.Subscribe(c.eb.subjectPub(c.address), c.onMsg()); err == nil {
		c.subs = append(c.subs, sub)
	}
	sendSubject := c.eb.subjectSend(c.address)
	if sub, err := c.eb.nc.QueueSubscribe(sendSubject, sendSubject, c.onMsg()); err == nil {
		c.subs = append(c.subs, sub)
	}
	reqSubject := c.eb.subjectReq(c.address)
	if sub, err := c.eb.nc.QueueSubscribe(reqSubject, reqSubject, c.onMsg()); err == nil {
		c.subs = append(c.subs, sub)
	}
	return c
}

func (c *clusterNATSConsumer) Completion() <-chan struct{} { return c.completion }

func (c *clusterNATSConsumer) Unregister() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		_ = s.Unsubscribe()
	}
	c.subs = nil
	select {
	case <-c.completion:
	default:
		close(c.completion)
	}
	return nil
}

func (c *clusterNATSConsumer) onMsg() nats.MsgHandler {
	return func(nm *nats.Msg) {
		task := concurrency.NewNamedTask("cluster-nats-consumer."+c.address, func(ctx context.Context) error {
			return c.handleMsg(nm)
		})
		if err := c.eb.executor.Submit(task); err != nil {
			c.eb.logger.Warnf("cluster consumer overloaded for %s: %v", c.address, err)
		}
	}
}

func (c *clusterNATSConsumer) handleMsg(nm *nats.Msg) error {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	headers := make(map[string]string)
	for k, v := range nm.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	msg := &clusterNATSMessage{body: nm.Data, headers: headers, replySubject: nm.Reply, eb: c.eb}
	return h(&localFluxorContext{bus: c.eb}, msg)
}

type clusterNATSMessage struct {
	mu           sync.RWMutex
	body         interface{}
	headers      map[string]string
	replySubject string
	eb           *clusterNATSEventBus
}

func (m *clusterNATSMessage) Body() interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.body
}

func (m *clusterNATSMessage) Headers() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		out[k] = v
	}
	return out
}

func (m *clusterNATSMessage) ReplyAddress() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.replySubject
}

func (m *clusterNATSMessage) Reply(body interface{}) error {
	if m.replySubject == "" {
		return ErrNoReplyAddress
	}
	data, err := encodeBody(body)
	if err != nil {
		return err
	}
	reply := &nats.Msg{Subject: m.replySubject, Data: data, Header: nats.Header{}}
	if rid := GetRequestID(m.eb.ctx); rid != "" {
		reply.Header.Set("X-Request-ID", rid)
	}
	return m.eb.nc.PublishMsg(reply)
}

func (m *clusterNATSMessage) DecodeBody(v interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.body.([]byte)
	if !ok {
		return fmt.Errorf("core: body is not []byte, got %T", m.body)
	}
	return JSONDecode(data, v)
}

func (m *clusterNATSMessage) Fail(failureCode int, message string) error {
	return m.Reply(map[string]interface{}{"failureCode": failureCode, "message": message})
}

func encodeBody(body interface{}) ([]byte, error) {
	if b, ok := body.([]byte); ok {
		return b, nil
	}
	return JSONEncode(body)
}
