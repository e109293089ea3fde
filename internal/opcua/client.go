// Package opcua implements the controller variable service over OPC UA.
package opcua

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"
	"github.com/neekaru/opcua-gateway/internal/remote"
)

// FloatEncoding selects the variant type used for writes.
type FloatEncoding string

const (
	// EncodingFloat writes 32-bit floats, matching PLC REAL tags.
	EncodingFloat FloatEncoding = "float"
	// EncodingDouble writes 64-bit floats.
	EncodingDouble FloatEncoding = "double"
)

// Options configures the OPC UA client.
type Options struct {
	RequestTimeout time.Duration
	DialTimeout    time.Duration
	Encoding       FloatEncoding
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		RequestTimeout: 5 * time.Second,
		DialTimeout:    5 * time.Second,
		Encoding:       EncodingFloat,
	}
}

func (o Options) clientOptions() []opcua.Option {
	return []opcua.Option{
		opcua.SecurityPolicy(ua.SecurityPolicyURINone),
		opcua.SecurityMode(ua.MessageSecurityModeNone),
		opcua.AutoReconnect(false),
		opcua.RequestTimeout(o.RequestTimeout),
		opcua.DialTimeout(o.DialTimeout),
	}
}

// Client is a remote.Service backed by a gopcua client. Each Connect creates
// a fresh underlying client, so at most one is ever open.
type Client struct {
	endpoint string
	opts     Options
	logger   *log.Logger

	mu   sync.Mutex
	conn *opcua.Client

	nodes *nodeCache
}

var _ remote.Service = (*Client)(nil)

// NewClient creates an unconnected client for endpoint.
func NewClient(endpoint string, opts Options, logger *log.Logger) *Client {
	if opts.Encoding == "" {
		opts.Encoding = EncodingFloat
	}
	return &Client{
		endpoint: endpoint,
		opts:     opts,
		logger:   logger,
		nodes:    newNodeCache(),
	}
}

// Connect opens a session with the server.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return remote.ErrAlreadyConnected
	}

	conn, err := opcua.NewClient(c.endpoint, c.opts.clientOptions()...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close(ctx)
		return err
	}
	c.conn = conn
	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return remote.ErrNotConnected
	}
	conn := c.conn
	c.conn = nil
	return conn.Close(ctx)
}

func (c *Client) current() (*opcua.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, remote.ErrNotConnected
	}
	return c.conn, nil
}

// ReadValue reads the value attribute of identifier as a float64.
func (c *Client) ReadValue(ctx context.Context, identifier string) (float64, error) {
	conn, err := c.current()
	if err != nil {
		return 0, err
	}
	nodeID, err := c.nodes.parse(identifier)
	if err != nil {
		return 0, err
	}

	dv, err := readValue(ctx, conn, nodeID)
	if err != nil {
		return 0, err
	}
	return toFloat(dv.Value.Value())
}

// WriteValue writes value to identifier using the configured encoding.
func (c *Client) WriteValue(ctx context.Context, identifier string, value float64) error {
	conn, err := c.current()
	if err != nil {
		return err
	}
	nodeID, err := c.nodes.parse(identifier)
	if err != nil {
		return err
	}

	variant, err := c.variant(value)
	if err != nil {
		return err
	}

	req := &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      nodeID,
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask: ua.DataValueValue,
					Value:        variant,
				},
			},
		},
	}
	resp, err := conn.Write(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("write %s: empty response", identifier)
	}
	if status := resp.Results[0]; status != ua.StatusOK {
		return status
	}
	return nil
}

func (c *Client) variant(value float64) (*ua.Variant, error) {
	if c.opts.Encoding == EncodingDouble {
		return ua.NewVariant(value)
	}
	return ua.NewVariant(float32(value))
}

// IsAlive reads the server state. Any failure counts as not alive.
func (c *Client) IsAlive(ctx context.Context) bool {
	conn, err := c.current()
	if err != nil {
		return false
	}
	if conn.State() != opcua.Connected {
		return false
	}
	if _, err := readValue(ctx, conn, ua.NewNumericNodeID(0, id.Server_ServerStatus_State)); err != nil {
		c.logger.Printf("OPC UA liveness probe failed: %v", err)
		return false
	}
	return true
}

func readValue(ctx context.Context, conn *opcua.Client, nodeID *ua.NodeID) (*ua.DataValue, error) {
	req := &ua.ReadRequest{
		MaxAge: 0,
		NodesToRead: []*ua.ReadValueID{
			{NodeID: nodeID, AttributeID: ua.AttributeIDValue},
		},
		TimestampsToReturn: ua.TimestampsToReturnBoth,
	}
	resp, err := conn.Read(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("read %s: empty response", nodeID)
	}
	dv := resp.Results[0]
	if dv.Status != ua.StatusOK {
		if dv.Status == ua.StatusBadNodeIDUnknown {
			return nil, fmt.Errorf("%w: %s", remote.ErrUnknownIdentifier, nodeID)
		}
		return nil, dv.Status
	}
	if dv.Value == nil {
		return nil, fmt.Errorf("read %s: no value", nodeID)
	}
	return dv, nil
}

// toFloat converts the numeric variant types a PLC may report.
func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", v)
	}
}

// nodeCache memoizes parsed node ids; identifiers come from a fixed table.
type nodeCache struct {
	mu    sync.RWMutex
	nodes map[string]*ua.NodeID
}

func newNodeCache() *nodeCache {
	return &nodeCache{nodes: make(map[string]*ua.NodeID)}
}

func (nc *nodeCache) parse(identifier string) (*ua.NodeID, error) {
	nc.mu.RLock()
	nodeID, ok := nc.nodes[identifier]
	nc.mu.RUnlock()
	if ok {
		return nodeID, nil
	}

	nodeID, err := ua.ParseNodeID(strings.TrimSpace(identifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", remote.ErrUnknownIdentifier, identifier, err)
	}

	nc.mu.Lock()
	nc.nodes[identifier] = nodeID
	nc.mu.Unlock()
	return nodeID, nil
}
